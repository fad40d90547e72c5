package main

import (
	"context"

	"screenrec/internal/api"
	"screenrec/internal/daemon"
	"screenrec/internal/ipc"
)

// backend is the command surface shared by the daemon client and an
// in-process daemon.
type backend interface {
	ListMonitors(ctx context.Context, refresh bool) ([]api.Monitor, error)
	LoadConfig(ctx context.Context) (api.SessionConfig, error)
	SetSetting(ctx context.Context, key, value string) (api.SessionConfig, error)
	ResetConfig(ctx context.Context) (api.SessionConfig, error)
	Remux(ctx context.Context, dir string) (string, error)
	History(ctx context.Context, limit int) ([]api.Recording, error)
	Remote() bool
}

type remoteBackend struct {
	client *ipc.Client
}

func (b remoteBackend) Remote() bool { return true }

func (b remoteBackend) ListMonitors(_ context.Context, refresh bool) ([]api.Monitor, error) {
	resp, err := b.client.ListMonitors(refresh)
	if err != nil {
		return nil, err
	}
	return resp.Monitors, nil
}

func (b remoteBackend) LoadConfig(context.Context) (api.SessionConfig, error) {
	cfg, err := b.client.LoadConfig()
	if err != nil {
		return api.SessionConfig{}, err
	}
	return *cfg, nil
}

func (b remoteBackend) SetSetting(_ context.Context, key, value string) (api.SessionConfig, error) {
	cfg, err := b.client.SetSetting(key, value)
	if err != nil {
		return api.SessionConfig{}, err
	}
	return *cfg, nil
}

func (b remoteBackend) ResetConfig(context.Context) (api.SessionConfig, error) {
	cfg, err := b.client.ResetConfig()
	if err != nil {
		return api.SessionConfig{}, err
	}
	return *cfg, nil
}

func (b remoteBackend) Remux(_ context.Context, dir string) (string, error) {
	resp, err := b.client.Remux(dir)
	if err != nil {
		return "", err
	}
	return resp.Output, nil
}

func (b remoteBackend) History(_ context.Context, limit int) ([]api.Recording, error) {
	resp, err := b.client.History(limit)
	if err != nil {
		return nil, err
	}
	return resp.Recordings, nil
}

type localBackend struct {
	daemon *daemon.Daemon
}

func (b localBackend) Remote() bool { return false }

func (b localBackend) ListMonitors(ctx context.Context, refresh bool) ([]api.Monitor, error) {
	return api.FromEntries(b.daemon.ListMonitors(ctx, refresh)), nil
}

func (b localBackend) LoadConfig(ctx context.Context) (api.SessionConfig, error) {
	cfg, err := b.daemon.LoadConfig(ctx)
	if err != nil {
		return api.SessionConfig{}, err
	}
	return api.FromSessionConfig(cfg), nil
}

func (b localBackend) SetSetting(ctx context.Context, key, value string) (api.SessionConfig, error) {
	cfg, err := b.daemon.SetSetting(ctx, key, value)
	if err != nil {
		return api.SessionConfig{}, err
	}
	return api.FromSessionConfig(cfg), nil
}

func (b localBackend) ResetConfig(ctx context.Context) (api.SessionConfig, error) {
	cfg, err := b.daemon.ResetConfig(ctx)
	if err != nil {
		return api.SessionConfig{}, err
	}
	return api.FromSessionConfig(cfg), nil
}

func (b localBackend) Remux(ctx context.Context, dir string) (string, error) {
	return b.daemon.Remux(ctx, dir)
}

func (b localBackend) History(ctx context.Context, limit int) ([]api.Recording, error) {
	recs, err := b.daemon.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return api.FromRecordings(recs), nil
}
