package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return decodeError(c.client.Call(ServiceName+"."+method, req, resp))
}

// ListMonitors returns the monitor catalog, re-enumerating when refresh is set.
func (c *Client) ListMonitors(refresh bool) (*ListMonitorsResponse, error) {
	var resp ListMonitorsResponse
	if err := c.call("ListMonitors", ListMonitorsRequest{Refresh: refresh}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoadConfig reads the persisted session config.
func (c *Client) LoadConfig() (*SessionConfig, error) {
	var resp ConfigResponse
	if err := c.call("LoadConfig", LoadConfigRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Config, nil
}

// SaveConfig replaces the persisted session config.
func (c *Client) SaveConfig(cfg SessionConfig) (*SessionConfig, error) {
	var resp ConfigResponse
	if err := c.call("SaveConfig", SaveConfigRequest{Config: cfg}, &resp); err != nil {
		return nil, err
	}
	return &resp.Config, nil
}

// SetSetting updates one persisted key.
func (c *Client) SetSetting(key, value string) (*SessionConfig, error) {
	var resp ConfigResponse
	if err := c.call("SetSetting", SetSettingRequest{Key: key, Value: value}, &resp); err != nil {
		return nil, err
	}
	return &resp.Config, nil
}

// ResetConfig restores the default session config.
func (c *Client) ResetConfig() (*SessionConfig, error) {
	var resp ConfigResponse
	if err := c.call("ResetConfig", ResetConfigRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Config, nil
}

// StartRecording starts a capture. A nil cfg uses the persisted config.
func (c *Client) StartRecording(cfg *SessionConfig) (*StartRecordingResponse, error) {
	var resp StartRecordingResponse
	if err := c.call("StartRecording", StartRecordingRequest{Config: cfg}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRecording stops the active capture.
func (c *Client) StopRecording() (*StopRecordingResponse, error) {
	var resp StopRecordingResponse
	if err := c.call("StopRecording", StopRecordingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remux rewraps the newest capture in dir (the saved destination when empty).
func (c *Client) Remux(dir string) (*RemuxResponse, error) {
	var resp RemuxResponse
	if err := c.call("Remux", RemuxRequest{Dir: dir}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists recent recordings.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events pages through lifecycle events.
func (c *Client) Events(req EventsRequest) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.call("Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to show a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
