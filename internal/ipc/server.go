package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"sync"
	"time"

	"screenrec/internal/api"
	"screenrec/internal/daemon"
	"screenrec/internal/logging"
	"screenrec/internal/session"
)

// ServiceName is the JSON-RPC service prefix ("Screenrec.Status").
const ServiceName = "Screenrec"

const (
	defaultHistoryLimit = 20
	defaultEventLimit   = 100
	maxEventWait        = 30 * time.Second
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption customizes the IPC server.
type ServerOption func(*service)

// WithShutdown registers the function the Shutdown RPC calls.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) { s.shutdown = fn }
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	svc := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	for _, opt := range opts {
		opt(svc)
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) ListMonitors(req ListMonitorsRequest, resp *ListMonitorsResponse) error {
	entries := s.daemon.ListMonitors(s.ctx, req.Refresh)
	resp.Monitors = api.FromEntries(entries)
	return nil
}

func (s *service) LoadConfig(_ LoadConfigRequest, resp *ConfigResponse) error {
	cfg, err := s.daemon.LoadConfig(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	resp.Config = api.FromSessionConfig(cfg)
	return nil
}

func (s *service) SaveConfig(req SaveConfigRequest, resp *ConfigResponse) error {
	cfg, err := req.Config.ToSessionConfig()
	if err != nil {
		return encodeError(err)
	}
	saved, err := s.daemon.SaveConfig(s.ctx, cfg)
	if err != nil {
		return encodeError(err)
	}
	resp.Config = api.FromSessionConfig(saved)
	return nil
}

func (s *service) SetSetting(req SetSettingRequest, resp *ConfigResponse) error {
	cfg, err := s.daemon.SetSetting(s.ctx, req.Key, req.Value)
	if err != nil {
		return encodeError(err)
	}
	resp.Config = api.FromSessionConfig(cfg)
	return nil
}

func (s *service) ResetConfig(_ ResetConfigRequest, resp *ConfigResponse) error {
	cfg, err := s.daemon.ResetConfig(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	resp.Config = api.FromSessionConfig(cfg)
	return nil
}

func (s *service) StartRecording(req StartRecordingRequest, resp *StartRecordingResponse) error {
	var override *session.Config
	if req.Config != nil {
		cfg, err := req.Config.ToSessionConfig()
		if err != nil {
			return encodeError(err)
		}
		override = &cfg
	}
	sess, err := s.daemon.StartRecording(s.ctx, override)
	if err != nil {
		return encodeError(err)
	}
	resp.Session = *api.FromSession(sess)
	resp.Message = s.daemon.RecorderStatus().Message
	s.logger.Info("recording started via IPC",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldEventType, "ipc_recording_start"))
	return nil
}

func (s *service) StopRecording(_ StopRecordingRequest, resp *StopRecordingResponse) error {
	res, err := s.daemon.StopRecording(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	*resp = api.FromStopResult(res)
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = daemon.StatusFromDaemon(s.daemon.Status(s.ctx))
	return nil
}

func (s *service) Remux(req RemuxRequest, resp *RemuxResponse) error {
	out, err := s.daemon.Remux(s.ctx, req.Dir)
	if err != nil {
		return encodeError(err)
	}
	resp.Output = out
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	recs, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return encodeError(err)
	}
	resp.Recordings = api.FromRecordings(recs)
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	hub := s.daemon.Events()
	limit := req.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if req.Tail && req.Since == 0 {
		events, next := hub.Tail(limit)
		resp.Events, resp.Next = api.FromEvents(events), next
		return nil
	}

	wait := time.Duration(req.WaitSeconds) * time.Second
	if wait <= 0 || wait > maxEventWait {
		wait = maxEventWait
	}
	ctx, cancel := context.WithTimeout(s.ctx, wait)
	defer cancel()
	events, next, err := hub.Fetch(ctx, req.Since, limit, req.Follow)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return encodeError(err)
	}
	resp.Events, resp.Next = api.FromEvents(events), next
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("daemon shutdown requested via IPC", logging.String(logging.FieldEventType, "daemon_shutdown"))
	if s.shutdown == nil {
		s.daemon.Stop()
	} else {
		// Reply before the listener closes underneath this call.
		go s.shutdown()
	}
	resp.Acknowledged = true
	return nil
}
