package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"screenrec/internal/api"
	"screenrec/internal/config"
	"screenrec/internal/failure"
	"screenrec/internal/logging"
	"screenrec/internal/session"
)

const (
	defaultHistoryLimit = 20
	defaultEventLimit   = 100
	wsWriteTimeout      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil || !cfg.API.Enabled {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	g := r.Group("/api")
	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.GET("/status", s.handleStatus)
	g.GET("/monitors", s.handleMonitors)
	g.GET("/config", s.handleGetConfig)
	g.PUT("/config", s.handlePutConfig)
	g.PATCH("/config", s.handleSetSetting)
	g.POST("/config/reset", s.handleResetConfig)
	g.POST("/record/start", s.handleStart)
	g.POST("/record/stop", s.handleStop)
	g.POST("/remux", s.handleRemux)
	g.GET("/history", s.handleHistory)
	g.GET("/events", s.handleEvents)
	g.GET("/events/ws", s.handleEventSocket)
	return r
}

// requestLogger logs each request at debug level through slog.
func (s *apiServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// StatusFromDaemon converts daemon status into the API payload.
func StatusFromDaemon(st Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      st.Running,
		PID:          os.Getpid(),
		Recorder:     api.FromRecorderStatus(st.Recorder),
		Display:      st.Display,
		Monitors:     st.Monitors,
		SettingsPath: st.SettingsPath,
		LockFilePath: st.LockFilePath,
		LogPath:      st.LogPath,
		APIAddress:   st.APIAddress,
		Hotplug:      st.Hotplug,
		Dependencies: api.FromDependencies(st.Dependencies),
		Checks:       api.FromChecks(st.Preflight),
	}
}

func (s *apiServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusFromDaemon(s.daemon.Status(c.Request.Context())))
}

func (s *apiServer) handleMonitors(c *gin.Context) {
	refresh := queryBool(c, "refresh")
	entries := s.daemon.ListMonitors(c.Request.Context(), refresh)
	c.JSON(http.StatusOK, api.MonitorListResponse{Monitors: api.FromEntries(entries)})
}

func (s *apiServer) handleGetConfig(c *gin.Context) {
	cfg, err := s.daemon.LoadConfig(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromSessionConfig(cfg))
}

func (s *apiServer) handlePutConfig(c *gin.Context) {
	var req api.SessionConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, err)
		return
	}
	cfg, err := req.ToSessionConfig()
	if err != nil {
		s.writeError(c, err)
		return
	}
	saved, err := s.daemon.SaveConfig(c.Request.Context(), cfg)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromSessionConfig(saved))
}

func (s *apiServer) handleSetSetting(c *gin.Context) {
	var req api.SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, err)
		return
	}
	cfg, err := s.daemon.SetSetting(c.Request.Context(), req.Key, req.Value)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromSessionConfig(cfg))
}

func (s *apiServer) handleResetConfig(c *gin.Context) {
	cfg, err := s.daemon.ResetConfig(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromSessionConfig(cfg))
}

func (s *apiServer) handleStart(c *gin.Context) {
	var override *session.Config
	if c.Request.ContentLength > 0 {
		var req api.SessionConfig
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeBadRequest(c, err)
			return
		}
		cfg, err := req.ToSessionConfig()
		if err != nil {
			s.writeError(c, err)
			return
		}
		override = &cfg
	}
	sess, err := s.daemon.StartRecording(c.Request.Context(), override)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.StartResponse{
		Session: *api.FromSession(sess),
		Message: s.daemon.RecorderStatus().Message,
	})
}

func (s *apiServer) handleStop(c *gin.Context) {
	// A client that hangs up must not turn the graceful stop into a kill.
	res, err := s.daemon.StopRecording(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromStopResult(res))
}

func (s *apiServer) handleRemux(c *gin.Context) {
	var req api.RemuxRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeBadRequest(c, err)
			return
		}
	}
	out, err := s.daemon.Remux(c.Request.Context(), req.Dir)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.RemuxResponse{Output: out})
}

func (s *apiServer) handleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	recs, err := s.daemon.History(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.HistoryResponse{Recordings: api.FromRecordings(recs)})
}

// handleEvents serves one page of lifecycle events. follow=1 long-polls
// until an event newer than since arrives; tail=1 returns the latest page.
func (s *apiServer) handleEvents(c *gin.Context) {
	hub := s.daemon.Events()
	since, _ := strconv.ParseUint(c.Query("since"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultEventLimit
	}

	if queryBool(c, "tail") && since == 0 {
		events, next := hub.Tail(limit)
		c.JSON(http.StatusOK, api.EventStreamResponse{Events: api.FromEvents(events), Next: next})
		return
	}

	events, next, err := hub.Fetch(c.Request.Context(), since, limit, queryBool(c, "follow"))
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.EventStreamResponse{Events: api.FromEvents(events), Next: next})
}

// handleEventSocket upgrades to a websocket and pushes every event after
// since until the client disconnects.
func (s *apiServer) handleEventSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only detect the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	since, _ := strconv.ParseUint(c.Query("since"), 10, 64)
	hub := s.daemon.Events()
	for {
		events, next, err := hub.Fetch(ctx, since, defaultEventLimit, true)
		if err != nil {
			return
		}
		for _, evt := range api.FromEvents(events) {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("websocket write failed", logging.Error(err))
				}
				return
			}
		}
		since = next
	}
}

func queryBool(c *gin.Context, key string) bool {
	v := strings.TrimSpace(c.Query(key))
	return v == "1" || strings.EqualFold(v, "true")
}

// HTTPStatus maps a failure kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch failure.KindOf(err) {
	case failure.KindConfiguration:
		return http.StatusBadRequest
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindConflict:
		return http.StatusConflict
	case failure.KindSpawnFailed, failure.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed", logging.String("path", c.FullPath()), logging.Error(err))
	}
	c.JSON(status, api.ErrorResponse{Error: err.Error(), Kind: string(failure.KindOf(err))})
}

func (s *apiServer) writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Error: "invalid request body: " + err.Error(),
		Kind:  string(failure.KindConfiguration),
	})
}
