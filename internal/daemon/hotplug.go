package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"screenrec/internal/config"
	"screenrec/internal/logging"
)

// drm connectors emit a burst of change events per plug; refreshes coalesce
// within this window.
const hotplugDebounce = 750 * time.Millisecond

// hotplugMonitor listens for udev netlink events on the drm subsystem and
// refreshes the monitor catalog when a connector changes state.
type hotplugMonitor struct {
	logger   *slog.Logger
	refresh  func(ctx context.Context)
	debounce time.Duration

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	timer   *time.Timer
	running bool
}

func newHotplugMonitor(cfg *config.Config, logger *slog.Logger, refresh func(ctx context.Context)) *hotplugMonitor {
	if cfg == nil || !cfg.Hotplug.Enabled {
		return nil
	}
	return &hotplugMonitor{
		logger:   logging.NewComponentLogger(logger, "hotplug"),
		refresh:  refresh,
		debounce: hotplugDebounce,
	}
}

// Start begins listening for udev netlink events. Connection failures are
// logged and leave the monitor stopped.
func (m *hotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; monitor list refreshes on request only", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open NETLINK_KOBJECT_UEVENT sockets"),
			logging.String(logging.FieldImpact, "hot-plugged monitors appear after `screenrec monitors --refresh`"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("hotplug monitor started", logging.String(logging.FieldEventType, "hotplug_monitor_started"))
	return nil
}

// Stop shuts down the netlink listener.
func (m *hotplugMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("hotplug monitor stopped", logging.String(logging.FieldEventType, "hotplug_monitor_stopped"))
}

// Running reports whether the netlink listener is active.
func (m *hotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *hotplugMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "monitor changes may be missed"),
			)
		}
	}
}

// buildMatcher accepts connector change events: SUBSYSTEM=drm, HOTPLUG=1,
// ACTION=change.
func (m *hotplugMonitor) buildMatcher() netlink.Matcher {
	action := "change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "drm",
			"HOTPLUG":   "1",
		},
	})
	return rules
}

func (m *hotplugMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	card := cardName(uevent)
	if card == "" {
		m.logger.Debug("ignoring drm event without device",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	m.logger.Debug("display connector changed",
		logging.String("card", card),
		logging.String("connector", uevent.Env["CONNECTOR"]),
	)

	if m.refresh == nil {
		return
	}
	if m.debounce <= 0 {
		m.refresh(ctx)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Reset(m.debounce)
		return
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		m.timer = nil
		m.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		m.refresh(ctx)
	})
}

// cardName returns the drm card a uevent refers to, e.g. "card0".
func cardName(uevent netlink.UEvent) string {
	if devname := strings.TrimSpace(uevent.Env["DEVNAME"]); devname != "" {
		return devname[strings.LastIndex(devname, "/")+1:]
	}
	devpath := strings.TrimSpace(uevent.Env["DEVPATH"])
	if devpath == "" {
		devpath = uevent.KObj
	}
	if devpath == "" {
		return ""
	}
	parts := strings.Split(strings.TrimRight(devpath, "/"), "/")
	return parts[len(parts)-1]
}
