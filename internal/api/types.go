package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Monitor is one selectable capture region.
type Monitor struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Geometry string `json:"geometry"`
}

// MonitorListResponse wraps the catalog.
type MonitorListResponse struct {
	Monitors []Monitor `json:"monitors"`
}

// SessionConfig mirrors session.Config.
type SessionConfig struct {
	Resolution  string `json:"resolution"`
	FrameRate   int    `json:"framerate"`
	Codec       string `json:"codec"`
	Quality     int    `json:"quality"`
	Audio       bool   `json:"audio"`
	Remux       bool   `json:"remux"`
	Monitor     int    `json:"monitor"`
	Destination string `json:"destination"`
}

// SetSettingRequest updates one persisted key.
type SetSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Session describes an active capture.
type Session struct {
	ID         string        `json:"id"`
	StartedAt  string        `json:"startedAt"`
	OutputPath string        `json:"outputPath"`
	LogPath    string        `json:"logPath,omitempty"`
	PID        int           `json:"pid"`
	Monitor    Monitor       `json:"monitor"`
	Config     SessionConfig `json:"config"`
}

// RecorderStatus reports the lifecycle state and the status line.
type RecorderStatus struct {
	State      string   `json:"state"`
	Message    string   `json:"message"`
	Session    *Session `json:"session,omitempty"`
	LastError  string   `json:"lastError,omitempty"`
	LastOutput string   `json:"lastOutput,omitempty"`
	LastRemux  string   `json:"lastRemux,omitempty"`
}

// DependencyStatus captures availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	// MissingFeatures names capabilities the installed build lacks.
	MissingFeatures []string `json:"missingFeatures,omitempty"`
	Detail          string   `json:"detail,omitempty"`
}

// CheckResult is one failed or passed environment check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Recorder     RecorderStatus     `json:"recorder"`
	Display      string             `json:"display"`
	Monitors     int                `json:"monitors"`
	SettingsPath string             `json:"settingsPath"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath,omitempty"`
	APIAddress   string             `json:"apiAddress,omitempty"`
	Hotplug      bool               `json:"hotplug"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Checks       []CheckResult      `json:"checks,omitempty"`
}

// StartResponse reports the launched session.
type StartResponse struct {
	Session Session `json:"session"`
	Message string  `json:"message"`
}

// StopResult reports what a stop did.
type StopResult struct {
	Stopped     bool     `json:"stopped"`
	Session     *Session `json:"session,omitempty"`
	Forced      bool     `json:"forced,omitempty"`
	DurationMS  int64    `json:"durationMs"`
	ExitError   string   `json:"exitError,omitempty"`
	RemuxOutput string   `json:"remuxOutput,omitempty"`
	RemuxError  string   `json:"remuxError,omitempty"`
	RemuxKind   string   `json:"remuxKind,omitempty"`
}

// RemuxRequest selects the folder to remux; empty means the saved destination.
type RemuxRequest struct {
	Dir string `json:"dir"`
}

// RemuxResponse carries the created file.
type RemuxResponse struct {
	Output string `json:"output"`
}

// Recording is one history row.
type Recording struct {
	ID           string `json:"id"`
	OutputPath   string `json:"outputPath"`
	Monitor      string `json:"monitor"`
	Geometry     string `json:"geometry"`
	Status       string `json:"status"`
	StartedAt    string `json:"startedAt"`
	StoppedAt    string `json:"stoppedAt,omitempty"`
	RemuxOutput  string `json:"remuxOutput,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// HistoryResponse wraps recent recordings, newest first.
type HistoryResponse struct {
	Recordings []Recording `json:"recordings"`
}

// Event is one lifecycle notification.
type Event struct {
	Sequence  uint64 `json:"seq"`
	Timestamp string `json:"ts"`
	Type      string `json:"type"`
	State     string `json:"state"`
	SessionID string `json:"sessionId,omitempty"`
	Path      string `json:"path,omitempty"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// EventStreamResponse is a page of events plus the cursor for the next call.
type EventStreamResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

// ErrorResponse is the body of every non-2xx HTTP reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
