package ipc

import "screenrec/internal/api"

// Wire DTOs shared with the HTTP API.
type (
	Monitor          = api.Monitor
	SessionConfig    = api.SessionConfig
	Session          = api.Session
	RecorderStatus   = api.RecorderStatus
	DependencyStatus = api.DependencyStatus
	CheckResult      = api.CheckResult
	StopResult       = api.StopResult
	Recording        = api.Recording
	Event            = api.Event
)

// ListMonitorsRequest fetches the monitor catalog.
type ListMonitorsRequest struct {
	Refresh bool `json:"refresh"`
}

// ListMonitorsResponse contains the catalog, never empty.
type ListMonitorsResponse = api.MonitorListResponse

// LoadConfigRequest reads the persisted session config.
type LoadConfigRequest struct{}

// ConfigResponse carries a session config.
type ConfigResponse struct {
	Config SessionConfig `json:"config"`
}

// SaveConfigRequest replaces the persisted session config.
type SaveConfigRequest struct {
	Config SessionConfig `json:"config"`
}

// SetSettingRequest updates one persisted key.
type SetSettingRequest = api.SetSettingRequest

// ResetConfigRequest clears the persisted session config.
type ResetConfigRequest struct{}

// StartRecordingRequest starts a capture; a nil Config uses the persisted one.
type StartRecordingRequest struct {
	Config *SessionConfig `json:"config,omitempty"`
}

// StartRecordingResponse reports the launched session.
type StartRecordingResponse = api.StartResponse

// StopRecordingRequest stops the active capture.
type StopRecordingRequest struct{}

// StopRecordingResponse reports what the stop did.
type StopRecordingResponse = api.StopResult

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and recorder status.
type StatusResponse = api.DaemonStatus

// RemuxRequest selects the folder to remux.
type RemuxRequest = api.RemuxRequest

// RemuxResponse carries the created file.
type RemuxResponse = api.RemuxResponse

// HistoryRequest lists recent recordings.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains recordings, newest first.
type HistoryResponse = api.HistoryResponse

// EventsRequest pages through lifecycle events. Follow blocks until an event
// newer than Since arrives or WaitSeconds elapse.
type EventsRequest struct {
	Since       uint64 `json:"since"`
	Limit       int    `json:"limit"`
	Follow      bool   `json:"follow"`
	Tail        bool   `json:"tail"`
	WaitSeconds int    `json:"wait_seconds"`
}

// EventsResponse contains events plus the cursor for the next call.
type EventsResponse = api.EventStreamResponse

// TestNotificationRequest sends a desktop notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Acknowledged bool `json:"acknowledged"`
}
