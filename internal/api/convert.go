package api

import (
	"fmt"
	"strings"
	"time"

	"screenrec/internal/deps"
	"screenrec/internal/failure"
	"screenrec/internal/monitors"
	"screenrec/internal/preflight"
	"screenrec/internal/recorder"
	"screenrec/internal/session"
	"screenrec/internal/settings"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// FromEntries converts the monitor catalog, numbering entries from zero.
func FromEntries(entries []monitors.Entry) []Monitor {
	out := make([]Monitor, 0, len(entries))
	for i, e := range entries {
		out = append(out, Monitor{Index: i, Name: e.Name, Geometry: e.Geometry})
	}
	return out
}

// FromSessionConfig converts a session config to its API representation.
func FromSessionConfig(cfg session.Config) SessionConfig {
	return SessionConfig{
		Resolution:  string(cfg.Resolution),
		FrameRate:   int(cfg.FrameRate),
		Codec:       string(cfg.Codec),
		Quality:     cfg.Quality,
		Audio:       cfg.Audio,
		Remux:       cfg.Remux,
		Monitor:     cfg.MonitorIndex,
		Destination: cfg.Destination,
	}
}

// ToSessionConfig converts and validates an API config. Codec aliases such
// as "hevc" are accepted.
func (c SessionConfig) ToSessionConfig() (session.Config, error) {
	codec, err := session.ParseCodec(c.Codec)
	if err != nil {
		return session.Config{}, fmt.Errorf("%w: %w", session.ErrInvalid, err)
	}
	cfg := session.Config{
		Resolution:   session.Resolution(strings.TrimSpace(c.Resolution)),
		FrameRate:    session.FrameRate(c.FrameRate),
		Codec:        codec,
		Quality:      c.Quality,
		Audio:        c.Audio,
		Remux:        c.Remux,
		MonitorIndex: c.Monitor,
		Destination:  strings.TrimSpace(c.Destination),
	}
	if err := cfg.Validate(); err != nil {
		return session.Config{}, err
	}
	return cfg, nil
}

// FromSession converts an active session; nil stays nil.
func FromSession(s *recorder.Session) *Session {
	if s == nil {
		return nil
	}
	return &Session{
		ID:         s.ID,
		StartedAt:  formatTime(s.StartedAt),
		OutputPath: s.OutputPath,
		LogPath:    s.LogPath,
		PID:        s.PID,
		Monitor:    Monitor{Index: s.Config.MonitorIndex, Name: s.Monitor.Name, Geometry: s.Monitor.Geometry},
		Config:     FromSessionConfig(s.Config),
	}
}

// FromRecorderStatus converts the recorder snapshot.
func FromRecorderStatus(st recorder.Status) RecorderStatus {
	return RecorderStatus{
		State:      string(st.State),
		Message:    st.Message,
		Session:    FromSession(st.Session),
		LastError:  st.LastError,
		LastOutput: st.LastOutput,
		LastRemux:  st.LastRemux,
	}
}

// FromDependencies converts tool availability reports.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:            s.Name,
			Command:         s.Command,
			Description:     s.Description,
			Optional:        s.Optional,
			Available:       s.Available,
			Path:            s.Path,
			Version:         s.Version,
			MissingFeatures: append([]string(nil), s.MissingFeatures...),
			Detail:          s.Detail,
		})
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromStopResult converts a stop outcome; errors become strings.
func FromStopResult(res recorder.StopResult) StopResult {
	out := StopResult{
		Stopped:     res.Stopped,
		Session:     FromSession(res.Session),
		Forced:      res.Forced,
		DurationMS:  res.Duration.Milliseconds(),
		ExitError:   errString(res.ExitErr),
		RemuxOutput: res.RemuxOutput,
		RemuxError:  errString(res.RemuxErr),
	}
	if res.RemuxErr != nil {
		out.RemuxKind = string(failure.KindOf(res.RemuxErr))
	}
	return out
}

// FromRecordings converts history rows.
func FromRecordings(recs []settings.Recording) []Recording {
	out := make([]Recording, 0, len(recs))
	for _, r := range recs {
		dto := Recording{
			ID:           r.ID,
			OutputPath:   r.OutputPath,
			Monitor:      r.Monitor,
			Geometry:     r.Geometry,
			Status:       string(r.Status),
			StartedAt:    formatTime(r.StartedAt),
			RemuxOutput:  r.RemuxOutput,
			ErrorMessage: r.Error,
		}
		if r.StoppedAt != nil {
			dto.StoppedAt = formatTime(*r.StoppedAt)
		}
		out = append(out, dto)
	}
	return out
}

// FromEvents converts recorder events.
func FromEvents(events []recorder.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, Event{
			Sequence:  e.Sequence,
			Timestamp: formatTime(e.Timestamp),
			Type:      string(e.Type),
			State:     string(e.State),
			SessionID: e.SessionID,
			Path:      e.Path,
			Message:   e.Message,
			Error:     e.Error,
		})
	}
	return out
}

// ParseTime reads a timestamp produced by this package.
func ParseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateTimeFormat, value)
}
