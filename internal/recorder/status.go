package recorder

// Status messages shown when nothing more specific applies.
const (
	MessageReady   = "Ready"
	MessageStopped = "Recording stopped."
)

type statusInfo struct {
	message    string
	lastError  string
	lastOutput string
	lastRemux  string
}

// Status is a snapshot for status displays.
type Status struct {
	State      State    `json:"state"`
	Session    *Session `json:"session,omitempty"`
	Message    string   `json:"message"`
	LastError  string   `json:"last_error,omitempty"`
	LastOutput string   `json:"last_output,omitempty"`
	LastRemux  string   `json:"last_remux,omitempty"`
}

// Status returns the current state together with a human-readable message.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		State:      r.state,
		Message:    r.status.message,
		LastError:  r.status.lastError,
		LastOutput: r.status.lastOutput,
		LastRemux:  r.status.lastRemux,
	}
	if r.pending {
		st.Message = "Starting recording..."
	}
	if r.current != nil {
		cp := *r.current
		st.Session = &cp
	}
	return st
}
