package entities

import (
	"errors"
	"strings"
	"time"
)

// SessionState represents the lifecycle state of a synthesis session
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateConnecting SessionState = "connecting"
	SessionStateSending    SessionState = "sending"
	SessionStateListening  SessionState = "listening"
	SessionStateComplete   SessionState = "complete"
	SessionStateFailed     SessionState = "failed"
	SessionStateClosed     SessionState = "closed"
)

// IsTerminal reports whether no further transitions can happen from this state
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionStateComplete, SessionStateFailed, SessionStateClosed:
		return true
	}
	return false
}

// SynthesisJob is one unit of work: a text and the numeric identifier its audio is keyed by
type SynthesisJob struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Validate validates the job data
func (j SynthesisJob) Validate() error {
	if j.ID < 0 {
		return errors.New("job id must not be negative")
	}

	if strings.TrimSpace(j.Text) == "" {
		return errors.New("text cannot be empty")
	}

	return nil
}

// SynthesisResult describes the outcome of one session
type SynthesisResult struct {
	JobID     int           `json:"job_id"`
	TraceID   string        `json:"trace_id"`
	SessionID string        `json:"sid,omitempty"` // assigned by the remote service
	State     SessionState  `json:"state"`
	Path      string        `json:"path,omitempty"`
	Bytes     int           `json:"bytes"`
	Fragments int           `json:"fragments"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// HasAudio reports whether an artifact was written for this result
func (r SynthesisResult) HasAudio() bool {
	return r.Path != "" && r.Bytes > 0
}
