package selector

import (
	"time"

	"palmguard/internal/control"
)

// Stats is a snapshot of runtime counters.
type Stats struct {
	SessionID  string              `json:"session_id,omitempty"`
	Strategy   control.Kind        `json:"strategy"`
	Descriptor *control.Descriptor `json:"descriptor,omitempty"`
	State      control.State       `json:"state"`
	Monitoring bool                `json:"monitoring"`

	DisableCount int `json:"disable_count"`
	EnableCount  int `json:"enable_count"`

	MonitoringStartedAt time.Time `json:"monitoring_started_at,omitempty"`
	LastDisableAt       time.Time `json:"last_disable_at,omitempty"`
	LastEnableAt        time.Time `json:"last_enable_at,omitempty"`
	LastInputAt         time.Time `json:"last_input_at,omitempty"`

	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`

	// Runtime is the time spent monitoring in the current session
	Runtime time.Duration `json:"runtime"`
}

// Stats returns a copy of the counters.
func (s *Selector) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.State = s.state
	if st.Monitoring && !st.MonitoringStartedAt.IsZero() {
		st.Runtime = s.now().Sub(st.MonitoringStartedAt)
	}
	return st
}

// MarkInput records the time of the latest user input.
func (s *Selector) MarkInput(at time.Time) {
	s.mu.Lock()
	s.stats.LastInputAt = at
	s.mu.Unlock()
}

// LastDisableAt returns the time of the latest successful disable.
func (s *Selector) LastDisableAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.LastDisableAt
}

// MarkMonitoring starts or ends a monitoring session.
func (s *Selector) MarkMonitoring(on bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Monitoring = on
	if on {
		s.stats.SessionID = newSessionID()
		s.stats.MonitoringStartedAt = at
		return
	}
	if !s.stats.MonitoringStartedAt.IsZero() {
		s.stats.Runtime = at.Sub(s.stats.MonitoringStartedAt)
	}
}

// ResetStats clears the counters but keeps the strategy and state.
func (s *Selector) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{
		Strategy:   s.stats.Strategy,
		Descriptor: s.stats.Descriptor,
		State:      s.state,
	}
}
