package model

import "time"

// SignalStatus tracks a detected topic through evaluation
type SignalStatus string

const (
	SignalNew          SignalStatus = "NEW"
	SignalEvaluated    SignalStatus = "EVALUATED"
	SignalSilenced     SignalStatus = "SILENCED"
	SignalCommissioned SignalStatus = "COMMISSIONED"
)

// Signal is a candidate topic/event surfaced for possible coverage
type Signal struct {
	ID            string       `json:"id"`
	Topic         string       `json:"topic"`
	Vertical      string       `json:"vertical"`
	Status        SignalStatus `json:"status"`
	GapFailures   int          `json:"gap_failures"`             // Consecutive low-confidence evaluations
	SilencedUntil time.Time    `json:"silenced_until,omitempty"` // Zero unless silenced
	CreatedAt     time.Time    `json:"created_at"`
}

// Silenced reports whether the signal is inside its silence cooldown at the
// given instant. Silencing is monotonic: no evaluation may move a silenced
// signal elsewhere before the cooldown lapses.
func (s *Signal) Silenced(now time.Time) bool {
	return s.Status == SignalSilenced && now.Before(s.SilencedUntil)
}
