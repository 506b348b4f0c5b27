// Package store defines the durable persistence port consumed by the core
// and its two implementations: an in-process memory store and a SQLite
// store. The core only depends on the interface; everything state-mutating
// goes through it, including the atomic cadence reservation.
package store

import (
	"context"
	"time"

	"masthead/internal/model"
)

// Store is the persistence capability for drafts, signals, decisions,
// predictions, reputations and cadence counters.
type Store interface {
	SaveDraft(ctx context.Context, d *model.Draft) error
	Draft(ctx context.Context, id string) (*model.Draft, error)

	SaveSignal(ctx context.Context, s *model.Signal) error
	Signal(ctx context.Context, id string) (*model.Signal, error)
	// PendingSignals returns signals still awaiting evaluation (NEW), plus
	// silenced signals whose cooldown has lapsed by now.
	PendingSignals(ctx context.Context, now time.Time) ([]*model.Signal, error)

	SaveDecision(ctx context.Context, d *model.EditorialDecision) error
	// DecisionByToken returns the decision recorded for a correlation token,
	// or model.ErrNotFound. This is the idempotency lookup.
	DecisionByToken(ctx context.Context, token string) (*model.EditorialDecision, error)
	// ReserveToken atomically claims a correlation token for one in-flight
	// evaluation: a single conditional write, like TryReserveCadence. It
	// returns false when the token is already claimed or already carries a
	// recorded decision. Concurrent callers with one token get one winner.
	ReserveToken(ctx context.Context, token string) (bool, error)
	// ReleaseToken frees a claimed token whose evaluation failed, so a retry
	// can claim it again. A token with a recorded decision stays resolved.
	ReleaseToken(ctx context.Context, token string) error

	SavePrediction(ctx context.Context, p *model.Prediction) error
	// PendingPredictions returns unaudited predictions created before cutoff.
	PendingPredictions(ctx context.Context, cutoff time.Time) ([]*model.Prediction, error)
	// AuditedPredictions returns confirmed/falsified predictions audited at
	// or after since.
	AuditedPredictions(ctx context.Context, since time.Time) ([]*model.Prediction, error)

	SaveReputation(ctx context.Context, r *model.SourceReputation) error
	Reputation(ctx context.Context, sourceID string) (*model.SourceReputation, error)
	// ReputationMultipliers returns the multiplier for every known source.
	ReputationMultipliers(ctx context.Context) (map[string]float64, error)

	// TryReserveCadence atomically increments the (vertical, windowStart)
	// counter if and only if it is below max. A single conditional update,
	// never a read-then-write pair: concurrent reservations past capacity
	// must lose, not race.
	TryReserveCadence(ctx context.Context, vertical string, windowStart time.Time, max int) (bool, error)
	// CadenceUsed returns the current count for the window.
	CadenceUsed(ctx context.Context, vertical string, windowStart time.Time) (int, error)

	Close() error
}
