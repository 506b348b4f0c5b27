package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"masthead/internal/model"
)

// SQLiteStore is the durable store backed by a SQLite file.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite creates or opens a SQLite database at the given path and
// brings the schema up to date.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: dbPath}, nil
}

// migrate brings the schema up to the latest version, tracked via
// PRAGMA user_version.
func migrate(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Printf("applying migration %d: %s", m.Version, m.Description)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// Set user_version outside the transaction (modernc/sqlite requirement).
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// sqliteTimeLayout is RFC3339 with a fixed-width nanosecond fraction.
// Timestamp columns are compared as strings in SQL, and only a fixed
// width keeps lexicographic order equal to chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, d *model.Draft) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO drafts (id, signal_id, vertical, title, narrative, claims, source_ids, trust_score, quality_score, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    signal_id=excluded.signal_id, vertical=excluded.vertical, title=excluded.title,
    narrative=excluded.narrative, claims=excluded.claims, source_ids=excluded.source_ids,
    trust_score=excluded.trust_score, quality_score=excluded.quality_score, status=excluded.status`,
		d.ID, d.SignalID, d.Vertical, d.Title, d.Narrative,
		marshalJSON(d.Claims), marshalJSON(d.SourceIDs),
		d.Trust, d.Quality, string(d.Status), timeOrEmpty(d.CreatedAt))
	if err != nil {
		return model.NewPersistenceError("save draft", err)
	}
	return nil
}

func (s *SQLiteStore) Draft(ctx context.Context, id string) (*model.Draft, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT id, signal_id, vertical, title, narrative, claims, source_ids, trust_score, quality_score, status, created_at
FROM drafts WHERE id = ?`, id)

	var d model.Draft
	var claims, sourceIDs, status, createdAt string
	err := row.Scan(&d.ID, &d.SignalID, &d.Vertical, &d.Title, &d.Narrative,
		&claims, &sourceIDs, &d.Trust, &d.Quality, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("draft", id)
	}
	if err != nil {
		return nil, model.NewPersistenceError("load draft", err)
	}

	_ = json.Unmarshal([]byte(claims), &d.Claims)
	_ = json.Unmarshal([]byte(sourceIDs), &d.SourceIDs)
	d.Status = model.DraftStatus(status)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *model.Signal) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO signals (id, topic, vertical, status, gap_failures, silenced_until, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    topic=excluded.topic, vertical=excluded.vertical, status=excluded.status,
    gap_failures=excluded.gap_failures, silenced_until=excluded.silenced_until`,
		sig.ID, sig.Topic, sig.Vertical, string(sig.Status),
		sig.GapFailures, timeOrEmpty(sig.SilencedUntil), timeOrEmpty(sig.CreatedAt))
	if err != nil {
		return model.NewPersistenceError("save signal", err)
	}
	return nil
}

func scanSignal(row interface{ Scan(...any) error }) (*model.Signal, error) {
	var sig model.Signal
	var status, silencedUntil, createdAt string
	if err := row.Scan(&sig.ID, &sig.Topic, &sig.Vertical, &status,
		&sig.GapFailures, &silencedUntil, &createdAt); err != nil {
		return nil, err
	}
	sig.Status = model.SignalStatus(status)
	sig.SilencedUntil = parseTime(silencedUntil)
	sig.CreatedAt = parseTime(createdAt)
	return &sig, nil
}

func (s *SQLiteStore) Signal(ctx context.Context, id string) (*model.Signal, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT id, topic, vertical, status, gap_failures, silenced_until, created_at
FROM signals WHERE id = ?`, id)

	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("signal", id)
	}
	if err != nil {
		return nil, model.NewPersistenceError("load signal", err)
	}
	return sig, nil
}

func (s *SQLiteStore) PendingSignals(ctx context.Context, now time.Time) ([]*model.Signal, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT id, topic, vertical, status, gap_failures, silenced_until, created_at
FROM signals
WHERE status = ? OR (status = ? AND silenced_until <= ?)
ORDER BY id`,
		string(model.SignalNew), string(model.SignalSilenced), timeOrEmpty(now))
	if err != nil {
		return nil, model.NewPersistenceError("pending signals", err)
	}
	defer rows.Close()

	var out []*model.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, model.NewPersistenceError("scan signal", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, d *model.EditorialDecision) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO decisions (id, token, signal_id, draft_id, decision, reasons, trust_score, quality_score, confidence, cadence_remaining, human_review, decided_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Token, d.SignalID, d.DraftID, string(d.Decision),
		marshalJSON(d.Reasons), d.Checks.TrustScore, d.Checks.QualityScore,
		d.Checks.Confidence, d.Checks.CadenceRemaining,
		boolToInt(d.HumanReviewRequired), timeOrEmpty(d.DecidedAt))
	if err != nil {
		return model.NewPersistenceError("save decision", err)
	}
	return nil
}

func (s *SQLiteStore) DecisionByToken(ctx context.Context, token string) (*model.EditorialDecision, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT id, token, signal_id, draft_id, decision, reasons, trust_score, quality_score, confidence, cadence_remaining, human_review, decided_at
FROM decisions WHERE token = ?`, token)

	var d model.EditorialDecision
	var decision, reasons, decidedAt string
	var humanReview int
	err := row.Scan(&d.ID, &d.Token, &d.SignalID, &d.DraftID, &decision, &reasons,
		&d.Checks.TrustScore, &d.Checks.QualityScore, &d.Checks.Confidence,
		&d.Checks.CadenceRemaining, &humanReview, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("decision for token", token)
	}
	if err != nil {
		return nil, model.NewPersistenceError("load decision", err)
	}

	d.Decision = model.DecisionKind(decision)
	_ = json.Unmarshal([]byte(reasons), &d.Reasons)
	d.HumanReviewRequired = humanReview != 0
	d.DecidedAt = parseTime(decidedAt)
	return &d, nil
}

// ReserveToken claims the token with one conditional INSERT: it loses to
// an existing reservation and to an already-recorded decision, never after
// the fact.
func (s *SQLiteStore) ReserveToken(ctx context.Context, token string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `
INSERT INTO token_reservations (token, reserved_at)
SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM decisions WHERE token = ?)
ON CONFLICT(token) DO NOTHING`,
		token, timeOrEmpty(time.Now().UTC()), token)
	if err != nil {
		return false, model.NewPersistenceError("reserve token", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, model.NewPersistenceError("reserve token", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) ReleaseToken(ctx context.Context, token string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM token_reservations WHERE token = ?`, token); err != nil {
		return model.NewPersistenceError("release token", err)
	}
	return nil
}

func (s *SQLiteStore) SavePrediction(ctx context.Context, p *model.Prediction) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO predictions (id, draft_id, claim_text, source_ids, probability, outcome, accuracy, created_at, audited_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    outcome=excluded.outcome, accuracy=excluded.accuracy, audited_at=excluded.audited_at`,
		p.ID, p.DraftID, p.ClaimText, marshalJSON(p.SourceIDs),
		p.Probability, string(p.Outcome), p.Accuracy,
		timeOrEmpty(p.CreatedAt), timeOrEmpty(p.AuditedAt))
	if err != nil {
		return model.NewPersistenceError("save prediction", err)
	}
	return nil
}

func (s *SQLiteStore) queryPredictions(ctx context.Context, query string, args ...any) ([]*model.Prediction, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.NewPersistenceError("query predictions", err)
	}
	defer rows.Close()

	var out []*model.Prediction
	for rows.Next() {
		var p model.Prediction
		var sourceIDs, outcome, createdAt, auditedAt string
		if err := rows.Scan(&p.ID, &p.DraftID, &p.ClaimText, &sourceIDs,
			&p.Probability, &outcome, &p.Accuracy, &createdAt, &auditedAt); err != nil {
			return nil, model.NewPersistenceError("scan prediction", err)
		}
		_ = json.Unmarshal([]byte(sourceIDs), &p.SourceIDs)
		p.Outcome = model.PredictionOutcome(outcome)
		p.CreatedAt = parseTime(createdAt)
		p.AuditedAt = parseTime(auditedAt)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PendingPredictions(ctx context.Context, cutoff time.Time) ([]*model.Prediction, error) {
	return s.queryPredictions(ctx, `
SELECT id, draft_id, claim_text, source_ids, probability, outcome, accuracy, created_at, audited_at
FROM predictions WHERE outcome = ? AND created_at < ? ORDER BY id`,
		string(model.OutcomePending), timeOrEmpty(cutoff))
}

func (s *SQLiteStore) AuditedPredictions(ctx context.Context, since time.Time) ([]*model.Prediction, error) {
	return s.queryPredictions(ctx, `
SELECT id, draft_id, claim_text, source_ids, probability, outcome, accuracy, created_at, audited_at
FROM predictions WHERE outcome != ? AND audited_at >= ? ORDER BY id`,
		string(model.OutcomePending), timeOrEmpty(since))
}

func (s *SQLiteStore) SaveReputation(ctx context.Context, r *model.SourceReputation) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO reputations (source_id, multiplier, confirmed, falsified, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(source_id) DO UPDATE SET
    multiplier=excluded.multiplier, confirmed=excluded.confirmed,
    falsified=excluded.falsified, updated_at=excluded.updated_at`,
		r.SourceID, r.Multiplier, r.Confirmed, r.Falsified, timeOrEmpty(r.UpdatedAt))
	if err != nil {
		return model.NewPersistenceError("save reputation", err)
	}
	return nil
}

func (s *SQLiteStore) Reputation(ctx context.Context, sourceID string) (*model.SourceReputation, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT source_id, multiplier, confirmed, falsified, updated_at
FROM reputations WHERE source_id = ?`, sourceID)

	var r model.SourceReputation
	var updatedAt string
	err := row.Scan(&r.SourceID, &r.Multiplier, &r.Confirmed, &r.Falsified, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("reputation", sourceID)
	}
	if err != nil {
		return nil, model.NewPersistenceError("load reputation", err)
	}
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func (s *SQLiteStore) ReputationMultipliers(ctx context.Context) (map[string]float64, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT source_id, multiplier FROM reputations`)
	if err != nil {
		return nil, model.NewPersistenceError("load reputations", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var mult float64
		if err := rows.Scan(&id, &mult); err != nil {
			return nil, model.NewPersistenceError("scan reputation", err)
		}
		out[id] = mult
	}
	return out, rows.Err()
}

// TryReserveCadence increments the window counter with a single conditional
// UPDATE. The WHERE clause carries the capacity check, so two concurrent
// reservations can never both succeed past max.
func (s *SQLiteStore) TryReserveCadence(ctx context.Context, vertical string, windowStart time.Time, max int) (bool, error) {
	ws := timeOrEmpty(windowStart)

	if _, err := s.conn.ExecContext(ctx, `
INSERT INTO cadence (vertical, window_start, count) VALUES (?, ?, 0)
ON CONFLICT(vertical, window_start) DO NOTHING`, vertical, ws); err != nil {
		return false, model.NewPersistenceError("init cadence window", err)
	}

	res, err := s.conn.ExecContext(ctx, `
UPDATE cadence SET count = count + 1
WHERE vertical = ? AND window_start = ? AND count < ?`, vertical, ws, max)
	if err != nil {
		return false, model.NewPersistenceError("reserve cadence", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, model.NewPersistenceError("reserve cadence", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) CadenceUsed(ctx context.Context, vertical string, windowStart time.Time) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `
SELECT count FROM cadence WHERE vertical = ? AND window_start = ?`,
		vertical, timeOrEmpty(windowStart)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, model.NewPersistenceError("cadence used", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
