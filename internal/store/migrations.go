package store

import "database/sql"

// migration is a single schema migration step.
type migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS drafts (
    id TEXT PRIMARY KEY,
    signal_id TEXT,
    vertical TEXT NOT NULL,
    title TEXT,
    narrative TEXT,
    claims TEXT NOT NULL,
    source_ids TEXT NOT NULL,
    trust_score REAL NOT NULL DEFAULT 0,
    quality_score REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    vertical TEXT NOT NULL,
    status TEXT NOT NULL,
    gap_failures INTEGER NOT NULL DEFAULT 0,
    silenced_until TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    token TEXT,
    signal_id TEXT,
    draft_id TEXT,
    decision TEXT NOT NULL,
    reasons TEXT NOT NULL,
    trust_score REAL NOT NULL,
    quality_score REAL NOT NULL,
    confidence REAL NOT NULL,
    cadence_remaining INTEGER NOT NULL,
    human_review INTEGER NOT NULL DEFAULT 0,
    decided_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_decisions_token ON decisions(token) WHERE token != '';

CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    draft_id TEXT NOT NULL,
    claim_text TEXT NOT NULL,
    source_ids TEXT NOT NULL,
    probability REAL NOT NULL,
    outcome TEXT NOT NULL,
    accuracy REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    audited_at TEXT
);

CREATE TABLE IF NOT EXISTS reputations (
    source_id TEXT PRIMARY KEY,
    multiplier REAL NOT NULL,
    confirmed INTEGER NOT NULL DEFAULT 0,
    falsified INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cadence (
    vertical TEXT NOT NULL,
    window_start TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (vertical, window_start)
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "token reservations",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS token_reservations (
    token TEXT PRIMARY KEY,
    reserved_at TEXT NOT NULL
);
`)
			return err
		},
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].Version
}
