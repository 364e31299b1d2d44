package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"signal-advisor/internal/indicator"
	"signal-advisor/internal/types"
)

// ErrTerminalSignal is returned when an outcome update targets a signal that
// already reached a terminal state. The update is a no-op, never an
// overwrite.
var ErrTerminalSignal = errors.New("signal already in terminal state")

// storedPrecision is the decimal precision applied to prices and confidence
// at this boundary. Intermediate computation stays full float64.
const storedPrecision = 4

// SQLiteStore persists trading signals and indicator snapshots to a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent reads while the batch writer commits.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			instrument    TEXT NOT NULL,
			session       TEXT NOT NULL,
			direction     TEXT NOT NULL,
			confidence    REAL NOT NULL,
			entry_price   REAL NOT NULL,
			target_price  REAL NOT NULL,
			stop_price    REAL NOT NULL,
			created_at    INTEGER NOT NULL,
			outcome       TEXT NOT NULL DEFAULT 'pending',
			outcome_price REAL,
			outcome_at    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_outcome ON signals(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_instrument_session ON signals(instrument, session)`,

		`CREATE TABLE IF NOT EXISTS indicator_snapshots (
			instrument  TEXT NOT NULL,
			session     TEXT NOT NULL,
			kind        TEXT NOT NULL,
			value       REAL,
			upper_band  REAL,
			lower_band  REAL,
			signal_line REAL,
			histogram   REAL,
			updated_at  INTEGER NOT NULL,
			PRIMARY KEY (instrument, session, kind)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// CreateSignal inserts a new pending signal and returns its id.
func (s *SQLiteStore) CreateSignal(ctx context.Context, sig *types.TradingSignal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO signals
		(instrument, session, direction, confidence, entry_price, target_price, stop_price, created_at, outcome)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		sig.Instrument, sig.Session, string(sig.Direction),
		indicator.Round(sig.Confidence, storedPrecision),
		indicator.Round(sig.Entry, storedPrecision),
		indicator.Round(sig.Target, storedPrecision),
		indicator.Round(sig.Stop, storedPrecision),
		sig.CreatedAt, string(types.OutcomePending),
	)
	if err != nil {
		return 0, fmt.Errorf("insert signal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sig.ID = id
	sig.Outcome = types.OutcomePending
	return id, nil
}

// UpdateOutcome transitions a pending signal to a terminal state exactly
// once. A second writer hitting an already-terminal signal gets
// ErrTerminalSignal and the row is untouched.
func (s *SQLiteStore) UpdateOutcome(ctx context.Context, id int64, state types.OutcomeState, price float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE signals
		SET outcome = ?, outcome_price = ?, outcome_at = ?
		WHERE id = ? AND outcome = ?`,
		string(state), indicator.Round(price, storedPrecision), at.Unix(),
		id, string(types.OutcomePending),
	)
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM signals WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("signal %d not found", id)
		}
		return ErrTerminalSignal
	}
	return nil
}

// ListPending returns all signals still awaiting an outcome.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]types.TradingSignal, error) {
	return s.query(ctx, `SELECT id, instrument, session, direction, confidence,
		entry_price, target_price, stop_price, created_at, outcome,
		COALESCE(outcome_price, 0), COALESCE(outcome_at, 0)
		FROM signals WHERE outcome = ? ORDER BY created_at`, string(types.OutcomePending))
}

// ListClosed returns closed signals created within [from, to], in creation
// order.
func (s *SQLiteStore) ListClosed(ctx context.Context, from, to time.Time) ([]types.TradingSignal, error) {
	return s.query(ctx, `SELECT id, instrument, session, direction, confidence,
		entry_price, target_price, stop_price, created_at, outcome,
		COALESCE(outcome_price, 0), COALESCE(outcome_at, 0)
		FROM signals WHERE outcome != ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at`, string(types.OutcomePending), from.Unix(), to.Unix())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]types.TradingSignal, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TradingSignal
	for rows.Next() {
		var sig types.TradingSignal
		var direction, outcome string
		if err := rows.Scan(&sig.ID, &sig.Instrument, &sig.Session, &direction, &sig.Confidence,
			&sig.Entry, &sig.Target, &sig.Stop, &sig.CreatedAt, &outcome,
			&sig.OutcomePrice, &sig.OutcomeAt); err != nil {
			return nil, err
		}
		sig.Direction = types.Direction(direction)
		sig.Outcome = types.OutcomeState(outcome)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// UpsertIndicators replaces the per-session snapshot rows for an
// instrument. One row per (instrument, session, kind); recomputed values
// supersede, never append history duplicates.
func (s *SQLiteStore) UpsertIndicators(ctx context.Context, snaps []types.IndicatorSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		_, err := s.db.ExecContext(ctx, `INSERT INTO indicator_snapshots
			(instrument, session, kind, value, upper_band, lower_band, signal_line, histogram, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?)
			ON CONFLICT(instrument, session, kind) DO UPDATE SET
				value = excluded.value,
				upper_band = excluded.upper_band,
				lower_band = excluded.lower_band,
				signal_line = excluded.signal_line,
				histogram = excluded.histogram,
				updated_at = excluded.updated_at`,
			snap.Instrument, snap.Session, string(snap.Kind),
			indicator.Round(snap.Value, storedPrecision),
			indicator.Round(snap.Upper, storedPrecision),
			indicator.Round(snap.Lower, storedPrecision),
			indicator.Round(snap.Signal, storedPrecision),
			indicator.Round(snap.Hist, storedPrecision),
			time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert indicator %s/%s/%s: %w", snap.Instrument, snap.Session, snap.Kind, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
