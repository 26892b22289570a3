package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

// JournalStore implements domain.EntryJournal using PostgreSQL. One entry row
// plus one row per leg; failed legs store the error text and NULL broker
// fields.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a new JournalStore backed by the given connection
// pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// RecordEntry inserts the entry and both legs in a single transaction.
func (s *JournalStore) RecordEntry(ctx context.Context, rec domain.EntryRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin entry tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertEntry = `
		INSERT INTO entry_journal (id, long_symbol, short_symbol, spread, threshold, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.Exec(ctx, insertEntry,
		rec.ID,
		rec.Decision.LongSymbol, rec.Decision.ShortSymbol,
		rec.Decision.Spread, rec.Decision.Threshold,
		rec.Decision.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert entry %s: %w", rec.ID, err)
	}

	const insertLeg = `
		INSERT INTO entry_legs (
			client_order_id, entry_id, symbol, side, qty, time_in_force,
			order_id, status, submitted_at, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, leg := range rec.Legs {
		var orderID, status, legErr *string
		var submittedAt *time.Time
		if leg.Failed() {
			msg := leg.Err.Error()
			legErr = &msg
		} else {
			orderID = &leg.Confirmation.OrderID
			status = &leg.Confirmation.Status
			submittedAt = &leg.Confirmation.SubmittedAt
		}

		_, err = tx.Exec(ctx, insertLeg,
			leg.Intent.ClientOrderID, rec.ID,
			leg.Intent.Symbol, string(leg.Intent.Side), leg.Intent.Qty,
			string(leg.Intent.TimeInForce),
			orderID, status, submittedAt, legErr,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert leg %s: %w", leg.Intent.ClientOrderID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit entry %s: %w", rec.ID, err)
	}
	return nil
}

// LastEntry returns the most recent journaled entry, or domain.ErrNotFound
// when the journal is empty.
func (s *JournalStore) LastEntry(ctx context.Context) (domain.EntryRecord, error) {
	const query = `
		SELECT id, long_symbol, short_symbol, spread, threshold, decided_at
		FROM entry_journal
		ORDER BY decided_at DESC
		LIMIT 1`

	var rec domain.EntryRecord
	rec.Decision.Action = domain.ActionEnter
	err := s.pool.QueryRow(ctx, query).Scan(
		&rec.ID,
		&rec.Decision.LongSymbol, &rec.Decision.ShortSymbol,
		&rec.Decision.Spread, &rec.Decision.Threshold,
		&rec.Decision.DecidedAt,
	)
	if err == pgx.ErrNoRows {
		return domain.EntryRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.EntryRecord{}, fmt.Errorf("postgres: last entry: %w", err)
	}
	return rec, nil
}
