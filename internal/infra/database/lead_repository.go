package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/leadflow/internal/entity"
)

var ErrLeadNotFound = errors.New("lead not found")

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `id, phone_number, status, created_at, updated_at, processed_at`

const (
	insertLeadSQL = `
		INSERT INTO leads (phone_number, status, created_at, updated_at, processed_at)
		VALUES ($1, $2, $3, $3, $3)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING ` + leadColumns

	// The status guard keeps duplicate -> duplicate a no-op.
	markDuplicateSQL = `
		UPDATE leads
		SET status = $2, updated_at = $3
		WHERE phone_number = $1 AND status <> $2
		RETURNING ` + leadColumns

	selectLeadSQL = `SELECT ` + leadColumns + ` FROM leads WHERE phone_number = $1`
)

// InsertOrMarkDuplicate relies on the unique index on phone_number to
// arbitrate concurrent inserts. A losing insert blocks on the winner's
// transaction, then falls through to the duplicate update.
func (r *LeadRepository) InsertOrMarkDuplicate(ctx context.Context, phoneNumber string, now time.Time) (*entity.Lead, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin lead transaction: %w", err)
	}
	defer tx.Rollback()

	lead, err := scanLead(tx.QueryRowContext(ctx, insertLeadSQL, phoneNumber, string(entity.LeadStatusProcessed), now))
	created := err == nil
	switch {
	case created:
	case errors.Is(err, sql.ErrNoRows):
		lead, err = scanLead(tx.QueryRowContext(ctx, markDuplicateSQL, phoneNumber, string(entity.LeadStatusDuplicate), now))
		if errors.Is(err, sql.ErrNoRows) {
			lead, err = scanLead(tx.QueryRowContext(ctx, selectLeadSQL, phoneNumber))
		}
		if err != nil {
			return nil, false, fmt.Errorf("mark lead duplicate: %w", err)
		}
	default:
		return nil, false, fmt.Errorf("insert lead: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit lead transaction: %w", err)
	}
	return lead, created, nil
}

func (r *LeadRepository) FindByPhone(ctx context.Context, phoneNumber string) (*entity.Lead, error) {
	lead, err := scanLead(r.DB.QueryRowContext(ctx, selectLeadSQL, phoneNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	return lead, err
}

// Ping runs a trivial round-trip query.
func (r *LeadRepository) Ping(ctx context.Context) error {
	var one int
	return r.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func scanLead(row *sql.Row) (*entity.Lead, error) {
	var (
		lead        entity.Lead
		status      string
		processedAt sql.NullTime
	)
	if err := row.Scan(&lead.ID, &lead.PhoneNumber, &status, &lead.CreatedAt, &lead.UpdatedAt, &processedAt); err != nil {
		return nil, err
	}
	lead.Status = entity.LeadStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		lead.ProcessedAt = &t
	}
	return &lead, nil
}
