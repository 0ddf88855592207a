package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	id "correspondence/pkg/domain"
)

// PostgresStore keeps the notification ledger in notification_ledger. A
// procedure is claimed by inserting its row; a claim older than staleAfter
// that was never confirmed may be taken over.
type PostgresStore struct {
	db         *sqlx.DB
	staleAfter time.Duration
}

func NewPostgres(db *sqlx.DB, staleAfter time.Duration) *PostgresStore {
	return &PostgresStore{db: db, staleAfter: staleAfter}
}

func (s *PostgresStore) Claim(ctx context.Context, procedureID id.ProcedureID, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_ledger (procedure_id, status, updated_at)
		VALUES ($1, 'claimed', $2)
		ON CONFLICT (procedure_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		WHERE notification_ledger.status = 'claimed' AND notification_ledger.updated_at < $3`,
		uuid.UUID(procedureID), now, now.Add(-s.staleAfter))
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Confirm(ctx context.Context, procedureID id.ProcedureID, messageID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_ledger SET status = 'sent', message_id = $2, updated_at = $3
		WHERE procedure_id = $1`,
		uuid.UUID(procedureID), messageID, now)
	if err != nil {
		return fmt.Errorf("confirm notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Release(ctx context.Context, procedureID id.ProcedureID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notification_ledger WHERE procedure_id = $1 AND status = 'claimed'`,
		uuid.UUID(procedureID))
	if err != nil {
		return fmt.Errorf("release notification: %w", err)
	}
	return nil
}
