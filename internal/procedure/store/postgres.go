package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"correspondence/internal/platform/postgres"
	"correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	txcontext "correspondence/pkg/platform/tx"
)

// PostgresStore persists procedures in the procedures table. The detail
// variant is stored as JSONB.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const procedureColumns = `id, code, prefix, correlative, group_name, state, status, account_id, institution_id,
	dependency_id, officer_id, reference, number_of_documents, detail, created_at, updated_at, completed_at`

type procedureRow struct {
	ID                uuid.UUID     `db:"id"`
	Code              string        `db:"code"`
	Prefix            string        `db:"prefix"`
	Correlative       int           `db:"correlative"`
	Group             string        `db:"group_name"`
	State             string        `db:"state"`
	Status            string        `db:"status"`
	AccountID         uuid.UUID     `db:"account_id"`
	InstitutionID     uuid.UUID     `db:"institution_id"`
	DependencyID      uuid.UUID     `db:"dependency_id"`
	OfficerID         uuid.NullUUID `db:"officer_id"`
	Reference         string        `db:"reference"`
	NumberOfDocuments int           `db:"number_of_documents"`
	Detail            []byte        `db:"detail"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
	CompletedAt       sql.NullTime  `db:"completed_at"`
}

func (r procedureRow) toModel() (*models.Procedure, error) {
	p := &models.Procedure{
		ID:                id.ProcedureID(r.ID),
		Code:              r.Code,
		Prefix:            r.Prefix,
		Correlative:       r.Correlative,
		Group:             models.Group(r.Group),
		State:             models.State(r.State),
		Status:            models.Status(r.Status),
		AccountID:         id.AccountID(r.AccountID),
		InstitutionID:     id.InstitutionID(r.InstitutionID),
		DependencyID:      id.DependencyID(r.DependencyID),
		Reference:         r.Reference,
		NumberOfDocuments: r.NumberOfDocuments,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.OfficerID.Valid {
		officerID := id.OfficerID(r.OfficerID.UUID)
		p.OfficerID = &officerID
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		p.CompletedAt = &t
	}
	if err := json.Unmarshal(r.Detail, &p.Detail); err != nil {
		return nil, fmt.Errorf("decode procedure detail: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Procedure) error {
	detail, err := json.Marshal(p.Detail)
	if err != nil {
		return fmt.Errorf("encode procedure detail: %w", err)
	}
	var officerID uuid.NullUUID
	if p.OfficerID != nil {
		officerID = uuid.NullUUID{UUID: uuid.UUID(*p.OfficerID), Valid: true}
	}
	query := `INSERT INTO procedures (` + procedureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Code, p.Prefix, p.Correlative, string(p.Group), string(p.State), string(p.Status),
		uuid.UUID(p.AccountID), uuid.UUID(p.InstitutionID), uuid.UUID(p.DependencyID), officerID,
		p.Reference, p.NumberOfDocuments, detail, p.CreatedAt, p.UpdatedAt, p.CompletedAt,
	)
	if _, dup := postgres.UniqueViolation(err); dup {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert procedure: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error) {
	return s.find(ctx, `SELECT `+procedureColumns+` FROM procedures WHERE id = $1`, procedureID)
}

// FindByIDForUpdate row-locks the procedure until the surrounding
// transaction ends, serialising concurrent sends of the same procedure.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, procedureID id.ProcedureID) (*models.Procedure, error) {
	return s.find(ctx, `SELECT `+procedureColumns+` FROM procedures WHERE id = $1 FOR UPDATE`, procedureID)
}

func (s *PostgresStore) find(ctx context.Context, query string, procedureID id.ProcedureID) (*models.Procedure, error) {
	var row procedureRow
	err := s.execer(ctx).GetContext(ctx, &row, query, uuid.UUID(procedureID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find procedure: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) UpdateState(ctx context.Context, procedureID id.ProcedureID, patch models.Patch) error {
	var state, status sql.NullString
	if patch.State != nil {
		state = sql.NullString{String: string(*patch.State), Valid: true}
	}
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	var completedAt sql.NullTime
	if patch.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *patch.CompletedAt, Valid: true}
	}
	query := `
		UPDATE procedures SET
			state = COALESCE($2, state),
			status = COALESCE($3, status),
			completed_at = CASE WHEN $4 THEN NULL ELSE COALESCE($5, completed_at) END,
			updated_at = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(procedureID), state, status, patch.ClearCompletedAt, completedAt, patch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update procedure state: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Procedure) error {
	detail, err := json.Marshal(p.Detail)
	if err != nil {
		return fmt.Errorf("encode procedure detail: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE procedures SET reference = $2, number_of_documents = $3, detail = $4, updated_at = $5 WHERE id = $1`,
		uuid.UUID(p.ID), p.Reference, p.NumberOfDocuments, detail, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update procedure: %w", err)
	}
	return expectOne(res)
}

// NextCorrelative increments the (prefix, institution, year) sequence row and
// returns the new value. The row lock taken by the upsert orders concurrent
// registrations.
func (s *PostgresStore) NextCorrelative(ctx context.Context, prefix string, institutionID id.InstitutionID, year int) (int, error) {
	query := `
		INSERT INTO procedure_sequences (prefix, institution_id, year, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (prefix, institution_id, year)
		DO UPDATE SET last_value = procedure_sequences.last_value + 1
		RETURNING last_value
	`
	var next int
	if err := s.execer(ctx).GetContext(ctx, &next, query, prefix, uuid.UUID(institutionID), year); err != nil {
		return 0, fmt.Errorf("next correlative: %w", err)
	}
	return next, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
