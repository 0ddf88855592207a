package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"correspondence/internal/directory/models"
	"correspondence/internal/platform/postgres"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	txcontext "correspondence/pkg/platform/tx"
)

// PostgresStore persists the directory in the institutions, dependencies and
// accounts tables.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

type institutionRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Acronym   string    `db:"acronym"`
	CreatedAt time.Time `db:"created_at"`
}

func (r institutionRow) toModel() models.Institution {
	return models.Institution{ID: id.InstitutionID(r.ID), Name: r.Name, Acronym: r.Acronym, CreatedAt: r.CreatedAt}
}

type dependencyRow struct {
	ID            uuid.UUID `db:"id"`
	InstitutionID uuid.UUID `db:"institution_id"`
	Name          string    `db:"name"`
	Acronym       string    `db:"acronym"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r dependencyRow) toModel() models.Dependency {
	return models.Dependency{
		ID:            id.DependencyID(r.ID),
		InstitutionID: id.InstitutionID(r.InstitutionID),
		Name:          r.Name,
		Acronym:       r.Acronym,
		CreatedAt:     r.CreatedAt,
	}
}

type accountRow struct {
	ID              uuid.UUID `db:"id"`
	OfficerID       uuid.UUID `db:"officer_id"`
	OfficerFullName string    `db:"officer_fullname"`
	OfficerJobTitle string    `db:"officer_jobtitle"`
	DependencyID    uuid.UUID `db:"dependency_id"`
	InstitutionID   uuid.UUID `db:"institution_id"`
	Active          bool      `db:"active"`
	CreatedAt       time.Time `db:"created_at"`

	DependencyName     string    `db:"dependency_name"`
	DependencyAcronym  string    `db:"dependency_acronym"`
	InstitutionName    string    `db:"institution_name"`
	InstitutionAcronym string    `db:"institution_acronym"`
	InstitutionCreated time.Time `db:"institution_created_at"`
}

func (r accountRow) toModel() *models.Account {
	return &models.Account{
		ID: id.AccountID(r.ID),
		Officer: models.Officer{
			ID:       id.OfficerID(r.OfficerID),
			FullName: r.OfficerFullName,
			JobTitle: r.OfficerJobTitle,
		},
		DependencyID:  id.DependencyID(r.DependencyID),
		InstitutionID: id.InstitutionID(r.InstitutionID),
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
		Dependency: &models.Dependency{
			ID:            id.DependencyID(r.DependencyID),
			InstitutionID: id.InstitutionID(r.InstitutionID),
			Name:          r.DependencyName,
			Acronym:       r.DependencyAcronym,
		},
		Institution: &models.Institution{
			ID:        id.InstitutionID(r.InstitutionID),
			Name:      r.InstitutionName,
			Acronym:   r.InstitutionAcronym,
			CreatedAt: r.InstitutionCreated,
		},
	}
}

func (s *PostgresStore) CreateInstitution(ctx context.Context, inst *models.Institution) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO institutions (id, name, acronym, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(inst.ID), inst.Name, inst.Acronym, inst.CreatedAt)
	if _, dup := postgres.UniqueViolation(err); dup {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateDependency(ctx context.Context, dep *models.Dependency) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO dependencies (id, institution_id, name, acronym, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(dep.ID), uuid.UUID(dep.InstitutionID), dep.Name, dep.Acronym, dep.CreatedAt)
	if postgres.ForeignKeyViolation(err) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acc *models.Account) error {
	query := `
		INSERT INTO accounts (id, officer_id, officer_fullname, officer_jobtitle, dependency_id, institution_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(acc.ID),
		uuid.UUID(acc.Officer.ID),
		acc.Officer.FullName,
		acc.Officer.JobTitle,
		uuid.UUID(acc.DependencyID),
		uuid.UUID(acc.InstitutionID),
		acc.Active,
		acc.CreatedAt,
	)
	if _, dup := postgres.UniqueViolation(err); dup {
		return sentinel.ErrAlreadyUsed
	}
	if postgres.ForeignKeyViolation(err) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := `
		SELECT a.id, a.officer_id, a.officer_fullname, a.officer_jobtitle, a.dependency_id, a.institution_id,
		       a.active, a.created_at,
		       d.name AS dependency_name, d.acronym AS dependency_acronym,
		       i.name AS institution_name, i.acronym AS institution_acronym, i.created_at AS institution_created_at
		FROM accounts a
		JOIN dependencies d ON d.id = a.dependency_id
		JOIN institutions i ON i.id = a.institution_id
		WHERE a.id = $1
	`
	var row accountRow
	err := s.execer(ctx).GetContext(ctx, &row, query, uuid.UUID(accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) FindInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	var row institutionRow
	err := s.execer(ctx).GetContext(ctx, &row,
		`SELECT id, name, acronym, created_at FROM institutions WHERE id = $1`, uuid.UUID(institutionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find institution: %w", err)
	}
	m := row.toModel()
	return &m, nil
}

func (s *PostgresStore) FindDependencies(ctx context.Context, ids []id.DependencyID) ([]models.Dependency, error) {
	raw := make([]string, len(ids))
	for i, d := range ids {
		raw[i] = d.String()
	}
	var rows []dependencyRow
	err := s.execer(ctx).SelectContext(ctx, &rows,
		`SELECT id, institution_id, name, acronym, created_at FROM dependencies WHERE id = ANY($1::uuid[])`,
		pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find dependencies: %w", err)
	}
	out := make([]models.Dependency, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *PostgresStore) FindInstitutions(ctx context.Context, ids []id.InstitutionID) ([]models.Institution, error) {
	raw := make([]string, len(ids))
	for i, inst := range ids {
		raw[i] = inst.String()
	}
	var rows []institutionRow
	err := s.execer(ctx).SelectContext(ctx, &rows,
		`SELECT id, name, acronym, created_at FROM institutions WHERE id = ANY($1::uuid[])`,
		pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find institutions: %w", err)
	}
	out := make([]models.Institution, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
