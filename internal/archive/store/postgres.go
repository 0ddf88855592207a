package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"correspondence/internal/archive/models"
	commModels "correspondence/internal/communication/models"
	"correspondence/internal/platform/postgres"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	txcontext "correspondence/pkg/platform/tx"
)

const (
	folderNameIndex  = "folders_name_dependency_key"
	archiveCommIndex = "archives_communication_id_key"
)

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

type folderRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	DependencyID uuid.UUID `db:"dependency_id"`
	ManagerName  string    `db:"manager_name"`
	CreatedAt    time.Time `db:"created_at"`
	ArchiveCount int       `db:"archive_count"`
}

func (r folderRow) toModel() *models.Folder {
	return &models.Folder{
		ID:           id.FolderID(r.ID),
		Name:         r.Name,
		DependencyID: id.DependencyID(r.DependencyID),
		ManagerName:  r.ManagerName,
		CreatedAt:    r.CreatedAt,
		ArchiveCount: r.ArchiveCount,
	}
}

const archiveColumns = `a.id, a.communication_id, a.account_id, a.dependency_id, a.institution_id,
	a.officer_fullname, a.officer_jobtitle, a.folder_id, a.procedure_id, a.procedure_code,
	a.procedure_group, a.procedure_reference, a.is_original, a.description, a.state, a.created_at`

type archiveRow struct {
	ID                 uuid.UUID      `db:"id"`
	CommunicationID    uuid.UUID      `db:"communication_id"`
	AccountID          uuid.UUID      `db:"account_id"`
	DependencyID       uuid.UUID      `db:"dependency_id"`
	InstitutionID      uuid.UUID      `db:"institution_id"`
	FullName           string         `db:"officer_fullname"`
	JobTitle           string         `db:"officer_jobtitle"`
	FolderID           uuid.NullUUID  `db:"folder_id"`
	ProcedureID        uuid.UUID      `db:"procedure_id"`
	ProcedureCode      string         `db:"procedure_code"`
	ProcedureGroup     string         `db:"procedure_group"`
	ProcedureReference string         `db:"procedure_reference"`
	IsOriginal         sql.NullBool   `db:"is_original"`
	Description        string         `db:"description"`
	State              string         `db:"state"`
	CreatedAt          time.Time      `db:"created_at"`
	FolderName         sql.NullString `db:"folder_name"`
}

func (r archiveRow) toModel() *models.Archive {
	a := &models.Archive{
		ID:              id.ArchiveID(r.ID),
		CommunicationID: id.CommunicationID(r.CommunicationID),
		AccountID:       id.AccountID(r.AccountID),
		DependencyID:    id.DependencyID(r.DependencyID),
		InstitutionID:   id.InstitutionID(r.InstitutionID),
		FullName:        r.FullName,
		JobTitle:        r.JobTitle,
		Procedure: commModels.ProcedureRef{
			ID:        id.ProcedureID(r.ProcedureID),
			Code:      r.ProcedureCode,
			Group:     procModels.Group(r.ProcedureGroup),
			Reference: r.ProcedureReference,
		},
		Description: r.Description,
		State:       procModels.State(r.State),
		CreatedAt:   r.CreatedAt,
	}
	var flag *bool
	if r.IsOriginal.Valid {
		flag = &r.IsOriginal.Bool
	}
	a.Origin = commModels.OriginFromFlag(flag)
	if r.FolderID.Valid {
		folderID := id.FolderID(r.FolderID.UUID)
		a.FolderID = &folderID
	}
	return a
}

func nullFolder(folderID *id.FolderID) uuid.NullUUID {
	if folderID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*folderID), Valid: true}
}

func (s *PostgresStore) CreateFolder(ctx context.Context, f *models.Folder) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO folders (id, name, dependency_id, manager_name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(f.ID), f.Name, uuid.UUID(f.DependencyID), f.ManagerName, f.CreatedAt)
	if err != nil {
		return mapFolderError(err, "insert folder")
	}
	return nil
}

func mapFolderError(err error, op string) error {
	if constraint, dup := postgres.UniqueViolation(err); dup && constraint == folderNameIndex {
		return sentinel.ErrAlreadyUsed
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PostgresStore) FindFolder(ctx context.Context, folderID id.FolderID) (*models.Folder, error) {
	var row folderRow
	err := s.execer(ctx).GetContext(ctx, &row,
		`SELECT id, name, dependency_id, manager_name, created_at, 0 AS archive_count FROM folders WHERE id = $1`,
		uuid.UUID(folderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find folder: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) RenameFolder(ctx context.Context, folderID id.FolderID, name string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `UPDATE folders SET name = $2 WHERE id = $1`, uuid.UUID(folderID), name)
	if err != nil {
		return mapFolderError(err, "rename folder")
	}
	return expectOne(res)
}

// DeleteFolder relies on the archives foreign key to refuse non-empty
// folders.
func (s *PostgresStore) DeleteFolder(ctx context.Context, folderID id.FolderID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, uuid.UUID(folderID))
	if err != nil {
		if postgres.ForeignKeyViolation(err) {
			return sentinel.ErrNotEmpty
		}
		return fmt.Errorf("delete folder: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) ListFolders(ctx context.Context, dependencyID id.DependencyID) ([]*models.Folder, error) {
	var rows []folderRow
	err := s.execer(ctx).SelectContext(ctx, &rows, `
		SELECT f.id, f.name, f.dependency_id, f.manager_name, f.created_at, count(a.id) AS archive_count
		FROM folders f
		LEFT JOIN archives a ON a.folder_id = f.id
		WHERE f.dependency_id = $1
		GROUP BY f.id
		ORDER BY f.name`, uuid.UUID(dependencyID))
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	out := make([]*models.Folder, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *PostgresStore) InsertArchives(ctx context.Context, archives []*models.Archive) error {
	query := `INSERT INTO archives (id, communication_id, account_id, dependency_id, institution_id,
		officer_fullname, officer_jobtitle, folder_id, procedure_id, procedure_code, procedure_group,
		procedure_reference, is_original, description, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	for _, a := range archives {
		var flag sql.NullBool
		if f := a.Origin.Flag(); f != nil {
			flag = sql.NullBool{Bool: *f, Valid: true}
		}
		_, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(a.ID), uuid.UUID(a.CommunicationID), uuid.UUID(a.AccountID),
			uuid.UUID(a.DependencyID), uuid.UUID(a.InstitutionID), a.FullName, a.JobTitle,
			nullFolder(a.FolderID), uuid.UUID(a.Procedure.ID), a.Procedure.Code,
			string(a.Procedure.Group), a.Procedure.Reference, flag, a.Description,
			string(a.State), a.CreatedAt)
		if err != nil {
			if constraint, dup := postgres.UniqueViolation(err); dup && constraint == archiveCommIndex {
				return sentinel.ErrAlreadyUsed
			}
			if postgres.ForeignKeyViolation(err) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("insert archive: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindArchive(ctx context.Context, archiveID id.ArchiveID) (*models.Archive, error) {
	var row archiveRow
	err := s.execer(ctx).GetContext(ctx, &row,
		`SELECT `+archiveColumns+`, NULL AS folder_name FROM archives a WHERE a.id = $1 FOR UPDATE`,
		uuid.UUID(archiveID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find archive: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) DeleteArchive(ctx context.Context, archiveID id.ArchiveID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM archives WHERE id = $1`, uuid.UUID(archiveID))
	if err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) ListArchives(ctx context.Context, f models.Filter) (models.Page, error) {
	where := `a.dependency_id = $1 AND ($2::uuid IS NULL OR a.folder_id = $2::uuid)`
	args := []any{uuid.UUID(f.DependencyID), nullFolder(f.FolderID)}

	var total int
	if err := s.execer(ctx).GetContext(ctx, &total, `SELECT count(*) FROM archives a WHERE `+where, args...); err != nil {
		return models.Page{}, fmt.Errorf("count archives: %w", err)
	}
	var limit any
	if f.Limit > 0 {
		limit = f.Limit
	}
	var rows []archiveRow
	err := s.execer(ctx).SelectContext(ctx, &rows, `
		SELECT `+archiveColumns+`, fo.name AS folder_name
		FROM archives a
		LEFT JOIN folders fo ON fo.id = a.folder_id
		WHERE `+where+`
		ORDER BY a.created_at DESC
		LIMIT $3 OFFSET $4`, append(args, limit, f.Offset)...)
	if err != nil {
		return models.Page{}, fmt.Errorf("list archives: %w", err)
	}
	page := models.Page{Items: make([]models.Entry, 0, len(rows)), Total: total}
	for _, r := range rows {
		page.Items = append(page.Items, models.Entry{Archive: r.toModel(), FolderName: r.FolderName.String})
	}
	return page, nil
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
