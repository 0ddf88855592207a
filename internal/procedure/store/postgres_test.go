package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "pgx")), mock
}

func TestNextCorrelativeUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	inst := id.NewInstitutionID()
	mock.ExpectQuery("INSERT INTO procedure_sequences (.+) ON CONFLICT").
		WithArgs("EXT", uuid.UUID(inst), 2025).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	next, err := store.NextCorrelative(context.Background(), "EXT", inst, 2025)
	require.NoError(t, err)
	assert.Equal(t, 7, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsDuplicateCode(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO procedures").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "procedures_code_group_key"})

	p := &models.Procedure{
		ID:     id.NewProcedureID(),
		Group:  models.GroupInternal,
		Detail: models.Detail{Group: models.GroupInternal, Internal: &models.InternalDetail{}},
	}
	err := store.Create(context.Background(), p)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM procedures WHERE id = \\$1 FOR UPDATE").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindByIDForUpdate(context.Background(), id.NewProcedureID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindByIDDecodesDetail(t *testing.T) {
	store, mock := newMockStore(t)
	procID := uuid.New()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	detail := []byte(`{"group":"external","external":{"applicant":{"type":"NATURAL","firstname":"Rosa","lastname":"Huaman","phone":"987654321"},"pin":123456}}`)
	rows := sqlmock.NewRows([]string{
		"id", "code", "prefix", "correlative", "group_name", "state", "status", "account_id", "institution_id",
		"dependency_id", "officer_id", "reference", "number_of_documents", "detail", "created_at", "updated_at", "completed_at",
	}).AddRow(procID.String(), "EXT-MPC-2025-000001", "EXT", 1, "external", "INSCRITO", "pending",
		uuid.NewString(), uuid.NewString(), uuid.NewString(), nil, "ref", 2, detail, now, now, nil)
	mock.ExpectQuery("SELECT (.+) FROM procedures WHERE id = \\$1").WillReturnRows(rows)

	p, err := store.FindByID(context.Background(), id.ProcedureID(procID))
	require.NoError(t, err)
	assert.Equal(t, models.StateRegistered, p.State)
	assert.Nil(t, p.OfficerID)
	assert.Nil(t, p.CompletedAt)
	require.NotNil(t, p.Detail.External)
	assert.Equal(t, "Rosa Huaman", p.Detail.External.Applicant.FullName())
	assert.Equal(t, 123456, p.Detail.External.Pin)
}

func TestUpdateStateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE procedures SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateState(context.Background(), id.NewProcedureID(), models.StartPatch(time.Now()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
