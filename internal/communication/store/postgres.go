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

	"correspondence/internal/communication/models"
	"correspondence/internal/platform/postgres"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/platform/sentinel"
	txcontext "correspondence/pkg/platform/tx"
)

// inFlightIndex is the partial unique index over (procedure, recipient)
// for pending and received rows.
const inFlightIndex = "communications_in_flight_key"

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

const communicationColumns = `id, procedure_id, procedure_code, procedure_group, procedure_reference,
	sender_account_id, sender_dependency_id, sender_institution_id, sender_fullname, sender_jobtitle,
	recipient_account_id, recipient_dependency_id, recipient_institution_id, recipient_fullname, recipient_jobtitle,
	status, sent_date, received_date, is_original, parent_id, reference, priority, attachments_count,
	internal_number, action_fullname, action_date, action_description`

type communicationRow struct {
	ID                     uuid.UUID      `db:"id"`
	ProcedureID            uuid.UUID      `db:"procedure_id"`
	ProcedureCode          string         `db:"procedure_code"`
	ProcedureGroup         string         `db:"procedure_group"`
	ProcedureReference     string         `db:"procedure_reference"`
	SenderAccountID        uuid.UUID      `db:"sender_account_id"`
	SenderDependencyID     uuid.UUID      `db:"sender_dependency_id"`
	SenderInstitutionID    uuid.UUID      `db:"sender_institution_id"`
	SenderFullName         string         `db:"sender_fullname"`
	SenderJobTitle         string         `db:"sender_jobtitle"`
	RecipientAccountID     uuid.UUID      `db:"recipient_account_id"`
	RecipientDependencyID  uuid.UUID      `db:"recipient_dependency_id"`
	RecipientInstitutionID uuid.UUID      `db:"recipient_institution_id"`
	RecipientFullName      string         `db:"recipient_fullname"`
	RecipientJobTitle      string         `db:"recipient_jobtitle"`
	Status                 string         `db:"status"`
	SentDate               time.Time      `db:"sent_date"`
	ReceivedDate           sql.NullTime   `db:"received_date"`
	IsOriginal             sql.NullBool   `db:"is_original"`
	ParentID               uuid.NullUUID  `db:"parent_id"`
	Reference              string         `db:"reference"`
	Priority               int            `db:"priority"`
	AttachmentsCount       int            `db:"attachments_count"`
	InternalNumber         string         `db:"internal_number"`
	ActionFullName         sql.NullString `db:"action_fullname"`
	ActionDate             sql.NullTime   `db:"action_date"`
	ActionDescription      sql.NullString `db:"action_description"`
}

func (r communicationRow) toModel() *models.Communication {
	c := &models.Communication{
		ID: id.CommunicationID(r.ID),
		Procedure: models.ProcedureRef{
			ID:        id.ProcedureID(r.ProcedureID),
			Code:      r.ProcedureCode,
			Group:     procModels.Group(r.ProcedureGroup),
			Reference: r.ProcedureReference,
		},
		Sender: models.Participant{
			AccountID:     id.AccountID(r.SenderAccountID),
			DependencyID:  id.DependencyID(r.SenderDependencyID),
			InstitutionID: id.InstitutionID(r.SenderInstitutionID),
			FullName:      r.SenderFullName,
			JobTitle:      r.SenderJobTitle,
		},
		Recipient: models.Participant{
			AccountID:     id.AccountID(r.RecipientAccountID),
			DependencyID:  id.DependencyID(r.RecipientDependencyID),
			InstitutionID: id.InstitutionID(r.RecipientInstitutionID),
			FullName:      r.RecipientFullName,
			JobTitle:      r.RecipientJobTitle,
		},
		Status:           models.Status(r.Status),
		SentDate:         r.SentDate,
		Reference:        r.Reference,
		Priority:         r.Priority,
		AttachmentsCount: r.AttachmentsCount,
		InternalNumber:   r.InternalNumber,
	}
	if r.IsOriginal.Valid {
		c.Origin = models.OriginFromFlag(&r.IsOriginal.Bool)
	} else {
		c.Origin = models.OriginLegacy
	}
	if r.ReceivedDate.Valid {
		t := r.ReceivedDate.Time
		c.ReceivedDate = &t
	}
	if r.ParentID.Valid {
		parent := id.CommunicationID(r.ParentID.UUID)
		c.ParentID = &parent
	}
	if r.ActionDate.Valid {
		c.ActionLog = &models.ActionLog{
			FullName:    r.ActionFullName.String,
			Date:        r.ActionDate.Time,
			Description: r.ActionDescription.String,
		}
	}
	return c
}

func toRows(rows []communicationRow) []*models.Communication {
	out := make([]*models.Communication, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}

func uuids[T ~[16]byte](ids []T) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	for i, v := range ids {
		out[i] = uuid.UUID(v)
	}
	return out
}

func nullFlag(o models.Origin) sql.NullBool {
	if f := o.Flag(); f != nil {
		return sql.NullBool{Bool: *f, Valid: true}
	}
	return sql.NullBool{}
}

func (s *PostgresStore) Insert(ctx context.Context, comms []*models.Communication) error {
	query := `INSERT INTO communications (` + communicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27)`
	for _, c := range comms {
		var parentID uuid.NullUUID
		if c.ParentID != nil {
			parentID = uuid.NullUUID{UUID: uuid.UUID(*c.ParentID), Valid: true}
		}
		var actionName, actionDesc sql.NullString
		var actionDate sql.NullTime
		if c.ActionLog != nil {
			actionName = sql.NullString{String: c.ActionLog.FullName, Valid: true}
			actionDate = sql.NullTime{Time: c.ActionLog.Date, Valid: true}
			actionDesc = sql.NullString{String: c.ActionLog.Description, Valid: true}
		}
		_, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(c.ID), uuid.UUID(c.Procedure.ID), c.Procedure.Code, string(c.Procedure.Group), c.Procedure.Reference,
			uuid.UUID(c.Sender.AccountID), uuid.UUID(c.Sender.DependencyID), uuid.UUID(c.Sender.InstitutionID),
			c.Sender.FullName, c.Sender.JobTitle,
			uuid.UUID(c.Recipient.AccountID), uuid.UUID(c.Recipient.DependencyID), uuid.UUID(c.Recipient.InstitutionID),
			c.Recipient.FullName, c.Recipient.JobTitle,
			string(c.Status), c.SentDate, c.ReceivedDate, nullFlag(c.Origin), parentID,
			c.Reference, c.Priority, c.AttachmentsCount, c.InternalNumber,
			actionName, actionDate, actionDesc,
		)
		if err != nil {
			return mapWriteError(err, "insert communication")
		}
	}
	return nil
}

func mapWriteError(err error, op string) error {
	if constraint, dup := postgres.UniqueViolation(err); dup && constraint == inFlightIndex {
		return sentinel.ErrAlreadyUsed
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PostgresStore) FindByID(ctx context.Context, commID id.CommunicationID) (*models.Communication, error) {
	return s.findOne(ctx, `SELECT `+communicationColumns+` FROM communications WHERE id = $1`, commID)
}

// FindByIDForUpdate row-locks the communication until the surrounding
// transaction ends.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, commID id.CommunicationID) (*models.Communication, error) {
	return s.findOne(ctx, `SELECT `+communicationColumns+` FROM communications WHERE id = $1 FOR UPDATE`, commID)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, commID id.CommunicationID) (*models.Communication, error) {
	var row communicationRow
	err := s.execer(ctx).GetContext(ctx, &row, query, uuid.UUID(commID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find communication: %w", err)
	}
	return row.toModel(), nil
}

// FindSelection locks the selected rows so the status check and the write
// that follows see the same state.
func (s *PostgresStore) FindSelection(ctx context.Context, ids []id.CommunicationID, party Party, accountID id.AccountID) ([]*models.Communication, error) {
	column := "recipient_account_id"
	if party == PartySender {
		column = "sender_account_id"
	}
	var rows []communicationRow
	query := `SELECT ` + communicationColumns + ` FROM communications
		WHERE id = ANY($1::uuid[]) AND ` + column + ` = $2
		ORDER BY sent_date, id
		FOR UPDATE`
	if err := s.execer(ctx).SelectContext(ctx, &rows, query, pq.Array(uuids(ids)), uuid.UUID(accountID)); err != nil {
		return nil, fmt.Errorf("select communications: %w", err)
	}
	return toRows(rows), nil
}

func (s *PostgresStore) FindInFlight(ctx context.Context, procedureID id.ProcedureID, recipients []id.AccountID) (*models.Communication, error) {
	var row communicationRow
	query := `SELECT ` + communicationColumns + ` FROM communications
		WHERE procedure_id = $1 AND recipient_account_id = ANY($2::uuid[]) AND status IN ('pending', 'received')
		LIMIT 1`
	err := s.execer(ctx).GetContext(ctx, &row, query, uuid.UUID(procedureID), pq.Array(uuids(recipients)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in-flight communication: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) FindLatestStage(ctx context.Context, procedureID id.ProcedureID, accountID id.AccountID) (*models.Communication, error) {
	var row communicationRow
	query := `SELECT ` + communicationColumns + ` FROM communications
		WHERE procedure_id = $1 AND recipient_account_id = $2 AND status IN ('completed', 'received')
		ORDER BY created_at DESC, sent_date DESC
		LIMIT 1`
	err := s.execer(ctx).GetContext(ctx, &row, query, uuid.UUID(procedureID), uuid.UUID(accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest stage: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, ids []id.CommunicationID, update models.StatusUpdate) error {
	var actionName, actionDesc sql.NullString
	var actionDate sql.NullTime
	if update.ActionLog != nil {
		actionName = sql.NullString{String: update.ActionLog.FullName, Valid: true}
		actionDate = sql.NullTime{Time: update.ActionLog.Date, Valid: true}
		actionDesc = sql.NullString{String: update.ActionLog.Description, Valid: true}
	}
	var received sql.NullTime
	if update.ReceivedDate != nil {
		received = sql.NullTime{Time: *update.ReceivedDate, Valid: true}
	}
	query := `
		UPDATE communications SET
			status = $2,
			received_date = COALESCE($3, received_date),
			action_fullname = CASE WHEN $4 THEN NULL ELSE COALESCE($5, action_fullname) END,
			action_date = CASE WHEN $4 THEN NULL ELSE COALESCE($6, action_date) END,
			action_description = CASE WHEN $4 THEN NULL ELSE COALESCE($7, action_description) END
		WHERE id = ANY($1::uuid[])
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		pq.Array(uuids(ids)), string(update.Status), received,
		update.ClearActionLog, actionName, actionDate, actionDesc)
	if err != nil {
		return mapWriteError(err, "update communications")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if int(n) != len(ids) {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, ids []id.CommunicationID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM communications WHERE id = ANY($1::uuid[])`, pq.Array(uuids(ids)))
	if err != nil {
		return fmt.Errorf("delete communications: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByProcedure(ctx context.Context, procedureID id.ProcedureID) ([]*models.Communication, error) {
	var rows []communicationRow
	err := s.execer(ctx).SelectContext(ctx, &rows,
		`SELECT `+communicationColumns+` FROM communications WHERE procedure_id = $1 ORDER BY sent_date, created_at`,
		uuid.UUID(procedureID))
	if err != nil {
		return nil, fmt.Errorf("list workflow: %w", err)
	}
	return toRows(rows), nil
}

func (s *PostgresStore) ListInbox(ctx context.Context, accountID id.AccountID, f models.InboxFilter) (models.Page, error) {
	statuses := models.DefaultInboxStatuses
	if f.Status != "" {
		statuses = []models.Status{f.Status}
	}
	where := `recipient_account_id = $1 AND status = ANY($2::text[]) AND ($3::text = '' OR procedure_group = $3::text)`
	args := []any{uuid.UUID(accountID), pq.Array(statusStrings(statuses)), string(f.Group)}
	return s.page(ctx, where, `priority DESC, sent_date DESC`, args, f.Limit, f.Offset)
}

func (s *PostgresStore) ListOutbox(ctx context.Context, accountID id.AccountID, f models.OutboxFilter) (models.Page, error) {
	statuses := models.DefaultOutboxStatuses
	if f.Status != "" {
		statuses = []models.Status{f.Status}
	}
	where := `sender_account_id = $1 AND status = ANY($2::text[])`
	args := []any{uuid.UUID(accountID), pq.Array(statusStrings(statuses))}
	return s.page(ctx, where, `sent_date DESC`, args, f.Limit, f.Offset)
}

func (s *PostgresStore) page(ctx context.Context, where, order string, args []any, limit, offset int) (models.Page, error) {
	var total int
	if err := s.execer(ctx).GetContext(ctx, &total, `SELECT count(*) FROM communications WHERE `+where, args...); err != nil {
		return models.Page{}, fmt.Errorf("count communications: %w", err)
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM communications WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		communicationColumns, where, order, n+1, n+2)
	var rows []communicationRow
	if err := s.execer(ctx).SelectContext(ctx, &rows, query, append(args, lim, offset)...); err != nil {
		return models.Page{}, fmt.Errorf("list communications: %w", err)
	}
	return models.Page{Items: toRows(rows), Total: total}, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
