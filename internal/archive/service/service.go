package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"correspondence/internal/archive/models"
	commModels "correspondence/internal/communication/models"
	commService "correspondence/internal/communication/service"
	dirModels "correspondence/internal/directory/models"
	procModels "correspondence/internal/procedure/models"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/outbox"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/platform/tx"
	"correspondence/pkg/requestcontext"
)

// Store persists folders and archive snapshots.
type Store interface {
	CreateFolder(ctx context.Context, f *models.Folder) error
	FindFolder(ctx context.Context, folderID id.FolderID) (*models.Folder, error)
	RenameFolder(ctx context.Context, folderID id.FolderID, name string) error
	DeleteFolder(ctx context.Context, folderID id.FolderID) error
	ListFolders(ctx context.Context, dependencyID id.DependencyID) ([]*models.Folder, error)

	InsertArchives(ctx context.Context, archives []*models.Archive) error
	FindArchive(ctx context.Context, archiveID id.ArchiveID) (*models.Archive, error)
	DeleteArchive(ctx context.Context, archiveID id.ArchiveID) error
	ListArchives(ctx context.Context, f models.Filter) (models.Page, error)
}

// Inbox is the part of the inbox processor that archiving drives. Both
// calls join the caller's transaction.
type Inbox interface {
	Archive(ctx context.Context, req commService.ArchiveRequest) (*commService.ArchiveResult, error)
	Restore(ctx context.Context, commID id.CommunicationID, actor *dirModels.Account, continuation bool) (*commModels.Communication, error)
}

type Directory interface {
	Resolve(ctx context.Context, accountID id.AccountID) (*dirModels.Account, error)
}

// Service archives received communications into folders and restores them.
type Service struct {
	store     Store
	inbox     Inbox
	directory Directory
	events    outbox.Store
	tx        tx.Manager
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, inbox Inbox, directory Directory, events outbox.Store, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		store:     store,
		inbox:     inbox,
		directory: directory,
		events:    events,
		tx:        txManager,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest archives received communications of the actor.
type CreateRequest struct {
	IDs         []id.CommunicationID
	FolderID    *id.FolderID
	Description string
	State       procModels.State
}

type CreateResult struct {
	Archives  []*models.Archive `json:"archives"`
	Completed []id.ProcedureID  `json:"completed"`
}

// Create archives the selected communications. Procedures whose original
// is archived are completed with req.State and announced through the
// outbox in the same transaction.
func (s *Service) Create(ctx context.Context, actorID id.AccountID, req CreateRequest) (*CreateResult, error) {
	if !req.State.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeValidation, "state must be one of CONCLUIDO, SUSPENDIDO, ANULADO, ABANDONO, RETIRADO")
	}
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if req.FolderID != nil {
		if _, err := s.ownedFolder(ctx, actor, *req.FolderID, dErrors.CodeBadRequest); err != nil {
			return nil, err
		}
	}
	now := requestcontext.Now(ctx)

	var result *CreateResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		archived, err := s.inbox.Archive(ctx, commService.ArchiveRequest{
			IDs:         req.IDs,
			Description: req.Description,
			State:       req.State,
			Account:     actor,
			Date:        now,
		})
		if err != nil {
			return err
		}

		archives := make([]*models.Archive, 0, len(archived.Items))
		for _, c := range archived.Items {
			archives = append(archives, snapshot(c, actor, req, now))
		}
		if err := s.store.InsertArchives(ctx, archives); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				return dErrors.New(dErrors.CodeConflict, "a communication is already archived")
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeBadRequest, "folder does not exist")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save archives")
		}

		codes := make(map[id.ProcedureID]string, len(archived.Items))
		for _, c := range archived.Items {
			codes[c.Procedure.ID] = c.Procedure.Code
		}
		for _, procedureID := range archived.Completed {
			event, err := outbox.NewEvent(procModels.AggregateProcedure, procedureID.String(), procModels.EventProcedureCompleted,
				procModels.CompletedEvent{ProcedureID: procedureID, Code: codes[procedureID], State: req.State, CompletedAt: now}, now)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build completion event")
			}
			if err := s.events.Append(ctx, event); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record completion event")
			}
		}
		result = &CreateResult{Archives: archives, Completed: archived.Completed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "communications archived",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.AccountID, actorID.String(),
		"archived", len(result.Archives),
		"completed", len(result.Completed),
	)
	return result, nil
}

func snapshot(c *commModels.Communication, actor *dirModels.Account, req CreateRequest, now time.Time) *models.Archive {
	a := &models.Archive{
		ID:              id.NewArchiveID(),
		CommunicationID: c.ID,
		AccountID:       actor.ID,
		DependencyID:    actor.DependencyID,
		InstitutionID:   actor.InstitutionID,
		FullName:        actor.Officer.FullName,
		JobTitle:        actor.Officer.JobTitle,
		Procedure:       c.Procedure,
		Origin:          c.Origin,
		Description:     req.Description,
		State:           req.State,
		CreatedAt:       now,
	}
	if req.FolderID != nil {
		folderID := *req.FolderID
		a.FolderID = &folderID
	}
	return a
}

// Remove un-archives a communication. Any officer of the archiving
// dependency may do it; when it is not the officer who archived, the
// communication continues in the actor's inbox as a new communication.
func (s *Service) Remove(ctx context.Context, actorID id.AccountID, archiveID id.ArchiveID) (*commModels.Communication, error) {
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var restored *commModels.Communication
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		archive, err := s.store.FindArchive(ctx, archiveID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "archive %s not found", archiveID)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load archive")
		}
		if archive.DependencyID != actor.DependencyID {
			return dErrors.New(dErrors.CodeForbidden, "the archive belongs to another dependency")
		}
		continuation := archive.AccountID != actor.ID
		restored, err = s.inbox.Restore(ctx, archive.CommunicationID, actor, continuation)
		if err != nil {
			return err
		}
		if err := s.store.DeleteArchive(ctx, archiveID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete archive")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "archive removed",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.ArchiveID, archiveID.String(),
		attrs.CommunicationID, restored.ID.String(),
		attrs.AccountID, actorID.String(),
	)
	return restored, nil
}

// ListRequest pages the actor's dependency archives, optionally one folder.
type ListRequest struct {
	FolderID *id.FolderID
	Limit    int
	Offset   int
}

func (s *Service) List(ctx context.Context, actorID id.AccountID, req ListRequest) (*models.Page, error) {
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if req.FolderID != nil {
		if _, err := s.ownedFolder(ctx, actor, *req.FolderID, dErrors.CodeBadRequest); err != nil {
			return nil, err
		}
	}
	page, err := s.store.ListArchives(ctx, models.Filter{
		DependencyID: actor.DependencyID,
		FolderID:     req.FolderID,
		Limit:        req.Limit,
		Offset:       req.Offset,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list archives")
	}
	return &page, nil
}

// ownedFolder loads a folder of the actor's dependency. missing is the code
// reported when the folder does not exist.
func (s *Service) ownedFolder(ctx context.Context, actor *dirModels.Account, folderID id.FolderID, missing dErrors.Code) (*models.Folder, error) {
	f, err := s.store.FindFolder(ctx, folderID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(missing, "folder does not exist")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load folder")
	}
	if f.DependencyID != actor.DependencyID {
		return nil, dErrors.New(dErrors.CodeForbidden, "the folder belongs to another dependency")
	}
	return f, nil
}
