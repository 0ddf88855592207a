package service

import (
	"context"
	"errors"

	"correspondence/internal/archive/models"
	"correspondence/pkg/attrs"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/sentinel"
	"correspondence/pkg/requestcontext"
)

func folderNameExists() error {
	return dErrors.New(dErrors.CodeBadRequest, "folder name exists")
}

func (s *Service) CreateFolder(ctx context.Context, actorID id.AccountID, name string) (*models.Folder, error) {
	name, err := models.NormalizeFolderName(name)
	if err != nil {
		return nil, err
	}
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f := &models.Folder{
		ID:           id.NewFolderID(),
		Name:         name,
		DependencyID: actor.DependencyID,
		ManagerName:  actor.Officer.FullName,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.CreateFolder(ctx, f); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, folderNameExists()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create folder")
	}
	s.logger.InfoContext(ctx, "folder created",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.FolderID, f.ID.String(),
		attrs.AccountID, actorID.String(),
	)
	return f, nil
}

func (s *Service) RenameFolder(ctx context.Context, actorID id.AccountID, folderID id.FolderID, name string) (*models.Folder, error) {
	name, err := models.NormalizeFolderName(name)
	if err != nil {
		return nil, err
	}
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f, err := s.ownedFolder(ctx, actor, folderID, dErrors.CodeNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.store.RenameFolder(ctx, folderID, name); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, folderNameExists()
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "folder does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rename folder")
	}
	f.Name = name
	return f, nil
}

// DeleteFolder removes an empty folder.
func (s *Service) DeleteFolder(ctx context.Context, actorID id.AccountID, folderID id.FolderID) error {
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return err
	}
	if _, err := s.ownedFolder(ctx, actor, folderID, dErrors.CodeBadRequest); err != nil {
		return err
	}
	if err := s.store.DeleteFolder(ctx, folderID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotEmpty):
			return dErrors.New(dErrors.CodeBadRequest, "the folder still contains archives")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeBadRequest, "folder does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete folder")
	}
	s.logger.InfoContext(ctx, "folder deleted",
		attrs.RequestID, requestcontext.RequestID(ctx),
		attrs.FolderID, folderID.String(),
		attrs.AccountID, actorID.String(),
	)
	return nil
}

func (s *Service) ListFolders(ctx context.Context, actorID id.AccountID) ([]*models.Folder, error) {
	actor, err := s.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	folders, err := s.store.ListFolders(ctx, actor.DependencyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list folders")
	}
	return folders, nil
}
