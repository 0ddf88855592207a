package handler

import (
	"strings"

	"correspondence/internal/archive/service"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	textutil "correspondence/pkg/platform/strings"
)

const maxSelection = 200

// CreateRequest is the body of POST /archives.
type CreateRequest struct {
	IDs         []string `json:"ids"`
	FolderID    string   `json:"folder_id"`
	Description string   `json:"description"`
	State       string   `json:"state"`

	parsedIDs    []id.CommunicationID
	parsedFolder *id.FolderID
	parsedState  procModels.State
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.IDs = textutil.DedupeAndTrim(r.IDs)
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids are required")
	}
	if len(r.IDs) > maxSelection {
		return dErrors.New(dErrors.CodeValidation, "too many ids")
	}
	state, err := procModels.ParseTerminalState(r.State)
	if err != nil {
		return err
	}
	r.parsedState = state
	r.Description = strings.TrimSpace(r.Description)
	if raw := strings.TrimSpace(r.FolderID); raw != "" {
		folderID, err := id.ParseFolderID(raw)
		if err != nil {
			return err
		}
		r.parsedFolder = &folderID
	}
	r.parsedIDs = make([]id.CommunicationID, 0, len(r.IDs))
	for _, raw := range r.IDs {
		commID, err := id.ParseCommunicationID(raw)
		if err != nil {
			return err
		}
		r.parsedIDs = append(r.parsedIDs, commID)
	}
	return nil
}

func (r *CreateRequest) toInput() service.CreateRequest {
	return service.CreateRequest{
		IDs:         r.parsedIDs,
		FolderID:    r.parsedFolder,
		Description: r.Description,
		State:       r.parsedState,
	}
}

// FolderRequest is the body of folder create and rename.
type FolderRequest struct {
	Name string `json:"name"`
}

func (r *FolderRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}
