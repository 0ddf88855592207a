package models

import (
	"time"

	commModels "correspondence/internal/communication/models"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	textutil "correspondence/pkg/platform/strings"
)

const maxFolderName = 120

// Folder groups a dependency's archives. Names are unique per dependency.
type Folder struct {
	ID           id.FolderID     `json:"id"`
	Name         string          `json:"name"`
	DependencyID id.DependencyID `json:"dependency_id"`
	ManagerName  string          `json:"manager_name"`
	CreatedAt    time.Time       `json:"created_at"`
	// ArchiveCount is filled by listings only.
	ArchiveCount int `json:"archive_count"`
}

// NormalizeFolderName collapses whitespace and validates a folder name.
func NormalizeFolderName(name string) (string, error) {
	name = textutil.CollapseSpaces(name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "folder name is required")
	}
	if len(name) > maxFolderName {
		return "", dErrors.New(dErrors.CodeValidation, "folder name is too long")
	}
	return name, nil
}

// Archive is the snapshot taken when an officer archives a received
// communication. It keeps enough of the communication to list and restore
// it without joining back.
type Archive struct {
	ID              id.ArchiveID            `json:"id"`
	CommunicationID id.CommunicationID      `json:"communication_id"`
	AccountID       id.AccountID            `json:"account_id"`
	DependencyID    id.DependencyID         `json:"dependency_id"`
	InstitutionID   id.InstitutionID        `json:"institution_id"`
	FullName        string                  `json:"fullname"`
	JobTitle        string                  `json:"jobtitle"`
	FolderID        *id.FolderID            `json:"folder_id,omitempty"`
	Procedure       commModels.ProcedureRef `json:"procedure"`
	Origin          commModels.Origin       `json:"origin"`
	Description     string                  `json:"description"`
	State           procModels.State        `json:"state"`
	CreatedAt       time.Time               `json:"created_at"`
}

// Entry is an archive as listed, with its folder name resolved.
type Entry struct {
	*Archive
	FolderName string `json:"folder_name,omitempty"`
}

// Filter narrows archive listings to one dependency and optionally one
// folder.
type Filter struct {
	DependencyID id.DependencyID
	FolderID     *id.FolderID
	Limit        int
	Offset       int
}

type Page struct {
	Items []Entry `json:"items"`
	Total int     `json:"total"`
}
