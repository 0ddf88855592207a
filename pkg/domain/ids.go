// Package domain holds identifier types shared across correspondence domains.
//
// Each identifier is a distinct named UUID so an AccountID can never be passed
// where a ProcedureID is expected. Construct them with the Parse functions at
// trust boundaries; direct conversion from uuid.UUID skips validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "correspondence/pkg/domain-errors"
)

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// AccountID identifies an account.
type AccountID uuid.UUID

// NewAccountID returns a random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID parses and validates an account ID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account ID")
	return AccountID(u), err
}

func (id AccountID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AccountID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// DependencyID identifies a dependency.
type DependencyID uuid.UUID

// NewDependencyID returns a random DependencyID.
func NewDependencyID() DependencyID { return DependencyID(uuid.New()) }

// ParseDependencyID parses and validates a dependency ID.
func ParseDependencyID(s string) (DependencyID, error) {
	u, err := parseUUID(s, "dependency ID")
	return DependencyID(u), err
}

func (id DependencyID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id DependencyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id DependencyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DependencyID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// InstitutionID identifies an institution.
type InstitutionID uuid.UUID

// NewInstitutionID returns a random InstitutionID.
func NewInstitutionID() InstitutionID { return InstitutionID(uuid.New()) }

// ParseInstitutionID parses and validates an institution ID.
func ParseInstitutionID(s string) (InstitutionID, error) {
	u, err := parseUUID(s, "institution ID")
	return InstitutionID(u), err
}

func (id InstitutionID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id InstitutionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id InstitutionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *InstitutionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// OfficerID identifies an officer.
type OfficerID uuid.UUID

// NewOfficerID returns a random OfficerID.
func NewOfficerID() OfficerID { return OfficerID(uuid.New()) }

// ParseOfficerID parses and validates an officer ID.
func ParseOfficerID(s string) (OfficerID, error) {
	u, err := parseUUID(s, "officer ID")
	return OfficerID(u), err
}

func (id OfficerID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id OfficerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id OfficerID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *OfficerID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ProcedureID identifies a procedure.
type ProcedureID uuid.UUID

// NewProcedureID returns a random ProcedureID.
func NewProcedureID() ProcedureID { return ProcedureID(uuid.New()) }

// ParseProcedureID parses and validates a procedure ID.
func ParseProcedureID(s string) (ProcedureID, error) {
	u, err := parseUUID(s, "procedure ID")
	return ProcedureID(u), err
}

func (id ProcedureID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id ProcedureID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ProcedureID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ProcedureID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// CommunicationID identifies a communication.
type CommunicationID uuid.UUID

// NewCommunicationID returns a random CommunicationID.
func NewCommunicationID() CommunicationID { return CommunicationID(uuid.New()) }

// ParseCommunicationID parses and validates a communication ID.
func ParseCommunicationID(s string) (CommunicationID, error) {
	u, err := parseUUID(s, "communication ID")
	return CommunicationID(u), err
}

func (id CommunicationID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id CommunicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CommunicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CommunicationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ArchiveID identifies an archive.
type ArchiveID uuid.UUID

// NewArchiveID returns a random ArchiveID.
func NewArchiveID() ArchiveID { return ArchiveID(uuid.New()) }

// ParseArchiveID parses and validates an archive ID.
func ParseArchiveID(s string) (ArchiveID, error) {
	u, err := parseUUID(s, "archive ID")
	return ArchiveID(u), err
}

func (id ArchiveID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id ArchiveID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ArchiveID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ArchiveID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// FolderID identifies a folder.
type FolderID uuid.UUID

// NewFolderID returns a random FolderID.
func NewFolderID() FolderID { return FolderID(uuid.New()) }

// ParseFolderID parses and validates a folder ID.
func ParseFolderID(s string) (FolderID, error) {
	u, err := parseUUID(s, "folder ID")
	return FolderID(u), err
}

func (id FolderID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero value.
func (id FolderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id FolderID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *FolderID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
