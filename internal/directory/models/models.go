package models

import (
	"strings"
	"time"

	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
)

// Institution is the top-level organisation. Its acronym is embedded in
// every procedure code it issues.
type Institution struct {
	ID        id.InstitutionID `json:"id"`
	Name      string           `json:"name"`
	Acronym   string           `json:"acronym"`
	CreatedAt time.Time        `json:"created_at"`
}

// Dependency is an office inside an institution.
type Dependency struct {
	ID            id.DependencyID  `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	Name          string           `json:"name"`
	Acronym       string           `json:"acronym"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Officer is the person operating an account.
type Officer struct {
	ID       id.OfficerID `json:"id"`
	FullName string       `json:"fullname"`
	JobTitle string       `json:"jobtitle"`
}

// Account binds an officer to an organisational position.
//
// Invariants:
//   - An officer has at most one account
//   - DependencyID belongs to InstitutionID
//
// Dependency and Institution are populated by lookups; they are not
// persisted with the account.
type Account struct {
	ID            id.AccountID     `json:"id"`
	Officer       Officer          `json:"officer"`
	DependencyID  id.DependencyID  `json:"dependency_id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`

	Dependency  *Dependency  `json:"dependency,omitempty"`
	Institution *Institution `json:"institution,omitempty"`
}

// NewInstitution validates and builds an institution.
func NewInstitution(name, acronym string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	acronym = strings.ToUpper(strings.TrimSpace(acronym))
	if name == "" || acronym == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name and acronym are required")
	}
	return &Institution{ID: id.NewInstitutionID(), Name: name, Acronym: acronym, CreatedAt: now}, nil
}

// NewDependency validates and builds a dependency.
func NewDependency(institutionID id.InstitutionID, name, acronym string, now time.Time) (*Dependency, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dependency name is required")
	}
	if institutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dependency requires an institution")
	}
	return &Dependency{
		ID:            id.NewDependencyID(),
		InstitutionID: institutionID,
		Name:          name,
		Acronym:       strings.ToUpper(strings.TrimSpace(acronym)),
		CreatedAt:     now,
	}, nil
}

// NewAccount validates and builds an active account for an officer.
func NewAccount(officer Officer, dependency *Dependency, now time.Time) (*Account, error) {
	officer.FullName = strings.TrimSpace(officer.FullName)
	officer.JobTitle = strings.TrimSpace(officer.JobTitle)
	if officer.FullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "officer full name is required")
	}
	if officer.ID.IsNil() {
		officer.ID = id.NewOfficerID()
	}
	if dependency == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account requires a dependency")
	}
	return &Account{
		ID:            id.NewAccountID(),
		Officer:       officer,
		DependencyID:  dependency.ID,
		InstitutionID: dependency.InstitutionID,
		Active:        true,
		CreatedAt:     now,
	}, nil
}
