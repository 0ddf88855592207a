package models

import (
	"strings"

	dErrors "correspondence/pkg/domain-errors"
)

// Detail is the group-specific part of a procedure: exactly one of External
// or Internal is set, matching Group.
type Detail struct {
	Group    Group           `json:"group"`
	External *ExternalDetail `json:"external,omitempty"`
	Internal *InternalDetail `json:"internal,omitempty"`
}

// Validate checks the variant matches its tag.
func (d Detail) Validate() error {
	switch d.Group {
	case GroupExternal:
		if d.External == nil || d.Internal != nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "external procedure requires external detail only")
		}
		return d.External.Validate()
	case GroupInternal:
		if d.Internal == nil || d.External != nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "internal procedure requires internal detail only")
		}
		return nil
	}
	return dErrors.New(dErrors.CodeInvariantViolation, "unknown procedure group")
}

// ApplicantType distinguishes natural persons from legal entities.
type ApplicantType string

const (
	ApplicantNatural  ApplicantType = "NATURAL"
	ApplicantJuridico ApplicantType = "JURIDICO"
)

// Applicant is the citizen or company filing an external procedure.
type Applicant struct {
	Type       ApplicantType `json:"type"`
	FirstName  string        `json:"firstname"`
	MiddleName string        `json:"middlename"`
	LastName   string        `json:"lastname"`
	Phone      string        `json:"phone"`
	DNI        string        `json:"dni"`
}

// FullName joins the non-empty name parts.
func (a Applicant) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Representative acts on behalf of the applicant.
type Representative struct {
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
	DNI      string `json:"dni"`
}

// ExternalDetail carries applicant data for citizen-filed procedures. Pin is
// the 6-digit code the applicant uses to consult progress.
type ExternalDetail struct {
	Applicant       Applicant       `json:"applicant"`
	Representative  *Representative `json:"representative,omitempty"`
	Requirements    string          `json:"requirements"`
	Pin             int             `json:"pin"`
	TypeProcedureID string          `json:"type_procedure_id,omitempty"`
}

func (d *ExternalDetail) Validate() error {
	switch d.Applicant.Type {
	case ApplicantNatural, ApplicantJuridico:
	default:
		return dErrors.New(dErrors.CodeValidation, "applicant type must be NATURAL or JURIDICO")
	}
	if d.Applicant.FullName() == "" {
		return dErrors.New(dErrors.CodeValidation, "applicant name is required")
	}
	return nil
}

// Worker is an officer snapshot on an internal procedure.
type Worker struct {
	FullName string `json:"fullname"`
	JobTitle string `json:"jobtitle"`
}

// InternalDetail records who issued and who is addressed by an internal
// procedure.
type InternalDetail struct {
	Sender    Worker `json:"sender"`
	Recipient Worker `json:"recipient"`
}
