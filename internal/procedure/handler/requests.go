package handler

import (
	"strings"

	"correspondence/internal/procedure/models"
	"correspondence/internal/procedure/service"
	dErrors "correspondence/pkg/domain-errors"
)

const maxReferenceLength = 1000

// RegisterExternalRequest is the body of POST /procedures/external.
type RegisterExternalRequest struct {
	Segment           string                 `json:"segment"`
	Reference         string                 `json:"reference"`
	NumberOfDocuments int                    `json:"number_of_documents"`
	Applicant         models.Applicant       `json:"applicant"`
	Representative    *models.Representative `json:"representative,omitempty"`
	Requirements      string                 `json:"requirements"`
	TypeProcedureID   string                 `json:"type_procedure_id"`
}

func (r *RegisterExternalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Segment = strings.TrimSpace(r.Segment)
	if r.Segment == "" {
		return dErrors.New(dErrors.CodeValidation, "segment is required")
	}
	if err := validateReference(r.Reference); err != nil {
		return err
	}
	r.Applicant.Type = models.ApplicantType(strings.ToUpper(strings.TrimSpace(string(r.Applicant.Type))))
	r.Applicant.Phone = strings.TrimSpace(r.Applicant.Phone)
	return nil
}

func (r *RegisterExternalRequest) toInput() service.RegisterExternal {
	return service.RegisterExternal{
		Segment:           r.Segment,
		Reference:         r.Reference,
		NumberOfDocuments: r.NumberOfDocuments,
		Applicant:         r.Applicant,
		Representative:    r.Representative,
		Requirements:      r.Requirements,
		TypeProcedureID:   r.TypeProcedureID,
	}
}

// RegisterInternalRequest is the body of POST /procedures/internal.
type RegisterInternalRequest struct {
	Reference         string        `json:"reference"`
	NumberOfDocuments int           `json:"number_of_documents"`
	Recipient         models.Worker `json:"recipient"`
}

func (r *RegisterInternalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return validateReference(r.Reference)
}

func (r *RegisterInternalRequest) toInput() service.RegisterInternal {
	return service.RegisterInternal{
		Reference:         r.Reference,
		NumberOfDocuments: r.NumberOfDocuments,
		Recipient:         r.Recipient,
	}
}

// UpdateRequest is the body of PATCH /procedures/{id}.
type UpdateRequest struct {
	Reference         *string           `json:"reference,omitempty"`
	NumberOfDocuments *int              `json:"number_of_documents,omitempty"`
	Applicant         *models.Applicant `json:"applicant,omitempty"`
	Requirements      *string           `json:"requirements,omitempty"`
	Recipient         *models.Worker    `json:"recipient,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Reference != nil {
		return validateReference(*r.Reference)
	}
	return nil
}

func (r *UpdateRequest) toInput() service.Update {
	return service.Update{
		Reference:         r.Reference,
		NumberOfDocuments: r.NumberOfDocuments,
		Applicant:         r.Applicant,
		Requirements:      r.Requirements,
		Recipient:         r.Recipient,
	}
}

func validateReference(ref string) error {
	if len(ref) > maxReferenceLength {
		return dErrors.New(dErrors.CodeValidation, "reference must be at most 1000 characters")
	}
	return nil
}
