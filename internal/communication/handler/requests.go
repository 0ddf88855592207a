package handler

import (
	"net/http"
	"strconv"
	"strings"

	"correspondence/internal/communication/models"
	"correspondence/internal/communication/service"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	textutil "correspondence/pkg/platform/strings"
)

const (
	maxRecipients   = 50
	maxSelection    = 200
	defaultPageSize = 10
	maxPageSize     = 100
)

type RecipientRequest struct {
	AccountID  string `json:"account_id"`
	IsOriginal bool   `json:"is_original"`
}

// SendRequest is the common body of initiate, forward and resend.
type SendRequest struct {
	Recipients       []RecipientRequest `json:"recipients"`
	Reference        string             `json:"reference"`
	Priority         int                `json:"priority"`
	AttachmentsCount int                `json:"attachments_count"`
	InternalNumber   string             `json:"internal_number"`

	parsedRecipients []service.Recipient
}

func (r *SendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Recipients) == 0 {
		return dErrors.New(dErrors.CodeValidation, "recipients are required")
	}
	if len(r.Recipients) > maxRecipients {
		return dErrors.New(dErrors.CodeValidation, "too many recipients")
	}
	if r.Priority < 0 || r.AttachmentsCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "priority and attachments_count cannot be negative")
	}
	r.Reference = strings.TrimSpace(r.Reference)
	r.InternalNumber = strings.TrimSpace(r.InternalNumber)
	r.parsedRecipients = make([]service.Recipient, 0, len(r.Recipients))
	for _, rc := range r.Recipients {
		accountID, err := id.ParseAccountID(rc.AccountID)
		if err != nil {
			return err
		}
		r.parsedRecipients = append(r.parsedRecipients, service.Recipient{AccountID: accountID, IsOriginal: rc.IsOriginal})
	}
	return nil
}

func (r *SendRequest) details() service.SendDetails {
	return service.SendDetails{
		Reference:        r.Reference,
		Priority:         r.Priority,
		AttachmentsCount: r.AttachmentsCount,
		InternalNumber:   r.InternalNumber,
	}
}

// InitiateRequest is the body of POST /communications.
type InitiateRequest struct {
	ProcedureID string `json:"procedure_id"`
	SendRequest

	parsedProcedureID id.ProcedureID
}

func (r *InitiateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	procedureID, err := id.ParseProcedureID(r.ProcedureID)
	if err != nil {
		return err
	}
	r.parsedProcedureID = procedureID
	return r.SendRequest.Validate()
}

func (r *InitiateRequest) toInput() service.InitiateRequest {
	return service.InitiateRequest{
		ProcedureID: r.parsedProcedureID,
		Recipients:  r.parsedRecipients,
		SendDetails: r.details(),
	}
}

// SelectionRequest carries the ids of a batch action.
type SelectionRequest struct {
	IDs []string `json:"ids"`

	parsedIDs []id.CommunicationID
}

func (r *SelectionRequest) Validate() error {
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

// RejectRequest is the body of POST /inbox/reject.
type RejectRequest struct {
	SelectionRequest
	Description string `json:"description"`
}

func (r *RejectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	return r.SelectionRequest.Validate()
}

func parsePage(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit = defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 || limit > maxPageSize {
			return 0, 0, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, dErrors.New(dErrors.CodeValidation, "offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func parseStatus(r *http.Request) (models.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}
	return models.ParseStatus(raw)
}

func parseGroup(r *http.Request) (procModels.Group, error) {
	raw := r.URL.Query().Get("group")
	if raw == "" {
		return "", nil
	}
	return procModels.ParseGroup(raw)
}
