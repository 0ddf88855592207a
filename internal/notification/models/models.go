package models

import (
	"fmt"
	"strings"

	procModels "correspondence/internal/procedure/models"
)

// Result is the notifier's answer to one send.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Outcome labels how a completion notification ended.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeIneligible Outcome = "ineligible"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeFailed     Outcome = "failed"
)

// ObservationResult reports one procedure of a bulk observation send.
type ObservationResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// blankPhone is the placeholder registered when the applicant gave none.
const blankPhone = "000000"

// Phone returns the applicant phone of an external procedure, or "" when the
// procedure has none usable.
func Phone(p *procModels.Procedure) string {
	if p.Detail.External == nil {
		return ""
	}
	phone := strings.TrimSpace(p.Detail.External.Applicant.Phone)
	if phone == blankPhone {
		return ""
	}
	return phone
}

// Eligible reports whether a completed procedure notifies its applicant.
// Only completed external procedures of natural persons with a phone
// qualify. reason explains a refusal.
func Eligible(p *procModels.Procedure) (ok bool, reason string) {
	switch {
	case p.Status != procModels.StatusCompleted:
		return false, "procedure is not completed"
	case p.Group != procModels.GroupExternal || p.Detail.External == nil:
		return false, "procedure is not external"
	case p.Detail.External.Applicant.Type != procModels.ApplicantNatural:
		return false, "applicant is not a natural person"
	case Phone(p) == "":
		return false, "applicant has no phone"
	}
	return true, ""
}

// CompletionText renders the message sent when a procedure completes.
func CompletionText(p *procModels.Procedure) string {
	reference := p.Reference
	if reference == "" {
		reference = "No registrada"
	}
	applicant := "No registrado"
	if p.Detail.External != nil {
		if name := p.Detail.External.Applicant.FullName(); name != "" {
			applicant = name
		}
	}
	return fmt.Sprintf("Codigo: %s\nReferencia: %s\nSolicitante: %s\nEstado: %s\n\n_Mensaje generado automaticamente por el sistema de correspondencia_",
		p.Code, reference, applicant, p.State)
}

// ObservationText renders an observation addressed to the applicant.
func ObservationText(p *procModels.Procedure, observation string) string {
	var applicant string
	if p.Detail.External != nil {
		applicant = p.Detail.External.Applicant.FullName()
	}
	return fmt.Sprintf("Codigo: %s\nReferencia: %s\nSolicitante: %s\nObservacion: %s",
		p.Code, p.Reference, applicant, observation)
}
