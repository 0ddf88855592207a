package models

import (
	"fmt"
	"strings"
	"time"

	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
)

// Group discriminates external (citizen-filed) from internal (office-to-office)
// procedures.
type Group string

const (
	GroupExternal Group = "external"
	GroupInternal Group = "internal"
)

func ParseGroup(s string) (Group, error) {
	switch g := Group(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupExternal, GroupInternal:
		return g, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid procedure group")
}

// State is the administrative lifecycle state.
type State string

const (
	StateRegistered State = "INSCRITO"
	StateInReview   State = "EN_REVISION"
	StateObserved   State = "OBSERVADO"
	StateConcluded  State = "CONCLUIDO"
	StateAnnulled   State = "ANULADO"
	StateSuspended  State = "SUSPENDIDO"
	StateWithdrawn  State = "RETIRADO"
	StateAbandoned  State = "ABANDONO"
)

var terminalStates = map[State]bool{
	StateConcluded: true,
	StateAnnulled:  true,
	StateSuspended: true,
	StateWithdrawn: true,
	StateAbandoned: true,
}

// IsTerminal reports whether archiving may close a procedure with this state.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// ParseTerminalState parses a state given by an archiving officer.
func ParseTerminalState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsTerminal() {
		return "", dErrors.New(dErrors.CodeValidation, "state must be one of CONCLUIDO, SUSPENDIDO, ANULADO, ABANDONO, RETIRADO")
	}
	return st, nil
}

// Status is the coarse completion flag.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Procedure is a unit of administrative work.
//
// Invariants:
//   - (Code, Group) is unique; Code never changes once assigned
//   - Correlative is strictly increasing per (Prefix, InstitutionID, year)
//   - Detail.Group == Group
//   - Status is completed iff CompletedAt is set
type Procedure struct {
	ID                id.ProcedureID   `json:"id"`
	Code              string           `json:"code"`
	Prefix            string           `json:"prefix"`
	Correlative       int              `json:"correlative"`
	Group             Group            `json:"group"`
	State             State            `json:"state"`
	Status            Status           `json:"status"`
	AccountID         id.AccountID     `json:"account_id"`
	InstitutionID     id.InstitutionID `json:"institution_id"`
	DependencyID      id.DependencyID  `json:"dependency_id"`
	OfficerID         *id.OfficerID    `json:"officer_id,omitempty"`
	Reference         string           `json:"reference"`
	NumberOfDocuments int              `json:"number_of_documents"`
	Detail            Detail           `json:"detail"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

// CanStart checks the procedure has not been sent yet.
func (p *Procedure) CanStart() error {
	if p.State != StateRegistered {
		return dErrors.New(dErrors.CodeBadRequest, "The procedure has already started.")
	}
	return nil
}

// CanUpdate checks the registration data is still editable.
func (p *Procedure) CanUpdate() error {
	if p.State != StateRegistered {
		return dErrors.New(dErrors.CodeBadRequest, "The procedure is already in progress and can no longer be edited.")
	}
	return nil
}

// Code is the human-readable identifier issued at registration.
type Code struct {
	Prefix      string
	Correlative int
	Value       string
}

// NewCode formats <prefix>-<institution>-<year>-<correlative>. External
// procedures pad the correlative to 6 digits, internal ones to 5.
func NewCode(group Group, prefix, institutionAcronym string, year, correlative int) Code {
	width := 6
	if group == GroupInternal {
		width = 5
	}
	return Code{
		Prefix:      prefix,
		Correlative: correlative,
		Value:       fmt.Sprintf("%s-%s-%d-%0*d", prefix, institutionAcronym, year, width, correlative),
	}
}

// InternalPrefix is the code prefix of every internal procedure.
const InternalPrefix = "HR"

// PrefixFor derives the code prefix: the trimmed, upper-cased segment for
// external procedures and HR for internal ones.
func PrefixFor(group Group, segment string) (string, error) {
	if group == GroupInternal {
		return InternalPrefix, nil
	}
	prefix := strings.ToUpper(strings.TrimSpace(segment))
	if prefix == "" {
		return "", dErrors.New(dErrors.CodeValidation, "segment is required for external procedures")
	}
	return prefix, nil
}

// Patch is a partial state update. Nil fields are left unchanged.
type Patch struct {
	State            *State
	Status           *Status
	CompletedAt      *time.Time
	ClearCompletedAt bool
	UpdatedAt        time.Time
}

// Apply mutates p with the patch.
func (pt Patch) Apply(p *Procedure) {
	if pt.State != nil {
		p.State = *pt.State
	}
	if pt.Status != nil {
		p.Status = *pt.Status
	}
	if pt.ClearCompletedAt {
		p.CompletedAt = nil
	} else if pt.CompletedAt != nil {
		t := *pt.CompletedAt
		p.CompletedAt = &t
	}
	p.UpdatedAt = pt.UpdatedAt
}

// StartPatch moves a registered procedure into review when first sent.
func StartPatch(now time.Time) Patch {
	st := StateInReview
	return Patch{State: &st, UpdatedAt: now}
}

// RegisteredPatch puts a procedure back to INSCRITO after its only send was
// cancelled.
func RegisteredPatch(now time.Time) Patch {
	st := StateRegistered
	return Patch{State: &st, UpdatedAt: now}
}

// CompletionPatch closes a procedure with a terminal state.
func CompletionPatch(state State, at time.Time) Patch {
	status := StatusCompleted
	return Patch{State: &state, Status: &status, CompletedAt: &at, UpdatedAt: at}
}

// ReopenPatch returns an archived procedure to review.
func ReopenPatch(now time.Time) Patch {
	st := StateInReview
	status := StatusPending
	return Patch{State: &st, Status: &status, ClearCompletedAt: true, UpdatedAt: now}
}
