package models

import (
	"time"

	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
)

// Status is a communication's position in the routing lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusReceived     Status = "received"
	StatusRejected     Status = "rejected"
	StatusArchived     Status = "archived"
	StatusForwarding   Status = "forwarding"
	StatusCompleted    Status = "completed"
	StatusAutoRejected Status = "auto-rejected"
)

// InFlight reports whether the status counts against the one-per-recipient
// rule.
func (s Status) InFlight() bool {
	return s == StatusPending || s == StatusReceived
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusReceived, StatusRejected, StatusArchived,
		StatusForwarding, StatusCompleted, StatusAutoRejected:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid communication status")
}

// Origin says whether a communication carries the physical original or a
// copy. Rows written before the distinction existed load as OriginLegacy.
type Origin string

const (
	OriginOriginal Origin = "original"
	OriginCopy     Origin = "copy"
	OriginLegacy   Origin = "legacy"
)

// OriginFromFlag normalises the nullable is_original column.
func OriginFromFlag(isOriginal *bool) Origin {
	switch {
	case isOriginal == nil:
		return OriginLegacy
	case *isOriginal:
		return OriginOriginal
	default:
		return OriginCopy
	}
}

// OriginOf maps a request flag to an explicit origin.
func OriginOf(isOriginal bool) Origin {
	if isOriginal {
		return OriginOriginal
	}
	return OriginCopy
}

// Flag is the inverse of OriginFromFlag.
func (o Origin) Flag() *bool {
	var v bool
	switch o {
	case OriginOriginal:
		v = true
	case OriginCopy:
		v = false
	default:
		return nil
	}
	return &v
}

// CarriesOriginal reports whether archiving or un-archiving the communication
// moves its procedure. Legacy rows count as originals here.
func (o Origin) CarriesOriginal() bool {
	return o != OriginCopy
}

// SendsAsOriginal reports whether a send from the communication follows the
// original's cardinality. Legacy rows are sent on like copies.
func (o Origin) SendsAsOriginal() bool {
	return o == OriginOriginal
}

// Participant is a sender or recipient snapshot taken at send time. Later
// account edits do not change it.
type Participant struct {
	AccountID     id.AccountID     `json:"account_id"`
	DependencyID  id.DependencyID  `json:"dependency_id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	FullName      string           `json:"fullname"`
	JobTitle      string           `json:"jobtitle"`
}

// ProcedureRef is the procedure snapshot carried by every communication.
type ProcedureRef struct {
	ID        id.ProcedureID   `json:"id"`
	Code      string           `json:"code"`
	Group     procModels.Group `json:"group"`
	Reference string           `json:"reference"`
}

// ActionLog records who rejected or archived a communication and why.
type ActionLog struct {
	FullName    string    `json:"fullname"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// Communication is one directed send of a procedure.
type Communication struct {
	ID               id.CommunicationID  `json:"id"`
	Procedure        ProcedureRef        `json:"procedure"`
	Sender           Participant         `json:"sender"`
	Recipient        Participant         `json:"recipient"`
	Status           Status              `json:"status"`
	SentDate         time.Time           `json:"sent_date"`
	ReceivedDate     *time.Time          `json:"received_date,omitempty"`
	Origin           Origin              `json:"origin"`
	ParentID         *id.CommunicationID `json:"parent_id,omitempty"`
	Reference        string              `json:"reference"`
	Priority         int                 `json:"priority"`
	AttachmentsCount int                 `json:"attachments_count"`
	InternalNumber   string              `json:"internal_number"`
	ActionLog        *ActionLog          `json:"action_log,omitempty"`
}

// Clone returns a deep copy.
func (c *Communication) Clone() *Communication {
	out := *c
	if c.ReceivedDate != nil {
		t := *c.ReceivedDate
		out.ReceivedDate = &t
	}
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	if c.ActionLog != nil {
		l := *c.ActionLog
		out.ActionLog = &l
	}
	return &out
}

// StatusUpdate is applied to a set of communications in one write.
type StatusUpdate struct {
	Status         Status
	ReceivedDate   *time.Time
	ActionLog      *ActionLog
	ClearActionLog bool
}

// Apply mutates c with the update.
func (u StatusUpdate) Apply(c *Communication) {
	c.Status = u.Status
	if u.ReceivedDate != nil {
		t := *u.ReceivedDate
		c.ReceivedDate = &t
	}
	switch {
	case u.ClearActionLog:
		c.ActionLog = nil
	case u.ActionLog != nil:
		l := *u.ActionLog
		c.ActionLog = &l
	}
}

// Page is a slice of a listing plus the total match count.
type Page struct {
	Items []*Communication `json:"items"`
	Total int             `json:"total"`
}

// InboxFilter narrows the recipient-side listing. An empty Status means
// pending and received.
type InboxFilter struct {
	Status Status
	Group  procModels.Group
	Limit  int
	Offset int
}

// OutboxFilter narrows the sender-side listing. An empty Status means
// pending, rejected and auto-rejected.
type OutboxFilter struct {
	Status Status
	Limit  int
	Offset int
}

// DefaultInboxStatuses are listed when InboxFilter.Status is empty.
var DefaultInboxStatuses = []Status{StatusPending, StatusReceived}

// DefaultOutboxStatuses are listed when OutboxFilter.Status is empty.
var DefaultOutboxStatuses = []Status{StatusPending, StatusRejected, StatusAutoRejected}
