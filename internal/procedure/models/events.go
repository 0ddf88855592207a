package models

import (
	"time"

	id "correspondence/pkg/domain"
)

// EventProcedureCompleted is published once a procedure reaches a terminal
// state through archiving.
const EventProcedureCompleted = "procedure.completed"

// AggregateProcedure is the outbox aggregate type of procedure events.
const AggregateProcedure = "procedure"

// CompletedEvent is the payload of EventProcedureCompleted.
type CompletedEvent struct {
	ProcedureID id.ProcedureID `json:"procedure_id"`
	Code        string         `json:"code"`
	State       State          `json:"state"`
	CompletedAt time.Time      `json:"completed_at"`
}
