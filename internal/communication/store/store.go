// Package store persists communications. Both implementations enforce the
// in-flight uniqueness rule: a recipient holds a procedure at most once
// while the communication is pending or received.
package store

import (
	"correspondence/internal/communication/models"
	id "correspondence/pkg/domain"
)

// Party scopes a selection to the communications an account sent or received.
type Party int

const (
	PartyRecipient Party = iota
	PartySender
)

func (p Party) matches(c *models.Communication, accountID id.AccountID) bool {
	if p == PartySender {
		return c.Sender.AccountID == accountID
	}
	return c.Recipient.AccountID == accountID
}
