package service

import (
	"context"
	"strings"

	"correspondence/internal/communication/models"
	"correspondence/internal/communication/store"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
)

// selectForAction loads the requested communications scoped to the actor
// and checks each is in one of the expected statuses. Missing ids and
// items in the wrong status are reported together so callers can reconcile
// their view: NotFound when any id is missing, UnprocessableEntity when all
// exist but some have the wrong status.
func (b *base) selectForAction(ctx context.Context, ids []id.CommunicationID, party store.Party, accountID id.AccountID, expected ...models.Status) ([]*models.Communication, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no communications selected")
	}
	items, err := b.store.FindSelection(ctx, ids, party, accountID)
	if err != nil {
		return nil, wrapInternal(err, "failed to load communications")
	}

	found := make(map[id.CommunicationID]bool, len(items))
	var invalid []dErrors.InvalidItem
	for _, c := range items {
		found[c.ID] = true
		if !statusIn(c.Status, expected) {
			invalid = append(invalid, dErrors.InvalidItem{
				ID:     c.ID.String(),
				Status: string(c.Status),
				Code:   c.Procedure.Code,
			})
		}
	}
	var notFound []string
	for _, commID := range ids {
		if !found[commID] {
			notFound = append(notFound, commID.String())
		}
	}

	if len(notFound) > 0 {
		return nil, &dErrors.Error{
			Code:    dErrors.CodeNotFound,
			Message: "some communications do not exist for this account",
			Details: &dErrors.Details{NotFoundIDs: notFound, InvalidItems: invalid},
		}
	}
	if len(invalid) > 0 {
		return nil, dErrors.WithInvalidItems("some communications do not have the expected status: "+joinStatuses(expected), invalid)
	}
	return items, nil
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func statusIn(st models.Status, in []models.Status) bool {
	for _, candidate := range in {
		if st == candidate {
			return true
		}
	}
	return false
}

func joinStatuses(statuses []models.Status) string {
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = string(st)
	}
	return strings.Join(parts, ", ")
}

func idsOf(items []*models.Communication) []id.CommunicationID {
	out := make([]id.CommunicationID, len(items))
	for i, c := range items {
		out[i] = c.ID
	}
	return out
}
