package models

import (
	dErrors "correspondence/pkg/domain-errors"
)

// ValidateBatch checks original/copy cardinality of a new send. A batch
// sent from an original (or a first send) carries exactly one original. A
// batch sent from a copy or a legacy row goes to a single recipient and
// carries no original.
func ValidateBatch(batch []*Communication, from Origin) error {
	originals := 0
	for _, c := range batch {
		if c.Origin == OriginOriginal {
			originals++
		}
	}
	if from.SendsAsOriginal() {
		if originals != 1 {
			return dErrors.New(dErrors.CodeBadRequest, "a send must contain exactly one original")
		}
		return nil
	}
	if originals > 0 {
		return dErrors.New(dErrors.CodeBadRequest, "a copy can only be forwarded as a copy")
	}
	if len(batch) != 1 {
		return dErrors.New(dErrors.CodeBadRequest, "a copy allows a single recipient")
	}
	return nil
}
