package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: the record does not exist
//   - ErrAlreadyUsed: a unique constraint rejected the write (recipient already
//     holds the procedure in flight, folder name taken, officer has an account)
//   - ErrConflict: the row changed underneath a conditional update
//   - ErrInvalidState: the record is in the wrong state for the operation
//   - ErrNotEmpty: the container still holds children (a folder with archives)
//   - ErrUnavailable: backing service temporarily unreachable
//
// Input validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrNotEmpty     = errors.New("not empty")
	ErrUnavailable  = errors.New("unavailable")
)
