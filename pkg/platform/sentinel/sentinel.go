package sentinel

import "errors"

// Sentinel errors for storage facts. Registry backends return the first three
// (optionally wrapped) and the registration engine translates them into domain
// errors. Health checks wrap a failing dependency in ErrUnavailable.
//   - ErrNotFound: no record under the requested key
//   - ErrAlreadyUsed: the key was claimed by a committed record
//   - ErrConflict: a concurrent writer changed the key during commit
//   - ErrUnavailable: a dependency (storage, brokers) could not be reached
//
// Rule violations on caller input never use these; see internal/registry/models.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
