package domain

import "errors"

// Error kinds shared by the scheduler, the repositories and the API.
// Check with errors.Is: errors.Is(err, domain.ErrNotFound)
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage failure")
	ErrConflict        = errors.New("already exists")
)
