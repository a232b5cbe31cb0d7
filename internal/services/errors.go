package services

import "errors"

// Domain errors surfaced synchronously to callers. Handlers translate them to
// HTTP error codes with errors.Is.
var (
	ErrAssemblyNotFound  = errors.New("assembly not found")
	ErrLineNotFound      = errors.New("quote line not found")
	ErrComponentNotFound = errors.New("line component not found")
	ErrNotWorkItem       = errors.New("line is not a work item")
	ErrQuoteLocked       = errors.New("quote can no longer be edited")
)
