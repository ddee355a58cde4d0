package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("application: not found")
	// ErrPermissionDenied is returned when the resource exists but the caller
	// does not own it.
	ErrPermissionDenied = errors.New("application: permission denied")
	// ErrInvariantViolation is returned when an operation would break a
	// structural invariant, such as deleting a user's only calendar.
	ErrInvariantViolation = errors.New("application: invariant violation")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned for failed authentication attempts.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token has passed its TTL.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was explicitly revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
