package amadeus

import (
	"errors"
	"fmt"
)

// ErrNoFares means the search succeeded but returned an empty offer list.
// Callers treat this as a skip, not a failure.
var ErrNoFares = errors.New("no fares found")

// AuthError means a client-credential exchange failed. A run cannot
// proceed without a token, so callers treat this as fatal.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("amadeus authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("amadeus authentication failed: status %d", e.Status)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransientError is a per-destination search failure. It is recorded
// against the destination and never aborts the run.
type TransientError struct {
	Destination string
	Status      int
	Err         error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fare search failed for %s: %v", e.Destination, e.Err)
	}
	return fmt.Sprintf("fare search failed for %s: status %d", e.Destination, e.Status)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// DecodeError marks a payload the client refused to coerce into the
// expected schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed fare search response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
