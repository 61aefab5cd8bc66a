package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrSchemaViolation is returned when a request body does not conform to its
// JSON schema. The Errors field contains machine-readable details.
type ErrSchemaViolation struct {
	Errors []string
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Errors, "; "))
}

// KeyNotFoundError reports a missing credential for a service. It matches
// ErrNotFound under errors.Is.
type KeyNotFoundError struct {
	Service    string
	ActiveOnly bool
}

func (e *KeyNotFoundError) Error() string {
	if e.ActiveOnly {
		return "No active API key found for " + e.Service
	}
	return "API key for " + e.Service + " not found"
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
