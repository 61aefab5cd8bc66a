package ports

import (
	"context"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
)

// CredentialRepository stores per-service keys. Every method is scoped to a
// single owner.
type CredentialRepository interface {
	ListActive(ctx context.Context, userID uint64) ([]domain.Credential, error)
	FindActive(ctx context.Context, userID uint64, service string) (domain.Credential, error)
	// Put updates the first row for (userID, service) regardless of its active
	// flag, or inserts a new active row. It reports whether a row was inserted.
	Put(ctx context.Context, userID uint64, in domain.CredentialInput) (domain.Credential, bool, error)
	// Delete removes the first row for (userID, service) regardless of its
	// active flag. It returns domain.ErrNotFound when nothing matches.
	Delete(ctx context.Context, userID uint64, service string) error
}
