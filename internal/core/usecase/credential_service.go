package usecase

import (
	"context"
	"errors"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/ports"
)

// CredentialService manages the calling user's service keys. Every operation
// is scoped to the owner passed in; no input can reach another user's rows.
type CredentialService struct {
	repo ports.CredentialRepository
}

func NewCredentialService(repo ports.CredentialRepository) *CredentialService {
	return &CredentialService{repo: repo}
}

func (s *CredentialService) List(ctx context.Context, owner domain.User) ([]domain.Credential, error) {
	return s.repo.ListActive(ctx, owner.ID)
}

func (s *CredentialService) Put(ctx context.Context, owner domain.User, in domain.CredentialInput) (domain.PutResult, error) {
	cred, created, err := s.repo.Put(ctx, owner.ID, in)
	if err != nil {
		return domain.PutResult{}, err
	}
	return domain.PutResult{Credential: cred, Created: created}, nil
}

// Get returns the active key for service. Inactive rows are not visible here.
func (s *CredentialService) Get(ctx context.Context, owner domain.User, service string) (domain.Credential, error) {
	cred, err := s.repo.FindActive(ctx, owner.ID, service)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Credential{}, &domain.KeyNotFoundError{Service: service, ActiveOnly: true}
		}
		return domain.Credential{}, err
	}
	return cred, nil
}

// Delete removes the key for service whether or not it is active.
func (s *CredentialService) Delete(ctx context.Context, owner domain.User, service string) error {
	if err := s.repo.Delete(ctx, owner.ID, service); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.KeyNotFoundError{Service: service}
		}
		return err
	}
	return nil
}
