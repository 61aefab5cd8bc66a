package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/ports"
)

var (
	errInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	errUnknownUser  = fmt.Errorf("%w: user not found", domain.ErrUnauthorized)
)

// IdentityService resolves bearer tokens to users. It keeps no state between
// calls.
type IdentityService struct {
	decoder ports.TokenDecoder
	users   ports.UserRepository
}

func NewIdentityService(decoder ports.TokenDecoder, users ports.UserRepository) *IdentityService {
	return &IdentityService{decoder: decoder, users: users}
}

// Resolve returns the user named by the token subject. It fails with
// domain.ErrUnauthorized for a missing or undecodable token and for a subject
// that does not name a known user.
func (s *IdentityService) Resolve(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, errInvalidToken
	}

	claims, err := s.decoder.Decode(token)
	if err != nil || len(claims) == 0 {
		return domain.User{}, errInvalidToken
	}

	username := claims.Subject()
	if username == "" {
		return domain.User{}, errUnknownUser
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, errUnknownUser
		}
		return domain.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// ResolveOptional is Resolve for endpoints that also serve anonymous callers.
// Any failure, including a panic in a collaborator, yields ok == false.
func (s *IdentityService) ResolveOptional(ctx context.Context, token string) (user domain.User, ok bool) {
	if strings.TrimSpace(token) == "" {
		return domain.User{}, false
	}

	defer func() {
		if recover() != nil {
			user, ok = domain.User{}, false
		}
	}()

	user, err := s.Resolve(ctx, token)
	if err != nil {
		return domain.User{}, false
	}
	return user, true
}

// RequireAdmin fails with domain.ErrForbidden unless the token resolves to an
// admin. Anonymous and invalid tokens are forbidden, not unauthorized.
func (s *IdentityService) RequireAdmin(ctx context.Context, token string) (domain.User, error) {
	user, ok := s.ResolveOptional(ctx, token)
	if !ok || !user.IsAdmin() {
		return domain.User{}, domain.ErrForbidden
	}
	return user, nil
}

func (s *IdentityService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}
