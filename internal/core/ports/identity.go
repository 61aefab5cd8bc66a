package ports

import (
	"context"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
)

// TokenDecoder turns a bearer token into its claims. Any failure to decode or
// verify the token is reported as an error.
type TokenDecoder interface {
	Decode(token string) (domain.Claims, error)
}

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Upsert(ctx context.Context, user domain.User) (domain.User, error)
}
