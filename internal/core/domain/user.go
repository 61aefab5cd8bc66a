package domain

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID        uint64
	Username  string
	Role      Role
	CreatedAt time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const maxUsernameLen = 150

func ValidateUsername(name string) error {
	if strings.TrimSpace(name) != name || name == "" || len(name) > maxUsernameLen {
		return fmt.Errorf("%w: username must be 1-%d characters without surrounding spaces", ErrInvalidInput, maxUsernameLen)
	}
	return nil
}

// Claims is the decoded payload of a bearer token.
type Claims map[string]any

// Subject returns the "sub" claim, or "" when it is missing or not a string.
func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}
