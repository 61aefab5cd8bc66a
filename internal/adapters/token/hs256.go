// Package token decodes bearer tokens into claims.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/ports"
)

var _ ports.TokenDecoder = (*HS256Decoder)(nil)

// HS256Decoder decodes HMAC-SHA256 signed JWTs. Registered time claims (exp,
// nbf, iat) are checked when present.
type HS256Decoder struct {
	secret []byte
	parser *jwt.Parser
}

func NewHS256Decoder(secret string, opts ...jwt.ParserOption) (*HS256Decoder, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	opts = append([]jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}, opts...)
	return &HS256Decoder{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

func (d *HS256Decoder) Decode(raw string) (domain.Claims, error) {
	claims := jwt.MapClaims{}
	if _, err := d.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return d.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return domain.Claims(claims), nil
}
