// Package auth issues and validates WinkLink session tokens.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Claims are the registered claims of a session token: sub (identity id),
// iat, exp and jti.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is a signed session token and its validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Issuer signs HS256 session tokens with a fixed lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for subject valid for the issuer's TTL.
func (i *Issuer) Issue(subject string) (*Token, error) {
	if len(i.secret) == 0 {
		return nil, oops.Code("TOKEN_SIGN_FAILED").
			With("operation", "issue token").
			Wrap(fmt.Errorf("%w: empty signing key", common.ErrorSigning))
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)
	id := ulid.MustNew(ulid.Timestamp(issuedAt), rand.Reader).String()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        id,
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, oops.Code("TOKEN_SIGN_FAILED").
			With("operation", "issue token").
			Wrap(fmt.Errorf("%w: %w", common.ErrorSigning, err))
	}

	return &Token{Value: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt, ID: id}, nil
}

// Parse validates the signature and expiry of tokenString and returns its
// claims. Expired tokens yield common.ErrTokenExpired, anything else
// common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
