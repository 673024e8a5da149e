package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedIssuer(secret string, ttl time.Duration, now time.Time) *Issuer {
	i := NewIssuer([]byte(secret), ttl)
	i.now = func() time.Time { return now }
	return i
}

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	i := NewIssuer([]byte("super-secret"), time.Hour)

	tok, err := i.Issue("user-123")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.Equal(t, time.Hour, tok.ExpiresAt.Sub(tok.IssuedAt))

	claims, err := i.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
	assert.Equal(t, tok.ID, claims.ID)
	_, err = ulid.ParseStrict(claims.ID)
	assert.NoError(t, err, "jti must be a ULID")
}

func TestIssue_UniqueIDs(t *testing.T) {
	t.Parallel()

	i := NewIssuer([]byte("k"), time.Hour)
	a, err := i.Issue("s")
	require.NoError(t, err)
	b, err := i.Issue("s")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestIssue_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(nil, time.Hour).Issue("s")
	require.ErrorIs(t, err, common.ErrorSigning)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok, err := fixedIssuer("secret", time.Minute, now).Issue("u1")
	require.NoError(t, err)

	_, err = fixedIssuer("secret", time.Minute, now.Add(2*time.Minute)).Parse(tok.Value)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer([]byte("right-secret"), time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = NewIssuer([]byte("wrong-secret"), time.Hour).Parse(tok.Value)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer([]byte("k"), time.Hour).Parse("not.a.jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Parse(signed)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RequiresSubject(t *testing.T) {
	t.Parallel()

	i := NewIssuer([]byte("k"), time.Hour)
	tok, err := i.Issue("")
	require.NoError(t, err)

	_, err = i.Parse(tok.Value)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
