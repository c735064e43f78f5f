package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestTokenProvider_SetToken(t *testing.T) {
	userID := uuid.NewString()
	provider := NewTokenProvider(testSigningKey)

	_, ok := provider.CurrentUserID()
	assert.False(t, ok, "fresh provider must be anonymous")

	token := signToken(t, testSigningKey, Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	require.NoError(t, provider.SetToken(token))

	got, ok := provider.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestTokenProvider_RejectsBadTokens(t *testing.T) {
	provider := NewTokenProvider(testSigningKey)

	t.Run("wrong signing key", func(t *testing.T) {
		token := signToken(t, "some-other-key", Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
		})
		assert.Error(t, provider.SetToken(token))
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSigningKey, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})
		assert.Error(t, provider.SetToken(token))
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signToken(t, testSigningKey, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		assert.Error(t, provider.SetToken(token))
	})

	_, ok := provider.CurrentUserID()
	assert.False(t, ok, "rejected tokens must not change identity")
}

func TestTokenProvider_AuthChangeNotifications(t *testing.T) {
	provider := NewTokenProvider(testSigningKey)
	userID := uuid.NewString()

	var transitions []*Profile
	unsubscribe := provider.OnAuthChange(func(p *Profile) {
		transitions = append(transitions, p)
	})

	token := signToken(t, testSigningKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, provider.SetToken(token))
	provider.Clear()

	require.Len(t, transitions, 2)
	require.NotNil(t, transitions[0])
	assert.Equal(t, userID, transitions[0].UserID)
	assert.Nil(t, transitions[1], "sign-out delivers nil profile")

	unsubscribe()
	require.NoError(t, provider.SetToken(token))
	assert.Len(t, transitions, 2, "unsubscribed callback must not fire")
}
