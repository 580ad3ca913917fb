package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/backend/internal/models"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", 1)
	userID := uuid.New()

	token, err := s.Generate(userID, "a@b.co", "admin")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, "admin", claims.Role)

	id, role, err := s.ValidateForSocket(token)
	require.NoError(t, err)
	assert.Equal(t, userID, id)
	assert.Equal(t, "admin", role)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := NewJWTService("one", 1).Generate(uuid.New(), "a@b.co", "creator")
	require.NoError(t, err)

	_, err = NewJWTService("two", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Expired(t *testing.T) {
	s := NewJWTService("secret", 1)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := s.Generate(uuid.New(), "a@b.co", "creator")
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsForeignIssuer(t *testing.T) {
	claims := Claims{
		UserID: uuid.New(),
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_SocketRejectsDeletedAccount(t *testing.T) {
	s := NewJWTService("secret", 1)
	token, err := s.Generate(uuid.New(), "gone@b.co", string(models.RoleDeleted))
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.Deleted())

	_, _, err = s.ValidateForSocket(token)
	assert.ErrorIs(t, err, ErrAccountDeleted)
}
