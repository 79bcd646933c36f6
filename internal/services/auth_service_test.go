package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rosec/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(secret string) *AuthService {
	cfg := &config.Config{
		JWT:    config.JWTConfig{Secret: secret, AccessExpiry: time.Minute, RefreshExpiry: time.Hour},
		Argon2: config.Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}
	return NewAuthService(nil, cfg)
}

func TestVerifyPassword(t *testing.T) {
	s := newTestAuth("secret")

	hash, err := s.HashPassword("correct horse")
	require.NoError(t, err)
	ok, err := s.VerifyPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = s.VerifyPassword(hash, "wrong")
	assert.False(t, ok)

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported"), bcrypt.MinCost)
	require.NoError(t, err)
	ok, err = s.VerifyPassword(string(legacy), "imported")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.VerifyPassword(string(legacy), "nope")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyToken(t *testing.T) {
	s := newTestAuth("secret")
	id := uuid.New()

	token, err := s.sign(&Claims{UserID: id, Email: "t@rosec.test"})
	require.NoError(t, err)

	claims, err := s.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)

	_, err = newTestAuth("other").VerifyToken(token)
	assert.Error(t, err)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("admin"))
	assert.True(t, ValidRole("teacher"))
	assert.False(t, ValidRole("system_admin"))
}
