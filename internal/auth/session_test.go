// internal/auth/session_test.go
package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	Init()

	claims := SessionClaims{SessionID: uuid.New(), TableID: uuid.New(), Seat: 3}
	token, err := CreateSessionToken(claims)
	require.NoError(t, err)

	got, err := AuthenticateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}

func TestInitFromPathLoadsPersistentKeys(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "session.key")
	pubPath := filepath.Join(dir, "session.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	require.NoError(t, InitFromPath(privPath, pubPath))

	claims := SessionClaims{SessionID: uuid.New(), TableID: uuid.New(), Seat: 1}
	token, err := CreateSessionToken(claims)
	require.NoError(t, err)
	got, err := AuthenticateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}

func TestInitFromPathMissingFile(t *testing.T) {
	err := InitFromPath(filepath.Join(t.TempDir(), "missing.key"), filepath.Join(t.TempDir(), "missing.pub"))
	assert.Error(t, err)
}

func TestAuthenticateRejectsForeignToken(t *testing.T) {
	Init()
	claims := SessionClaims{SessionID: uuid.New(), TableID: uuid.New(), Seat: 0}
	token, err := CreateSessionToken(claims)
	require.NoError(t, err)

	// Rotating the key pair invalidates every outstanding token.
	Init()
	_, err = AuthenticateSessionToken(token)
	assert.Error(t, err)
}
