package tokens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignSession("42", "admin@example.com", true, secret)
	require.NoError(t, err)

	claims, err := SessionClaimsFromToken(tok, secret)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "admin@example.com", claims.Email)
	require.True(t, claims.Admin)
}

func TestSessionWrongSecret(t *testing.T) {
	tok, err := SignSession("42", "demo@example.com", false, []byte("a"))
	require.NoError(t, err)

	_, err = SessionClaimsFromToken(tok, []byte("b"))
	require.ErrorIs(t, err, ErrInvalidToken)
}
