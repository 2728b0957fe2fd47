package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	h, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEqual(t, "secret123", h)
	require.True(t, CheckPassword(h, "secret123"))
	require.False(t, CheckPassword(h, "secret124"))
}

func TestHashRejectsShortPassword(t *testing.T) {
	_, err := HashPassword("12345")
	require.ErrorIs(t, err, ErrTooShort)
}
