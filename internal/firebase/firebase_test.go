package firebase

import (
	"encoding/base64"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"
)

const sampleAccount = `{"type":"service_account","project_id":"cardshop"}`

func TestServiceAccountRawAndBase64(t *testing.T) {
	raw, err := ServiceAccount(sampleAccount)
	require.NoError(t, err)
	require.JSONEq(t, sampleAccount, string(raw))

	encoded := base64.StdEncoding.EncodeToString([]byte(sampleAccount))
	decoded, err := ServiceAccount(encoded)
	require.NoError(t, err)
	require.JSONEq(t, sampleAccount, string(decoded))
}

func TestServiceAccountErrors(t *testing.T) {
	_, err := ServiceAccount("  ")
	require.ErrorIs(t, err, ErrMissingServiceAccount)

	_, err = ServiceAccount("%%% not base64")
	require.ErrorIs(t, err, ErrInvalidServiceAccount)

	_, err = ServiceAccount("{broken")
	require.ErrorIs(t, err, ErrInvalidServiceAccount)
}

func TestToAuthUser(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	u := toAuthUser(&auth.UserRecord{
		UserInfo: &auth.UserInfo{
			UID:         "uid-1",
			Email:       "somchai@example.com",
			DisplayName: "Somchai",
		},
		UserMetadata: &auth.UserMetadata{CreationTimestamp: created.UnixMilli()},
	})
	require.Equal(t, "uid-1", u.UID)
	require.Equal(t, "Somchai", u.DisplayName)
	require.True(t, created.Equal(u.CreatedAt))
	require.Equal(t, AuthUser{}, toAuthUser(nil))
}
