package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimestampAcceptsBothRepresentations(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	var fromISO, fromServer, fromMillis, fromTime Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:30:00.000Z"`), &fromISO))
	require.NoError(t, json.Unmarshal([]byte(`{"_seconds":1714559400,"_nanoseconds":0}`), &fromServer))
	require.NoError(t, json.Unmarshal([]byte(`1714559400000`), &fromMillis))

	raw, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fromTime))

	for _, ts := range []Timestamp{fromISO, fromServer, fromMillis, fromTime} {
		require.True(t, want.Equal(ts.Time))
	}
}

func TestTimestampMarshal(t *testing.T) {
	raw, err := json.Marshal(NewTimestamp(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, `"2024-05-01T10:30:00.000Z"`, string(raw))

	raw, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	require.Equal(t, "null", string(raw))
}

func TestNewIDIncreases(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestOrderTotal(t *testing.T) {
	items := []LineItem{{Price: 500, Quantity: 2}, {Price: 120, Quantity: 1}}
	require.EqualValues(t, 1120, OrderTotal(items))
}

func TestUserPublicDropsCredential(t *testing.T) {
	u := User{ID: "1", Email: "demo@example.com", PasswordHash: "$2a$10$x"}
	require.Empty(t, u.Public().PasswordHash)
	require.NotEmpty(t, u.PasswordHash)
}
