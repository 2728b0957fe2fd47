package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func filledFirebase() FirebaseWebConfig {
	return FirebaseWebConfig{
		APIKey:            "AIzaSyD-example",
		AuthDomain:        "cardshop.firebaseapp.com",
		ProjectID:         "cardshop",
		StorageBucket:     "cardshop.appspot.com",
		MessagingSenderID: "1234567890",
		AppID:             "1:1234567890:web:abcdef",
	}
}

func TestModeRemoteWhenFirebaseFilled(t *testing.T) {
	cfg := Config{RemoteDriver: DriverFirestore, Firebase: filledFirebase()}
	require.Equal(t, ModeRemote, cfg.Mode())
}

func TestModeLocalOnPlaceholder(t *testing.T) {
	fb := filledFirebase()
	fb.APIKey = "YOUR_API_KEY"
	cfg := Config{RemoteDriver: DriverFirestore, Firebase: fb}
	require.Equal(t, ModeLocal, cfg.Mode())
}

func TestModeLocalOnMissingValue(t *testing.T) {
	fb := filledFirebase()
	fb.AppID = "  "
	require.Equal(t, ModeLocal, Config{Firebase: fb}.Mode())
	require.Equal(t, ModeLocal, Config{}.Mode())
}

func TestModeMongo(t *testing.T) {
	cfg := Config{RemoteDriver: DriverMongo, Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: "cardshop"}}
	require.Equal(t, ModeRemote, cfg.Mode())

	cfg.Mongo.Database = ""
	require.Equal(t, ModeLocal, cfg.Mode())

	// a filled firebase config does not count for the mongo driver
	cfg.Firebase = filledFirebase()
	require.Equal(t, ModeLocal, cfg.Mode())
}

func TestCSV(t *testing.T) {
	require.Nil(t, CSV(""))
	require.Equal(t, []string{"a@x.com", "b@x.com"}, CSV(" a@x.com, ,b@x.com "))
}

func TestEnvDurationDefault(t *testing.T) {
	t.Setenv("REMOTE_TIMEOUT", "3s")
	require.Equal(t, "3s", EnvDurationDefault("REMOTE_TIMEOUT", 0).String())

	t.Setenv("REMOTE_TIMEOUT", "garbage")
	require.Equal(t, "10s", EnvDurationDefault("REMOTE_TIMEOUT", 10_000_000_000).String())
}
