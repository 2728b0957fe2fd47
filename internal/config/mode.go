package config

import "strings"

const (
	DriverFirestore = "firestore"
	DriverMongo     = "mongo"
)

// placeholderMarker is what unfilled backend config values contain (e.g. "YOUR_API_KEY").
const placeholderMarker = "YOUR_"

type Mode int

const (
	ModeLocal Mode = iota
	ModeRemote
)

func (m Mode) String() string {
	if m == ModeRemote {
		return "remote"
	}
	return "local"
}

type FirebaseWebConfig struct {
	APIKey            string
	AuthDomain        string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
}

func (f FirebaseWebConfig) Resolved() bool {
	return resolved(f.APIKey, f.AuthDomain, f.ProjectID, f.StorageBucket, f.MessagingSenderID, f.AppID)
}

type MongoConfig struct {
	URI      string
	Database string
}

func (m MongoConfig) Resolved() bool {
	return resolved(m.URI, m.Database)
}

// Mode reports which backend the process talks to. It is computed from the
// configuration alone and callers are expected to resolve it once at startup.
func (c Config) Mode() Mode {
	switch c.RemoteDriver {
	case DriverMongo:
		if c.Mongo.Resolved() {
			return ModeRemote
		}
	default:
		if c.Firebase.Resolved() {
			return ModeRemote
		}
	}
	return ModeLocal
}

func resolved(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" || strings.Contains(v, placeholderMarker) {
			return false
		}
	}
	return true
}
