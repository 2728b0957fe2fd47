package config

import "log"

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustOneOf(value, envName string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	log.Fatalf("env %s=%q must be one of %v", envName, value, allowed)
}

// Require stops the process on settings that have no usable fallback.
func (c Config) Require() {
	MustNonEmpty(c.MirrorDSN, "MIRROR_DSN")
	MustOneOf(c.MirrorDriver, "MIRROR_DRIVER", "sqlite", "postgres")
	MustOneOf(c.RemoteDriver, "REMOTE_DRIVER", DriverFirestore, DriverMongo)
}
