package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	LogLevel   string

	MirrorDriver string
	MirrorDSN    string

	RedisAddr    string
	RedisChannel string

	RemoteDriver  string
	RemoteTimeout time.Duration

	Firebase           FirebaseWebConfig
	ServiceAccountJSON string
	Mongo              MongoConfig

	AdminEmails []string
	JWTSecret   []byte

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CatalogPath   string
	MediaDir      string
	PublicBaseURL string
}

func LoadConfig() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Load()
}

func Load() Config {
	return Config{
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   os.Getenv("LOG_LEVEL"),

		MirrorDriver: EnvDefault("MIRROR_DRIVER", "sqlite"),
		MirrorDSN:    EnvDefault("MIRROR_DSN", "mirror.db"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisChannel: EnvDefault("REDIS_CHANNEL", "cardshop:mirror"),

		RemoteDriver:  EnvDefault("REMOTE_DRIVER", DriverFirestore),
		RemoteTimeout: EnvDurationDefault("REMOTE_TIMEOUT", 10*time.Second),

		Firebase: FirebaseWebConfig{
			APIKey:            os.Getenv("FIREBASE_API_KEY"),
			AuthDomain:        os.Getenv("FIREBASE_AUTH_DOMAIN"),
			ProjectID:         os.Getenv("FIREBASE_PROJECT_ID"),
			StorageBucket:     os.Getenv("FIREBASE_STORAGE_BUCKET"),
			MessagingSenderID: os.Getenv("FIREBASE_MESSAGING_SENDER_ID"),
			AppID:             os.Getenv("FIREBASE_APP_ID"),
		},
		ServiceAccountJSON: os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"),
		Mongo: MongoConfig{
			URI:      os.Getenv("MONGO_URI"),
			Database: os.Getenv("MONGO_DB"),
		},

		AdminEmails: CSV(os.Getenv("ADMIN_EMAILS")),
		JWTSecret:   []byte(os.Getenv("JWT_SECRET")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "store_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		CatalogPath:   os.Getenv("CATALOG_PATH"),
		MediaDir:      EnvDefault("MEDIA_DIR", "media"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
