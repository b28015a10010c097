package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	DBPath       string
	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	PaymentBaseURL   string
	PaymentStoreID   string
	PaymentStorePass string
	PaymentTimeout   time.Duration

	AuditRetention time.Duration
	AuditBuffer    int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8585"),
		DBPath:           getEnv("DB_PATH", "./bayt.db"),
		CookieDomain:     getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:     getEnv("COOKIE_SECURE", "false") == "true",
		PaymentBaseURL:   getEnv("PAYMENT_BASE_URL", "http://localhost:9090"),
		PaymentStoreID:   getEnv("PAYMENT_STORE_ID", ""),
		PaymentStorePass: getEnv("PAYMENT_STORE_PASS", ""),
		PaymentTimeout:   getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second),
		AuditRetention:   time.Duration(getEnvInt("AUDIT_RETENTION_DAYS", 90)) * 24 * time.Hour,
		AuditBuffer:      getEnvInt("AUDIT_BUFFER", 256),
	}

	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8585"
	}

	return cfg, nil
}

// loadKey reads a base64 key from the environment, generating a random
// development key when it is missing or too short. Generated keys change on
// every restart, so sessions and CSRF tokens do not survive one.
func loadKey(envVar string) []byte {
	keyStr := os.Getenv(envVar)
	if keyStr == "" {
		slog.Warn("key not set, generating a random development key; set it in production", "env", envVar)
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil || len(decoded) < 32 {
		slog.Warn("key invalid or shorter than 32 bytes, generating a random development key", "env", envVar)
		return generateRandomBytes(32)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("invalid integer environment variable, using default", "env", key, "value", value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration environment variable, using default", "env", key, "value", value)
	}
	return defaultValue
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
