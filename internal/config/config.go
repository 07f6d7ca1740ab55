package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PlaceholderSecret is the well-known default that must never be used as a
// signing key in production.
const PlaceholderSecret = "devsecret-change-me"

const secretFileName = ".jwt-secret"

type Config struct {
	Server ServerConfig
	Auth   AuthConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	DataDir        string
	LogFile        string
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret            string
	TokenExpiry          time.Duration
	AdminDefaultEmail    string
	AdminDefaultPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	dataDir := getEnv("DATA_DIR", "data")

	jwtSecret, err := resolveJWTSecret(env, dataDir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            env,
			DataDir:        dataDir,
			LogFile:        getEnv("LOG_FILE", ""),
			TrustedProxies: parseTrustedProxies(),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			TokenExpiry:          getEnvAsDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
			AdminDefaultEmail:    getEnv("ADMIN_DEFAULT_EMAIL", "admin@example.com"),
			AdminDefaultPassword: getEnv("ADMIN_DEFAULT_PASSWORD", "admin123"),
		},
	}

	return cfg, nil
}

// resolveJWTSecret picks the process-wide signing key. Production requires
// a real JWT_SECRET and refuses the known placeholder. Development reuses a
// generated secret persisted under the data directory so tokens survive
// restarts.
func resolveJWTSecret(env, dataDir string) (string, error) {
	envSecret := os.Getenv("JWT_SECRET")

	if env == "production" {
		if envSecret == "" || envSecret == PlaceholderSecret {
			return "", fmt.Errorf("JWT_SECRET must be set to a strong value in production (generate one with: openssl rand -base64 64)")
		}
		return envSecret, nil
	}

	if envSecret != "" && envSecret != PlaceholderSecret {
		return envSecret, nil
	}

	secretFile := filepath.Join(dataDir, secretFileName)
	if data, err := os.ReadFile(secretFile); err == nil {
		if stored := strings.TrimSpace(string(data)); stored != "" {
			return stored, nil
		}
	}

	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString(raw)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(secretFile, []byte(secret), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist generated JWT secret: %w", err)
	}

	return secret, nil
}

func parseTrustedProxies() []string {
	raw := getEnv("TRUSTED_PROXIES", "")
	if raw == "" {
		return nil
	}
	proxies := strings.Split(raw, ",")
	for i, p := range proxies {
		proxies[i] = strings.TrimSpace(p)
	}
	return proxies
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
