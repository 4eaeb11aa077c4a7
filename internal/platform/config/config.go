package config

import (
	"os"
	"time"
)

// Backend selects the record-store implementation.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration
	SignerSeed    string
	Backend       string
	RedisURL      string
	PostgresDSN   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TRADELEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("TRADELEDGER_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	backend := os.Getenv("TRADELEDGER_BACKEND")
	if backend == "" {
		backend = BackendMemory
	}

	tokenTTL := time.Hour
	if raw := os.Getenv("TRADELEDGER_TOKEN_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			tokenTTL = parsed
		}
	}

	return Server{
		Addr:          addr,
		LogLevel:      os.Getenv("TRADELEDGER_LOG_LEVEL"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     "tradeledger",
		JWTAudience:   "tradeledger-api",
		TokenTTL:      tokenTTL,
		SignerSeed:    os.Getenv("TRADELEDGER_SIGNER_SEED"),
		Backend:       backend,
		RedisURL:      os.Getenv("TRADELEDGER_REDIS_URL"),
		PostgresDSN:   os.Getenv("TRADELEDGER_POSTGRES_DSN"),
	}
}
