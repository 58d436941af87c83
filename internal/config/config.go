package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type OracleMode string

const (
	OracleModeCertified OracleMode = "certified_chain"
	OracleModeLocal     OracleMode = "local_secure"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	// Randomness oracle
	OracleMode        OracleMode
	ChainFeedURL      string
	LocalFulfillDelay time.Duration

	// Merkle root anchoring
	AnchorURL        string
	AnchorMaxRetries int
	AnchorLeafCount  int

	// Service-to-service token for mutating endpoints
	ServiceSecret string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		RedisURL:          getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:         getEnv("REDIS_PASSWORD", ""),
		ChainFeedURL:      getEnv("CHAIN_FEED_URL", ""),
		AnchorURL:         getEnv("ANCHOR_URL", ""),
		ServiceSecret:     getEnv("SERVICE_SECRET", ""),
		OracleMode:        OracleMode(getEnv("ORACLE_MODE", string(OracleModeLocal))),
		LocalFulfillDelay: 2 * time.Second,
		AnchorMaxRetries:  5,
		AnchorLeafCount:   10,
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}
	cfg.RedisDB = db

	if v := os.Getenv("LOCAL_FULFILL_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCAL_FULFILL_DELAY_MS: %v", err)
		}
		cfg.LocalFulfillDelay = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("ANCHOR_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANCHOR_MAX_RETRIES: %v", err)
		}
		cfg.AnchorMaxRetries = n
	}

	switch cfg.OracleMode {
	case OracleModeCertified, OracleModeLocal:
	default:
		return nil, fmt.Errorf("invalid ORACLE_MODE: %s", cfg.OracleMode)
	}

	if cfg.OracleMode == OracleModeCertified && cfg.ChainFeedURL == "" {
		return nil, fmt.Errorf("ORACLE_MODE=certified_chain requires CHAIN_FEED_URL")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
