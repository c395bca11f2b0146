package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr            string
	DatabaseURL     string
	SupabaseURL     string
	SupabaseAnonKey string
	SeedOnStartup   bool
}

type WorkerConfig struct {
	DatabaseURL    string
	AgingEvery     time.Duration
	MortalityEvery time.Duration
	EventsEvery    time.Duration
	ExpiryEvery    time.Duration
	SnapshotEvery  time.Duration
	WealthEvery    time.Duration
	RunOnce        bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("DYNASTRA_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:            addr,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		SeedOnStartup:   envBoolDefault("DYNASTRA_SEED_ON_STARTUP", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AgingEvery:     envDurationDefault("DYNASTRA_AGING_EVERY", time.Hour),
		MortalityEvery: envDurationDefault("DYNASTRA_MORTALITY_EVERY", 30*time.Minute),
		EventsEvery:    envDurationDefault("DYNASTRA_EVENTS_EVERY", 15*time.Minute),
		ExpiryEvery:    envDurationDefault("DYNASTRA_EXPIRY_EVERY", 5*time.Minute),
		SnapshotEvery:  envDurationDefault("DYNASTRA_SNAPSHOT_EVERY", time.Hour),
		WealthEvery:    envDurationDefault("DYNASTRA_WEALTH_SNAPSHOT_EVERY", 6*time.Hour),
		RunOnce:        envBoolDefault("DYNASTRA_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("DYN_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
