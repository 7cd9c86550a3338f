package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FeeTier maps a maximum per-day member headcount to a flat platform fee in VND.
type FeeTier struct {
	MaxMembers int
	Fee        int64
}

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string
	RabbitMQURL string

	JWTSecret        string
	ScanTokenSecret  string
	BookingEngineURL string

	VATPercentage        float64
	ServiceFeePercentage float64
	PCCFeeTiers          []FeeTier

	LockTTL        time.Duration
	LockMaxRetries int
	LockRetryDelay time.Duration

	WorkerConcurrency int
	JobAttempts       int
	JobBackoff        time.Duration

	CorsAllowedOrigins []string

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
}

func Load() Config {
	cfg := Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8088"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		ScanTokenSecret:  getEnv("SCAN_TOKEN_SECRET", "dev-insecure-scan-secret"),
		BookingEngineURL: getEnv("BOOKING_ENGINE_URL", ""),

		VATPercentage:        getEnvFloat("VAT_PERCENTAGE", 0.08),
		ServiceFeePercentage: getEnvFloat("SERVICE_FEE_PERCENTAGE", 0),
		PCCFeeTiers:          parseFeeTiers(getEnv("PCC_FEE_TIERS", "")),

		LockTTL:        getEnvDuration("LOCK_TTL", 30*time.Second),
		LockMaxRetries: getEnvInt("LOCK_MAX_RETRIES", 10),
		LockRetryDelay: getEnvDuration("LOCK_RETRY_DELAY", 200*time.Millisecond),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 5),
		JobAttempts:       getEnvInt("JOB_ATTEMPTS", 3),
		JobBackoff:        getEnvDuration("JOB_BACKOFF", 2*time.Second),

		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		ObjectStoreEndpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreRegion:          getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreBucket:          getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePublicBaseURL:   getEnv("OBJECT_STORE_PUBLIC_BASE_URL", ""),
	}

	if len(cfg.PCCFeeTiers) == 0 {
		cfg.PCCFeeTiers = defaultPCCFeeTiers()
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 5
	}

	return cfg
}

// PCCFee returns the platform fee for a per-day member headcount. Headcounts
// above the last tier pay the last tier's fee.
func (c Config) PCCFee(memberAmount int) int64 {
	if memberAmount <= 0 {
		return 0
	}
	for _, tier := range c.PCCFeeTiers {
		if memberAmount <= tier.MaxMembers {
			return tier.Fee
		}
	}
	if len(c.PCCFeeTiers) > 0 {
		return c.PCCFeeTiers[len(c.PCCFeeTiers)-1].Fee
	}
	return 0
}

// parseFeeTiers reads a "maxMembers:fee,maxMembers:fee" CSV, e.g.
// "10:60000,20:100000,50:200000,100:300000".
func parseFeeTiers(value string) []FeeTier {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tiers := make([]FeeTier, 0, len(parts))
	for _, part := range parts {
		pair := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(pair) != 2 {
			continue
		}
		maxMembers, err := strconv.Atoi(strings.TrimSpace(pair[0]))
		if err != nil || maxMembers <= 0 {
			continue
		}
		fee, err := strconv.ParseInt(strings.TrimSpace(pair[1]), 10, 64)
		if err != nil || fee < 0 {
			continue
		}
		tiers = append(tiers, FeeTier{MaxMembers: maxMembers, Fee: fee})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MaxMembers < tiers[j].MaxMembers })
	return tiers
}

// Fallback tier table for development. Production deployments supply the real
// table through PCC_FEE_TIERS.
func defaultPCCFeeTiers() []FeeTier {
	return []FeeTier{
		{MaxMembers: 10, Fee: 60000},
		{MaxMembers: 20, Fee: 100000},
		{MaxMembers: 50, Fee: 200000},
		{MaxMembers: 100, Fee: 300000},
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
