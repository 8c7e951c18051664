package retrieval

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultTopK           = 8
	defaultMinScore       = 0.55
	defaultMaxCandidates  = 3
	defaultMaxContextRows = 5
	defaultRadiusMeters   = 250
	defaultRetryAttempts  = 2
	defaultRetryBaseDelay = 100 * time.Millisecond
)

// loads coordinator tunables from environment variables, falling back
// to defaults. The radius is a fixed deployment constant, never
// user-tunable per call.
func LoadConfig() Config {
	config := Config{
		TopK:           defaultTopK,
		MinScore:       defaultMinScore,
		MaxCandidates:  defaultMaxCandidates,
		MaxContextRows: defaultMaxContextRows,
		RadiusMeters:   defaultRadiusMeters,
		RetryAttempts:  defaultRetryAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}

	if s := os.Getenv("RETRIEVAL_TOP_K"); s != "" {
		if val, err := strconv.Atoi(s); err == nil {
			config.TopK = val
		}
	}

	if s := os.Getenv("RETRIEVAL_MIN_SCORE"); s != "" {
		if val, err := strconv.ParseFloat(s, 32); err == nil {
			config.MinScore = float32(val)
		}
	}

	if s := os.Getenv("RETRIEVAL_MAX_CANDIDATES"); s != "" {
		if val, err := strconv.Atoi(s); err == nil {
			config.MaxCandidates = val
		}
	}

	if s := os.Getenv("RETRIEVAL_MAX_CONTEXT_ROWS"); s != "" {
		if val, err := strconv.Atoi(s); err == nil {
			config.MaxContextRows = val
		}
	}

	if s := os.Getenv("CONTEXT_RADIUS_METERS"); s != "" {
		if val, err := strconv.ParseFloat(s, 64); err == nil {
			config.RadiusMeters = val
		}
	}

	return config
}
