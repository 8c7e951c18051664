package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	databaseURL := os.Getenv("DATABASE_URL")
	cfAccountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	cfAPIToken := os.Getenv("CLOUDFLARE_API_TOKEN")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	redisURL := os.Getenv("REDIS_URL")
	environment := os.Getenv("ENVIRONMENT")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfAccountID == "" {
		return nil, fmt.Errorf("CLOUDFLARE_ACCOUNT_ID environment variable is required")
	}

	if cfAPIToken == "" {
		return nil, fmt.Errorf("CLOUDFLARE_API_TOKEN environment variable is required")
	}

	if anthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}

	if environment == "" {
		environment = "development"
	}

	return &Config{
		DatabaseURL:         databaseURL,
		CloudflareAccountID: cfAccountID,
		CloudflareAPIToken:  cfAPIToken,
		AnthropicKey:        anthropicKey,
		RedisURL:            redisURL,
		Environment:         environment,
	}, nil
}
