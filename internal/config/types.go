package config

type Config struct {
	DatabaseURL         string
	CloudflareAccountID string
	CloudflareAPIToken  string
	AnthropicKey        string
	RedisURL            string // optional, answer cache disabled when empty
	Environment         string
}
