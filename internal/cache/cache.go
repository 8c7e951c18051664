package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/quebecsigns/server/internal/logger"
	"codeberg.org/quebecsigns/server/internal/validator"
)

const (
	keyAnswer  = "qsigns:answer:%s"
	defaultTTL = 24 * time.Hour
)

// Redis-backed cache of validated answers, keyed by a digest of the
// assembled prompt. A nil *AnswerCache is a valid disabled cache: every
// lookup misses and every store is a no-op.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// connects to Redis and verifies the connection
func NewAnswerCache(redisURL string, ttl time.Duration) (*AnswerCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl == 0 {
		ttl = defaultTTL
	}

	logger.Info("connected to redis")

	return &AnswerCache{client: client, ttl: ttl}, nil
}

func (c *AnswerCache) Close() error {
	if c == nil {
		return nil
	}

	return c.client.Close()
}

// digest of everything that determines the answer. Prompt assembly is
// deterministic, so two identical queries over identical evidence hash
// to the same key.
func Key(system, userText string, imageBytes []byte) string {
	h := sha256.New()
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(userText))
	h.Write([]byte{0})
	h.Write(imageBytes)

	return hex.EncodeToString(h.Sum(nil))
}

// returns the cached answer for a key, or nil on a miss. Redis errors
// degrade to a miss so the cache can never fail a request.
func (c *AnswerCache) Get(ctx context.Context, key string) *validator.StructuredResponse {
	if c == nil {
		return nil
	}

	raw, err := c.client.Get(ctx, fmt.Sprintf(keyAnswer, key)).Result()

	if errors.Is(err, redis.Nil) {
		return nil
	}

	if err != nil {
		logger.Warn("answer cache read failed", "error", err)
		return nil
	}

	var resp validator.StructuredResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		logger.Warn("answer cache entry corrupt", "error", err)
		return nil
	}

	return &resp
}

// stores a validated answer. Best-effort: failures are logged, never
// returned.
func (c *AnswerCache) Set(ctx context.Context, key string, resp *validator.StructuredResponse) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		logger.Warn("answer cache marshal failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, fmt.Sprintf(keyAnswer, key), raw, c.ttl).Err(); err != nil {
		logger.Warn("answer cache write failed", "error", err)
	}
}
