package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/pkg/log"
)

// RedisStore keeps fingerprints in three Redis keys: two sets for document
// and paragraph hashes and one hash mapping paragraph hash to simhash.
// Read errors are treated as misses and write errors as no-ops; both are
// logged and never surfaced to the pipeline.
type RedisStore struct {
	client  *redis.Client
	docKey  string
	paraKey string
	simKey  string
	logger  *slog.Logger
}

// NewRedis connects to the configured Redis instance and pings it. The
// caller is expected to fall back to the memory backend on error.
func NewRedis(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger := log.WithModule("dedup")
	logger.Info("connected to redis dedup store", "addr", client.Options().Addr, "db", cfg.DB)

	return &RedisStore{
		client:  client,
		docKey:  cfg.DocHashKey,
		paraKey: cfg.ParaHashKey,
		simKey:  cfg.ParaSimhashKey,
		logger:  logger,
	}, nil
}

func (r *RedisStore) IsDocSeen(ctx context.Context, hash string) bool {
	seen, err := r.client.SIsMember(ctx, r.docKey, hash).Result()
	if err != nil {
		r.logger.Warn("doc membership check failed, treating as miss", "error", err)
		return false
	}
	return seen
}

func (r *RedisStore) MarkDoc(ctx context.Context, hash string) {
	if err := r.client.SAdd(ctx, r.docKey, hash).Err(); err != nil {
		r.logger.Warn("failed to record doc fingerprint", "error", err)
	}
}

func (r *RedisStore) IsParaSeen(ctx context.Context, hash string) bool {
	seen, err := r.client.SIsMember(ctx, r.paraKey, hash).Result()
	if err != nil {
		r.logger.Warn("paragraph membership check failed, treating as miss", "error", err)
		return false
	}
	return seen
}

// MarkPara adds the fingerprint to the paragraph set and, when a simhash
// is supplied, writes the simhash field in the same pipelined transaction.
// The set membership is the source of truth; the simhash map is advisory.
func (r *RedisStore) MarkPara(ctx context.Context, hash string, simhash *uint64) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.paraKey, hash)
		if simhash != nil {
			pipe.HSet(ctx, r.simKey, hash, strconv.FormatUint(*simhash, 10))
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("failed to record paragraph fingerprint", "error", err)
	}
}

func (r *RedisStore) AllParaSimhashes(ctx context.Context) map[string]uint64 {
	fields, err := r.client.HGetAll(ctx, r.simKey).Result()
	if err != nil {
		r.logger.Warn("failed to load paragraph simhashes, treating as empty", "error", err)
		return map[string]uint64{}
	}

	out := make(map[string]uint64, len(fields))
	for hash, raw := range fields {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			r.logger.Warn("skipping malformed simhash entry", "hash", hash, "value", raw)
			continue
		}
		out[hash] = v
	}
	return out
}

func (r *RedisStore) Stats(ctx context.Context) Stats {
	stats := Stats{Backend: "redis"}

	if n, err := r.client.SCard(ctx, r.docKey).Result(); err == nil {
		stats.DocCount = n
	} else {
		r.logger.Warn("failed to count doc fingerprints", "error", err)
	}
	if n, err := r.client.SCard(ctx, r.paraKey).Result(); err == nil {
		stats.ParaCount = n
	} else {
		r.logger.Warn("failed to count paragraph fingerprints", "error", err)
	}
	if n, err := r.client.HLen(ctx, r.simKey).Result(); err == nil {
		stats.SimhashCount = n
	} else {
		r.logger.Warn("failed to count simhash entries", "error", err)
	}
	return stats
}

func (r *RedisStore) ClearAll(ctx context.Context) error {
	if err := r.client.Del(ctx, r.docKey, r.paraKey, r.simKey).Err(); err != nil {
		return fmt.Errorf("failed to clear dedup keys: %w", err)
	}
	return nil
}

// Close releases the underlying client connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
