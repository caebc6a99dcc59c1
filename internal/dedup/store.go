// Package dedup provides the global fingerprint store shared by all batch
// tasks, together with the hashing primitives the pipeline is built on.
// Document fingerprints, paragraph fingerprints and paragraph simhashes are
// recorded here; raw-byte hashes are task-scoped and never stored.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/pkg/log"
)

// Store records document and paragraph fingerprints across tasks.
// Implementations never propagate backend failures: reads degrade to
// misses and writes to no-ops, so a slow or absent backend cannot fail a
// batch. ClearAll is the one operation that reports errors, for the reset
// command.
type Store interface {
	IsDocSeen(ctx context.Context, hash string) bool
	MarkDoc(ctx context.Context, hash string)
	IsParaSeen(ctx context.Context, hash string) bool
	// MarkPara records a paragraph fingerprint. The simhash is optional:
	// nil records set membership only and leaves the simhash map alone.
	MarkPara(ctx context.Context, hash string, simhash *uint64)
	AllParaSimhashes(ctx context.Context) map[string]uint64
	Stats(ctx context.Context) Stats
	ClearAll(ctx context.Context) error
}

// Stats describes store contents for status payloads and storage reports.
type Stats struct {
	Backend      string `json:"backend"`
	DocCount     int64  `json:"doc_count"`
	ParaCount    int64  `json:"para_count"`
	SimhashCount int64  `json:"simhash_count"`
}

// New selects the configured backend. A Redis backend that cannot be
// reached at startup degrades to the in-memory store with a warning.
func New(cfg config.RedisConfig) Store {
	if cfg.Enabled {
		store, err := NewRedis(cfg)
		if err == nil {
			return store
		}
		log.WithModule("dedup").Warn("redis unavailable, falling back to in-memory dedup store",
			"host", cfg.Host, "port", cfg.Port, "error", err)
	}
	return NewMemory()
}

// HashText returns the hex SHA-256 of a string.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the hex SHA-256 of a byte payload.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashFile streams a file through SHA-256 and returns the hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
