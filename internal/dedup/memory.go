package dedup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/liliang-cn/docbatch/pkg/log"
)

// MemoryStore keeps all fingerprints in process memory behind one mutex.
// Nothing survives a restart, so cross-task deduplication silently resets;
// the constructor warns about that.
type MemoryStore struct {
	mu          sync.Mutex
	docHashes   map[string]struct{}
	paraHashes  map[string]struct{}
	paraSimhash map[string]uint64
	logger      *slog.Logger
}

// NewMemory builds the non-durable backend.
func NewMemory() *MemoryStore {
	logger := log.WithModule("dedup")
	logger.Warn("using in-memory dedup store: fingerprints will not survive a restart and are not shared between processes")

	return &MemoryStore{
		docHashes:   make(map[string]struct{}),
		paraHashes:  make(map[string]struct{}),
		paraSimhash: make(map[string]uint64),
		logger:      logger,
	}
}

func (m *MemoryStore) IsDocSeen(_ context.Context, hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docHashes[hash]
	return ok
}

func (m *MemoryStore) MarkDoc(_ context.Context, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docHashes[hash] = struct{}{}
}

func (m *MemoryStore) IsParaSeen(_ context.Context, hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.paraHashes[hash]
	return ok
}

func (m *MemoryStore) MarkPara(_ context.Context, hash string, simhash *uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paraHashes[hash] = struct{}{}
	if simhash != nil {
		m.paraSimhash[hash] = *simhash
	}
}

func (m *MemoryStore) AllParaSimhashes(_ context.Context) map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]uint64, len(m.paraSimhash))
	for k, v := range m.paraSimhash {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) Stats(_ context.Context) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Backend:      "memory",
		DocCount:     int64(len(m.docHashes)),
		ParaCount:    int64(len(m.paraHashes)),
		SimhashCount: int64(len(m.paraSimhash)),
	}
}

func (m *MemoryStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docHashes = make(map[string]struct{})
	m.paraHashes = make(map[string]struct{})
	m.paraSimhash = make(map[string]uint64)
	return nil
}
