package layout

import (
	"context"
	"sync"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
)

// Store persists one layout per group.
//
// CompareAndSwap writes l only if the stored version equals prevVersion,
// where "" means no layout is stored yet. A lost race returns a
// *errors.VersionConflictError carrying the version found.
type Store interface {
	Load(ctx context.Context, group string) (graph.Layout, bool, error)
	CompareAndSwap(ctx context.Context, group, prevVersion string, l graph.Layout) error
	Close() error
}

// Store kinds accepted by [Open].
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Open creates a store of the given kind. dir is used by file stores; url by
// Redis and Mongo stores.
func Open(ctx context.Context, kind, url, dir string) (Store, error) {
	switch kind {
	case StoreMemory, "":
		return NewMemoryStore(), nil
	case StoreFile:
		return NewFileStore(dir)
	case StoreRedis:
		return NewRedisStore(ctx, url)
	case StoreMongo:
		return NewMongoStore(ctx, url)
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store kind %q", kind)
}

func conflict(group, expected, actual string) error {
	return &errors.VersionConflictError{Group: group, Expected: expected, Actual: actual}
}

// MemoryStore keeps layouts in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	layouts map[string]graph.Layout
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layouts: make(map[string]graph.Layout)}
}

// Load returns the stored layout of group.
func (s *MemoryStore) Load(_ context.Context, group string) (graph.Layout, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layouts[group]
	return l.Clone(), ok, nil
}

// CompareAndSwap replaces the layout of group if its version is prevVersion.
func (s *MemoryStore) CompareAndSwap(_ context.Context, group, prevVersion string, l graph.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.layouts[group].Version; cur != prevVersion {
		return conflict(group, prevVersion, cur)
	}
	s.layouts[group] = l.Clone()
	return nil
}

// Close does nothing.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
