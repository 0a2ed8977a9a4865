package layout

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
)

const (
	lockRetry   = 20 * time.Millisecond
	lockTimeout = 10 * time.Second
)

// FileStore keeps one JSON file per group in a directory.
//
// Writers are serialized by an in-process mutex and, across processes, by an
// exclusive lock file next to the layout. Layout files are replaced by
// atomic rename, so readers never see a partial write.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create layout dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(group string) string {
	return filepath.Join(s.dir, group+".layout.json")
}

// Load reads the layout file of group.
func (s *FileStore) Load(_ context.Context, group string) (graph.Layout, bool, error) {
	if err := errors.ValidateName("layout group", group); err != nil {
		return graph.Layout{}, false, err
	}
	return s.read(group)
}

func (s *FileStore) read(group string) (graph.Layout, bool, error) {
	data, err := os.ReadFile(s.path(group))
	if os.IsNotExist(err) {
		return graph.Layout{}, false, nil
	}
	if err != nil {
		return graph.Layout{}, false, errors.Wrap(errors.ErrCodeStorage, err, "read layout %s", group)
	}
	l, err := graph.UnmarshalLayout(data)
	if err != nil {
		return graph.Layout{}, false, errors.Wrap(errors.ErrCodeStorage, err, "decode layout %s", group)
	}
	return l, true, nil
}

// CompareAndSwap writes the layout of group if its version is prevVersion.
func (s *FileStore) CompareAndSwap(ctx context.Context, group, prevVersion string, l graph.Layout) error {
	if err := errors.ValidateName("layout group", group); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx, group)
	if err != nil {
		return err
	}
	defer unlock()

	cur, _, err := s.read(group)
	if err != nil {
		return err
	}
	if cur.Version != prevVersion {
		return conflict(group, prevVersion, cur.Version)
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode layout %s", group)
	}
	tmp, err := os.CreateTemp(s.dir, group+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write layout %s", group)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStorage, err, "write layout %s", group)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStorage, err, "write layout %s", group)
	}
	if err := os.Rename(tmp.Name(), s.path(group)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStorage, err, "replace layout %s", group)
	}
	return nil
}

// lock acquires the cross-process lock file of group.
func (s *FileStore) lock(ctx context.Context, group string) (func(), error) {
	path := s.path(group) + ".lock"
	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "lock layout %s", group)
		}
		if time.Now().After(deadline) {
			return nil, errors.New(errors.ErrCodeStorage, "layout %s is locked by %s", group, path)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

// Close does nothing.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
