package layout

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
)

func sampleLayout(group, version string) graph.Layout {
	return graph.Layout{
		ID:        "id-" + version,
		Group:     group,
		Version:   version,
		Positions: []graph.Position{{ID: ref, X: 0, Y: 0}, {ID: "CCCGGGG", X: 1.25, Y: -0.5}},
		Converged: true,
		Seed:      42,
		CreatedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

// testStore exercises the Store contract.
func testStore(t *testing.T, s Store, group string) {
	ctx := context.Background()

	_, ok, err := s.Load(ctx, group)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.CompareAndSwap(ctx, group, "stale", sampleLayout(group, "v1"))
	require.Error(t, err)
	assert.True(t, errors.IsVersionConflict(err))

	require.NoError(t, s.CompareAndSwap(ctx, group, "", sampleLayout(group, "v1")))
	got, ok, err := s.Load(ctx, group)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", got.Version)
	assert.Equal(t, sampleLayout(group, "v1").Positions, got.Positions)
	assert.True(t, got.CreatedAt.Equal(sampleLayout(group, "v1").CreatedAt))

	err = s.CompareAndSwap(ctx, group, "", sampleLayout(group, "v2"))
	require.Error(t, err)
	var vc *errors.VersionConflictError
	require.ErrorAs(t, err, &vc)
	assert.Equal(t, "v1", vc.Actual)

	require.NoError(t, s.CompareAndSwap(ctx, group, "v1", sampleLayout(group, "v2")))
	got, _, err = s.Load(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)

	assert.True(t, errors.IsVersionConflict(s.CompareAndSwap(ctx, group, "v1", sampleLayout(group, "v3"))))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore(), "sgA")
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	testStore(t, s, "sgA")

	_, err = os.Stat(filepath.Join(dir, "sgA.layout.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sgA.layout.json.lock"))
	assert.True(t, os.IsNotExist(err))

	_, _, err = s.Load(context.Background(), "../escape")
	assert.Error(t, err)
}

func TestFileStoreLocked(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sgA.layout.json.lock"), nil, 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = s.CompareAndSwap(ctx, "sgA", "", sampleLayout("sgA", "v1"))
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REPAIRGRAPH_REDIS_ADDR")
	if addr == "" {
		t.Skip("REPAIRGRAPH_REDIS_ADDR not set")
	}
	if !strings.HasPrefix(addr, "redis") {
		addr = "redis://" + addr
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr)
	require.NoError(t, err)
	defer s.Close()

	group := "test-" + time.Now().Format("150405.000000")
	defer s.Delete(ctx, group)
	testStore(t, s, group)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("REPAIRGRAPH_MONGO_URI")
	if uri == "" {
		t.Skip("REPAIRGRAPH_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, uri)
	require.NoError(t, err)
	defer s.Close()

	group := "test-" + time.Now().Format("150405.000000")
	defer s.coll.DeleteOne(ctx, map[string]string{"_id": group})
	testStore(t, s, group)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, StoreMemory, "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, StoreFile, "", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, "etcd", "", "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))

	_, err = Open(ctx, StoreRedis, "http://localhost", "")
	assert.Error(t, err)
}
