package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osintgraph/internal/codec"
	"osintgraph/internal/domain"
)

type applied struct {
	source   string
	fragment *domain.Fragment
}

func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func recorder() (chan applied, func(context.Context, string, *domain.Fragment) error) {
	ch := make(chan applied, 8)
	return ch, func(_ context.Context, source string, f *domain.Fragment) error {
		ch <- applied{source: source, fragment: f}
		return nil
	}
}

const graphJSON = `{"nodes":[{"id":"a","attributes":{}}],"links":[{"source":"a","target":"b","relation":"knows"}]}`

func TestWatcherIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	ch, apply := recorder()

	w := New(dir, codec.NewRegistry(), apply, nil).WithDebounce(20 * time.Millisecond)
	cancel, done := startWatcher(t, w)

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte(graphJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case.json"), []byte(graphJSON), 0644))

	select {
	case got := <-ch:
		assert.Equal(t, "json:case.json", got.source)
		assert.Len(t, got.fragment.Entities, 1)
		assert.Len(t, got.fragment.Relations, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("intake file was not applied")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected ingest of %s", got.source)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherIngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.json"), []byte(graphJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	ch, apply := recorder()

	w := New(dir, codec.NewRegistry(), apply, nil).WithExisting()
	startWatcher(t, w)

	select {
	case got := <-ch:
		assert.Equal(t, "json:seed.json", got.source)
	case <-time.After(5 * time.Second):
		t.Fatal("existing file was not applied")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	_, apply := recorder()
	w := New(filepath.Join(t.TempDir(), "missing"), codec.NewRegistry(), apply, nil)
	assert.Error(t, w.Watch(context.Background()))
}

func TestAccepts(t *testing.T) {
	w := New(".", codec.NewRegistry(), nil, nil)
	assert.True(t, w.accepts("/intake/scan.xml"))
	assert.True(t, w.accepts("/intake/known_hosts"))
	assert.False(t, w.accepts("/intake/.scan.xml"))
	assert.False(t, w.accepts("/intake/scan.xml~"))
	assert.False(t, w.accepts("/intake/graph.json.tmp"))
	assert.False(t, w.accepts("/intake/readme.md"))
}
