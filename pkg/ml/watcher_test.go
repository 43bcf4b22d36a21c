package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreWatcherReloadsOnWrite(t *testing.T) {
	scaler, models := trainedGeneration(t)
	raw, err := scaler.Marshal()
	require.NoError(t, err)
	source := &memorySource{scaler: raw, models: models}

	dir := t.TempDir()
	storePath := filepath.Join(dir, "models.db")

	predictor := NewPredictor(nil)
	watcher, err := NewStoreWatcher(storePath, predictor, source, nil)
	require.NoError(t, err)
	watcher.debounceTime = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer watcher.Stop() //nolint:errcheck

	require.False(t, predictor.Ready())
	require.NoError(t, os.WriteFile(storePath, []byte("generation"), 0o600))

	require.Eventually(t, predictor.Ready, 3*time.Second, 20*time.Millisecond,
		"watcher must reload the predictor after the store file is written")
}

func TestStoreWatcherIgnoresUnrelatedFiles(t *testing.T) {
	scaler, models := trainedGeneration(t)
	raw, err := scaler.Marshal()
	require.NoError(t, err)
	source := &memorySource{scaler: raw, models: models}

	dir := t.TempDir()
	storePath := filepath.Join(dir, "models.db")

	predictor := NewPredictor(nil)
	watcher, err := NewStoreWatcher(storePath, predictor, source, nil)
	require.NoError(t, err)
	watcher.debounceTime = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer watcher.Stop() //nolint:errcheck

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	time.Sleep(100 * time.Millisecond)
	require.False(t, predictor.Ready(), "unrelated files must not trigger a reload")
}

func TestStoreWatcherStartIsIdempotent(t *testing.T) {
	predictor := NewPredictor(nil)
	watcher, err := NewStoreWatcher(filepath.Join(t.TempDir(), "models.db"), predictor, &memorySource{}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, watcher.Start(ctx))
	require.NoError(t, watcher.Start(ctx), "second start is a no-op")
	require.NoError(t, watcher.Stop())
}
