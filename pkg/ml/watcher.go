package ml

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StoreWatcher watches the model store file and reloads the predictor
// when another process writes a new generation.
type StoreWatcher struct {
	storePath    string
	predictor    *Predictor
	source       ModelSource
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	debounceTime time.Duration
}

func NewStoreWatcher(storePath string, predictor *Predictor, source ModelSource, logger *slog.Logger) (*StoreWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreWatcher{
		storePath:    storePath,
		predictor:    predictor,
		source:       source,
		watcher:      watcher,
		logger:       logger,
		stopCh:       make(chan struct{}),
		debounceTime: time.Second,
	}, nil
}

// Start begins watching the store file. The parent directory is watched
// because sqlite and atomic writers replace files by rename.
func (sw *StoreWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = true
	sw.mu.Unlock()

	if err := sw.watcher.Add(filepath.Dir(sw.storePath)); err != nil {
		sw.mu.Lock()
		sw.running = false
		sw.mu.Unlock()
		return err
	}

	sw.logger.Info("model store watcher started", "store_path", sw.storePath)
	go sw.watchLoop(ctx)
	return nil
}

func (sw *StoreWatcher) Stop() error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.stopCh)
	return sw.watcher.Close()
}

func (sw *StoreWatcher) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.isStoreEvent(event) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			sw.logger.Debug("model store event", "event", event.Op.String(), "file", event.Name)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(sw.debounceTime, func() {
				sw.triggerReload(ctx)
			})

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("model store watcher error", "error", err)

		case <-sw.stopCh:
			sw.logger.Info("model store watcher stopped")
			return

		case <-ctx.Done():
			return
		}
	}
}

// isStoreEvent matches the store file itself plus sqlite sidecar files
// (-wal, -journal), since commits may only touch those.
func (sw *StoreWatcher) isStoreEvent(event fsnotify.Event) bool {
	eventPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	storePath, err := filepath.Abs(sw.storePath)
	if err != nil {
		return false
	}
	if eventPath == storePath {
		return true
	}
	return eventPath == storePath+"-wal" || eventPath == storePath+"-journal"
}

func (sw *StoreWatcher) triggerReload(ctx context.Context) {
	start := time.Now()
	if err := sw.predictor.Reload(ctx, sw.source); err != nil {
		sw.logger.Error("model reload failed", "error", err, "duration", time.Since(start))
		return
	}
	sw.logger.Info("model reload completed",
		"generation", sw.predictor.Generation(),
		"duration", time.Since(start))
}
