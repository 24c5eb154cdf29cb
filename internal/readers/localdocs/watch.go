package localdocs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// debounceWindow coalesces bursts of filesystem events into one signal.
// Editors and generators often write a file in several operations.
const debounceWindow = 500 * time.Millisecond

// Watch emits a signal whenever a *.json file in the directory is created,
// written, removed or renamed. The channel is closed when ctx is cancelled
// or the underlying watcher fails.
func (r *Reader) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", r.dir, err)
	}

	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)
		defer watcher.Close()

		var timer *time.Timer
		var pending <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("localdocs: change detected: %s %s", event.Op, event.Name)
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
				} else {
					timer.Reset(debounceWindow)
				}
				pending = timer.C

			case <-pending:
				pending = nil
				select {
				case signals <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("localdocs: watcher error: %v", err)
			}
		}
	}()

	return signals, nil
}
