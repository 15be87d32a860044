package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/incari/dashgrid/pkg/domain"
)

// debounceWindow coalesces the burst of fsnotify events an editor or script
// produces for a single logical save.
const debounceWindow = 100 * time.Millisecond

// Watch observes the backing file for out-of-band writes and emits an
// EventLayoutReplaced whenever its content changes on disk. The gateway's
// own saves also appear here; receivers resync from canonical state, which
// is idempotent, so no self-filtering is needed.
func (g *Gateway) Watch(ctx context.Context) (<-chan domain.LayoutEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: renames (our atomic save) and editors that
	// replace the file would otherwise detach a file-level watch.
	if err := watcher.Add(filepath.Dir(g.path)); err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan domain.LayoutEvent)
	go func() {
		defer close(events)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != g.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
				} else {
					// The timer may have fired since the last reset
					// without its tick being consumed yet. Drain it, or
					// the stale tick cuts the new window short.
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounceWindow)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case events <- domain.LayoutEvent{
					Timestamp: time.Now(),
					Type:      domain.EventLayoutReplaced,
				}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return events, nil
}
