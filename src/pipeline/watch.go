package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/makoty26/HysteresisAnalyzer/src/logging"
)

// DefaultDebounce is how long sample files must stay quiet before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	// OnResult receives the outcome of every build, including the initial one.
	OnResult func(*Result, error)
}

// Watch builds once, then rebuilds whenever sample files in the CSV directory are created,
// written, removed or renamed, after the directory has been quiet for the debounce window.
// A failed build is reported and watching continues. Watch returns when ctx is done.
func (p *Pipeline) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(p.cfg.CSVDir); err != nil {
		return fmt.Errorf("watch %s: %w", p.cfg.CSVDir, err)
	}

	build := func() {
		r, err := p.Run(ctx)
		if err != nil {
			logging.Errorf("watch: build failed: %v", err)
		}
		if opts.OnResult != nil {
			opts.OnResult(r, err)
		}
	}
	build()

	tick := opts.Debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, match := p.resolver.Match(filepath.Base(ev.Name)); !match {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logging.Debugf("watch: %s %s", ev.Op, ev.Name)
				pending = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warnf("watch: %v", err)
		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= opts.Debounce {
				pending = time.Time{}
				if ctx.Err() == nil {
					build()
				}
			}
		}
	}
}
