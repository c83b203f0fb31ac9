// Package watch runs a handler on WAV files that appear in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/linuxmatters/normalize/internal/processor"
	"golang.org/x/sync/errgroup"
)

// DefaultQuiet is how long a file must go without events before it is handled
const DefaultQuiet = 2 * time.Second

// Handler processes one settled file
type Handler func(ctx context.Context, path string) error

// Watcher hands new and rewritten WAV files in Dir to Handler, one at a
// time, once they have been quiet for Quiet. A file is handed over again
// only when its size or modification time differs from when Handler last
// returned.
type Watcher struct {
	Dir     string
	Quiet   time.Duration
	Handler Handler
	Logger  *log.Logger
}

// Run watches until ctx is cancelled. Handler errors are logged and do not
// stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Handler == nil {
		return errors.New("watch: no handler")
	}
	logger := w.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	quiet := w.Quiet
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	logger.Info("watching for WAV files", "dir", w.Dir)

	queue := make(chan string, 64)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Handler's own rewrites raise events too; a file left as Handler
		// last saw it is not handled again.
		handled := make(map[string]stamp)
		for path := range queue {
			st, err := os.Stat(path)
			if err != nil {
				continue
			}
			if prev, ok := handled[path]; ok && prev == stampOf(st) {
				logger.Debug("unchanged since handled", "file", path)
				continue
			}

			logger.Debug("handling", "file", path)
			if err := w.Handler(ctx, path); err != nil {
				logger.Error("failed to process file", "file", path, "err", err)
			}
			if st, err := os.Stat(path); err == nil {
				handled[path] = stampOf(st)
			} else {
				delete(handled, path)
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(queue)

		tick := time.NewTicker(max(quiet/4, 10*time.Millisecond))
		defer tick.Stop()
		pending := make(map[string]time.Time)

		for {
			select {
			case <-ctx.Done():
				return nil

			case event, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if Wants(event) {
					pending[event.Name] = time.Now()
				}

			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watcher error", "err", err)

			case now := <-tick.C:
				for path, last := range pending {
					if now.Sub(last) < quiet {
						continue
					}
					delete(pending, path)
					select {
					case queue <- path:
					case <-ctx.Done():
						return nil
					}
				}
			}
		}
	})

	return g.Wait()
}

// stamp identifies one version of a file's content
type stamp struct {
	size    int64
	modTime int64
}

func stampOf(fi os.FileInfo) stamp {
	return stamp{size: fi.Size(), modTime: fi.ModTime().UnixNano()}
}

// Wants reports whether event concerns a WAV file worth handling. Temp files
// written while applying gain are ignored.
func Wants(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if processor.IsTempFile(event.Name) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".wav")
}
