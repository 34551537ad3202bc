// Package watch ingests CSV files dropped into an inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"cdr_api/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Uploader is the ingestion entry point files are fed to.
type Uploader interface {
	UploadCsv(ctx context.Context, r io.Reader, size int64) (bool, error)
}

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// Watcher monitors an inbox directory for new *.csv files. Each file is
// uploaded and then moved to processed/ or failed/.
type Watcher struct {
	dir      string
	uploader Uploader
	settle   time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

func New(dir string, uploader Uploader) *Watcher {
	return &Watcher{dir: dir, uploader: uploader, settle: DefaultSettle}
}

// Counts returns how many files were moved to processed/ and failed/.
func (w *Watcher) Counts() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}

func (w *Watcher) ensureDirs() error {
	for _, d := range []string{w.dir, filepath.Join(w.dir, ProcessedDir), filepath.Join(w.dir, FailedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create inbox dir %s: %w", d, err)
		}
	}
	return nil
}

// Start watches the inbox until ctx is done. A file is ingested once it has
// seen no Create or Write event for the settle period; files are ingested one
// at a time. Rename events are ignored: a move into the inbox arrives as
// Create, and the watcher's own moves out of it arrive as Rename.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.ensureDirs(); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	log := logger.WithModule("inbox")
	log.WithField("dir", w.dir).Info("Watching inbox")

	go func() {
		defer watcher.Close()
		pending := map[string]*time.Timer{}
		ready := make(chan string)
		defer func() {
			for _, t := range pending {
				t.Stop()
			}
			processed, failed := w.Counts()
			log.WithFields(map[string]interface{}{
				"processed": processed,
				"failed":    failed,
			}).Info("Inbox watcher stopped")
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isCSV(evt.Name) {
					continue
				}
				if t, ok := pending[evt.Name]; ok {
					t.Reset(w.settle)
					continue
				}
				name := evt.Name
				pending[name] = time.AfterFunc(w.settle, func() {
					select {
					case ready <- name:
					case <-ctx.Done():
					}
				})
			case name := <-ready:
				delete(pending, name)
				w.Ingest(ctx, name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("Inbox watcher error")
			}
		}
	}()
	return nil
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// Backfill ingests the *.csv files already in the inbox.
func (w *Watcher) Backfill(ctx context.Context) error {
	if err := w.ensureDirs(); err != nil {
		return err
	}
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if isCSV(e) {
			w.Ingest(ctx, e)
		}
	}
	return nil
}

// Ingest uploads one file and moves it out of the inbox. It reports whether
// the file ended up in processed/. A path that is no longer in the inbox is
// skipped.
func (w *Watcher) Ingest(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false
	}
	ctx = context.WithValue(ctx, logger.SourceKey, "inbox")
	log := logger.WithContext(ctx).WithField("file", filepath.Base(path))

	ok, err := w.upload(ctx, path)
	target := FailedDir
	if err == nil && ok {
		target = ProcessedDir
	}

	details := map[string]interface{}{"inserted": ok}
	if err != nil {
		details["error"] = err.Error()
		log.WithError(err).Error("Inbox file failed")
	} else if !ok {
		log.Warn("Inbox file had no valid records")
	}
	logger.LogSystemAction("cdr_inbox_ingest", filepath.Base(path), details)

	dest := filepath.Join(w.dir, target, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.WithError(err).Error("Failed to move inbox file")
		return false
	}
	if target == ProcessedDir {
		w.processed.Add(1)
		return true
	}
	w.failed.Add(1)
	return false
}

func (w *Watcher) upload(ctx context.Context, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	return w.uploader.UploadCsv(ctx, f, info.Size())
}
