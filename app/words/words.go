// Package words deals with lexicon files, loading them from disk and
// watching for changes to reload the detector on the fly.
package words

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-pkgz/fileutils"
	"github.com/hashicorp/go-multierror"
)

// Open reads all lexicon files and returns them as readers, one per file.
// missing or unreadable files are collected into a single error, readable
// files are still returned.
func Open(paths ...string) ([]io.Reader, error) {
	var readers []io.Reader
	var errs *multierror.Error

	for _, path := range paths {
		if !fileutils.IsFile(path) {
			errs = multierror.Append(errs, fmt.Errorf("lexicon file %s not found", path))
			continue
		}
		r, err := readFile(path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		readers = append(readers, r)
	}
	return readers, errs.ErrorOrNil()
}

// Watch monitors a lexicon file and calls onChange with the fresh content on
// every write. multiple rapid writes are collapsed by the debounce interval.
// blocks until ctx is cancelled or the watcher fails.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(io.Reader) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err = watcher.Add(path); err != nil {
		return fmt.Errorf("failed to add %s to watcher: %w", path, err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false

	log.Printf("[INFO] watching lexicon file %s, debounce %v", path, debounce)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] stopping watcher for %s, %v", path, ctx.Err())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				if pending {
					timer.Stop()
				}
				timer.Reset(debounce)
				pending = true
			}
		case <-timer.C:
			pending = false
			data, e := readFile(path)
			if e != nil {
				log.Printf("[WARN] failed to read updated file %s: %v", path, e)
				continue
			}
			if e = onChange(data); e != nil {
				log.Printf("[WARN] failed to load updated file %s: %v", path, e)
				continue
			}
			log.Printf("[INFO] lexicon reloaded from %s", path)
		case e, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] watcher error: %v", e)
		}
	}
}

func readFile(path string) (io.Reader, error) {
	file, err := os.Open(path) //nolint gosec // path is controlled by the app
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return bytes.NewReader(data), nil
}
