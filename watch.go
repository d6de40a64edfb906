package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors and device exports replace files instead of writing in place, so a
// single change often arrives as a burst of events. Re-analysis is debounced
// by this much.
const watchDebounce = 250 * time.Millisecond

// runWatch re-runs the analysis of a single measurement file every time it is
// written. The parent directory is watched, not the file itself, because a
// replace-on-save drops the watch on the old inode.
func runWatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch '%s': %w", dir, err)
	}
	log.Printf("Watching %s for changes to %s", dir, filepath.Base(absPath))

	// Initial run. A failure is reported but keeps the watch alive; a
	// half-written file will trigger another run once the write completes.
	analyzeOnce(absPath)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watch error: %v", err)

		case <-debounce.C:
			analyzeOnce(absPath)

		case sig := <-sigs:
			log.Printf("Received signal: %s. Stopping watch.", sig)
			return nil
		}
	}
}

func analyzeOnce(path string) {
	log.Printf("Analyzing %s", path)
	if err := runAnalyze(path, os.Stdout); err != nil {
		log.Printf("Analysis failed: %v", err)
	}
}
