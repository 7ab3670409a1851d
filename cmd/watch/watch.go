// Package watch implements "citelink watch", an fsnotify-driven
// rebuild-and-revalidate loop over a scope folder.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/eoinhurrell/citelink/internal/cli"
	"github.com/eoinhurrell/citelink/internal/core"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounceMillis int

	cmd := &cobra.Command{
		Use:   "watch <scope>",
		Short: "Watch a scope folder and revalidate changed Markdown files",
		Long: `Watch recursively monitors scope for Markdown file changes. Each create or
write event triggers a rebuild of the basename cache and a revalidation of
the changed file, debounced so a burst of saves (editors commonly write a
file more than once per save) produces a single re-run.

Press Ctrl+C to stop.

Examples:
  citelink watch ./vault
  citelink watch --debounce 500 ./vault`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithErrorHandling(runWatch(&debounceMillis)),
	}

	cmd.Flags().IntVar(&debounceMillis, "debounce", 300, "Minimum milliseconds between revalidations of the same file")

	return cmd
}

func runWatch(debounceMillis *int) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		scope := args[0]
		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

		debounce := *debounceMillis
		if cfg, cfgErr := cli.LoadConfig(cmd); cfgErr == nil && cfg != nil && !cmd.Flags().Changed("debounce") {
			debounce = cfg.Watch.DebounceMillis
		}

		w, err := newWatcher(scope, time.Duration(debounce)*time.Millisecond)
		if err != nil {
			return fmt.Errorf("starting watcher on %s: %w", scope, err)
		}
		defer w.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go w.run(ctx, cmd)

		if !quiet {
			cmd.Printf("watching %s for changes. Press Ctrl+C to stop.\n", scope)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()

		if !quiet {
			cmd.Println("\nshutting down watcher...")
		}
		return nil
	}
}

// watcher pairs an fsnotify.Watcher with a reusable core.Pipeline and a
// per-path debounce gate implemented with golang.org/x/time/rate: a write
// burst to the same file allows through only the first event per
// debounce window, the rest are dropped rather than queued.
type watcher struct {
	scope    string
	fs       *fsnotify.Watcher
	pipeline *core.Pipeline
	debounce time.Duration
	limiters map[string]*rate.Limiter
}

func newWatcher(scope string, debounce time.Duration) (*watcher, error) {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	pipeline, err := core.New(scope)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &watcher{
		scope:    scope,
		fs:       fsWatcher,
		pipeline: pipeline,
		debounce: debounce,
		limiters: make(map[string]*rate.Limiter),
	}

	if err := filepath.WalkDir(scope, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); path != scope && (name == ".git" || name == ".obsidian") {
				return filepath.SkipDir
			}
			return fsWatcher.Add(path)
		}
		return nil
	}); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("walking scope folder %s: %w", scope, err)
	}

	return w, nil
}

func (w *watcher) Close() error {
	return w.fs.Close()
}

func (w *watcher) run(ctx context.Context, cmd *cobra.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ctx, cmd, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func (w *watcher) handle(ctx context.Context, cmd *cobra.Command, event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !w.limiterFor(event.Name).Allow() {
		return
	}

	if w.pipeline.Files != nil {
		if _, err := w.pipeline.Files.BuildCache(w.scope); err != nil {
			log.Printf("rebuilding file cache for %s: %v", w.scope, err)
		}
	}
	w.pipeline.Parsed.Invalidate(event.Name)

	result, err := w.pipeline.Validate(ctx, event.Name, core.Options{})
	if err != nil {
		log.Printf("revalidating %s: %v", event.Name, err)
		return
	}
	s := result.Summary
	cmd.Printf("%s: %d link(s), %d valid, %d warning(s), %d error(s)\n",
		event.Name, s.Total, s.Valid, s.Warnings, s.Errors)
}

func (w *watcher) limiterFor(path string) *rate.Limiter {
	l, ok := w.limiters[path]
	if !ok {
		l = rate.NewLimiter(rate.Every(w.debounce), 1)
		w.limiters[path] = l
	}
	return l
}
