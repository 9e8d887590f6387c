package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"saftetl/internal/cache"
	"saftetl/internal/config"
	"saftetl/internal/fetch"
	"saftetl/internal/orchestrator"
	"saftetl/internal/pipeline"
	"saftetl/internal/tableio"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [input]",
		Short: "Rerun the pipeline whenever the input file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			cfg, err := loadConfig(g, input)
			if err != nil {
				return err
			}
			if debounce > 0 {
				cfg.Watch.Debounce = debounce
			}
			if err := validate(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if fetch.IsRemote(cfg.Source.Path) {
				return fmt.Errorf("watch needs a local source, got %s", cfg.Source.Path)
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			flush, err := setupMetrics(cfg, log)
			if err != nil {
				return err
			}
			defer flush()

			return newWatcher(cfg, cmd.OutOrStdout(), log).watch(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "override watch.debounce")
	return cmd
}

// watcher reruns ProcessSAFT for one input. Source tables go through a
// cache so a notification that leaves the file as it was costs one stat.
type watcher struct {
	cfg   config.Pipeline
	out   io.Writer
	log   *zap.Logger
	cache *cache.Cache
	runs  int
}

func newWatcher(cfg config.Pipeline, out io.Writer, log *zap.Logger) *watcher {
	return &watcher{
		cfg:   cfg,
		out:   out,
		log:   log,
		cache: cache.New(tableio.Read, log),
	}
}

func (w *watcher) readOptions() tableio.ReadOptions {
	return tableio.ReadOptions{Sheet: w.cfg.Source.Sheet, Comma: w.cfg.Source.Comma()}
}

// runOnce processes the input unless it is unchanged since the last
// successful run. It reports whether a run took place.
func (w *watcher) runOnce(ctx context.Context) (bool, error) {
	path := w.cfg.Source.Path
	changed, err := w.cache.Changed(path, w.readOptions())
	if err != nil {
		return false, err
	}
	if !changed {
		w.log.Debug("input unchanged, skipping", zap.String("path", path))
		return false, nil
	}
	w.runs++
	_, err = orchestrator.ProcessSAFT(ctx, w.cfg, w.out,
		orchestrator.WithLogger(w.log),
		orchestrator.WithPipelineOptions(pipeline.WithReader(w.cache.Read)),
	)
	if err != nil {
		// let the next event retry even if the file is untouched
		w.cache.Invalidate(path)
		return true, err
	}
	hits, misses := w.cache.Stats()
	w.log.Info("run complete", zap.Int("run", w.runs), zap.Int("cache_hits", hits), zap.Int("cache_misses", misses))
	return true, nil
}

// watch runs once, then again after every burst of writes to the input
// that stays quiet for the debounce interval. It returns when ctx is done.
func (w *watcher) watch(ctx context.Context) error {
	abs, err := filepath.Abs(w.cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.cfg.Source.Path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	// Editors often replace the file, so watch the directory.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if _, err := w.runOnce(ctx); err != nil {
		w.log.Error("run failed", zap.Error(err))
	}
	w.log.Info("watching for changes", zap.String("path", abs), zap.Duration("debounce", w.cfg.Watch.Debounce))

	trigger := make(chan struct{}, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(trigger)
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-gctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return nil
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				w.log.Warn("watcher error", zap.Error(err))
			case ev, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if p, _ := filepath.Abs(ev.Name); p != abs {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(w.cfg.Watch.Debounce)
				} else {
					timer.Reset(w.cfg.Watch.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}
	})

	g.Go(func() error {
		for range trigger {
			if _, err := w.runOnce(gctx); err != nil {
				w.log.Error("run failed", zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}
