package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/rthomann/docmill/internal/export"
	"github.com/rthomann/docmill/internal/format"
	"github.com/rthomann/docmill/internal/pipeline"
)

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "convert every supported file in a directory",
		Flags: append(conversionFlags(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "input directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output directory",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "keep running and convert files as they appear",
			},
		),
		Action: runBatch,
	}
}

type batchRunner struct {
	conv   *pipeline.Converter
	opts   pipeline.Options
	outDir string
	log    *slog.Logger

	mu        sync.Mutex
	converted int
	failed    int
}

func runBatch(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	opts, err := optionsFromCLI(c)
	if err != nil {
		return err
	}

	fromDir := c.String("from")
	outDir := c.String("output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	r := &batchRunner{
		conv:   pipeline.NewConverter(cfg, log),
		opts:   opts,
		outDir: outDir,
		log:    log,
	}

	files, err := listSupported(fromDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.convertAll(ctx, files, cfg.WorkerCount)

	if c.Bool("watch") {
		return r.watch(ctx, cancel, fromDir)
	}

	converted, failed := r.totals()
	color.Green("batch done: %d converted, %d failed", converted, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, failed+converted)
	}
	return nil
}

// listSupported returns every file directly in dir with a supported
// extension.
func listSupported(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if format.FromFilename(e.Name()) != format.Unknown {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertAll fans files out to a bounded worker pool.
func (r *batchRunner) convertAll(ctx context.Context, files []string, workers int) {
	if len(files) == 0 {
		return
	}
	queue := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				r.convertOne(ctx, path)
			}
		}()
	}
	for _, f := range files {
		queue <- f
	}
	close(queue)
	wg.Wait()
}

func (r *batchRunner) convertOne(ctx context.Context, path string) {
	outPath := filepath.Join(r.outDir, outputName(path, r.opts.Target))

	doc, warnings, err := r.conv.Convert(ctx, path, r.opts)
	if err == nil {
		err = writeResult(doc, outPath, r.opts)
	}
	for _, w := range warnings {
		r.log.Warn("enrichment warning", "path", path, "warning", w)
	}

	r.record(path, outPath, err)
}

// record updates the counters and prints the per-file status line.
func (r *batchRunner) record(path, outPath string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		color.Red("failed   %s: %v", path, err)
		return
	}
	r.converted++
	color.Green("converted %s -> %s", path, outPath)
}

// totals reads the counters under the lock; watch-mode timers may still be
// converting when the summary prints.
func (r *batchRunner) totals() (converted, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.converted, r.failed
}

func outputName(path string, target export.Target) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + target.Extension()
}

// watch converts files as they are created or modified in dir, until
// interrupted. Writes are debounced so half-written files are not picked up.
func (r *batchRunner) watch(ctx context.Context, cancel context.CancelFunc, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	r.log.Info("watching for new files", "dir", dir)

	pending := map[string]*time.Timer{}
	var mu sync.Mutex
	for {
		select {
		case <-sigCh:
			cancel()
			converted, failed := r.totals()
			color.Green("batch done: %d converted, %d failed", converted, failed)
			return nil
		case err := <-watcher.Errors:
			r.log.Warn("watch error", "error", err)
		case ev := <-watcher.Events:
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if format.FromFilename(ev.Name) == format.Unknown {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(500*time.Millisecond, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				r.convertOne(ctx, path)
			})
			mu.Unlock()
		}
	}
}
