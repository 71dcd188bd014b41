package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ChemRoute-Intelligence/internal/application/pipeline"
	"github.com/turtacn/ChemRoute-Intelligence/internal/config"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemRoute-Intelligence/internal/interfaces/status"
)

// watchQueueSize bounds how many settled files may wait for the worker.
const watchQueueSize = 256

type watchOptions struct {
	Input  string
	Output string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and process PDFs as they arrive",
		Long: "watch monitors a directory for new PDF files, waits for each file to\n" +
			"settle, then runs the full extraction pipeline on it.  An optional\n" +
			"status HTTP server exposes health and metrics while watching.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Pipeline.OutputDir = opts.Output
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Hot-reload the log level when the config file changes, so a
			// long-lived watcher can be switched to debug without restarting.
			if root.ConfigPath != "" {
				config.Watch(root.ConfigPath, func(next *config.Config) {
					logging.SetLevel(logger, next.Log.Level)
					logger.Info("configuration reloaded",
						logging.String("log_level", next.Log.Level))
				})
			}

			return runWatch(ctx, cfg, opts.Input, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "directory to watch (required)")
	f.StringVarP(&opts.Output, "output", "o", "", "output root directory")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, input string, logger logging.Logger) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", input, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch input must be a directory, got %s", input)
	}
	if err := os.MkdirAll(cfg.Pipeline.OutputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", cfg.Pipeline.OutputDir, err)
	}

	metrics := prometheus.NewMetrics()
	processor, cleanup, err := buildProcessor(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	w := &dirWatcher{
		processor: processor,
		metrics:   metrics,
		debounce:  cfg.Watch.Debounce,
		includeSI: cfg.Pipeline.IncludeSI,
		siMarker:  cfg.Pipeline.SIMarker,
		queue:     make(chan string, watchQueueSize),
		pending:   make(map[string]*pendingFile),
		logger:    logger.Named("watch"),
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Status.Enabled {
		server := status.NewServer(cfg.Status.Addr, metrics, logger)
		g.Go(func() error { return server.Run(ctx) })
	}
	g.Go(func() error { return w.watch(ctx, input) })
	g.Go(func() error { return w.work(ctx) })

	logger.Info("watching for PDFs",
		logging.String("dir", input),
		logging.Duration("debounce", cfg.Watch.Debounce))
	return g.Wait()
}

// dirWatcher debounces filesystem events per file and feeds settled PDFs to a
// single worker, so a half-copied file is never processed.
type dirWatcher struct {
	processor *pipeline.Processor
	metrics   *prometheus.Metrics
	debounce  time.Duration
	includeSI bool
	siMarker  string

	queue chan string

	mu      sync.Mutex
	pending map[string]*pendingFile
	gen     uint64

	logger logging.Logger
}

// pendingFile is one file waiting out its settling window.  The generation
// ties a timer expiry to the cycle that armed it.
type pendingFile struct {
	timer *time.Timer
	gen   uint64
}

func (w *dirWatcher) watch(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handle(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watcher error", logging.Err(err))
		}
	}
}

// handle resets the settling timer for path.  The file is queued only after
// debounce elapses with no further writes.
func (w *dirWatcher) handle(path string) {
	if !w.wanted(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Reset(w.debounce)
		return
	}
	w.gen++
	gen := w.gen
	p := &pendingFile{gen: gen}
	p.timer = time.AfterFunc(w.debounce, func() { w.settle(path, gen) })
	w.pending[path] = p
	w.logger.Debug("file seen, waiting to settle", logging.String("file", path))
}

// settle queues path after its debounce elapsed.  A Write racing the expiry
// can Reset an already-fired timer, making it fire a second time; the
// generation check keeps each settling cycle to exactly one queue entry.
func (w *dirWatcher) settle(path string, gen uint64) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok || p.gen != gen {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case w.queue <- path:
		if w.metrics != nil {
			w.metrics.WatchQueueDepth.Inc()
		}
	default:
		w.logger.Warn("watch queue full, dropping file", logging.String("file", path))
	}
}

func (w *dirWatcher) wanted(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return false
	}
	if !w.includeSI && w.siMarker != "" && strings.Contains(filepath.Base(path), w.siMarker) {
		return false
	}
	return true
}

func (w *dirWatcher) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-w.queue:
			if w.metrics != nil {
				w.metrics.WatchQueueDepth.Dec()
			}
			result := w.processor.Process(ctx, path)
			if result.Success {
				w.logger.Info("file processed",
					logging.String("file", filepath.Base(path)),
					logging.Int("reactions", result.ReactionsExtracted),
					logging.String("document", result.OutputDoc))
			} else {
				w.logger.Warn("file failed",
					logging.String("file", filepath.Base(path)),
					logging.Any("errors", result.Errors))
			}
		}
	}
}
