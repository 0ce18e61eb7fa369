package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/internal/config"
	"github.com/l3aro/go-absint/internal/log"
	"github.com/l3aro/go-absint/internal/scanner"
	"github.com/l3aro/go-absint/pkg/dirty"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-analyse files as they change",
	Long: `Analyses every input under dir (default: the current directory), then watches the
tree and re-analyses Go and IR files when they are written or created. Bursts of
events are coalesced for watch_debounce_ms. When metrics_addr is set, Prometheus
metrics are served at http://<metrics_addr>/metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			cfg.MetricsAddr = addr
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")

		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, cmd.OutOrStdout(), cfg, cfg.Logger(), root, jsonOutput)
	},
}

func runWatch(ctx context.Context, out io.Writer, cfg *config.Config, logger log.Logger, root string, jsonOutput bool) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watching %s: not a directory", root)
	}

	s := newSession(cfg, logger)
	defer s.saveCache()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	sc := scanner.New(scanner.DefaultOptions())
	if err := addWatchDirs(watcher, sc, root); err != nil {
		return err
	}
	tracker := dirty.New()

	report := func(only map[string]bool) error {
		inputs, err := collectInputs([]string{root})
		if err != nil {
			return err
		}
		if only != nil {
			inputs = selectInputs(inputs, only)
		} else {
			paths := make([]string, len(inputs))
			for i, in := range inputs {
				paths[i] = in.FullPath
			}
			tracker.Changed(paths)
		}
		if len(inputs) == 0 {
			return nil
		}
		files, err := s.analyzeInputs(ctx, inputs, "")
		if jsonOutput {
			if perr := printJSON(out, files); perr != nil {
				return perr
			}
		} else {
			printFileReports(out, files, false)
		}
		s.saveCache()
		return err
	}

	if err := report(nil); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	logger.Info("watching for changes", "root", root)

	debounce := time.Duration(cfg.WatchDebounceMs) * time.Millisecond
	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addWatchDirs(watcher, sc, event.Name); err != nil {
						logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if scanner.DetectKind(event.Name, false) == scanner.KindNone {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
			pending[abs] = true
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]bool)
			changed := tracker.Changed(paths)
			if len(changed) == 0 {
				logger.Debug("no content changes", "events", len(paths))
				continue
			}
			only := make(map[string]bool, len(changed))
			for _, p := range changed {
				only[p] = true
			}
			if err := report(only); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("analysis failed", "error", err)
			}
		}
	}
}

// addWatchDirs watches root and every directory below it the scanner would descend into.
func addWatchDirs(watcher *fsnotify.Watcher, sc *scanner.Scanner, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && sc.SkipsDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func selectInputs(inputs []scanner.Input, only map[string]bool) []scanner.Input {
	var out []scanner.Input
	for _, in := range inputs {
		if only[in.FullPath] {
			out = append(out, in)
		}
	}
	return out
}

func serveMetrics(addr string, logger log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func init() {
	watchCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	watchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics at this host:port (overrides config)")
	watchCmd.Flags().IntP("workers", "w", 0, "Functions analysed concurrently (overrides config)")
	watchCmd.Flags().Bool("fold", false, "Decode integer constants into point intervals (overrides config)")
	watchCmd.Flags().Bool("no-cache", false, "Do not read or write the report cache")
	RootCmd.AddCommand(watchCmd)
}
