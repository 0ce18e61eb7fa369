package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-absint/internal/config"
	"github.com/l3aro/go-absint/internal/log"
	"github.com/l3aro/go-absint/internal/scanner"
	"github.com/l3aro/go-absint/pkg/analyzer"
	"github.com/l3aro/go-absint/pkg/cache"
	"github.com/l3aro/go-absint/pkg/ir"
	"github.com/l3aro/go-absint/pkg/lower"
	"github.com/l3aro/go-absint/pkg/types"
)

// loadConfig resolves the configuration for cmd: the --config file when given, the
// layered project, env and global files otherwise, then command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if v, _ := flags.GetBool("verbose"); v {
		cfg.Verbose = true
	}
	if v, _ := flags.GetBool("log-json"); v {
		cfg.LogJSON = true
	}
	if f := flags.Lookup("workers"); f != nil && f.Changed {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if f := flags.Lookup("fold"); f != nil && f.Changed {
		cfg.FoldNumericConstants, _ = flags.GetBool("fold")
	}
	if v, _ := flags.GetBool("no-cache"); v {
		cfg.CacheEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session holds what the analysing commands share: the logger, the report cache and an
// analyzer built from the configuration.
type session struct {
	cfg      *config.Config
	logger   log.Logger
	cache    *cache.ReportCache
	analyzer *analyzer.Analyzer
}

func newSession(cfg *config.Config, logger log.Logger) *session {
	s := &session{cfg: cfg, logger: logger}
	if cfg.CacheEnabled {
		s.cache = cache.New(cache.Options{MaxSize: cfg.CacheSize})
		if err := s.cache.LoadFile(cfg.CachePath); err != nil {
			logger.Warn("ignoring unreadable report cache", "path", cfg.CachePath, "error", err)
			s.cache.Clear()
		}
	}
	s.analyzer = analyzer.New(analyzer.Options{
		Workers:              cfg.Workers,
		FoldNumericConstants: cfg.FoldNumericConstants,
		Cache:                s.cache,
		Logger:               logger,
	})
	return s
}

// saveCache persists the report cache. Failures are logged, not returned.
func (s *session) saveCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveFile(s.cfg.CachePath); err != nil {
		s.logger.Warn("cannot save report cache", "path", s.cfg.CachePath, "error", err)
		return
	}
	stats := s.cache.Stats()
	s.logger.Debug("saved report cache", "path", s.cfg.CachePath, "entries", stats.Length,
		"hits", stats.HitCount, "misses", stats.MissCount, "evictions", stats.Evictions)
}

// analyzeInputs loads and analyses each input in order. A file that cannot be loaded
// gets a report with its error and the run continues. When function is not empty only
// functions with that name are analysed.
func (s *session) analyzeInputs(ctx context.Context, inputs []scanner.Input, function string) ([]types.FileReport, error) {
	files := make([]types.FileReport, 0, len(inputs))
	for _, in := range inputs {
		fr := types.FileReport{Path: in.Path, Kind: string(in.Kind), Functions: []types.FunctionReport{}}

		prog, err := s.load(in)
		if err != nil {
			s.logger.Warn("skipping input", "path", in.Path, "error", err)
			fr.Error = err.Error()
			files = append(files, fr)
			continue
		}
		if function != "" {
			prog = filterFunctions(prog, function)
		}

		reports, err := s.analyzer.AnalyzeProgram(ctx, prog)
		for i := range reports {
			reports[i].Source = in.Path
		}
		fr.Functions = append(fr.Functions, reports...)
		files = append(files, fr)
		if err != nil {
			return files, err
		}
	}
	return files, nil
}

// loadInput reads an input into a program. Tests replace it.
var loadInput = loadProgram

// load runs loadInput, turning a panic into an error for that input alone.
func (s *session) load(in scanner.Input) (prog *ir.Program, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("loading input panicked", "path", in.Path, "panic", p)
			prog, err = nil, fmt.Errorf("%s: panic: %v", in.Path, p)
		}
	}()
	return loadInput(in)
}

func loadProgram(in scanner.Input) (*ir.Program, error) {
	switch in.Kind {
	case scanner.KindGo:
		return lower.LowerFile(in.FullPath)
	case scanner.KindIR:
		return ir.Load(in.FullPath)
	default:
		return nil, fmt.Errorf("%s: not a Go or IR file", in.Path)
	}
}

func filterFunctions(prog *ir.Program, name string) *ir.Program {
	out := &ir.Program{}
	for _, fn := range prog.Functions {
		if fn.Name == name {
			out.Functions = append(out.Functions, fn)
		}
	}
	return out
}

// collectInputs scans every path and returns the inputs found, each once, with paths
// shown relative to the working directory.
func collectInputs(paths []string) ([]scanner.Input, error) {
	cwd, _ := os.Getwd()
	seen := make(map[string]bool)
	var inputs []scanner.Input
	for _, p := range paths {
		found, err := scanner.Scan(p)
		if err != nil {
			return nil, err
		}
		for _, in := range found {
			if seen[in.FullPath] {
				continue
			}
			seen[in.FullPath] = true
			in.Path = displayPath(cwd, in.FullPath)
			inputs = append(inputs, in)
		}
	}
	return inputs, nil
}

func displayPath(cwd, full string) string {
	if cwd != "" {
		if rel, err := filepath.Rel(cwd, full); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasParentPrefix(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(full)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
