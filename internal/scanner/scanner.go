// Package scanner finds analysis inputs below a root: Go sources and IR files. It
// honours .absintignore files with gitignore-style patterns.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Input is one discovered file.
type Input struct {
	Path     string // Relative to the scan root, slash-separated
	FullPath string
	Kind     Kind
	Size     int64
}

// Options configures a Scanner.
type Options struct {
	SkipHidden      bool     // Skip files and directories starting with "."
	IncludeTests    bool     // Treat _test.go files as inputs
	DefaultExcludes []string // Directory names never descended into
	IgnoreFileName  string
}

// DefaultOptions returns the options the CLI uses.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: ".absintignore",
		DefaultExcludes: []string{
			".git",
			".hg",
			".svn",
			".absint",
			"vendor",
			"node_modules",
			"testdata",
			"third_party",
		},
	}
}

// Scanner walks directory trees.
type Scanner struct {
	opts Options
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan returns the inputs below root sorted by path. A root naming a single file yields
// that file when it is an input, regardless of ignore rules.
func (s *Scanner) Scan(root string) ([]Input, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		kind := DetectKind(absRoot, true)
		if kind == KindNone {
			return nil, nil
		}
		return []Input{{Path: filepath.Base(absRoot), FullPath: absRoot, Kind: kind, Size: info.Size()}}, nil
	}

	patterns, err := s.loadIgnorePatterns(absRoot)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var inputs []Input
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, the walk goes on.
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.SkipsDir(d.Name()) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(path)
			if err == nil && len(nested) > 0 {
				patterns = append(patterns, prefixPatterns(rel, nested)...)
			}
			return nil
		}
		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		kind := DetectKind(path, s.opts.IncludeTests)
		if kind == KindNone || ignored(rel, patterns) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		inputs = append(inputs, Input{Path: rel, FullPath: path, Kind: kind, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Path < inputs[j].Path })
	return inputs, nil
}

// SkipsDir reports whether the walk never descends into a directory called name.
func (s *Scanner) SkipsDir(name string) bool {
	if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

func (s *Scanner) loadIgnorePatterns(dir string) ([]IgnorePattern, error) {
	if s.opts.IgnoreFileName == "" {
		return nil, nil
	}
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, sc.Err()
}

// prefixPatterns anchors patterns read from a nested ignore file at its directory.
func prefixPatterns(dir string, patterns []IgnorePattern) []IgnorePattern {
	out := make([]IgnorePattern, len(patterns))
	for i, p := range patterns {
		p.anchored = true
		if len(p.segments) == 1 && !strings.HasPrefix(strings.TrimPrefix(p.pattern, "!"), "/") {
			p.segments = append([]string{"**"}, p.segments...)
		}
		p.segments = append(strings.Split(dir, "/"), p.segments...)
		out[i] = p
	}
	return out
}

// ignored applies patterns in order; a later negation re-includes an earlier match.
func ignored(rel string, patterns []IgnorePattern) bool {
	out := false
	for _, p := range patterns {
		if p.Match(rel) {
			out = !p.IsNegation()
		}
	}
	return out
}

// Scan scans root with DefaultOptions.
func Scan(root string) ([]Input, error) {
	return New(DefaultOptions()).Scan(root)
}
