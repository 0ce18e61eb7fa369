package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-absint/internal/config"
	"github.com/l3aro/go-absint/internal/log"
	"github.com/l3aro/go-absint/internal/scanner"
	"github.com/l3aro/go-absint/pkg/ir"
	"github.com/l3aro/go-absint/pkg/lower"
	"github.com/l3aro/go-absint/pkg/types"
)

const sampleGo = `package sample

func inc(x int32) int32 { return x + 1 }

func sign(x int64) bool {
	if x < 0 {
		return true
	}
	return false
}

func id(b bool) bool { return b }
`

// setupProject writes sample inputs into a fresh directory and makes it the working
// directory for the test.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile("sample.go", []byte(sampleGo), 0o644))

	prog, err := lower.LowerSource([]byte("package p\nfunc twice(x uint8) uint8 { return x * 2 }\n"))
	require.NoError(t, err)
	f, err := os.Create("twice.air.yaml")
	require.NoError(t, err)
	require.NoError(t, ir.Encode(f, prog))
	require.NoError(t, f.Close())

	return dir
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.FoldNumericConstants = true
	cfg.CachePath = filepath.Join(dir, ".absint", "cache.msgpack")
	return cfg
}

func decodeFiles(t *testing.T, data []byte) []types.FileReport {
	t.Helper()
	var files []types.FileReport
	require.NoError(t, json.Unmarshal(data, &files))
	return files
}

func statuses(files []types.FileReport) map[string]types.Status {
	out := make(map[string]types.Status)
	for _, f := range files {
		for _, r := range f.Functions {
			out[r.Name] = r.Status
		}
	}
	return out
}

func TestRunAnalyzeJSON(t *testing.T) {
	dir := setupProject(t)
	var out bytes.Buffer

	err := runAnalyze(context.Background(), &out, testConfig(dir), log.Nop(), []string{"."}, analyzeOptions{JSON: true})
	require.NoError(t, err)

	files := decodeFiles(t, out.Bytes())
	require.Len(t, files, 2)
	assert.Equal(t, "sample.go", files[0].Path)
	assert.Equal(t, "go", files[0].Kind)
	assert.Equal(t, "twice.air.yaml", files[1].Path)
	assert.Equal(t, "ir", files[1].Kind)

	assert.Equal(t, map[string]types.Status{
		"inc":   types.StatusOK,
		"sign":  types.StatusPartial,
		"id":    types.StatusOK,
		"twice": types.StatusPartial,
	}, statuses(files))

	for _, r := range files[0].Functions {
		assert.Equal(t, "sample.go", r.Source)
	}
}

func TestRunAnalyzeText(t *testing.T) {
	dir := setupProject(t)
	var out bytes.Buffer

	err := runAnalyze(context.Background(), &out, testConfig(dir), log.Nop(), []string{"sample.go"}, analyzeOptions{ShowState: true})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "=== sample.go (go) ===")
	assert.Contains(t, text, "summary: fn(i[-∞, +∞]) -> i[-∞, +∞]")
	assert.Contains(t, text, "unsupported: if x < 0 { return true }")
	assert.Contains(t, text, "_0 = ")
	assert.Contains(t, text, "3 functions: 2 ok, 1 partial")
	assert.NotContains(t, text, "twice")
}

func TestRunAnalyzeUsesCache(t *testing.T) {
	dir := setupProject(t)
	cfg := testConfig(dir)

	var first bytes.Buffer
	require.NoError(t, runAnalyze(context.Background(), &first, cfg, log.Nop(), []string{"."}, analyzeOptions{JSON: true}))
	assert.FileExists(t, cfg.CachePath)
	for _, f := range decodeFiles(t, first.Bytes()) {
		for _, r := range f.Functions {
			assert.False(t, r.Cached, r.Name)
		}
	}

	var second bytes.Buffer
	require.NoError(t, runAnalyze(context.Background(), &second, cfg, log.Nop(), []string{"."}, analyzeOptions{JSON: true}))
	for _, f := range decodeFiles(t, second.Bytes()) {
		for _, r := range f.Functions {
			assert.True(t, r.Cached, r.Name)
			assert.Equal(t, f.Path, r.Source)
		}
	}

	// Folding is part of the fingerprint.
	cfg.FoldNumericConstants = false
	var third bytes.Buffer
	require.NoError(t, runAnalyze(context.Background(), &third, cfg, log.Nop(), []string{"sample.go"}, analyzeOptions{JSON: true}))
	files := decodeFiles(t, third.Bytes())
	require.Len(t, files, 1)
	for _, r := range files[0].Functions {
		assert.False(t, r.Cached, r.Name)
	}
	assert.Equal(t, types.StatusPartial, statuses(files)["inc"])
}

func TestRunAnalyzeOptions(t *testing.T) {
	dir := setupProject(t)
	cfg := testConfig(dir)
	cfg.CacheEnabled = false

	t.Run("function filter", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runAnalyze(context.Background(), &out, cfg, log.Nop(), []string{"."}, analyzeOptions{JSON: true, Function: "id"}))
		assert.Equal(t, map[string]types.Status{"id": types.StatusOK}, statuses(decodeFiles(t, out.Bytes())))
	})

	t.Run("strict", func(t *testing.T) {
		var out bytes.Buffer
		err := runAnalyze(context.Background(), &out, cfg, log.Nop(), []string{"."}, analyzeOptions{Strict: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not analyse cleanly")

		out.Reset()
		require.NoError(t, runAnalyze(context.Background(), &out, cfg, log.Nop(), []string{"."}, analyzeOptions{Strict: true, Function: "inc"}))
	})

	t.Run("no inputs", func(t *testing.T) {
		empty := t.TempDir()
		err := runAnalyze(context.Background(), &bytes.Buffer{}, cfg, log.Nop(), []string{empty}, analyzeOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no Go or IR files")
	})

	t.Run("broken input", func(t *testing.T) {
		require.NoError(t, os.WriteFile("broken.go", []byte("package p\nfunc f( {\n"), 0o644))
		defer os.Remove("broken.go")

		var out bytes.Buffer
		require.NoError(t, runAnalyze(context.Background(), &out, cfg, log.Nop(), []string{"."}, analyzeOptions{JSON: true}))
		files := decodeFiles(t, out.Bytes())
		require.Len(t, files, 3)
		assert.Equal(t, "broken.go", files[0].Path)
		assert.Contains(t, files[0].Error, "syntax error")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := runAnalyze(ctx, &bytes.Buffer{}, cfg, log.Nop(), []string{"."}, analyzeOptions{})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunSummary(t *testing.T) {
	setupProject(t)

	var out bytes.Buffer
	require.NoError(t, runSummary(&out, "sample.go", "", false))
	assert.Equal(t, "inc: fn(i[-∞, +∞]) -> i[-∞, +∞]\n"+
		"sign: fn(i[-∞, +∞]) -> ⊤\n"+
		"id: fn(⊤) -> ⊤\n", out.String())

	out.Reset()
	require.NoError(t, runSummary(&out, "twice.air.yaml", "twice", true))
	var summaries []FunctionSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "twice", summaries[0].Name)
	assert.Len(t, summaries[0].Arguments, 1)

	err := runSummary(&out, "sample.go", "missing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `function "missing" not found`)

	require.NoError(t, os.WriteFile("notes.txt", []byte("x"), 0o644))
	require.Error(t, runSummary(&out, "notes.txt", "", false))
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".absint", "config.yaml")

	var out bytes.Buffer
	require.NoError(t, writeConfig(&out, config.DefaultConfig(), path, false))
	assert.Contains(t, out.String(), "Configuration saved to")

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Workers, loaded.Workers)

	err = writeConfig(&out, config.DefaultConfig(), path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, writeConfig(&out, config.DefaultConfig(), path, true))

	bad := config.DefaultConfig()
	bad.Workers = 0
	require.Error(t, writeConfig(&out, bad, filepath.Join(dir, "other.yaml"), false))
	assert.NoFileExists(t, filepath.Join(dir, "other.yaml"))
}

func TestCacheCommands(t *testing.T) {
	dir := setupProject(t)
	cfg := testConfig(dir)

	var out bytes.Buffer
	require.NoError(t, runCacheClear(&out, cfg))
	assert.Contains(t, out.String(), "already empty")

	require.NoError(t, runAnalyze(context.Background(), &bytes.Buffer{}, cfg, log.Nop(), []string{"."}, analyzeOptions{}))

	out.Reset()
	require.NoError(t, runCacheStats(&out, cfg, true))
	var stats CacheStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, cfg.CacheSize, stats.MaxSize)
	assert.Positive(t, stats.Bytes)

	out.Reset()
	require.NoError(t, runCacheClear(&out, cfg))
	assert.Contains(t, out.String(), "Removed")
	assert.NoFileExists(t, cfg.CachePath)
}

func TestTally(t *testing.T) {
	assert.Equal(t, "0 functions", tally(nil))
	assert.Equal(t, "1 function: 1 ok", tally([]types.FunctionReport{{Status: types.StatusOK}}))
	assert.Equal(t, "3 functions: 1 ok, 2 error", tally([]types.FunctionReport{
		{Status: types.StatusError}, {Status: types.StatusOK}, {Status: types.StatusError},
	}))
}

// syncBuffer is a bytes.Buffer safe for the watch loop and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch(t *testing.T) {
	dir := setupProject(t)
	cfg := testConfig(dir)
	cfg.CacheEnabled = false
	cfg.WatchDebounceMs = 20

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, out, cfg, log.Nop(), ".", false) }()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("=== twice.air.yaml"))
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile("added.go", []byte("package sample\nfunc added(x int8) int8 { return x }\n"), 0o644))
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("=== added.go (go) ==="))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestRunWatchRejectsFiles(t *testing.T) {
	setupProject(t)
	err := runWatch(context.Background(), &bytes.Buffer{}, config.DefaultConfig(), log.Nop(), "sample.go", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestWriteProgram(t *testing.T) {
	setupProject(t)
	prog, err := lower.LowerFile("sample.go")
	require.NoError(t, err)

	var yamlOut bytes.Buffer
	require.NoError(t, writeProgram(&yamlOut, prog, false))
	decoded, err := ir.Decode(&yamlOut)
	require.NoError(t, err)
	require.Len(t, decoded.Functions, 3)
	assert.Equal(t, "sign", decoded.Functions[1].Name)
	assert.Equal(t, prog.Functions[0].Blocks[0].Statements[0].String(),
		decoded.Functions[0].Blocks[0].Statements[0].String())

	var jsonOut bytes.Buffer
	require.NoError(t, writeProgram(&jsonOut, prog, true))
	var raw struct {
		Functions []struct {
			Name string `json:"name"`
		} `json:"functions"`
	}
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &raw))
	require.Len(t, raw.Functions, 3)
	assert.Equal(t, "id", raw.Functions[2].Name)
}

func TestRunAnalyzeRecoversLoadPanics(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.WriteFile("bad.go", []byte("package sample\n"), 0o644))

	loadInput = func(in scanner.Input) (*ir.Program, error) {
		if filepath.Base(in.FullPath) == "bad.go" {
			panic("lowering blew up")
		}
		return loadProgram(in)
	}
	t.Cleanup(func() { loadInput = loadProgram })

	var out bytes.Buffer
	err := runAnalyze(context.Background(), &out, testConfig(dir), log.Nop(), []string{"."}, analyzeOptions{JSON: true})
	require.NoError(t, err)

	files := decodeFiles(t, out.Bytes())
	require.Len(t, files, 3)
	assert.Equal(t, "bad.go", files[0].Path)
	assert.Contains(t, files[0].Error, "panic: lowering blew up")
	assert.Empty(t, files[0].Functions)

	st := statuses(files)
	assert.Equal(t, types.StatusOK, st["inc"])
	assert.Equal(t, types.StatusPartial, st["twice"])
}
