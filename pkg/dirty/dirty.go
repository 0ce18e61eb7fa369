// Package dirty tracks input files by content hash so that a save which leaves a file
// byte-for-byte unchanged does not trigger another analysis.
package dirty

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type digest [sha256.Size]byte

// Tracker remembers the last content hash seen for each file. It is safe for
// concurrent use.
type Tracker struct {
	mu     sync.Mutex
	hashes map[string]digest
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{hashes: make(map[string]digest)}
}

func hashFile(path string) (digest, error) {
	var d digest
	f, err := os.Open(path)
	if err != nil {
		return d, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return d, fmt.Errorf("hashing %s: %w", path, err)
	}
	copy(d[:], h.Sum(nil))
	return d, nil
}

// Observe hashes path and records the result. It reports true when the file was not
// tracked before or its content differs from the last observation.
func (t *Tracker) Observe(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	d, err := hashFile(abs)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.hashes[abs]
	t.hashes[abs] = d
	return !ok || prev != d, nil
}

// Changed observes every path and returns, sorted, those whose content changed.
// Paths that can no longer be read are forgotten and left out.
func (t *Tracker) Changed(paths []string) []string {
	var out []string
	for _, p := range paths {
		changed, err := t.Observe(p)
		if err != nil {
			t.Forget(p)
			continue
		}
		if changed {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Forget stops tracking path.
func (t *Tracker) Forget(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	t.mu.Lock()
	delete(t.hashes, abs)
	t.mu.Unlock()
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hashes)
}
