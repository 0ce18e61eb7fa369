// Package cache provides an LRU cache of function reports with disk persistence.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-absint/pkg/types"
)

// formatVersion is bumped whenever the persisted layout or report semantics change;
// files with another version are ignored on load.
const formatVersion = 1

// Entry is a cached report with its key and access metadata.
type Entry struct {
	Key        string               `msgpack:"key"`
	Report     types.FunctionReport `msgpack:"report"`
	AccessedAt time.Time            `msgpack:"accessed_at"`
	CreatedAt  time.Time            `msgpack:"created_at"`
}

// snapshot is the persisted form of a cache.
type snapshot struct {
	Version int     `msgpack:"version"`
	Entries []Entry `msgpack:"entries"`
}

// listItem is an item in the doubly-linked list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// list represents a doubly-linked list.
type list struct {
	head *listItem // most recently accessed
	tail *listItem // least recently accessed
	len  int
}

func (l *list) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
	l.len--
}

// pushFront adds an item to the front of the list.
func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	l.unlink(item)
	l.pushFront(item)
}

// removeBack removes and returns the least recently used item.
func (l *list) removeBack() *listItem {
	item := l.tail
	if item != nil {
		l.unlink(item)
	}
	return item
}

// Options configures the report cache.
type Options struct {
	// MaxSize is the maximum number of entries.
	// 0 means unlimited.
	MaxSize int

	// OnEvict is called when an entry is evicted or deleted.
	OnEvict func(key string, report types.FunctionReport)
}

// Stats returns cache statistics.
type Stats struct {
	Length    int   `json:"length"`
	HitCount  int64 `json:"hit_count"`
	MissCount int64 `json:"miss_count"`
	Evictions int64 `json:"evictions"`
}

// ReportCache is an in-memory LRU of function reports keyed by body fingerprint.
// It is safe for concurrent use.
type ReportCache struct {
	mu      sync.Mutex
	items   map[string]*listItem
	lru     *list
	maxSize int
	onEvict func(key string, report types.FunctionReport)
	now     func() time.Time

	hits, misses, evictions int64
}

// New creates a new report cache with the given options.
func New(opts Options) *ReportCache {
	return &ReportCache{
		items:   make(map[string]*listItem),
		lru:     &list{},
		maxSize: opts.MaxSize,
		onEvict: opts.OnEvict,
		now:     time.Now,
	}
}

// Get retrieves a report and marks it most recently used.
func (c *ReportCache) Get(key string) (types.FunctionReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		c.misses++
		return types.FunctionReport{}, false
	}
	c.hits++
	item.AccessedAt = c.now()
	c.lru.moveToFront(item)
	return item.Report, true
}

// Set stores a report, evicting the least recently used entries beyond MaxSize.
func (c *ReportCache) Set(key string, report types.FunctionReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if item, exists := c.items[key]; exists {
		item.Report = report
		item.AccessedAt = now
		c.lru.moveToFront(item)
		return
	}

	item := &listItem{Entry: Entry{Key: key, Report: report, AccessedAt: now, CreatedAt: now}}
	c.items[key] = item
	c.lru.pushFront(item)

	for c.maxSize > 0 && c.lru.len > c.maxSize {
		old := c.lru.removeBack()
		delete(c.items, old.Key)
		c.evictions++
		if c.onEvict != nil {
			c.onEvict(old.Key, old.Report)
		}
	}
}

// Delete removes a key from the cache.
func (c *ReportCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return
	}
	c.lru.unlink(item)
	delete(c.items, key)
	if c.onEvict != nil {
		c.onEvict(key, item.Report)
	}
}

// Clear removes all entries from the cache, calling OnEvict for each, and resets the
// counters.
func (c *ReportCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for item := c.lru.head; item != nil; item = item.next {
			c.onEvict(item.Key, item.Report)
		}
	}
	c.items = make(map[string]*listItem)
	c.lru = &list{}
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Len returns the number of entries in the cache.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the current counters.
func (c *ReportCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Length: len(c.items), HitCount: c.hits, MissCount: c.misses, Evictions: c.evictions}
}

// Save persists the cache to a writer using msgpack, most recently used first.
func (c *ReportCache) Save(w io.Writer) error {
	c.mu.Lock()
	snap := snapshot{Version: formatVersion, Entries: make([]Entry, 0, c.lru.len)}
	for item := c.lru.head; item != nil; item = item.next {
		snap.Entries = append(snap.Entries, item.Entry)
	}
	c.mu.Unlock()

	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	return nil
}

// Load replaces the cache contents with a snapshot read from r. A snapshot written by
// another format version leaves the cache empty.
func (c *ReportCache) Load(r io.Reader) error {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*listItem)
	c.lru = &list{}
	if snap.Version != formatVersion {
		return nil
	}

	// Entries are stored most recent first; push in reverse so order survives, then
	// drop whatever no longer fits.
	for i := len(snap.Entries) - 1; i >= 0; i-- {
		entry := snap.Entries[i]
		if _, dup := c.items[entry.Key]; dup {
			continue
		}
		item := &listItem{Entry: entry}
		c.items[entry.Key] = item
		c.lru.pushFront(item)
	}
	for c.maxSize > 0 && c.lru.len > c.maxSize {
		old := c.lru.removeBack()
		delete(c.items, old.Key)
	}
	return nil
}

// SaveFile writes the cache to path, creating parent directories. The file is written
// to a temporary name first and renamed into place.
func (c *ReportCache) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// LoadFile loads the cache from path.
func (c *ReportCache) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache file is not an error
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}
