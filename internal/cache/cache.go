// Package cache memoizes successful translations keyed by normalized
// request text.
//
// Eviction removes the entry with the oldest write timestamp. Lookups do
// not refresh timestamps, so this is deliberately not an LRU.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCapacity bounds the number of entries.
const DefaultCapacity = 100

// Translation is what a successful request leaves behind: the statement and
// every table it touches, join intermediates included.
type Translation struct {
	SQL        string   `msgpack:"sql" json:"sql"`
	Tables     []string `msgpack:"tables" json:"tables"`
	Confidence float64  `msgpack:"confidence" json:"confidence"`
}

// Entry is one cached translation.
type Entry struct {
	Translation `msgpack:",inline"`

	Key       string    `msgpack:"key" json:"key"`
	Uses      uint64    `msgpack:"uses" json:"uses"`
	Timestamp time.Time `msgpack:"ts" json:"timestamp"`
	Seq       uint64    `msgpack:"seq" json:"-"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	capacity int
	seq      uint64
	now      func() time.Time
	logger   *zap.Logger
}

// New returns an empty cache. A capacity below 1 uses DefaultCapacity.
func New(capacity int, opts ...Option) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		entries:  make(map[string]*Entry),
		capacity: capacity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("cache")
	return c
}

var lowerCaser = cases.Lower(language.Und)

// Key normalizes request text: trimmed and lower-cased.
func Key(text string) string {
	return lowerCaser.String(strings.TrimSpace(text))
}

// Get returns the entry for text without touching its timestamp.
func (c *Cache) Get(text string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[Key(text)]
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.Tables = slices.Clone(e.Tables)
	return out, true
}

// Put records a successful translation: t is stored, the use counter
// incremented and the timestamp set to now. When the cache grows past
// capacity the oldest-timestamped entry is evicted.
func (c *Cache) Put(text string, t Translation) Entry {
	key := Key(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{Key: key}
		c.entries[key] = e
	}
	t.Tables = slices.Clone(t.Tables)
	e.Translation = t
	e.Uses++
	e.Timestamp = c.now()
	e.Seq = c.seq

	for len(c.entries) > c.capacity {
		c.evictOldest()
	}
	return *e
}

func (c *Cache) evictOldest() {
	var victim *Entry
	for _, e := range c.entries {
		if victim == nil || older(e, victim) {
			victim = e
		}
	}
	if victim != nil {
		delete(c.entries, victim.Key)
		c.logger.Debug("evicted cache entry", zap.String("key", victim.Key))
	}
}

func older(a, b *Entry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Seq < b.Seq
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a copy of all entries, most recently written first.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return older(&out[j], &out[i]) })
	return out
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

type snapshot struct {
	Version int     `msgpack:"v"`
	Entries []Entry `msgpack:"entries"`
}

const snapshotVersion = 2

// Save writes a msgpack snapshot of the cache to w.
func (c *Cache) Save(w io.Writer) error {
	snap := snapshot{Version: snapshotVersion, Entries: c.Entries()}
	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	return nil
}

// Load replaces the cache contents with the snapshot read from r. Entries
// beyond capacity are evicted oldest first.
func (c *Cache) Load(r io.Reader) error {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode cache: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("decode cache: unsupported snapshot version %d", snap.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry, len(snap.Entries))
	c.seq = 0
	// Oldest first so sequence numbers keep their relative order.
	sort.Slice(snap.Entries, func(i, j int) bool { return older(&snap.Entries[i], &snap.Entries[j]) })
	for i := range snap.Entries {
		e := snap.Entries[i]
		if e.Key == "" {
			continue
		}
		c.seq++
		e.Seq = c.seq
		c.entries[e.Key] = &e
	}
	for len(c.entries) > c.capacity {
		c.evictOldest()
	}
	return nil
}

// SaveFile writes the snapshot to path through a temporary file.
func (c *Cache) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// LoadFile loads a snapshot from path. A missing file leaves the cache
// empty and is not an error.
func (c *Cache) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}
