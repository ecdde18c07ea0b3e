// Package pool implements named collections of candidate values that are
// handed out in shuffled order, exhausting every value before reshuffling.
package pool

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/TFMV/masquerade/pkg/core"
)

// OpenFunc opens the source of a pool on first use.
type OpenFunc func() (io.ReadCloser, error)

// entry is one named pool. mu guards values and the cursor.
type entry struct {
	mu     sync.Mutex
	loaded bool
	values []string
	perm   []int
	cursor int
}

// Cache owns every pool for the lifetime of the process.
type Cache struct {
	mu     sync.Mutex
	pools  map[string]*entry
	rng    *rand.Rand
	logger *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report pool loads.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates an empty cache drawing permutations from rng.
func NewCache(rng *rand.Rand, opts ...Option) *Cache {
	c := &Cache{
		pools:  make(map[string]*entry),
		rng:    rng,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) entry(name string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.pools[name]
	if !ok {
		e = &entry{}
		c.pools[name] = e
	}
	return e
}

func (c *Cache) lookup(name string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.pools[name]
	return e, ok
}

// Load populates the named pool from newline-delimited entries in r. Loading
// a name that is already loaded is a no-op and r is not read.
func (c *Cache) Load(name string, r io.Reader) error {
	e := c.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.fill(name, e, func() (io.ReadCloser, error) { return io.NopCloser(r), nil })
}

// LoadFunc is like Load but only opens the source when the pool is not yet loaded.
func (c *Cache) LoadFunc(name string, open OpenFunc) error {
	e := c.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.fill(name, e, open)
}

// fill reads the source into e. Callers hold e.mu.
func (c *Cache) fill(name string, e *entry, open OpenFunc) error {
	if e.loaded {
		return nil
	}
	rc, err := open()
	if err != nil {
		return fmt.Errorf("%w: opening pool %q: %v", core.ErrIOFailure, name, err)
	}
	defer rc.Close()

	values, err := readLines(rc)
	if err != nil {
		return fmt.Errorf("%w: reading pool %q: %v", core.ErrIOFailure, name, err)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: pool %q has no values", core.ErrIOFailure, name)
	}

	e.values = values
	e.loaded = true
	e.perm = nil
	e.cursor = 0
	c.logger.Info("Loaded value pool", zap.String("pool", name), zap.Int("size", len(values)))
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var values []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		values = append(values, line)
	}
	return values, sc.Err()
}

// Next returns the next value of the current shuffle epoch of the named pool.
// When the epoch is exhausted a fresh permutation is drawn.
func (c *Cache) Next(name string) (string, error) {
	e, ok := c.lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: pool %q", core.ErrNotLoaded, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return "", fmt.Errorf("%w: pool %q", core.ErrNotLoaded, name)
	}
	return c.next(e), nil
}

// NextFrom loads the named pool through open if needed, then returns its next value.
func (c *Cache) NextFrom(name string, open OpenFunc) (string, error) {
	e := c.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := c.fill(name, e, open); err != nil {
		return "", err
	}
	return c.next(e), nil
}

// next advances the cursor. Callers hold e.mu and e is loaded.
func (c *Cache) next(e *entry) string {
	if e.perm == nil || e.cursor >= len(e.perm) {
		e.perm = c.rng.Perm(len(e.values))
		e.cursor = 0
	}
	v := e.values[e.perm[e.cursor]]
	e.cursor++
	return v
}

// Loaded reports whether the named pool holds values.
func (c *Cache) Loaded(name string) bool {
	e, ok := c.lookup(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Len returns the number of values in the named pool, or 0 if it isn't loaded.
func (c *Cache) Len(name string) int {
	e, ok := c.lookup(name)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.values)
}
