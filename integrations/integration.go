// Package integrations opens the relational stores that rule sets read from
// and write back to. Drivers register themselves from their own packages;
// import integrations/all to link every driver.
package integrations

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/TFMV/masquerade/pkg/core"
)

// Options configure a store.
type Options struct {
	// Path is the DSN or URI of the store.
	Path string
	// DriverPath is the location of a native ADBC driver library; empty means auto-detect.
	DriverPath string
	// Context for opening and pinging the store.
	Context context.Context
}

// Option is a functional config approach.
type Option func(*Options)

// WithPath sets the DSN or URI of the store.
func WithPath(p string) Option {
	return func(o *Options) {
		o.Path = p
	}
}

// WithDriverPath sets the path to a native driver library.
func WithDriverPath(p string) Option {
	return func(o *Options) {
		o.DriverPath = p
	}
}

// WithContext sets a custom Context for opening the store.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// NewOptions applies options over the defaults.
func NewOptions(options ...Option) Options {
	var opts Options
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return opts
}

// Driver describes one way of reaching a store.
type Driver struct {
	Name string
	// Dialect is the SQL dialect used when the configuration names none.
	Dialect string
	Open    func(opts Options) (core.Store, error)
}

var (
	mu      sync.RWMutex
	drivers = map[string]Driver{}
)

// Register makes a driver available by name.
func Register(d Driver) {
	mu.Lock()
	defer mu.Unlock()
	drivers[strings.ToLower(d.Name)] = d
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := drivers[strings.ToLower(name)]
	if !ok {
		return Driver{}, fmt.Errorf("unsupported database driver %q (registered: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return d, nil
}

// Open opens a store with the named driver.
func Open(name string, options ...Option) (core.Store, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.Open(NewOptions(options...))
}

// Drivers lists the registered driver names.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
