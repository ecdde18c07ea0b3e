// Package writers provides change log writers for dry runs.
package writers

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a writer based on the given configuration.
type Factory struct {
	mu sync.RWMutex
	// registered writers by type
	writers map[string]Creator
}

// Creator is a function that creates a writer from a configuration.
type Creator func(config Config) (ChangeWriter, error)

// NewFactory creates a new writer factory.
func NewFactory() *Factory {
	return &Factory{
		writers: make(map[string]Creator),
	}
}

// Register registers a creator for a writer type.
func (f *Factory) Register(typ string, creator Creator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writers[typ] = creator
}

// Create creates a writer based on the given configuration.
func (f *Factory) Create(config Config) (ChangeWriter, error) {
	f.mu.RLock()
	creator, ok := f.writers[config.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported writer type: %s", config.Type)
	}
	return creator(config)
}

// Types lists the registered writer types.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.writers))
	for t := range f.writers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory is the default writer factory with built-in writer types.
var DefaultFactory = NewFactory()

// init registers built-in writer types.
func init() {
	DefaultFactory.Register("parquet", NewParquetWriter)
	DefaultFactory.Register("arrow", NewArrowWriter)
	DefaultFactory.Register("json", NewJSONWriter)
}
