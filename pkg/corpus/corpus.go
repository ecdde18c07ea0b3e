// Package corpus bundles the word lists used by the dictionary and name
// generators.
package corpus

import (
	"bytes"
	"embed"
	"fmt"
	"io"
)

//go:embed *.txt
var files embed.FS

// Bundled corpus names.
const (
	Dictionary = "dictionary"
	FirstNames = "first_names"
	LastNames  = "last_names"
	Cities     = "cities"
)

// Open returns a reader over the named bundled corpus.
func Open(name string) (io.ReadCloser, error) {
	data, err := files.ReadFile(name + ".txt")
	if err != nil {
		return nil, fmt.Errorf("corpus %q: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Names lists the bundled corpora.
func Names() []string {
	return []string{Dictionary, FirstNames, LastNames, Cities}
}
