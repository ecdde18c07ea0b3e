package writers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// JSONWriter writes changes as a JSON array.
type JSONWriter struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	firstRow bool
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(config Config) (ChangeWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON file: %w", err)
	}

	// Write opening bracket for array
	if _, err := file.WriteString("[\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write opening bracket: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("  ", "  ")

	return &JSONWriter{
		file:     file,
		encoder:  encoder,
		firstRow: true,
	}, nil
}

// Write appends changes to the array.
func (w *JSONWriter) Write(ctx context.Context, changes []Change) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range changes {
		// If not the first row, write a comma
		if !w.firstRow {
			if _, err := w.file.WriteString(",\n"); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		} else {
			w.firstRow = false
		}

		if err := w.encoder.Encode(c); err != nil {
			return fmt.Errorf("failed to encode change: %w", err)
		}
	}
	return nil
}

// Close terminates the array and closes the file.
func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if _, closeErr := w.file.WriteString("\n]"); closeErr != nil {
		err = closeErr
	}
	if closeErr := closeFile(w.file); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
