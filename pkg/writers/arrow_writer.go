package writers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowWriter writes changes to an Arrow IPC file in record batches of
// BatchSize rows.
type ArrowWriter struct {
	mu        sync.Mutex
	writer    *ipc.FileWriter
	file      *os.File
	mem       memory.Allocator
	pending   []Change
	batchSize int
}

// NewArrowWriter creates a new Arrow IPC writer.
func NewArrowWriter(config Config) (ChangeWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Arrow writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file: %w", err)
	}

	mem := memory.NewGoAllocator()
	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(ChangeSchema), ipc.WithAllocator(mem))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create Arrow writer: %w", err)
	}

	batch := config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &ArrowWriter{
		writer:    writer,
		file:      file,
		mem:       mem,
		batchSize: batch,
	}, nil
}

// Write buffers changes and flushes full batches.
func (w *ArrowWriter) Write(ctx context.Context, changes []Change) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, changes...)
	if len(w.pending) >= w.batchSize {
		return w.flush()
	}
	return nil
}

// flush writes pending changes as one record batch. Callers hold w.mu.
func (w *ArrowWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	record := buildRecord(w.mem, w.pending)
	defer record.Release()
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.pending = w.pending[:0]
	return nil
}

// Close flushes pending changes and closes the file.
func (w *ArrowWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.flush()
	if closeErr := w.writer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if closeErr := closeFile(w.file); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
