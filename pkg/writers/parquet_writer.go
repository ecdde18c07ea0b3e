package writers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetWriter writes changes to a Parquet file in row groups of
// BatchSize rows.
type ParquetWriter struct {
	mu        sync.Mutex
	writer    *pqarrow.FileWriter
	file      *os.File
	mem       memory.Allocator
	pending   []Change
	batchSize int
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(config Config) (ChangeWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet file: %w", err)
	}

	// Create Parquet writer with SNAPPY compression
	writeProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(false),
	)
	writer, err := pqarrow.NewFileWriter(ChangeSchema, file, writeProps, pqarrow.NewArrowWriterProperties())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	batch := config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &ParquetWriter{
		writer:    writer,
		file:      file,
		mem:       memory.NewGoAllocator(),
		batchSize: batch,
	}, nil
}

// Write buffers changes and flushes full batches.
func (w *ParquetWriter) Write(ctx context.Context, changes []Change) error {
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

// flush writes pending changes as one row group. Callers hold w.mu.
func (w *ParquetWriter) flush() error {
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
func (w *ParquetWriter) Close() error {
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
