package writers

import (
	"context"
	"errors"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Change is one generated value for one row and column.
type Change struct {
	Table  string `json:"table"`
	Key    string `json:"key"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// ChangeWriter records generated values instead of writing them to the store.
// Implementations are safe for concurrent use.
type ChangeWriter interface {
	Write(ctx context.Context, changes []Change) error
	Close() error
}

// Config selects and configures a change writer.
type Config struct {
	Type      string
	Path      string
	BatchSize int // rows per record batch for columnar formats
}

const defaultBatchSize = 1024

// ChangeSchema is the column layout of columnar change logs.
var ChangeSchema = arrow.NewSchema([]arrow.Field{
	{Name: "table", Type: arrow.BinaryTypes.String},
	{Name: "key", Type: arrow.BinaryTypes.String},
	{Name: "column", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.BinaryTypes.String},
}, nil)

// buildRecord converts changes to a record of ChangeSchema. The caller
// releases it.
func buildRecord(mem memory.Allocator, changes []Change) arrow.Record {
	b := array.NewRecordBuilder(mem, ChangeSchema)
	defer b.Release()

	table := b.Field(0).(*array.StringBuilder)
	key := b.Field(1).(*array.StringBuilder)
	column := b.Field(2).(*array.StringBuilder)
	value := b.Field(3).(*array.StringBuilder)
	for _, c := range changes {
		table.Append(c.Table)
		key.Append(c.Key)
		column.Append(c.Column)
		value.Append(c.Value)
	}
	return b.NewRecord()
}

// closeFile closes f, tolerating writers that already closed it.
func closeFile(f *os.File) error {
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
