// File: integration_test.go
package integrations_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/masquerade/integrations"
	"github.com/TFMV/masquerade/pkg/core"
)

// ===========================
// 1. Test for Option Functions
// ===========================

func TestOptions(t *testing.T) {
	ctx := context.Background()
	testPath := "mock_db_path"
	testDriverPath := "driver_path"

	// Use the WithXXX functions to configure Options
	opts := &integrations.Options{}
	integrations.WithContext(ctx)(opts)
	integrations.WithPath(testPath)(opts)
	integrations.WithDriverPath(testDriverPath)(opts)

	// Validate the fields
	if opts.Context != ctx {
		t.Errorf("expected context %v, got %v", ctx, opts.Context)
	}
	if opts.Path != testPath {
		t.Errorf("expected path %q, got %q", testPath, opts.Path)
	}
	if opts.DriverPath != testDriverPath {
		t.Errorf("expected driverPath %q, got %q", testDriverPath, opts.DriverPath)
	}

	if integrations.NewOptions().Context == nil {
		t.Errorf("expected a default context")
	}
}

// =======================
// 2. Driver registry
// =======================

type memStore struct {
	path   string
	closed bool
}

func (m *memStore) Query(context.Context, string, ...any) ([]core.Row, error) { return nil, nil }
func (m *memStore) Exec(context.Context, string, ...any) (int64, error)       { return 0, nil }
func (m *memStore) Close() error                                              { m.closed = true; return nil }

func TestRegisterAndOpen(t *testing.T) {
	integrations.Register(integrations.Driver{
		Name:    "Memory",
		Dialect: "default",
		Open: func(opts integrations.Options) (core.Store, error) {
			return &memStore{path: opts.Path}, nil
		},
	})

	s, err := integrations.Open("memory", integrations.WithPath("mem://x"))
	require.NoError(t, err)
	assert.Equal(t, "mem://x", s.(*memStore).path)
	assert.Contains(t, integrations.Drivers(), "memory")

	_, err = integrations.Open("nosuch")
	assert.ErrorContains(t, err, `unsupported database driver "nosuch"`)
}

// =======================
// 3. Arrow conversion
// =======================

func TestReadRows(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int32},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "born", Type: arrow.FixedWidthTypes.Date32},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, 2}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"ann", ""}, []bool{true, false})
	b.Field(2).(*array.Date32Builder).AppendValues([]arrow.Date32{0, 1}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	rr, err := array.NewRecordReader(schema, []arrow.Record{rec})
	require.NoError(t, err)
	defer rr.Release()

	rows, err := integrations.ReadRows(rr)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0][0])
	assert.Equal(t, "ann", rows[0][1])
	assert.Nil(t, rows[1][1])
	assert.Equal(t, "1970-01-02", rows[1][2])
}

func TestBindRecord(t *testing.T) {
	rec, err := integrations.BindRecord(memory.NewGoAllocator(), []any{"x@test.com", 42, nil, 1.5, true})
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(1), rec.NumRows())
	assert.Equal(t, int64(5), rec.NumCols())
	assert.Equal(t, "x@test.com", rec.Column(0).(*array.String).Value(0))
	assert.Equal(t, int64(42), rec.Column(1).(*array.Int64).Value(0))
	assert.True(t, rec.Column(2).IsNull(0))
	assert.Equal(t, 1.5, rec.Column(3).(*array.Float64).Value(0))
	assert.True(t, rec.Column(4).(*array.Boolean).Value(0))

	_, err = integrations.BindRecord(memory.NewGoAllocator(), []any{struct{}{}})
	assert.ErrorContains(t, err, "parameter 1")
}
