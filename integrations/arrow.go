package integrations

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/masquerade/pkg/core"
)

// ReadRows drains rr into rows. Values are converted to plain Go values;
// types without a direct mapping use their string form.
func ReadRows(rr array.RecordReader) ([]core.Row, error) {
	var rows []core.Row
	for rr.Next() {
		rec := rr.Record()
		numCols := int(rec.NumCols())
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(core.Row, numCols)
			for j := 0; j < numCols; j++ {
				row[j] = value(rec.Column(j), i)
			}
			rows = append(rows, row)
		}
	}
	if err := rr.Err(); err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	return rows, nil
}

func value(col arrow.Array, idx int) any {
	if col.IsNull(idx) {
		return nil
	}

	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(idx)
	case *array.Float32:
		return float64(arr.Value(idx))
	case *array.Float64:
		return arr.Value(idx)
	case *array.Int8:
		return int64(arr.Value(idx))
	case *array.Int16:
		return int64(arr.Value(idx))
	case *array.Int32:
		return int64(arr.Value(idx))
	case *array.Int64:
		return arr.Value(idx)
	case *array.Uint8:
		return int64(arr.Value(idx))
	case *array.Uint16:
		return int64(arr.Value(idx))
	case *array.Uint32:
		return int64(arr.Value(idx))
	case *array.Uint64:
		return arr.Value(idx)
	case *array.String:
		return arr.Value(idx)
	case *array.LargeString:
		return arr.Value(idx)
	case *array.Binary:
		return string(arr.Value(idx))
	default:
		return col.ValueStr(idx)
	}
}

// BindRecord builds the one-row record ADBC statements bind as positional
// parameters. The caller releases it.
func BindRecord(mem memory.Allocator, args []any) (arrow.Record, error) {
	fields := make([]arrow.Field, len(args))
	for i, a := range args {
		typ, err := arrowType(a)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		fields[i] = arrow.Field{Name: fmt.Sprintf("p%d", i+1), Type: typ, Nullable: true}
	}

	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()
	for i, a := range args {
		switch fb := b.Field(i).(type) {
		case *array.NullBuilder:
			fb.AppendNull()
		case *array.StringBuilder:
			switch v := a.(type) {
			case time.Time:
				fb.Append(v.UTC().Format(time.RFC3339Nano))
			default:
				fb.Append(core.ValueString(a))
			}
		case *array.Int64Builder:
			fb.Append(toInt64(a))
		case *array.Uint64Builder:
			fb.Append(a.(uint64))
		case *array.Float64Builder:
			switch v := a.(type) {
			case float32:
				fb.Append(float64(v))
			default:
				fb.Append(v.(float64))
			}
		case *array.BooleanBuilder:
			fb.Append(a.(bool))
		case *array.BinaryBuilder:
			fb.Append(a.([]byte))
		}
	}
	return b.NewRecord(), nil
}

func arrowType(a any) (arrow.DataType, error) {
	switch a.(type) {
	case nil:
		return arrow.Null, nil
	case string, time.Time:
		return arrow.BinaryTypes.String, nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return arrow.PrimitiveTypes.Int64, nil
	case uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case float32, float64:
		return arrow.PrimitiveTypes.Float64, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case []byte:
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", a)
	}
}

func toInt64(a any) int64 {
	switch v := a.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	}
	return 0
}
