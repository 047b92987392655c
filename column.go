package streetnodes

import (
	"fmt"
	"math"
	"strconv"
)

// ColumnKind is physical type of values stored in a column
type ColumnKind uint16

const (
	COLUMN_FLOAT64 = ColumnKind(iota + 1)
	COLUMN_INT64
	COLUMN_STRING
	COLUMN_BOOL
	COLUMN_FLOAT32
	COLUMN_INT32
)

func (iotaIdx ColumnKind) String() string {
	return [...]string{"float64", "int64", "string", "bool", "float32", "int32"}[iotaIdx-1]
}

// Column is a named typed vector of values. Only the slice matching Kind is populated.
// Valid is nil when every value is present.
type Column struct {
	Name     string
	Kind     ColumnKind
	Floats   []float64
	Ints     []int64
	Strings  []string
	Bools    []bool
	Floats32 []float32
	Ints32   []int32
	Valid    []bool
}

func NewFloatColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: COLUMN_FLOAT64, Floats: values}
}

func NewIntColumn(name string, values []int64) Column {
	return Column{Name: name, Kind: COLUMN_INT64, Ints: values}
}

func NewStringColumn(name string, values []string) Column {
	return Column{Name: name, Kind: COLUMN_STRING, Strings: values}
}

// NewNullableStringColumn returns string column where valid[i] == false marks absent value
func NewNullableStringColumn(name string, values []string, valid []bool) Column {
	return Column{Name: name, Kind: COLUMN_STRING, Strings: values, Valid: valid}
}

func NewBoolColumn(name string, values []bool) Column {
	return Column{Name: name, Kind: COLUMN_BOOL, Bools: values}
}

// Len returns number of values in column
func (column Column) Len() int {
	switch column.Kind {
	case COLUMN_FLOAT64:
		return len(column.Floats)
	case COLUMN_INT64:
		return len(column.Ints)
	case COLUMN_STRING:
		return len(column.Strings)
	case COLUMN_BOOL:
		return len(column.Bools)
	case COLUMN_FLOAT32:
		return len(column.Floats32)
	case COLUMN_INT32:
		return len(column.Ints32)
	default:
		return 0
	}
}

// IsNull returns true when i-th value is absent. NaN floats are absent too
func (column Column) IsNull(i int) bool {
	if column.Valid != nil && !column.Valid[i] {
		return true
	}
	switch column.Kind {
	case COLUMN_FLOAT64:
		return math.IsNaN(column.Floats[i])
	case COLUMN_FLOAT32:
		return math.IsNaN(float64(column.Floats32[i]))
	}
	return false
}

// Value returns i-th value boxed into interface{}. Absent values are nil
func (column Column) Value(i int) interface{} {
	if column.IsNull(i) {
		return nil
	}
	switch column.Kind {
	case COLUMN_FLOAT64:
		return column.Floats[i]
	case COLUMN_INT64:
		return column.Ints[i]
	case COLUMN_STRING:
		return column.Strings[i]
	case COLUMN_BOOL:
		return column.Bools[i]
	case COLUMN_FLOAT32:
		return column.Floats32[i]
	case COLUMN_INT32:
		return column.Ints32[i]
	default:
		return nil
	}
}

// filter returns new column with rows where keep[i] is true. Relative order is retained
func (column Column) filter(keep []bool) Column {
	out := Column{Name: column.Name, Kind: column.Kind}
	if column.Valid != nil {
		out.Valid = make([]bool, 0, len(keep))
	}
	for i := range keep {
		if !keep[i] {
			continue
		}
		switch column.Kind {
		case COLUMN_FLOAT64:
			out.Floats = append(out.Floats, column.Floats[i])
		case COLUMN_INT64:
			out.Ints = append(out.Ints, column.Ints[i])
		case COLUMN_STRING:
			out.Strings = append(out.Strings, column.Strings[i])
		case COLUMN_BOOL:
			out.Bools = append(out.Bools, column.Bools[i])
		case COLUMN_FLOAT32:
			out.Floats32 = append(out.Floats32, column.Floats32[i])
		case COLUMN_INT32:
			out.Ints32 = append(out.Ints32, column.Ints32[i])
		}
		if column.Valid != nil {
			out.Valid = append(out.Valid, column.Valid[i])
		}
	}
	return out
}

// valueString formats boxed column value
func valueString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
