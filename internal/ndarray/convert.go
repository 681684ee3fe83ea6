package ndarray

import (
	"math"
	"reflect"

	"github.com/robbertmijn/datamatrix/pkg/errors"
)

// AsScalar converts a single numeric value to float64. The second return is
// false when v is not a numeric scalar.
func AsScalar(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case nil:
		return math.NaN(), true
	}
	return 0, false
}

// FromAny flattens a numeric scalar or (nested) slice into row-major values
// plus its dimension list. Scalars flatten to one value with nil dims. Ragged
// nesting and non-numeric leaves return a type error.
func FromAny(v any) ([]float64, []int, error) {
	if f, ok := AsScalar(v); ok {
		return []float64{f}, nil, nil
	}
	if flat, ok := v.([]float64); ok {
		return Clone(flat), []int{len(flat)}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, nil, errors.Newf(errors.ErrorTypeType,
			"cannot convert %T to a float64 array", v)
	}

	dims := probeDims(rv)
	vals := make([]float64, 0, Size(dims))
	vals, err := flatten(rv, dims, 0, vals)
	if err != nil {
		return nil, nil, err
	}
	return vals, dims, nil
}

// probeDims walks first elements to discover the nesting depth and per-level
// lengths. Rectangularity is enforced later by flatten.
func probeDims(rv reflect.Value) []int {
	var dims []int
	for rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		dims = append(dims, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
		for rv.Kind() == reflect.Interface {
			rv = rv.Elem()
		}
	}
	return dims
}

func flatten(rv reflect.Value, dims []int, depth int, out []float64) ([]float64, error) {
	for rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}

	if depth == len(dims) {
		f, err := leafFloat(rv)
		if err != nil {
			return nil, err
		}
		return append(out, f), nil
	}

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Newf(errors.ErrorTypeType,
			"ragged nested sequence: expected depth %d, found %s at depth %d",
			len(dims), rv.Kind(), depth)
	}
	if rv.Len() != dims[depth] {
		return nil, errors.Newf(errors.ErrorTypeType,
			"ragged nested sequence: expected length %d at depth %d, got %d",
			dims[depth], depth, rv.Len())
	}

	var err error
	for i := 0; i < rv.Len(); i++ {
		out, err = flatten(rv.Index(i), dims, depth+1, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func leafFloat(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Invalid:
		// Untyped nil inside an []any nest.
		return math.NaN(), nil
	}
	return 0, errors.Newf(errors.ErrorTypeType,
		"cannot convert %s to float64", rv.Kind())
}
