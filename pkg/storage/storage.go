// Package storage provides the two interchangeable float64 backends behind a
// column: a dense in-memory slice and a memory-mapped temporary file. Both
// expose the same flat row-major value slice, so reads, writes, and
// gather/scatter never care which backend is live. Moving between backends
// goes through Convert, the single explicit transition.
package storage

import (
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/mmap"
)

// Kind identifies a storage backend.
type Kind int

const (
	// KindDense keeps values in one heap-allocated slice.
	KindDense Kind = iota
	// KindMapped keeps values in a memory-mapped temporary file.
	KindMapped
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindMapped:
		return "mapped"
	}
	return "unknown"
}

// Buffer is a flat row-major float64 store.
type Buffer interface {
	// Values returns the full backing slice. The slice is invalidated by
	// Grow and Close.
	Values() []float64
	// Len returns the number of float64 values.
	Len() int
	// Kind identifies the live backend.
	Kind() Kind
	// Grow extends the buffer to newLen values, filling the new space with
	// fill. Existing contents are preserved bit-exactly. newLen below the
	// current length is an error.
	Grow(newLen int, fill float64) error
	// Close releases the backend. Mapped buffers remove their page file.
	// Close is idempotent.
	Close() error
}

// NewDense allocates an in-memory buffer of n values, fill-initialized.
func NewDense(n int, fill float64) Buffer {
	values := make([]float64, n)
	if fill != 0 {
		for i := range values {
			values[i] = fill
		}
	}
	return &denseBuffer{values: values}
}

// Adopt wraps an existing slice as a dense buffer without copying. The
// caller hands over ownership.
func Adopt(values []float64) Buffer {
	return &denseBuffer{values: values}
}

// NewMapped creates a buffer of n values backed by a temporary page file in
// dir, fill-initialized.
func NewMapped(dir string, n int, fill float64) (Buffer, error) {
	m, err := mmap.Create(dir, int64(n)*8)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create mapped buffer")
	}
	if fill != 0 {
		for i, values := 0, m.Float64s(); i < len(values); i++ {
			values[i] = fill
		}
	}
	return &mappedBuffer{m: m, n: n}, nil
}

// Convert moves b's contents to the given backend and closes b. Converting
// to the current kind returns b unchanged. All fallible allocation happens
// before the source is touched, so on error the source is intact and still
// usable; the caller swaps buffers only on success.
func Convert(b Buffer, to Kind, dir string) (Buffer, error) {
	if b.Kind() == to {
		return b, nil
	}

	var dst Buffer
	switch to {
	case KindDense:
		dst = NewDense(b.Len(), 0)
	case KindMapped:
		var err error
		dst, err = NewMapped(dir, b.Len(), 0)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "unknown storage kind %d", to)
	}

	copy(dst.Values(), b.Values())
	// The data is safe in dst; a source teardown failure changes nothing.
	_ = b.Close()
	return dst, nil
}

type denseBuffer struct {
	values []float64
	closed bool
}

func (b *denseBuffer) Values() []float64 { return b.values }
func (b *denseBuffer) Len() int          { return len(b.values) }
func (b *denseBuffer) Kind() Kind        { return KindDense }

func (b *denseBuffer) Grow(newLen int, fill float64) error {
	if b.closed {
		return errors.New(errors.ErrorTypeConfig, "buffer is closed")
	}
	if newLen < len(b.values) {
		return errors.Newf(errors.ErrorTypeInternal,
			"cannot grow from %d to %d values", len(b.values), newLen)
	}
	grown := make([]float64, newLen)
	copy(grown, b.values)
	for i := len(b.values); i < newLen; i++ {
		grown[i] = fill
	}
	b.values = grown
	return nil
}

func (b *denseBuffer) Close() error {
	b.values = nil
	b.closed = true
	return nil
}

type mappedBuffer struct {
	m *mmap.Map
	n int
}

func (b *mappedBuffer) Values() []float64 {
	if b.m == nil {
		return nil
	}
	return b.m.Float64s()
}

func (b *mappedBuffer) Len() int   { return b.n }
func (b *mappedBuffer) Kind() Kind { return KindMapped }

func (b *mappedBuffer) Grow(newLen int, fill float64) error {
	if b.m == nil {
		return errors.New(errors.ErrorTypeConfig, "buffer is closed")
	}
	if newLen < b.n {
		return errors.Newf(errors.ErrorTypeInternal,
			"cannot grow from %d to %d values", b.n, newLen)
	}
	if err := b.m.Resize(int64(newLen) * 8); err != nil {
		// Resize failure tears down the mapping and the page file.
		b.m = nil
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to grow mapped buffer")
	}
	values := b.m.Float64s()
	if fill != 0 {
		for i := b.n; i < newLen; i++ {
			values[i] = fill
		}
	}
	b.n = newLen
	return nil
}

func (b *mappedBuffer) Close() error {
	if b.m == nil {
		return nil
	}
	err := b.m.Close()
	b.m = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close mapped buffer")
	}
	return nil
}
