// Package pool provides unified object pooling for datamatrix. It offers a
// generic type-safe Pool[T] wrapping sync.Pool with statistics, plus global
// pools for the numeric scratch slices the selection and reduction paths
// churn through.
//
// Example usage:
//
//	scratch := pool.GetFloat64Slice(col.Rows())
//	defer pool.PutFloat64Slice(scratch)
//
//	// Using custom pools
//	myPool := pool.New(
//	    func() *MyType { return &MyType{} },
//	    func(obj *MyType) { obj.Reset() },
//	)
//	obj := myPool.Get()
//	defer myPool.Put(obj)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with additional features like statistics tracking
// and automatic reset functionality. The pool is safe for concurrent use.
//
// Type parameter T can be any type, but pointer types are recommended
// for efficiency. The pool maintains statistics on allocations, usage,
// and hit/miss rates for monitoring and optimization.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
		misses    int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is needed.
// The reset function is called before returning an object to the pool, allowing
// for efficient cleanup and reuse.
//
// Example:
//
//	pool := New(
//	    func() *Buffer { return &Buffer{data: make([]byte, 0, 1024)} },
//	    func(b *Buffer) { b.data = b.data[:0] },
//	)
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool. If the pool is empty, it creates
// a new object using the factory function provided in New. The method is
// safe for concurrent use and updates pool statistics.
//
// The returned object should be returned to the pool using Put when no
// longer needed to enable reuse and reduce allocations.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse. If a reset function was
// provided during pool creation, it is called to clean up the object
// before returning it to the pool. The method is safe for concurrent use.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics including allocation count,
// objects currently in use, cache hits, and cache misses. These metrics
// are useful for monitoring pool efficiency and tuning performance.
func (p *Pool[T]) Stats() (allocated, inUse, hits, misses int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits),
		atomic.LoadInt64(&p.stats.misses)
}

// Global pools for the numeric scratch slices used by selection gathers,
// assignment staging, and per-position reductions.
var (
	// Float64SlicePool provides pooling for []float64 scratch slices.
	Float64SlicePool = New(
		func() []float64 {
			return make([]float64, 0, 1024)
		},
		func(s []float64) {
			// Length reset happens on Get
		},
	)

	// IntSlicePool provides pooling for []int scratch slices used for
	// odometer counters and flat offsets.
	IntSlicePool = New(
		func() []int {
			return make([]int, 0, 64)
		},
		func(s []int) {
			// Length reset happens on Get
		},
	)
)

// GetFloat64Slice retrieves a zeroed float64 slice of length n from the
// global pool. If the pooled slice is too small a larger one is allocated.
// Return it with PutFloat64Slice when done.
func GetFloat64Slice(n int) []float64 {
	s := Float64SlicePool.Get()
	if cap(s) < n {
		s = make([]float64, n)
		return s
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}

// PutFloat64Slice returns a float64 slice to the global pool for reuse.
// Safe to call with nil.
func PutFloat64Slice(s []float64) {
	if s != nil {
		Float64SlicePool.Put(s[:0])
	}
}

// GetIntSlice retrieves a zeroed int slice of length n from the global pool.
func GetIntSlice(n int) []int {
	s := IntSlicePool.Get()
	if cap(s) < n {
		s = make([]int, n)
		return s
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}

// PutIntSlice returns an int slice to the global pool for reuse.
// Safe to call with nil.
func PutIntSlice(s []int) {
	if s != nil {
		IntSlicePool.Put(s[:0])
	}
}

// Stats represents pool statistics for monitoring and optimization.
type Stats struct {
	// Allocated is the total number of objects created by the pool
	Allocated int64
	// InUse is the current number of objects checked out from the pool
	InUse int64
	// Hits is the number of successful pool retrievals
	Hits int64
	// Misses is the number of times a new object had to be created
	Misses int64
}

// GetGlobalStats returns statistics for the global scratch pools, keyed by
// pool name ("float64_slice", "int_slice").
func GetGlobalStats() map[string]Stats {
	fAlloc, fInUse, fHits, fMisses := Float64SlicePool.Stats()
	iAlloc, iInUse, iHits, iMisses := IntSlicePool.Stats()

	return map[string]Stats{
		"float64_slice": {
			Allocated: fAlloc,
			InUse:     fInUse,
			Hits:      fHits,
			Misses:    fMisses,
		},
		"int_slice": {
			Allocated: iAlloc,
			InUse:     iInUse,
			Hits:      iHits,
			Misses:    iMisses,
		},
	}
}
