// Package datamatrix provides tabular columns whose cells are fixed-shape
// float64 arrays (a time series per row, a 2-D field per row) with
// transparent paging of column storage between memory and memory-mapped
// temporary files under a process-wide least-recently-used policy.
//
// A column's full shape is (rows,) + cell dims; the row count is always the
// implicit first dimension and is owned by the host table. Non-row dimensions
// may carry name tables so positions can be addressed as "x"/"y" instead of
// 0/1.
//
// # Quick start
//
//	import (
//	    "github.com/robbertmijn/datamatrix/pkg/indexing"
//	    "github.com/robbertmijn/datamatrix/pkg/multidim"
//	    "github.com/robbertmijn/datamatrix/pkg/shape"
//	    "github.com/robbertmijn/datamatrix/pkg/table"
//	)
//
//	tbl := table.New(100)
//	spec, _ := shape.New(shape.Named("x", "y"), shape.Sized(4))
//	col, _ := multidim.New(tbl, spec)
//	defer col.Close()
//
//	// cell [row=0, "y", 1] = 3.5
//	_ = col.Set(3.5, indexing.At(0), indexing.Name("y"), indexing.At(1))
//
//	sel, _ := col.At(indexing.At(0), indexing.Name("y"), indexing.At(1))
//	v := sel.Scalar()
//	_ = v
//
// # Paging
//
// Every access touches a process-wide recency registry. When system memory
// runs low (below an absolute floor or a relative fraction of total, both
// configurable), least-recently-used columns are paged out to temporary files
// in the working directory and paged back in on their next touch. Paging is
// advisory and driven by point-in-time statistics from gopsutil; the touched
// column itself is never paged out by its own touch.
//
// # Key packages
//
//	pkg/table    - minimal host table: row identities, column registry, change hook
//	pkg/shape    - cell shapes with per-dimension name tables
//	pkg/multidim - the multi-dimensional column: selection, assignment, arithmetic, reductions
//	pkg/indexing - index expressions with outer-product semantics
//	pkg/storage  - dense and memory-mapped float64 buffers
//	pkg/paging   - the LRU pager and its memory prober
//	pkg/formats  - Arrow IPC stream interchange for downstream consumers
//	pkg/config   - YAML configuration (paging floors, temp dir, print bounds)
//
// # Concurrency
//
// Columns and the pager assume single-goroutine ownership and do not lock
// internally; callers sharing them across goroutines must serialize access
// themselves.
package datamatrix

// Version is the library version, overridable at link time.
var Version = "dev"
