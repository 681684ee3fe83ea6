package multidim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robbertmijn/datamatrix/pkg/config"
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/indexing"
	"github.com/robbertmijn/datamatrix/pkg/paging"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/table"
	"github.com/robbertmijn/datamatrix/pkg/testutil"
)

func mustSpec(t *testing.T, dims ...shape.Dim) shape.Spec {
	t.Helper()
	spec, err := shape.New(dims...)
	require.NoError(t, err)
	return spec
}

// newTableColumn builds a column over a fresh table, cleaned up with the
// test. The default cell shape is ((x, y), 4).
func newTableColumn(t *testing.T, rows int, dims ...shape.Dim) (*table.Table, *Column) {
	t.Helper()
	if len(dims) == 0 {
		dims = []shape.Dim{shape.Named("x", "y"), shape.Sized(4)}
	}
	tbl := table.New(rows)
	c, err := New(tbl, mustSpec(t, dims...),
		WithPager(testutil.PlentyPager()), WithConfig(testutil.Config(t)))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		_ = tbl.Close()
	})
	return tbl, c
}

func newTestColumn(t *testing.T, rows int, dims ...shape.Dim) *Column {
	t.Helper()
	_, c := newTableColumn(t, rows, dims...)
	return c
}

// fillSequential writes 0..n-1 into the backing storage.
func fillSequential(c *Column) {
	for i, vals := 0, c.values(); i < len(vals); i++ {
		vals[i] = float64(i)
	}
}

func TestNew(t *testing.T) {
	t.Run("fills with NaN by default", func(t *testing.T) {
		c := newTestColumn(t, 3)
		for _, v := range c.values() {
			assert.True(t, math.IsNaN(v))
		}
		assert.True(t, c.Loaded())
	})

	t.Run("zero fill", func(t *testing.T) {
		tbl := table.New(2)
		c, err := New(tbl, mustSpec(t, shape.Sized(3)),
			WithZeroFill(), WithPager(testutil.PlentyPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		defer c.Close()
		for _, v := range c.values() {
			assert.Equal(t, 0.0, v)
		}
	})

	t.Run("tight memory starts mapped", func(t *testing.T) {
		tbl := table.New(2)
		c, err := New(tbl, mustSpec(t, shape.Sized(3)),
			WithPager(testutil.TightPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		defer c.Close()
		assert.False(t, c.Loaded())
		for _, v := range c.values() {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("pinned backend skips the probe", func(t *testing.T) {
		tbl := table.New(2)
		c, err := New(tbl, mustSpec(t, shape.Sized(3)),
			WithLoaded(true), WithPager(testutil.TightPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		defer c.Close()
		assert.True(t, c.Loaded())
	})

	t.Run("probe failure is fatal", func(t *testing.T) {
		broken := paging.New(config.New().Paging,
			paging.WithProber(func() (paging.MemStats, error) {
				return paging.MemStats{}, errors.New(errors.ErrorTypeIO, "no procfs")
			}),
			paging.WithLogger(zap.NewNop()))
		_, err := New(table.New(2), mustSpec(t, shape.Sized(3)),
			WithPager(broken), WithConfig(testutil.Config(t)))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("disabled paging never probes", func(t *testing.T) {
		broken := paging.New(config.PagingConfig{Disabled: true, TempDir: "."},
			paging.WithProber(func() (paging.MemStats, error) {
				return paging.MemStats{}, errors.New(errors.ErrorTypeIO, "no procfs")
			}),
			paging.WithLogger(zap.NewNop()))
		cfg := testutil.Config(t)
		cfg.Paging.Disabled = true
		c, err := New(table.New(2), mustSpec(t, shape.Sized(3)),
			WithPager(broken), WithConfig(cfg))
		require.NoError(t, err)
		defer c.Close()
		assert.True(t, c.Loaded())
	})
}

func TestAccessors(t *testing.T) {
	tbl, c := newTableColumn(t, 3)

	assert.Equal(t, 3, c.Rows())
	assert.Equal(t, []int{3, 2, 4}, c.Dims())
	assert.Equal(t, []int{2, 4}, c.Shape().Dims())
	assert.Equal(t, tbl.RowIDs(), c.RowIDs())
	assert.Equal(t, int64(3*8*8), c.SizeBytes())
}

func TestCell(t *testing.T) {
	c := newTestColumn(t, 3)
	fillSequential(c)

	cell, err := c.Cell(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 9, 10, 11, 12, 13, 14, 15}, cell)

	// The cell is a copy.
	cell[0] = -1
	again, err := c.Cell(1)
	require.NoError(t, err)
	assert.Equal(t, 8.0, again[0])

	_, err = c.Cell(3)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIndex))
	_, err = c.Cell(-1)
	require.Error(t, err)
}

func TestExtendRowsThroughTable(t *testing.T) {
	t.Run("new rows fill with NaN", func(t *testing.T) {
		tbl, c := newTableColumn(t, 2)
		fillSequential(c)
		require.NoError(t, tbl.Attach("traces", c))

		ids, err := tbl.Append(2)
		require.NoError(t, err)
		assert.Equal(t, []table.RowID{2, 3}, ids)
		assert.Equal(t, 4, c.Rows())
		assert.Equal(t, []int{4, 2, 4}, c.Dims())

		// Old values survive, new rows are NaN.
		cell, err := c.Cell(1)
		require.NoError(t, err)
		assert.Equal(t, []float64{8, 9, 10, 11, 12, 13, 14, 15}, cell)
		cell, err = c.Cell(3)
		require.NoError(t, err)
		for _, v := range cell {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("zero-fill columns extend with zeros", func(t *testing.T) {
		tbl := table.New(1)
		c, err := New(tbl, mustSpec(t, shape.Sized(2)),
			WithZeroFill(), WithPager(testutil.PlentyPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		defer c.Close()
		require.NoError(t, tbl.Attach("pair", c))

		_, err = tbl.Append(1)
		require.NoError(t, err)
		cell, err := c.Cell(1)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0}, cell)
	})

	t.Run("mapped columns grow their page file", func(t *testing.T) {
		tbl := table.New(2)
		c, err := New(tbl, mustSpec(t, shape.Sized(3)),
			WithLoaded(false), WithPager(testutil.PlentyPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		defer c.Close()
		fillSequential(c)

		require.NoError(t, c.ExtendRows([]table.RowID{2}))
		assert.False(t, c.Loaded())
		assert.Equal(t, 3, c.Rows())
		cell, err := c.Cell(0)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1, 2}, cell)
	})
}

func TestSetLoadedRoundTrip(t *testing.T) {
	c := newTestColumn(t, 3)
	fillSequential(c)

	// Values that must survive the page file bit-exactly.
	vals := c.values()
	vals[0] = math.NaN()
	vals[1] = math.Inf(1)
	vals[2] = math.Inf(-1)
	vals[3] = math.Copysign(0, -1)
	want := make([]float64, len(vals))
	copy(want, vals)

	require.NoError(t, c.SetLoaded(false))
	assert.False(t, c.Loaded())
	require.NoError(t, c.SetLoaded(true))
	assert.True(t, c.Loaded())

	got := c.values()
	for i := range want {
		assert.Equal(t, math.Float64bits(want[i]), math.Float64bits(got[i]),
			"value %d", i)
	}
}

func TestSetLoadedSameStateIsNoOp(t *testing.T) {
	c := newTestColumn(t, 2)
	require.NoError(t, c.SetLoaded(true))
	assert.True(t, c.Loaded())
}

func TestPagingUnderPressure(t *testing.T) {
	// Two 1024-byte columns, 4096 bytes of simulated memory, and a floor
	// that admits only one of them at a time.
	var c1, c2 *Column
	loadedBytes := func() uint64 {
		var n uint64
		for _, c := range []*Column{c1, c2} {
			if c != nil && c.Loaded() {
				n += uint64(c.SizeBytes())
			}
		}
		return n
	}
	pager := paging.New(
		config.PagingConfig{MinFreeBytes: 2500, MinFreeFraction: 0.9, TempDir: "."},
		paging.WithProber(func() (paging.MemStats, error) {
			return paging.MemStats{Available: 4096 - loadedBytes(), Total: 4096}, nil
		}),
		paging.WithLogger(testutil.Logger(t)))

	tbl := table.New(16)
	var err error
	c1, err = New(tbl, mustSpec(t, shape.Sized(8)),
		WithLoaded(true), WithPager(pager), WithConfig(testutil.Config(t)))
	require.NoError(t, err)
	defer c1.Close()
	c2, err = New(tbl, mustSpec(t, shape.Sized(8)),
		WithLoaded(true), WithPager(pager), WithConfig(testutil.Config(t)))
	require.NoError(t, err)
	defer c2.Close()

	require.Equal(t, int64(1024), c1.SizeBytes())
	assert.True(t, c1.Loaded())
	assert.True(t, c2.Loaded())

	// Touching c1 under pressure pages out c2, never c1 itself.
	require.NoError(t, c1.Touch())
	assert.True(t, c1.Loaded())
	assert.False(t, c2.Loaded())

	// Touching c2 displaces c1 and pages c2 back in.
	require.NoError(t, c2.Touch())
	assert.False(t, c1.Loaded())
	assert.True(t, c2.Loaded())

	// Reads touch too: selecting from c1 swaps residency again.
	fillSequential(c1)
	sel, err := c1.At(indexing.At(0), indexing.At(0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, sel.Scalar())
	assert.True(t, c1.Loaded())
	assert.False(t, c2.Loaded())
}

func TestSetDepth(t *testing.T) {
	newDepthColumn := func(t *testing.T, loaded bool) *Column {
		tbl := table.New(2)
		c, err := New(tbl, mustSpec(t, shape.Sized(3)),
			WithLoaded(loaded), WithPager(testutil.PlentyPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		fillSequential(c)
		return c
	}

	t.Run("growing pads each row with fill", func(t *testing.T) {
		c := newDepthColumn(t, true)
		require.NoError(t, c.SetDepth(5))

		d, err := c.Depth()
		require.NoError(t, err)
		assert.Equal(t, 5, d)

		cell, err := c.Cell(0)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1, 2}, cell[:3])
		assert.True(t, math.IsNaN(cell[3]))
		assert.True(t, math.IsNaN(cell[4]))

		cell, err = c.Cell(1)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4, 5}, cell[:3])
		assert.True(t, math.IsNaN(cell[3]))
	})

	t.Run("shrinking truncates each row", func(t *testing.T) {
		c := newDepthColumn(t, true)
		require.NoError(t, c.SetDepth(2))

		cell, err := c.Cell(0)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1}, cell)
		cell, err = c.Cell(1)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4}, cell)
	})

	t.Run("same depth is a no-op", func(t *testing.T) {
		c := newDepthColumn(t, true)
		require.NoError(t, c.SetDepth(3))
		cell, err := c.Cell(0)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1, 2}, cell)
	})

	t.Run("mapped columns stay mapped", func(t *testing.T) {
		c := newDepthColumn(t, false)
		require.NoError(t, c.SetDepth(4))
		assert.False(t, c.Loaded())
		cell, err := c.Cell(1)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4, 5}, cell[:3])
		assert.True(t, math.IsNaN(cell[3]))
	})

	t.Run("multiple cell dimensions have no depth", func(t *testing.T) {
		c := newTestColumn(t, 2) // ((x, y), 4)
		err := c.SetDepth(5)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		_, err = c.Depth()
		require.Error(t, err)
	})

	t.Run("depth drops the name table", func(t *testing.T) {
		tbl := table.New(2)
		c, err := New(tbl, mustSpec(t, shape.Named("a", "b")),
			WithPager(testutil.PlentyPager()), WithConfig(testutil.Config(t)))
		require.NoError(t, err)
		defer c.Close()

		require.NoError(t, c.SetDepth(3))
		assert.Nil(t, c.Shape().Names(0))
	})
}

func TestClose(t *testing.T) {
	pager := testutil.PlentyPager()
	tbl := table.New(2)
	c, err := New(tbl, mustSpec(t, shape.Sized(3)),
		WithPager(pager), WithConfig(testutil.Config(t)))
	require.NoError(t, err)

	assert.Equal(t, 1, pager.Live())
	require.NoError(t, c.Close())
	assert.Equal(t, 0, pager.Live())
	require.NoError(t, c.Close())

	_, err = c.Cell(0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	err = c.Touch()
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	err = c.SetLoaded(false)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	_, err = c.At(indexing.At(0))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	err = c.Set(1.0, indexing.At(0))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	_, err = c.Mean()
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRowIter(t *testing.T) {
	c := newTestColumn(t, 3, shape.Sized(2))
	fillSequential(c)

	var ids []table.RowID
	var cells [][]float64
	it := c.RowIter()
	for it.Next() {
		ids = append(ids, it.RowID())
		cells = append(cells, it.Cell())
	}
	assert.Equal(t, []table.RowID{0, 1, 2}, ids)
	assert.Equal(t, [][]float64{{0, 1}, {2, 3}, {4, 5}}, cells)
	assert.False(t, it.Next())
}
