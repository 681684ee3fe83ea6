// Package multidim implements a table column whose cells are float64 arrays
// of a fixed shape. The full column shape is (rows,)+dims, with the row count
// owned by the host table. Storage lives either densely in memory or in a
// memory-mapped temporary file; a process-wide recency policy moves cold
// columns to disk and hot ones back, transparently to every operation.
//
// Columns are not safe for concurrent use.
package multidim

import (
	"math"

	"go.uber.org/zap"

	"github.com/robbertmijn/datamatrix/pkg/config"
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/logger"
	"github.com/robbertmijn/datamatrix/pkg/metrics"
	"github.com/robbertmijn/datamatrix/pkg/paging"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/storage"
	"github.com/robbertmijn/datamatrix/pkg/table"
)

// Column is a multi-dimensional float64 column.
type Column struct {
	host   *table.Table
	rowids []table.RowID
	spec   shape.Spec
	buf    storage.Buffer
	fill   float64

	pager  *paging.Pager
	ticket paging.Ticket
	cfg    *config.Config
	log    *zap.Logger
	closed bool
}

type options struct {
	zeroFill bool
	loaded   *bool
	pager    *paging.Pager
	cfg      *config.Config
}

// Option configures column construction.
type Option func(*options)

// WithZeroFill initializes new cells with 0 instead of NaN.
func WithZeroFill() Option {
	return func(o *options) { o.zeroFill = true }
}

// WithLoaded pins the initial backend: true allocates dense storage, false a
// mapped page file. Without it, one memory probe decides.
func WithLoaded(loaded bool) Option {
	return func(o *options) { o.loaded = &loaded }
}

// WithPager attaches the column to a specific pager instead of the
// process-wide one.
func WithPager(p *paging.Pager) Option {
	return func(o *options) { o.pager = p }
}

// WithConfig overrides the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// New creates a column spanning t's current rows, every cell filled with NaN
// (or 0 under WithZeroFill). The column is registered with the pager and
// touched once; attach it to the table to receive row growth.
func New(t *table.Table, spec shape.Spec, opts ...Option) (*Column, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.New()
	}
	if o.pager == nil {
		o.pager = paging.Default()
	}

	c := &Column{
		host:   t,
		rowids: t.RowIDs(),
		spec:   spec,
		fill:   math.NaN(),
		pager:  o.pager,
		cfg:    o.cfg,
		log:    logger.Named("column"),
	}
	if o.zeroFill {
		c.fill = 0
	}

	loaded, err := c.initialLoaded(o.loaded)
	if err != nil {
		return nil, err
	}

	n := len(c.rowids) * spec.CellLen()
	if loaded {
		c.buf = storage.NewDense(n, c.fill)
		metrics.ColumnLoads.WithLabelValues("construct").Inc()
		metrics.ResidentBytes.Add(float64(c.SizeBytes()))
	} else {
		buf, err := storage.NewMapped(o.cfg.Paging.TempDir, n, c.fill)
		if err != nil {
			return nil, err
		}
		c.buf = buf
		metrics.ColumnUnloads.WithLabelValues("construct").Inc()
	}

	c.ticket = c.pager.Register(c)
	if err := c.pager.Touch(c.ticket); err != nil {
		c.pager.Release(c.ticket)
		_ = c.buf.Close()
		return nil, err
	}
	return c, nil
}

// initialLoaded resolves the policy-deferred backend choice. A failing
// memory probe at construction is fatal: the paging capability is a
// construction prerequisite.
func (c *Column) initialLoaded(pinned *bool) (bool, error) {
	if pinned != nil {
		return *pinned, nil
	}
	if c.cfg.Paging.Disabled {
		return true, nil
	}
	ok, err := c.pager.Sufficient(c.SizeBytes())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeConfig,
			"memory probe failed at column construction")
	}
	return ok, nil
}

// newDerived builds a column over an existing value slice: selection,
// arithmetic, and cell-map results. The values are adopted as dense storage
// and the column joins the pager like any other.
func newDerived(src *Column, spec shape.Spec, rowids []table.RowID, values []float64) (*Column, error) {
	c := &Column{
		host:   src.host,
		rowids: rowids,
		spec:   spec,
		buf:    storage.Adopt(values),
		fill:   src.fill,
		pager:  src.pager,
		cfg:    src.cfg,
		log:    src.log,
	}

	metrics.ColumnLoads.WithLabelValues("construct").Inc()
	metrics.ResidentBytes.Add(float64(c.SizeBytes()))

	c.ticket = c.pager.Register(c)
	if err := c.pager.Touch(c.ticket); err != nil {
		c.pager.Release(c.ticket)
		_ = c.buf.Close()
		return nil, err
	}
	return c, nil
}

// guard returns a config error when the column is closed.
func (c *Column) guard() error {
	if c.closed {
		return errors.New(errors.ErrorTypeConfig, "column is closed")
	}
	return nil
}

// Shape returns the cell dimension spec.
func (c *Column) Shape() shape.Spec { return c.spec }

// Rows returns the number of rows.
func (c *Column) Rows() int { return len(c.rowids) }

// Dims returns the full shape, rows first.
func (c *Column) Dims() []int {
	return append([]int{len(c.rowids)}, c.spec.Dims()...)
}

// RowIDs returns a copy of the column's row identities.
func (c *Column) RowIDs() []table.RowID {
	out := make([]table.RowID, len(c.rowids))
	copy(out, c.rowids)
	return out
}

// SizeBytes returns the fully materialized size: 8 bytes per value.
func (c *Column) SizeBytes() int64 {
	return int64(len(c.rowids)) * int64(c.spec.CellLen()) * 8
}

// Loaded reports whether storage is currently dense.
func (c *Column) Loaded() bool {
	return c.buf.Kind() == storage.KindDense
}

// PageIn moves storage from mapped to dense. Pager-driven.
func (c *Column) PageIn() error { return c.convert(storage.KindDense) }

// PageOut moves storage from dense to mapped. Pager-driven.
func (c *Column) PageOut() error { return c.convert(storage.KindMapped) }

func (c *Column) convert(to storage.Kind) error {
	buf, err := storage.Convert(c.buf, to, c.cfg.Paging.TempDir)
	if err != nil {
		return err
	}
	c.buf = buf
	return nil
}

// SetLoaded forces the backend: true pages in, false pages out. It
// overrides the automatic policy but does not exempt the column from it.
func (c *Column) SetLoaded(loaded bool) error {
	if err := c.guard(); err != nil {
		return err
	}
	if loaded == c.Loaded() {
		return nil
	}

	to := storage.KindMapped
	verb := "unloading"
	if loaded {
		to = storage.KindDense
		verb = "loading"
	}
	c.log.Debug(verb+" column", zap.Int64("bytes", c.SizeBytes()))

	if err := c.convert(to); err != nil {
		return err
	}
	size := float64(c.SizeBytes())
	if loaded {
		metrics.ColumnLoads.WithLabelValues("manual").Inc()
		metrics.PagedInBytes.Add(size)
		metrics.ResidentBytes.Add(size)
	} else {
		metrics.ColumnUnloads.WithLabelValues("manual").Inc()
		metrics.PagedOutBytes.Add(size)
		metrics.ResidentBytes.Sub(size)
	}
	return nil
}

// Touch marks the column as most recently used, letting the pager page it
// in or page cold columns out.
func (c *Column) Touch() error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.pager.Touch(c.ticket)
}

// ExtendRows grows the column by len(ids) rows, fill-initialized. The host
// table calls this when rows are appended.
func (c *Column) ExtendRows(ids []table.RowID) error {
	if err := c.guard(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	newLen := (len(c.rowids) + len(ids)) * c.spec.CellLen()
	if err := c.buf.Grow(newLen, c.fill); err != nil {
		return err
	}
	if c.Loaded() {
		metrics.ResidentBytes.Add(float64(len(ids) * c.spec.CellLen() * 8))
	}
	c.rowids = append(c.rowids, ids...)
	return nil
}

// Cell returns a copy of row i's cell values, row-major.
func (c *Column) Cell(i int) ([]float64, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.rowids) {
		return nil, errors.Newf(errors.ErrorTypeIndex,
			"row %d out of range for %d rows", i, len(c.rowids))
	}
	cellLen := c.spec.CellLen()
	out := make([]float64, cellLen)
	copy(out, c.buf.Values()[i*cellLen:(i+1)*cellLen])
	return out, nil
}

// Depth returns the size of the single non-row dimension.
func (c *Column) Depth() (int, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}
	return c.spec.Depth()
}

// SetDepth resizes the single non-row dimension: shrinking truncates every
// row, growing pads new positions with the fill value. Columns with more
// than one non-row dimension have no depth to change.
func (c *Column) SetDepth(d int) error {
	if err := c.guard(); err != nil {
		return err
	}
	newSpec, err := c.spec.WithDepth(d)
	if err != nil {
		return err
	}
	old, err := c.spec.Depth()
	if err != nil {
		return err
	}
	if d == old {
		return nil
	}

	rows := len(c.rowids)
	resized, err := c.newBufferLike(rows * d)
	if err != nil {
		return err
	}

	src, dst := c.buf.Values(), resized.Values()
	keep := old
	if d < old {
		keep = d
	}
	for r := 0; r < rows; r++ {
		copy(dst[r*d:r*d+keep], src[r*old:r*old+keep])
	}

	wasLoaded := c.Loaded()
	oldSize := c.SizeBytes()
	_ = c.buf.Close()
	c.buf = resized
	c.spec = newSpec
	if wasLoaded {
		metrics.ResidentBytes.Add(float64(c.SizeBytes()) - float64(oldSize))
	}
	return nil
}

// newBufferLike allocates a fill-initialized buffer of n values on the same
// backend as the current one.
func (c *Column) newBufferLike(n int) (storage.Buffer, error) {
	if c.Loaded() {
		return storage.NewDense(n, c.fill), nil
	}
	return storage.NewMapped(c.cfg.Paging.TempDir, n, c.fill)
}

// Close releases the pager ticket and the storage, removing any page file.
// Close is idempotent; all later operations fail with a config error.
func (c *Column) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.pager.Release(c.ticket)
	if c.Loaded() {
		metrics.ResidentBytes.Sub(float64(c.SizeBytes()))
	}
	return c.buf.Close()
}

// fullDims returns the full shape (rows first) for flat-offset math.
func (c *Column) fullDims() []int {
	return c.Dims()
}

// values returns the live backing slice.
func (c *Column) values() []float64 {
	return c.buf.Values()
}
