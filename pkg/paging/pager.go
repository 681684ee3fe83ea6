// Package paging implements the process-wide recency policy that decides
// which columns stay materialized in memory. Columns register with a Pager
// and call Touch on every access; the pager keeps a least-recently-used
// order and, under memory pressure, pages out cold columns (dense → mapped)
// to make room for the touched one.
//
// Lifetimes are explicit: Register hands out a Ticket backed by an arena
// slot with a generation counter, and Release invalidates it. A ticket whose
// generation no longer matches its slot is dead and is pruned during walks,
// so the pager never extends a column's lifetime.
//
// The pager is advisory and not safe for concurrent use, matching the
// single-goroutine ownership model of the column itself.
package paging

import (
	"container/list"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/robbertmijn/datamatrix/pkg/config"
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/logger"
	"github.com/robbertmijn/datamatrix/pkg/metrics"
)

// Pageable is the column surface the pager drives.
type Pageable interface {
	// SizeBytes is the fully materialized size: 8 bytes per value across
	// the full shape.
	SizeBytes() int64
	Loaded() bool
	// PageIn moves storage from mapped to dense.
	PageIn() error
	// PageOut moves storage from dense to mapped.
	PageOut() error
}

// MemStats is the slice of system memory the sufficiency test needs.
type MemStats struct {
	Available uint64
	Total     uint64
}

// Prober reports current system memory. The default queries gopsutil.
type Prober func() (MemStats, error)

func systemProber() (MemStats, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return MemStats{}, err
	}
	return MemStats{Available: vmStat.Available, Total: vmStat.Total}, nil
}

// Ticket identifies a registered column. The zero Ticket is never live.
type Ticket struct {
	slot int
	gen  uint64
}

type entry struct {
	col  Pageable
	slot int
	gen  uint64
}

// Pager tracks registered columns in least-recently-touched order.
type Pager struct {
	cfg   config.PagingConfig
	probe Prober
	log   *zap.Logger

	order *list.List      // front = least recently touched
	slots []*list.Element // slot -> live element, nil when free
	gens  []uint64        // slot -> current generation
	free  []int
}

// Option configures a Pager.
type Option func(*Pager)

// WithProber replaces the system memory prober.
func WithProber(probe Prober) Option {
	return func(p *Pager) { p.probe = probe }
}

// WithLogger replaces the pager's logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pager) { p.log = log }
}

// New creates a Pager with the given paging policy.
func New(cfg config.PagingConfig, opts ...Option) *Pager {
	p := &Pager{
		cfg:   cfg,
		probe: systemProber,
		order: list.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Named("paging")
	}
	return p
}

var (
	defaultPager *Pager
	defaultOnce  sync.Once
)

// Default returns the process-wide pager, created on first use with default
// policy. Columns constructed without an explicit pager share it, which is
// what makes the recency order global across a program.
func Default() *Pager {
	defaultOnce.Do(func() {
		defaultPager = New(config.New().Paging)
	})
	return defaultPager
}

// Register adds a column at the most-recent end and returns its ticket.
func (p *Pager) Register(c Pageable) Ticket {
	var slot int
	if n := len(p.free); n > 0 {
		slot = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		slot = len(p.gens)
		p.gens = append(p.gens, 0)
		p.slots = append(p.slots, nil)
	}
	p.gens[slot]++

	e := &entry{col: c, slot: slot, gen: p.gens[slot]}
	p.slots[slot] = p.order.PushBack(e)
	metrics.ColumnsLive.Inc()
	return Ticket{slot: slot, gen: p.gens[slot]}
}

// Release invalidates a ticket and drops its column from the order. Dead
// tickets are a no-op.
func (p *Pager) Release(t Ticket) {
	if !p.alive(t) {
		return
	}
	p.order.Remove(p.slots[t.slot])
	p.slots[t.slot] = nil
	p.gens[t.slot]++
	p.free = append(p.free, t.slot)
	metrics.ColumnsLive.Dec()
}

// Live returns the number of registered columns.
func (p *Pager) Live() int {
	return p.order.Len()
}

// Sufficient probes system memory once and reports whether loading extra
// bytes would leave enough free: available minus extra must exceed the
// absolute floor, or remain above the relative floor of total. Advisory
// only: there is no cross-process accounting and no guarantee against
// overshoot.
func (p *Pager) Sufficient(extra int64) (bool, error) {
	st, err := p.probe()
	if err != nil {
		return false, err
	}
	return p.enough(st, extra), nil
}

func (p *Pager) enough(st MemStats, extra int64) bool {
	free := int64(st.Available) - extra
	if free > p.cfg.MinFreeBytes {
		return true
	}
	return st.Total > 0 && float64(free)/float64(st.Total) > p.cfg.MinFreeFraction
}

// Touch marks the ticket's column as most recently used and applies the
// paging policy: when memory is too tight to hold the touched column, other
// loaded columns are paged out least-recent-first; when the touched column
// is unloaded and memory allows, it is paged in. The touched column is never
// paged out by its own touch. Dead tickets are a no-op.
func (p *Pager) Touch(t Ticket) error {
	start := time.Now()
	defer func() {
		metrics.TouchLatency.Observe(float64(time.Since(start).Nanoseconds()))
	}()

	if !p.alive(t) {
		return nil
	}
	el := p.slots[t.slot]
	p.order.MoveToBack(el)
	touched := el.Value.(*entry).col

	if p.cfg.Disabled {
		if !touched.Loaded() {
			return p.pageIn(touched, "touch")
		}
		return nil
	}

	need := touched.SizeBytes()
	ok := p.sufficientOrWarn(need)
	if !ok {
		ok = p.relieve(el, need)
	}
	if !touched.Loaded() && ok {
		return p.pageIn(touched, "touch")
	}
	return nil
}

// relieve walks the order from the least-recent end, paging out every other
// live, loaded column until memory is sufficient for need bytes. It reports
// the final sufficiency.
func (p *Pager) relieve(touched *list.Element, need int64) bool {
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		ent := el.Value.(*entry)
		if p.gens[ent.slot] != ent.gen {
			// Dead entry left behind by a released ticket.
			p.order.Remove(el)
			el = next
			continue
		}
		if el != touched && ent.col.Loaded() {
			size := ent.col.SizeBytes()
			if err := ent.col.PageOut(); err != nil {
				p.log.Error("failed to page out column",
					zap.Int64("bytes", size),
					zap.Error(err))
				el = next
				continue
			}
			p.log.Debug("paged out column under pressure",
				zap.Int64("bytes", size))
			metrics.ColumnUnloads.WithLabelValues("pressure").Inc()
			metrics.PagedOutBytes.Add(float64(size))
			metrics.ResidentBytes.Sub(float64(size))
			if p.sufficientOrWarn(need) {
				return true
			}
		}
		el = next
	}
	return p.sufficientOrWarn(need)
}

func (p *Pager) pageIn(c Pageable, trigger string) error {
	size := c.SizeBytes()
	if err := c.PageIn(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to page in column")
	}
	p.log.Debug("paged in column",
		zap.Int64("bytes", size),
		zap.String("trigger", trigger))
	metrics.ColumnLoads.WithLabelValues(trigger).Inc()
	metrics.PagedInBytes.Add(float64(size))
	metrics.ResidentBytes.Add(float64(size))
	return nil
}

// sufficientOrWarn probes memory, treating a probe failure as sufficient:
// paging is an optimization, and a broken probe must not make columns
// unusable after construction.
func (p *Pager) sufficientOrWarn(extra int64) bool {
	st, err := p.probe()
	if err != nil {
		p.log.Warn("memory probe failed, treating memory as sufficient",
			zap.Error(err))
		return true
	}
	ok := p.enough(st, extra)
	if !ok {
		p.log.Debug("insufficient free memory",
			zap.Uint64("available", st.Available),
			zap.Int64("needed", extra))
	}
	return ok
}

func (p *Pager) alive(t Ticket) bool {
	return t.slot >= 0 && t.slot < len(p.gens) &&
		p.gens[t.slot] == t.gen && p.slots[t.slot] != nil
}
