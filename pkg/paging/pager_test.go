package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robbertmijn/datamatrix/pkg/config"
	"github.com/robbertmijn/datamatrix/pkg/errors"
)

type fakeColumn struct {
	size       int64
	loaded     bool
	ins, outs  int
	pageInErr  error
	pageOutErr error
}

func (f *fakeColumn) SizeBytes() int64 { return f.size }
func (f *fakeColumn) Loaded() bool     { return f.loaded }

func (f *fakeColumn) PageIn() error {
	if f.pageInErr != nil {
		return f.pageInErr
	}
	f.loaded = true
	f.ins++
	return nil
}

func (f *fakeColumn) PageOut() error {
	if f.pageOutErr != nil {
		return f.pageOutErr
	}
	f.loaded = false
	f.outs++
	return nil
}

func fixedProber(available, total uint64) Prober {
	return func() (MemStats, error) {
		return MemStats{Available: available, Total: total}, nil
	}
}

func testCfg() config.PagingConfig {
	return config.PagingConfig{
		MinFreeBytes:    50,
		MinFreeFraction: 0.5,
		TempDir:         ".",
	}
}

func newTestPager(cfg config.PagingConfig, probe Prober) *Pager {
	return New(cfg, WithProber(probe), WithLogger(zap.NewNop()))
}

func TestTouchLoadsWhenSufficient(t *testing.T) {
	p := newTestPager(testCfg(), fixedProber(1000, 1000))
	c := &fakeColumn{size: 100}

	ticket := p.Register(c)
	require.NoError(t, p.Touch(ticket))
	assert.True(t, c.loaded)
	assert.Equal(t, 1, c.ins)
}

func TestTouchNeverUnloadsTouched(t *testing.T) {
	// Memory is never sufficient: everything else gets paged out, but the
	// touched column must survive its own touch.
	p := newTestPager(testCfg(), fixedProber(0, 1<<40))
	c1 := &fakeColumn{size: 100, loaded: true}
	c2 := &fakeColumn{size: 100, loaded: true}

	p.Register(c1)
	t2 := p.Register(c2)
	require.NoError(t, p.Touch(t2))

	assert.False(t, c1.loaded, "cold column should be paged out")
	assert.True(t, c2.loaded, "touched column must never page out")
}

func TestTouchUnloadsLeastRecentFirst(t *testing.T) {
	c1 := &fakeColumn{size: 100, loaded: true}
	c2 := &fakeColumn{size: 100, loaded: true}
	c3 := &fakeColumn{size: 100, loaded: true}
	cols := []*fakeColumn{c1, c2, c3}

	// Each page-out frees its column's bytes.
	probe := func() (MemStats, error) {
		available := uint64(110)
		for _, c := range cols {
			if !c.loaded {
				available += uint64(c.size)
			}
		}
		return MemStats{Available: available, Total: 1 << 40}, nil
	}

	p := newTestPager(testCfg(), probe)
	p.Register(c1)
	p.Register(c2)
	t3 := p.Register(c3)

	require.NoError(t, p.Touch(t3))
	assert.False(t, c1.loaded, "least recent column pages out first")
	assert.True(t, c2.loaded, "pressure relieved before reaching c2")
	assert.True(t, c3.loaded)
}

func TestTouchRecencyOrder(t *testing.T) {
	// Room for exactly two loaded columns: every touch under pressure
	// displaces the least recently touched one.
	c1 := &fakeColumn{size: 100, loaded: true}
	c2 := &fakeColumn{size: 100, loaded: true}
	c3 := &fakeColumn{size: 100, loaded: true}
	cols := []*fakeColumn{c1, c2, c3}
	probe := func() (MemStats, error) {
		available := uint64(110)
		for _, c := range cols {
			if !c.loaded {
				available += uint64(c.size)
			}
		}
		return MemStats{Available: available, Total: 1 << 40}, nil
	}

	p := newTestPager(testCfg(), probe)
	t1 := p.Register(c1)
	p.Register(c2)
	t3 := p.Register(c3)

	// Registration order makes c1 the coldest.
	require.NoError(t, p.Touch(t3))
	assert.False(t, c1.loaded)
	assert.True(t, c2.loaded)

	// Touching c1 pages it back in (its own absence freed the room) and
	// moves it to the recent end.
	require.NoError(t, p.Touch(t1))
	assert.True(t, c1.loaded)

	// Under pressure again, c2 is now the coldest; c3 and c1 survive.
	require.NoError(t, p.Touch(t1))
	assert.False(t, c2.loaded)
	assert.True(t, c3.loaded)
	assert.True(t, c1.loaded)
}

func TestDeadTicketIsNoOp(t *testing.T) {
	p := newTestPager(testCfg(), fixedProber(1000, 1000))
	c := &fakeColumn{size: 100}

	ticket := p.Register(c)
	assert.Equal(t, 1, p.Live())

	p.Release(ticket)
	assert.Equal(t, 0, p.Live())

	require.NoError(t, p.Touch(ticket))
	assert.Equal(t, 0, c.ins)

	p.Release(ticket) // second release is harmless
	assert.Equal(t, 0, p.Live())

	require.NoError(t, p.Touch(Ticket{}), "zero ticket is never live")
}

func TestSlotReuseKeepsOldTicketDead(t *testing.T) {
	p := newTestPager(testCfg(), fixedProber(1000, 1000))
	c1 := &fakeColumn{size: 100}
	c2 := &fakeColumn{size: 100}

	t1 := p.Register(c1)
	p.Release(t1)
	t2 := p.Register(c2) // reuses c1's slot

	require.NoError(t, p.Touch(t1))
	assert.Equal(t, 0, c1.ins, "released ticket must not act on the reused slot")

	require.NoError(t, p.Touch(t2))
	assert.Equal(t, 1, c2.ins)
}

func TestDisabledLoadsButNeverUnloads(t *testing.T) {
	cfg := testCfg()
	cfg.Disabled = true
	p := newTestPager(cfg, fixedProber(0, 1<<40))

	cold := &fakeColumn{size: 100, loaded: true}
	c := &fakeColumn{size: 100}
	p.Register(cold)
	ticket := p.Register(c)

	require.NoError(t, p.Touch(ticket))
	assert.True(t, c.loaded)
	assert.True(t, cold.loaded, "disabled paging never pages out")
}

func TestProbeFailureTreatsMemoryAsSufficient(t *testing.T) {
	failing := func() (MemStats, error) {
		return MemStats{}, assert.AnError
	}
	p := newTestPager(testCfg(), failing)

	cold := &fakeColumn{size: 100, loaded: true}
	c := &fakeColumn{size: 100}
	p.Register(cold)
	ticket := p.Register(c)

	require.NoError(t, p.Touch(ticket))
	assert.True(t, c.loaded)
	assert.True(t, cold.loaded)
}

func TestSufficient(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.PagingConfig
		available uint64
		total     uint64
		extra     int64
		want      bool
	}{
		{
			name:      "absolute floor passes",
			cfg:       config.PagingConfig{MinFreeBytes: 50, MinFreeFraction: 0.99},
			available: 200, total: 1 << 40, extra: 100,
			want: true,
		},
		{
			name:      "relative floor passes",
			cfg:       config.PagingConfig{MinFreeBytes: 1 << 40, MinFreeFraction: 0.4},
			available: 300, total: 400, extra: 100,
			want: true,
		},
		{
			name:      "neither floor passes",
			cfg:       config.PagingConfig{MinFreeBytes: 1 << 40, MinFreeFraction: 0.9},
			available: 300, total: 400, extra: 100,
			want: false,
		},
		{
			name:      "negative projected free",
			cfg:       config.PagingConfig{MinFreeBytes: 50, MinFreeFraction: 0.5},
			available: 10, total: 400, extra: 100,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPager(tt.cfg, fixedProber(tt.available, tt.total))
			ok, err := p.Sufficient(tt.extra)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("probe error propagates", func(t *testing.T) {
		p := newTestPager(testCfg(), func() (MemStats, error) {
			return MemStats{}, assert.AnError
		})
		_, err := p.Sufficient(100)
		assert.Error(t, err)
	})
}

func TestPageInFailureSurfaces(t *testing.T) {
	p := newTestPager(testCfg(), fixedProber(1000, 1000))
	c := &fakeColumn{size: 100, pageInErr: assert.AnError}

	ticket := p.Register(c)
	err := p.Touch(ticket)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestPageOutFailureSkipsColumn(t *testing.T) {
	// A column that cannot page out is skipped; pressure relief moves on to
	// the next candidate.
	c1 := &fakeColumn{size: 100, loaded: true, pageOutErr: assert.AnError}
	c2 := &fakeColumn{size: 100, loaded: true}
	c3 := &fakeColumn{size: 100, loaded: true}
	cols := []*fakeColumn{c1, c2, c3}
	probe := func() (MemStats, error) {
		available := uint64(110)
		for _, c := range cols {
			if !c.loaded {
				available += uint64(c.size)
			}
		}
		return MemStats{Available: available, Total: 1 << 40}, nil
	}

	p := newTestPager(testCfg(), probe)
	p.Register(c1)
	p.Register(c2)
	t3 := p.Register(c3)

	require.NoError(t, p.Touch(t3))
	assert.True(t, c1.loaded, "failed page-out leaves the column loaded")
	assert.False(t, c2.loaded, "relief falls through to the next candidate")
	assert.True(t, c3.loaded)
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
