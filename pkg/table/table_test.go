package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbertmijn/datamatrix/pkg/errors"
)

type fakeColumn struct {
	rows      int
	extendErr error
	closeErr  error
	closed    int
}

func (f *fakeColumn) ExtendRows(ids []RowID) error {
	if f.extendErr != nil {
		return f.extendErr
	}
	f.rows += len(ids)
	return nil
}

func (f *fakeColumn) Close() error {
	f.closed++
	return f.closeErr
}

func TestNew(t *testing.T) {
	tbl := New(3)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []RowID{0, 1, 2}, tbl.RowIDs())

	assert.Equal(t, 0, New(-1).Len())
}

func TestAppendIssuesAscendingIDs(t *testing.T) {
	tbl := New(2)
	c := &fakeColumn{rows: 2}
	require.NoError(t, tbl.Attach("col", c))

	ids, err := tbl.Append(3)
	require.NoError(t, err)
	assert.Equal(t, []RowID{2, 3, 4}, ids)
	assert.Equal(t, 5, tbl.Len())
	assert.Equal(t, 5, c.rows, "attached column extended")
	assert.Equal(t, uint64(1), tbl.Mutations())

	// Identities keep ascending, never reused.
	more, err := tbl.Append(1)
	require.NoError(t, err)
	assert.Equal(t, []RowID{5}, more)
}

func TestAppendErrors(t *testing.T) {
	t.Run("negative count", func(t *testing.T) {
		_, err := New(1).Append(-1)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValue))
	})

	t.Run("column failure carries its name", func(t *testing.T) {
		tbl := New(1)
		require.NoError(t, tbl.Attach("bad", &fakeColumn{extendErr: errors.New(errors.ErrorTypeIO, "disk full")}))
		_, err := tbl.Append(1)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
		assert.Contains(t, err.Error(), `"bad"`)
	})
}

func TestAttach(t *testing.T) {
	tbl := New(1)
	require.NoError(t, tbl.Attach("a", &fakeColumn{}))
	require.NoError(t, tbl.Attach("b", &fakeColumn{}))

	assert.Equal(t, []string{"a", "b"}, tbl.Names())

	_, ok := tbl.Column("a")
	assert.True(t, ok)
	_, ok = tbl.Column("missing")
	assert.False(t, ok)

	err := tbl.Attach("a", &fakeColumn{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValue))

	err = tbl.Attach("nil", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValue))
}

func TestSubset(t *testing.T) {
	tbl := New(4)

	sub, err := tbl.Subset(3, 1)
	require.NoError(t, err)
	assert.Equal(t, []RowID{3, 1}, sub.RowIDs(), "subset keeps the given order")
	assert.Empty(t, sub.Names())

	_, err = tbl.Subset(99)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValue))
}

func TestMutationHooks(t *testing.T) {
	tbl := New(1)
	fired := 0
	tbl.OnMutate(func() { fired++ })
	tbl.OnMutate(nil) // ignored

	tbl.MarkMutated()
	tbl.MarkMutated()
	assert.Equal(t, uint64(2), tbl.Mutations())
	assert.Equal(t, 2, fired)
}

func TestClose(t *testing.T) {
	tbl := New(1)
	good := &fakeColumn{}
	bad := &fakeColumn{closeErr: errors.New(errors.ErrorTypeIO, "unlink failed")}
	require.NoError(t, tbl.Attach("bad", bad))
	require.NoError(t, tbl.Attach("good", good))

	err := tbl.Close()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	assert.Equal(t, 1, good.closed, "all columns closed despite the failure")
	assert.Equal(t, 1, bad.closed)

	require.NoError(t, tbl.Close(), "second close is a no-op")
	assert.Equal(t, 1, good.closed)

	_, err = tbl.Append(1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.True(t, errors.IsType(tbl.Attach("x", &fakeColumn{}), errors.ErrorTypeConfig))
}
