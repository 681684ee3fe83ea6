package multidim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/shape"
)

func TestArithmeticScalar(t *testing.T) {
	c := newTestColumn(t, 2, shape.Sized(3))
	fillSequential(c)

	sum, err := c.Add(10)
	require.NoError(t, err)
	defer sum.Close()

	assert.Equal(t, []float64{10, 11, 12, 13, 14, 15}, sum.values())
	assert.Equal(t, c.RowIDs(), sum.RowIDs())
	assert.Equal(t, []int{2, 3}, sum.Dims())
	// The source is untouched.
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, c.values())
}

func TestArithmeticColumn(t *testing.T) {
	c := newTestColumn(t, 2, shape.Sized(3))
	fillSequential(c)

	doubled, err := c.Add(c)
	require.NoError(t, err)
	defer doubled.Close()
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, doubled.values())

	t.Run("shape mismatch", func(t *testing.T) {
		other := newTestColumn(t, 2, shape.Sized(4))
		_, err := c.Add(other)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeType))
	})

	t.Run("row count mismatch", func(t *testing.T) {
		other := newTestColumn(t, 3, shape.Sized(3))
		_, err := c.Add(other)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeType))
	})

	t.Run("closed operand", func(t *testing.T) {
		other := newTestColumn(t, 2, shape.Sized(3))
		require.NoError(t, other.Close())
		_, err := c.Add(other)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestArithmeticPerRow(t *testing.T) {
	c := newTestColumn(t, 2, shape.Sized(3))
	fillSequential(c)

	shifted, err := c.Add([]float64{100, 200})
	require.NoError(t, err)
	defer shifted.Close()
	assert.Equal(t, []float64{100, 101, 102, 203, 204, 205}, shifted.values())

	t.Run("per-row wins when rows equal depth", func(t *testing.T) {
		sq := newTestColumn(t, 2, shape.Sized(2))
		fillSequential(sq)
		out, err := sq.Add([]float64{10, 20})
		require.NoError(t, err)
		defer out.Close()
		assert.Equal(t, []float64{10, 11, 22, 23}, out.values())
	})
}

func TestArithmeticFullShape(t *testing.T) {
	c := newTestColumn(t, 2, shape.Sized(3))
	fillSequential(c)

	out, err := c.Mul([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, []float64{0, 2, 6, 12, 20, 30}, out.values())

	t.Run("anything else is a type error", func(t *testing.T) {
		_, err := c.Add([]float64{1, 2, 3, 4})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeType))
	})
}

func TestArithmeticOperators(t *testing.T) {
	c := newTestColumn(t, 1, shape.Sized(4))
	require.NoError(t, c.SetAll([]float64{8, 6, 0, -9}))

	t.Run("sub", func(t *testing.T) {
		out, err := c.Sub(1)
		require.NoError(t, err)
		defer out.Close()
		assert.Equal(t, []float64{7, 5, -1, -10}, out.values())
	})

	t.Run("div follows IEEE 754", func(t *testing.T) {
		out, err := c.Div(0)
		require.NoError(t, err)
		defer out.Close()
		vals := out.values()
		assert.True(t, math.IsInf(vals[0], 1))
		assert.True(t, math.IsNaN(vals[2]))
		assert.True(t, math.IsInf(vals[3], -1))
	})

	t.Run("pow", func(t *testing.T) {
		out, err := c.Pow(2)
		require.NoError(t, err)
		defer out.Close()
		assert.Equal(t, []float64{64, 36, 0, 81}, out.values())
	})

	t.Run("mod", func(t *testing.T) {
		out, err := c.Mod(5)
		require.NoError(t, err)
		defer out.Close()
		assert.Equal(t, []float64{3, 1, 0, -4}, out.values())
	})

	t.Run("nan propagates", func(t *testing.T) {
		n := newTestColumn(t, 1, shape.Sized(2))
		out, err := n.Add(1)
		require.NoError(t, err)
		defer out.Close()
		assert.True(t, math.IsNaN(out.values()[0]))
	})
}

func TestArithmeticResultIsIndependent(t *testing.T) {
	c := newTestColumn(t, 2, shape.Sized(2))
	fillSequential(c)

	out, err := c.Add(0)
	require.NoError(t, err)

	out.values()[0] = 42
	assert.Equal(t, 0.0, c.values()[0])

	require.NoError(t, out.Close())
	// Closing the result leaves the source fully usable.
	cell, err := c.Cell(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, cell)
}

func TestComparisonsUnsupported(t *testing.T) {
	c := newTestColumn(t, 2, shape.Sized(2))

	err := c.Compare(CompareLt, 5.0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))

	for _, op := range []CompareOp{CompareEq, CompareNe, CompareLe, CompareGt, CompareGe} {
		assert.True(t, errors.IsType(c.Compare(op, c), errors.ErrorTypeUnsupported))
	}

	_, err = c.Unique()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))
}
