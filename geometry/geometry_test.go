package geometry

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/meshadapt/transport"
	"github.com/hupe1980/meshadapt/transport/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistances(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{1, 2, 2}
	assert.Equal(t, 9.0, SquaredL2(a, b))
	assert.InDelta(t, 3.0, L2(a, b), 1e-12)
}

func TestCentroid(t *testing.T) {
	assert.Nil(t, Centroid(nil))
	c := Centroid([][]float64{{0, 0}, {2, 0}, {2, 2}, {0, 2}})
	assert.Equal(t, []float64{1, 1}, c)
}

func TestBox(t *testing.T) {
	b := NewBox(2)
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0.0, b.Diagonal())

	require.NoError(t, b.Extend([]float64{1, -1}))
	require.NoError(t, b.Extend([]float64{4, 3}))
	assert.False(t, b.IsEmpty())
	assert.Equal(t, []float64{1, -1}, b.Min)
	assert.Equal(t, []float64{4, 3}, b.Max)
	assert.InDelta(t, 5.0, b.Diagonal(), 1e-12)

	assert.True(t, b.Contains([]float64{1, 3}))
	assert.False(t, b.Contains([]float64{0, 0}))
	assert.False(t, b.Contains([]float64{1}))

	err := b.Extend([]float64{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	c := b.Clone()
	c.Min[0] = -10
	assert.Equal(t, 1.0, b.Min[0])
}

func TestBoxOf(t *testing.T) {
	b, err := BoxOf(1, [][]float64{{3}, {-2}, {0.5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{-2}, b.Min)
	assert.Equal(t, []float64{3}, b.Max)
}

func TestBox_MakeGlobal(t *testing.T) {
	err := local.Run(context.Background(), 3, func(ctx context.Context, tr transport.Transport) error {
		b := NewBox(2)
		// Rank 1 holds no points; its empty box must not affect the union.
		if tr.Rank() != 1 {
			x := float64(tr.Rank())
			if err := b.Extend([]float64{x, -x}); err != nil {
				return err
			}
		}
		g, err := b.MakeGlobal(ctx, tr)
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{0, -2}, g.Min)
		assert.Equal(t, []float64{2, 0}, g.Max)
		return nil
	})
	require.NoError(t, err)
}

func TestBox_EmptyInfinities(t *testing.T) {
	b := NewBox(1)
	assert.True(t, math.IsInf(b.Min[0], 1))
	assert.True(t, math.IsInf(b.Max[0], -1))
}
