package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackkit/trackkit"
)

func ivs(pairs ...int) []Interval {
	out := make([]Interval, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Interval{Start: trackkit.TimeIndex(pairs[i]), End: trackkit.TimeIndex(pairs[i+1])})
	}
	return out
}

func TestBooleanIntervalAnd(t *testing.T) {
	a := &IntervalSeries{Intervals: ivs(0, 5, 10, 15)}
	b := &IntervalSeries{Intervals: ivs(3, 12)}
	op := BooleanIntervalOp{}
	result, err := op.Execute(&BooleanIntervalInput{A: a, B: b, Op: OpAnd}, op.DefaultParameters(), nil)
	require.NoError(t, err)
	out := result.(*IntervalSeries)
	assert.Equal(t, ivs(3, 5, 10, 12), out.Intervals)
}

func TestBooleanIntervalOr(t *testing.T) {
	a := &IntervalSeries{Intervals: ivs(0, 5)}
	b := &IntervalSeries{Intervals: ivs(3, 10)}
	op := BooleanIntervalOp{}
	result, err := op.Execute(&BooleanIntervalInput{A: a, B: b, Op: OpOr}, op.DefaultParameters(), nil)
	require.NoError(t, err)
	out := result.(*IntervalSeries)
	assert.Equal(t, ivs(0, 10), out.Intervals)
}

func TestBooleanIntervalAndNot(t *testing.T) {
	a := &IntervalSeries{Intervals: ivs(0, 10)}
	b := &IntervalSeries{Intervals: ivs(3, 5)}
	op := BooleanIntervalOp{}
	result, err := op.Execute(&BooleanIntervalInput{A: a, B: b, Op: OpAndNot}, op.DefaultParameters(), nil)
	require.NoError(t, err)
	out := result.(*IntervalSeries)
	assert.Equal(t, ivs(0, 2, 6, 10), out.Intervals)
}

func TestBooleanIntervalNot(t *testing.T) {
	a := &IntervalSeries{Intervals: ivs(2, 4, 6, 8)}
	op := BooleanIntervalOp{}
	result, err := op.Execute(&BooleanIntervalInput{A: a, Op: OpNot}, op.DefaultParameters(), nil)
	require.NoError(t, err)
	out := result.(*IntervalSeries)
	assert.Equal(t, ivs(5, 5), out.Intervals)
}

func TestBooleanIntervalXor(t *testing.T) {
	a := &IntervalSeries{Intervals: ivs(0, 5)}
	b := &IntervalSeries{Intervals: ivs(3, 8)}
	op := BooleanIntervalOp{}
	result, err := op.Execute(&BooleanIntervalInput{A: a, B: b, Op: OpXor}, op.DefaultParameters(), nil)
	require.NoError(t, err)
	out := result.(*IntervalSeries)
	assert.Equal(t, ivs(0, 2, 6, 8), out.Intervals)
}

func TestConvertSeriesSkipsUnconvertibleIntervals(t *testing.T) {
	src := trackkit.NewCoordinateSystem("src", []float64{0, 1, 2, 3})
	dst := trackkit.NewCoordinateSystem("dst", []float64{100, 200})
	series := &IntervalSeries{Coords: src, Intervals: ivs(0, 1)}
	out := convertSeries(series, dst)
	assert.NotNil(t, out)
	assert.Empty(t, out.Intervals)
}
