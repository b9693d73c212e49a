package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackkit/trackkit"
)

func TestPeakDetectionFindsMaxPerInterval(t *testing.T) {
	intervals := &IntervalSeries{Intervals: []Interval{{Start: 0, End: 3}, {Start: 10, End: 12}}}
	samples := []AnalogSample{
		{Time: 0, Value: 1}, {Time: 1, Value: 5}, {Time: 2, Value: 3}, {Time: 3, Value: 0},
		{Time: 10, Value: -2}, {Time: 11, Value: -9}, {Time: 12, Value: -1},
	}
	op := PeakDetectionOp{}
	result, err := op.Execute(&PeakDetectionInput{Intervals: intervals, Samples: samples}, op.DefaultParameters(), nil)
	require.NoError(t, err)

	events := result.([]PeakEvent)
	require.Len(t, events, 2)
	assert.Equal(t, trackkit.TimeIndex(1), events[0].Time)
	assert.Equal(t, 5.0, events[0].Value)
	assert.Equal(t, trackkit.TimeIndex(12), events[1].Time)
	assert.Equal(t, -1.0, events[1].Value)
}

func TestPeakDetectionFindsMin(t *testing.T) {
	intervals := &IntervalSeries{Intervals: []Interval{{Start: 0, End: 3}}}
	samples := []AnalogSample{
		{Time: 0, Value: 1}, {Time: 1, Value: 5}, {Time: 2, Value: -7}, {Time: 3, Value: 0},
	}
	op := PeakDetectionOp{}
	params := Parameters{"direction": int(PeakMin)}
	result, err := op.Execute(&PeakDetectionInput{Intervals: intervals, Samples: samples}, params, nil)
	require.NoError(t, err)

	events := result.([]PeakEvent)
	require.Len(t, events, 1)
	assert.Equal(t, trackkit.TimeIndex(2), events[0].Time)
}

func TestPeakDetectionSkipsEmptyRanges(t *testing.T) {
	intervals := &IntervalSeries{Intervals: []Interval{{Start: 5, End: 6}}}
	samples := []AnalogSample{{Time: 0, Value: 1}}
	op := PeakDetectionOp{}
	result, err := op.Execute(&PeakDetectionInput{Intervals: intervals, Samples: samples}, op.DefaultParameters(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.([]PeakEvent))
}

func TestPeakDetectionCanApply(t *testing.T) {
	op := PeakDetectionOp{}
	assert.True(t, op.CanApply(&PeakDetectionInput{Intervals: &IntervalSeries{}}))
	assert.False(t, op.CanApply(&PeakDetectionInput{}))
	assert.False(t, op.CanApply("not an input"))
}
