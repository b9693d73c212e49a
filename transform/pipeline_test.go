package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(GroupToIntervalsOp{})
	reg.Register(IndexGroupOp{})

	op, ok := reg.Get("group_to_intervals")
	assert.True(t, ok)
	assert.Equal(t, "group_to_intervals", op.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"group_to_intervals", "index_grouping"}, reg.Names())
}

func TestRegistryApplicable(t *testing.T) {
	reg := NewRegistry()
	reg.Register(IntervalGroupingOp{})
	reg.Register(PeakDetectionOp{})

	matches := reg.Applicable(&IntervalSeries{})
	assert.Len(t, matches, 1)
	assert.Equal(t, "interval_grouping", matches[0].Name())
}

func TestReportIsNilSafe(t *testing.T) {
	assert.NotPanics(t, func() { report(nil, 50) })
}
