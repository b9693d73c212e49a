package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackkit/trackkit"
)

func newTestGroups(t *testing.T) (*trackkit.GroupManager, trackkit.GroupID) {
	t.Helper()
	gm := trackkit.NewGroupManager()
	gid := gm.CreateGroup("present", "")
	return gm, gid
}

func TestGroupToIntervalsDiscontinuousPresence(t *testing.T) {
	gm, gid := newTestGroups(t)
	e1, e2, e3 := trackkit.EntityID(1), trackkit.EntityID(2), trackkit.EntityID(3)
	gm.AddEntityToGroup(gid, e1)
	gm.AddEntityToGroup(gid, e2)
	gm.AddEntityToGroup(gid, e3)

	entitiesAt := map[trackkit.TimeIndex][]trackkit.EntityID{
		0: {e1}, 1: {e1}, 2: {}, 3: {}, 4: {e2}, 5: {e2}, 6: {e3},
	}
	times := []trackkit.TimeIndex{0, 1, 2, 3, 4, 5, 6}

	op := GroupToIntervalsOp{}
	in := &GroupMembershipInput{Times: times, EntitiesAt: entitiesAt, Groups: gm, GroupID: gid}
	result, err := op.Execute(in, op.DefaultParameters(), nil)
	require.NoError(t, err)

	out := result.(*IntervalSeries)
	require.Len(t, out.Intervals, 2)
	assert.Equal(t, Interval{Start: 0, End: 1}, out.Intervals[0])
	assert.Equal(t, Interval{Start: 4, End: 6}, out.Intervals[1])
}

func TestGroupToIntervalsMergeGap(t *testing.T) {
	gm, gid := newTestGroups(t)
	e1 := trackkit.EntityID(1)
	gm.AddEntityToGroup(gid, e1)

	entitiesAt := map[trackkit.TimeIndex][]trackkit.EntityID{
		0: {e1}, 1: {}, 2: {e1},
	}
	times := []trackkit.TimeIndex{0, 1, 2}

	op := GroupToIntervalsOp{}
	in := &GroupMembershipInput{Times: times, EntitiesAt: entitiesAt, Groups: gm, GroupID: gid}
	params := op.DefaultParameters()
	params["merge_gap_threshold"] = 1
	result, err := op.Execute(in, params, nil)
	require.NoError(t, err)

	out := result.(*IntervalSeries)
	require.Len(t, out.Intervals, 1)
	assert.Equal(t, Interval{Start: 0, End: 2}, out.Intervals[0])
}

func TestGroupToIntervalsNilGroupIsEmpty(t *testing.T) {
	gm, _ := newTestGroups(t)
	op := GroupToIntervalsOp{}
	in := &GroupMembershipInput{Groups: gm, GroupID: trackkit.InvalidGroupID}
	result, err := op.Execute(in, op.DefaultParameters(), nil)
	require.NoError(t, err)
	assert.Nil(t, result.(*IntervalSeries))
}

func TestGroupToIntervalsMinLengthFilters(t *testing.T) {
	gm, gid := newTestGroups(t)
	e1 := trackkit.EntityID(1)
	gm.AddEntityToGroup(gid, e1)

	entitiesAt := map[trackkit.TimeIndex][]trackkit.EntityID{0: {e1}}
	op := GroupToIntervalsOp{}
	in := &GroupMembershipInput{Times: []trackkit.TimeIndex{0}, EntitiesAt: entitiesAt, Groups: gm, GroupID: gid}
	params := op.DefaultParameters()
	params["min_interval_length"] = 2
	result, err := op.Execute(in, params, nil)
	require.NoError(t, err)
	assert.Empty(t, result.(*IntervalSeries).Intervals)
}

func TestIntervalGroupingOpCollapsesWithinSpacing(t *testing.T) {
	in := &IntervalSeries{Intervals: []Interval{{Start: 0, End: 2}, {Start: 4, End: 6}}}
	op := IntervalGroupingOp{}
	params := op.DefaultParameters()
	params["max_spacing"] = 1
	result, err := op.Execute(in, params, nil)
	require.NoError(t, err)
	out := result.(*IntervalSeries)
	require.Len(t, out.Intervals, 1)
	assert.Equal(t, Interval{Start: 0, End: 6}, out.Intervals[0])
}

func TestIntervalLength(t *testing.T) {
	iv := Interval{Start: 3, End: 7}
	assert.Equal(t, 5, iv.Length())
}
