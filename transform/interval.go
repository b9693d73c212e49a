package transform

import (
	"sort"

	"github.com/trackkit/trackkit"
)

// Interval is an inclusive [Start, End] span of frame indices.
type Interval struct {
	Start, End trackkit.TimeIndex
}

// Length returns the interval's frame count.
func (iv Interval) Length() int { return int(iv.End-iv.Start) + 1 }

// IntervalSeries is an ordered, non-overlapping sequence of intervals
// over one coordinate system.
type IntervalSeries struct {
	Coords    *trackkit.CoordinateSystem
	Intervals []Interval
}

// GroupToIntervalsOp builds presence/absence intervals from a container's
// per-frame group membership (spec.md §4.13 "Group -> intervals").
type GroupToIntervalsOp struct{}

func (GroupToIntervalsOp) Name() string            { return "group_to_intervals" }
func (GroupToIntervalsOp) TargetInputType() string  { return "entity_timeseries" }
func (GroupToIntervalsOp) CanApply(input interface{}) bool {
	_, ok := input.(*GroupMembershipInput)
	return ok && input.(*GroupMembershipInput) != nil
}

func (GroupToIntervalsOp) DefaultParameters() Parameters {
	return Parameters{
		"track_absence":       false,
		"merge_gap_threshold": 1,
		"min_interval_length": 1,
	}
}

// GroupMembershipInput is the tagged-variant input Group->Intervals
// expects: the set of frames with at least one entry, per frame the
// entity IDs present, the group manager, and the target group.
type GroupMembershipInput struct {
	Times      []trackkit.TimeIndex
	EntitiesAt map[trackkit.TimeIndex][]trackkit.EntityID
	Groups     *trackkit.GroupManager
	GroupID    trackkit.GroupID
	Coords     *trackkit.CoordinateSystem
}

func (GroupToIntervalsOp) Execute(input interface{}, params Parameters, progress Progress) (interface{}, error) {
	in, ok := input.(*GroupMembershipInput)
	if !ok || in == nil || in.Groups == nil || in.GroupID == trackkit.InvalidGroupID || !in.Groups.HasGroup(in.GroupID) {
		report(progress, 100)
		return (*IntervalSeries)(nil), nil
	}

	trackAbsence, _ := params["track_absence"].(bool)
	mergeGap := intParam(params, "merge_gap_threshold", 1)
	minLen := intParam(params, "min_interval_length", 1)

	times := append([]trackkit.TimeIndex{}, in.Times...)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	report(progress, 30)

	var raw []Interval
	var curStart trackkit.TimeIndex
	inRun := false
	var prevT trackkit.TimeIndex

	flush := func(end trackkit.TimeIndex) {
		if inRun {
			raw = append(raw, Interval{Start: curStart, End: end})
			inRun = false
		}
	}

	for i, t := range times {
		active := entityInGroup(in.EntitiesAt[t], in.Groups, in.GroupID)
		if trackAbsence {
			active = !active
		}
		if active {
			if !inRun {
				curStart = t
				inRun = true
			}
		} else {
			flush(prevTimeOrSelf(times, i))
		}
		prevT = t
	}
	flush(prevT)

	report(progress, 70)

	merged := mergeIntervals(raw, mergeGap)
	final := filterByLength(merged, minLen)

	report(progress, 100)
	return &IntervalSeries{Coords: in.Coords, Intervals: final}, nil
}

func prevTimeOrSelf(times []trackkit.TimeIndex, i int) trackkit.TimeIndex {
	if i == 0 {
		return times[0]
	}
	return times[i-1]
}

func entityInGroup(entities []trackkit.EntityID, groups *trackkit.GroupManager, gid trackkit.GroupID) bool {
	for _, e := range entities {
		if groups.IsEntityInGroup(gid, e) {
			return true
		}
	}
	return false
}

// mergeIntervals merges adjacent intervals whose gap is <= maxGap.
func mergeIntervals(intervals []Interval, maxGap int) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	out := []Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		gap := int(iv.Start - last.End - 1)
		if gap <= maxGap {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func filterByLength(intervals []Interval, minLen int) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if iv.Length() >= minLen {
			out = append(out, iv)
		}
	}
	return out
}

func intParam(params Parameters, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

func floatParam(params Parameters, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func boolParam(params Parameters, key string, def bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// IntervalGroupingOp collapses two consecutive intervals into one when
// the spacing between them is within max_spacing (spec.md §4.13
// "Interval grouping").
type IntervalGroupingOp struct{}

func (IntervalGroupingOp) Name() string           { return "interval_grouping" }
func (IntervalGroupingOp) TargetInputType() string { return "interval_series" }
func (IntervalGroupingOp) CanApply(input interface{}) bool {
	v, ok := input.(*IntervalSeries)
	return ok && v != nil
}
func (IntervalGroupingOp) DefaultParameters() Parameters {
	return Parameters{"max_spacing": 1}
}

func (IntervalGroupingOp) Execute(input interface{}, params Parameters, progress Progress) (interface{}, error) {
	in := input.(*IntervalSeries)
	maxSpacing := intParam(params, "max_spacing", 1)
	report(progress, 50)
	out := &IntervalSeries{Coords: in.Coords, Intervals: mergeIntervals(in.Intervals, maxSpacing)}
	report(progress, 100)
	return out, nil
}
