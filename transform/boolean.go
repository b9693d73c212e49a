package transform

import (
	"sort"

	"github.com/trackkit/trackkit"
)

// BooleanOp selects the interval-algebra operator for BooleanIntervalOp
// (spec.md §4.13 "Boolean interval algebra").
type BooleanOp int

const (
	OpAnd BooleanOp = iota
	OpOr
	OpXor
	OpAndNot
	OpNot
)

// BooleanIntervalInput pairs two interval series (B may be nil for NOT).
type BooleanIntervalInput struct {
	A, B *IntervalSeries
	Op   BooleanOp
}

// BooleanIntervalOp evaluates AND/OR/XOR/AND-NOT/NOT between two
// interval series, converting B into A's coordinate system first when
// they differ.
type BooleanIntervalOp struct{}

func (BooleanIntervalOp) Name() string           { return "boolean_interval_algebra" }
func (BooleanIntervalOp) TargetInputType() string { return "interval_pair" }
func (BooleanIntervalOp) CanApply(input interface{}) bool {
	v, ok := input.(*BooleanIntervalInput)
	return ok && v != nil && v.A != nil
}
func (BooleanIntervalOp) DefaultParameters() Parameters { return Parameters{} }

func (BooleanIntervalOp) Execute(input interface{}, params Parameters, progress Progress) (interface{}, error) {
	in := input.(*BooleanIntervalInput)
	a := in.A

	if in.Op == OpNot {
		report(progress, 50)
		lo, hi := extent(a.Intervals)
		out := &IntervalSeries{Coords: a.Coords, Intervals: complement(a.Intervals, lo, hi)}
		report(progress, 100)
		return out, nil
	}

	b := in.B
	if b != nil && a.Coords != nil && b.Coords != nil && a.Coords.Name() != b.Coords.Name() {
		b = convertSeries(b, a.Coords)
	}
	report(progress, 30)

	var result []Interval
	switch in.Op {
	case OpAnd:
		result = intersect(a.Intervals, b.Intervals)
	case OpOr:
		result = mergeIntervals(union(a.Intervals, b.Intervals), 0)
	case OpXor:
		andNot1 := subtract(a.Intervals, b.Intervals)
		andNot2 := subtract(b.Intervals, a.Intervals)
		result = mergeIntervals(union(andNot1, andNot2), 0)
	case OpAndNot:
		result = subtract(a.Intervals, b.Intervals)
	}
	report(progress, 100)
	return &IntervalSeries{Coords: a.Coords, Intervals: result}, nil
}

func extent(intervals []Interval) (trackkit.TimeIndex, trackkit.TimeIndex) {
	if len(intervals) == 0 {
		return 0, 0
	}
	lo, hi := intervals[0].Start, intervals[0].End
	for _, iv := range intervals {
		if iv.Start < lo {
			lo = iv.Start
		}
		if iv.End > hi {
			hi = iv.End
		}
	}
	return lo, hi
}

func complement(intervals []Interval, lo, hi trackkit.TimeIndex) []Interval {
	var out []Interval
	cursor := lo
	for _, iv := range intervals {
		if iv.Start > cursor {
			out = append(out, Interval{Start: cursor, End: iv.Start - 1})
		}
		if iv.End+1 > cursor {
			cursor = iv.End + 1
		}
	}
	if cursor <= hi {
		out = append(out, Interval{Start: cursor, End: hi})
	}
	return out
}

func union(a, b []Interval) []Interval {
	all := append(append([]Interval{}, a...), b...)
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return mergeIntervals(all, 0)
}

func intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := maxTime(a[i].Start, b[j].Start)
		end := minTime(a[i].End, b[j].End)
		if start <= end {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

func subtract(a, b []Interval) []Interval {
	var out []Interval
	for _, iv := range a {
		cursor := iv.Start
		for _, sub := range b {
			if sub.End < cursor || sub.Start > iv.End {
				continue
			}
			if sub.Start > cursor {
				out = append(out, Interval{Start: cursor, End: sub.Start - 1})
			}
			if sub.End+1 > cursor {
				cursor = sub.End + 1
			}
		}
		if cursor <= iv.End {
			out = append(out, Interval{Start: cursor, End: iv.End})
		}
	}
	return out
}

func maxTime(a, b trackkit.TimeIndex) trackkit.TimeIndex {
	if a > b {
		return a
	}
	return b
}

func minTime(a, b trackkit.TimeIndex) trackkit.TimeIndex {
	if a < b {
		return a
	}
	return b
}

// convertSeries maps every interval endpoint from src's coordinate
// system into dst via trackkit.ConvertIndex (spec.md §4.13's
// cross-coordinate-system conversion for boolean algebra).
func convertSeries(src *IntervalSeries, dst *trackkit.CoordinateSystem) *IntervalSeries {
	out := &IntervalSeries{Coords: dst}
	for _, iv := range src.Intervals {
		start, ok1 := trackkit.ConvertIndex(iv.Start, src.Coords, dst, trackkit.NearestBelow)
		end, ok2 := trackkit.ConvertIndex(iv.End, src.Coords, dst, trackkit.NearestAbove)
		if !ok1 || !ok2 {
			continue
		}
		out.Intervals = append(out.Intervals, Interval{Start: start, End: end})
	}
	return out
}
