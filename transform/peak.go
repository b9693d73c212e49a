package transform

import "github.com/trackkit/trackkit"

// PeakDirection selects whether PeakDetectionOp looks for the maximum or
// minimum sample within each interval.
type PeakDirection int

const (
	PeakMax PeakDirection = iota
	PeakMin
)

// AnalogSample is one (time, value) sample from an analog channel.
type AnalogSample struct {
	Time  trackkit.TimeIndex
	Value float64
}

// PeakDetectionInput pairs an interval series with the analog samples to
// search within each interval.
type PeakDetectionInput struct {
	Intervals *IntervalSeries
	Samples   []AnalogSample
}

// PeakEvent is one detected extremum, at the time index of the extreme
// sample.
type PeakEvent struct {
	Time  trackkit.TimeIndex
	Value float64
}

// PeakDetectionOp finds, per interval, the extreme sample in range and
// emits an event at its time index (spec.md §4.13 "Peak detection on
// analog within intervals"). Ranges with no samples are skipped silently.
type PeakDetectionOp struct{}

func (PeakDetectionOp) Name() string           { return "peak_detection" }
func (PeakDetectionOp) TargetInputType() string { return "interval_analog_pair" }
func (PeakDetectionOp) CanApply(input interface{}) bool {
	v, ok := input.(*PeakDetectionInput)
	return ok && v != nil && v.Intervals != nil
}
func (PeakDetectionOp) DefaultParameters() Parameters {
	return Parameters{"direction": int(PeakMax)}
}

func (PeakDetectionOp) Execute(input interface{}, params Parameters, progress Progress) (interface{}, error) {
	in := input.(*PeakDetectionInput)
	direction := PeakDirection(intParam(params, "direction", int(PeakMax)))

	sorted := append([]AnalogSample{}, in.Samples...)
	sortSamples(sorted)

	var events []PeakEvent
	total := len(in.Intervals.Intervals)
	for i, iv := range in.Intervals.Intervals {
		lo := lowerBoundSample(sorted, iv.Start)
		var best *AnalogSample
		for j := lo; j < len(sorted) && sorted[j].Time <= iv.End; j++ {
			s := sorted[j]
			if best == nil {
				best = &s
				continue
			}
			if direction == PeakMax && s.Value > best.Value {
				best = &s
			} else if direction == PeakMin && s.Value < best.Value {
				best = &s
			}
		}
		if best != nil {
			events = append(events, PeakEvent{Time: best.Time, Value: best.Value})
		}
		if total > 0 {
			report(progress, 100*(i+1)/total)
		}
	}
	report(progress, 100)
	return events, nil
}

func sortSamples(s []AnalogSample) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Time < s[j-1].Time; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func lowerBoundSample(s []AnalogSample, t trackkit.TimeIndex) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid].Time < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
