// Package tracker implements the two tracking strategies from spec.md
// §4.9/§4.10 (iterative smoothing and min-cost-flow) plus the outlier
// detector from §4.11, grounded on original_source's Tracker.hpp,
// MinCostFlowTracker.hpp, Tracking/AnchorUtils.hpp and
// OutlierDetection.hpp.
package tracker

import (
	kitlog "github.com/go-kit/kit/log"

	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/assign"
	"github.com/trackkit/trackkit/kalman"
)

// Observation is one (frame, entity, feature-vector) triple, the
// zero-copy-shaped input the spec's tracker API iterates over (spec.md
// §6's "(data_ref, entity_id, time_index) triples").
type Observation struct {
	Time     trackkit.TimeIndex
	EntityID trackkit.EntityID
	Vector   []float64
}

// GroundTruth maps frame -> group -> anchor entity, spec.md §6's
// "ground-truth map frame -> {group -> entity}".
type GroundTruth map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID

// Frames indexes observations by time for fast per-frame lookup during a
// forward pass.
type Frames struct {
	order []trackkit.TimeIndex
	byTime map[trackkit.TimeIndex][]Observation
}

// NewFrames buckets a flat observation list by time, sorted ascending.
func NewFrames(obs []Observation) *Frames {
	f := &Frames{byTime: make(map[trackkit.TimeIndex][]Observation)}
	seen := make(map[trackkit.TimeIndex]bool)
	for _, o := range obs {
		f.byTime[o.Time] = append(f.byTime[o.Time], o)
		if !seen[o.Time] {
			seen[o.Time] = true
			f.order = append(f.order, o.Time)
		}
	}
	for i := 1; i < len(f.order); i++ {
		for j := i; j > 0 && f.order[j] < f.order[j-1]; j-- {
			f.order[j], f.order[j-1] = f.order[j-1], f.order[j]
		}
	}
	return f
}

// Times returns every frame with at least one observation, ascending.
func (f *Frames) Times() []trackkit.TimeIndex { return f.order }

// At returns the observations at t.
func (f *Frames) At(t trackkit.TimeIndex) []Observation { return f.byTime[t] }

// Prototype bundles the stateless, clonable components every tracked
// group's filter and assigner are copied from (spec.md §4.9's "per-group
// filters are cloned from a prototype; the tracker never mutates the
// prototype").
type Prototype struct {
	Filter   *kalman.Filter
	Assigner assign.Assigner
	CostFn   assign.CostFunction
	Config   trackkit.Config
	// Logger receives spec.md §7's diagnostics (missing anchor, invariant
	// violation, numerical fallback) as structured key/value warnings. A
	// nil Logger is valid and silently drops them, matching the teacher's
	// own tracelog.Nop() default.
	Logger kitlog.Logger
}

// logWarn emits a "level=warn msg=<msg> ..." line through logger, or does
// nothing if logger is nil, per Prototype.Logger's contract.
func logWarn(logger kitlog.Logger, msg string, keyvals ...interface{}) {
	if logger == nil {
		return
	}
	line := append([]interface{}{"level", "warn", "msg", msg}, keyvals...)
	logger.Log(line...)
}

// StateSequence is one group's ordered (frame, state) history.
type StateSequence struct {
	Times  []trackkit.TimeIndex
	States []trackkit.FilterState
}

// Result is the tracker's output: smoothed state sequences per group,
// aligned with the frames that group was processed over (spec.md §6).
type Result map[trackkit.GroupID]StateSequence
