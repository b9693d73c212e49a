package tracker

import (
	"math"

	"github.com/gonum/stat/distuv"

	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/kalman"
)

// OutlierStrategy selects how a group's flagged-entity set is decided
// (spec.md §4.11).
type OutlierStrategy int

const (
	// ChiSquaredStrategy flags entities whose squared Mahalanobis
	// residual exceeds a chi-squared threshold.
	ChiSquaredStrategy OutlierStrategy = iota
	// MagnitudeStrategy flags entities whose residual magnitude exceeds
	// mean + k*stddev across the group.
	MagnitudeStrategy
)

// OutlierDetector implements spec.md §4.11: forward+RTS residual
// analysis per group, flagging entities into a shared outlier group.
type OutlierDetector struct {
	proto        Prototype
	initialState func([]float64) trackkit.FilterState
	Strategy     OutlierStrategy
}

// NewOutlierDetector builds a detector using the chi-squared strategy by
// default.
func NewOutlierDetector(proto Prototype, initialState func([]float64) trackkit.FilterState) *OutlierDetector {
	return &OutlierDetector{proto: proto, initialState: initialState, Strategy: ChiSquaredStrategy}
}

// Process scans each of groupIDs for outliers and collects every flagged
// entity into a single group named by Config.OutlierGroupName (created if
// absent), notifying observers once at the end.
func (d *OutlierDetector) Process(frames *Frames, groups *trackkit.GroupManager, groupIDs []trackkit.GroupID, startFrame, endFrame trackkit.TimeIndex, progress func(int)) {
	outlierGroup := d.ensureOutlierGroup(groups)
	var flagged []trackkit.EntityID

	for i, gid := range groupIDs {
		flagged = append(flagged, d.processGroup(frames, groups, gid, startFrame, endFrame)...)
		if progress != nil {
			progress(100 * (i + 1) / len(groupIDs))
		}
	}

	groups.AddEntitiesToGroup(outlierGroup, flagged)
	groups.NotifyGroupsChanged()
	if progress != nil {
		progress(100)
	}
}

func (d *OutlierDetector) ensureOutlierGroup(groups *trackkit.GroupManager) trackkit.GroupID {
	name := d.proto.Config.OutlierGroupName
	if name == "" {
		name = "outliers"
	}
	for _, desc := range groups.AllGroupDescriptors() {
		if desc.Name == name {
			return desc.ID
		}
	}
	return groups.CreateGroup(name, "entities flagged by outlier detection")
}

func (d *OutlierDetector) processGroup(frames *Frames, groups *trackkit.GroupManager, gid trackkit.GroupID, startFrame, endFrame trackkit.TimeIndex) []trackkit.EntityID {
	members := make(map[trackkit.EntityID]bool)
	for _, e := range groups.EntitiesInGroup(gid) {
		members[e] = true
	}
	if len(members) == 0 {
		return nil
	}

	var sequence []Observation
	for _, t := range frames.Times() {
		if t < startFrame || t > endFrame {
			continue
		}
		for _, o := range frames.At(t) {
			if members[o.EntityID] {
				sequence = append(sequence, o)
				break // one entity per group per frame
			}
		}
	}
	if len(sequence) < 2 {
		return nil
	}

	filter := d.proto.Filter.Clone()
	filter.Initialize(d.initialState(sequence[0].Vector))

	steps := make([]kalman.StepRecord, 0, len(sequence))
	for _, o := range sequence {
		predicted := filter.Predict()
		updated, err := filter.Update(predicted, kalman.Measurement{Vector: o.Vector})
		if err != nil {
			updated = predicted
		}
		steps = append(steps, kalman.StepRecord{Filtered: updated, Predicted: predicted, F: filter.F})
	}

	smoothed, err := d.proto.Filter.Smooth(steps)
	if err != nil {
		logWarn(d.proto.Logger, "RTS smoothing failed, skipping outlier pass for group", "group", gid, "error", err)
		return nil
	}

	warmup := d.proto.Config.OutlierWarmupFrames
	if warmup < 0 {
		warmup = 0
	}
	if warmup >= len(smoothed) {
		return nil
	}

	residuals := make([]float64, 0, len(smoothed)-warmup)
	entities := make([]trackkit.EntityID, 0, len(smoothed)-warmup)
	for i := warmup; i < len(smoothed); i++ {
		cost := d.proto.CostFn(smoothed[i], sequence[i].Vector, 1)
		residuals = append(residuals, cost)
		entities = append(entities, sequence[i].EntityID)
	}

	switch d.Strategy {
	case MagnitudeStrategy:
		return d.flagByMagnitude(residuals, entities)
	default:
		return d.flagByChiSquared(residuals, entities)
	}
}

// flagByChiSquared squares each Mahalanobis residual into a chi-squared
// statistic and flags entities above the configured threshold.
func (d *OutlierDetector) flagByChiSquared(residuals []float64, entities []trackkit.EntityID) []trackkit.EntityID {
	threshold := d.proto.Config.OutlierChiSquared
	if threshold <= 0 {
		threshold = 11.34 // 99th percentile, ~3 DoF
	}
	var out []trackkit.EntityID
	for i, r := range residuals {
		chiSq := r * r
		if chiSq > threshold {
			out = append(out, entities[i])
		}
	}
	return out
}

// flagByMagnitude flags entities whose residual exceeds mean + k*stddev,
// the alternative strategy named in spec.md §4.11.
func (d *OutlierDetector) flagByMagnitude(residuals []float64, entities []trackkit.EntityID) []trackkit.EntityID {
	if len(residuals) == 0 {
		return nil
	}
	mean := 0.0
	for _, r := range residuals {
		mean += r
	}
	mean /= float64(len(residuals))

	variance := 0.0
	for _, r := range residuals {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(residuals))
	std := math.Sqrt(variance)

	k := d.proto.Config.OutlierMagnitudeK
	if k <= 0 {
		k = 3.0
	}
	threshold := mean + k*std

	var out []trackkit.EntityID
	for i, r := range residuals {
		if r > threshold {
			out = append(out, entities[i])
		}
	}
	return out
}

// ChiSquaredPercentile exposes the gonum/stat/distuv chi-squared
// quantile directly, so callers can derive their own threshold (e.g. a
// 95th-percentile cutoff) instead of using spec.md's fixed defaults.
func ChiSquaredPercentile(degreesOfFreedom float64, percentile float64) float64 {
	dist := distuv.ChiSquared{K: degreesOfFreedom}
	return dist.Quantile(percentile)
}
