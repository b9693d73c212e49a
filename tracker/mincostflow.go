package tracker

import (
	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/kalman"
)

// metaNode is a chain of observations greedily linked by a single filter
// lineage (spec.md §4.10 Phase A), grounded on MinCostFlowTracker.hpp's
// MetaNode/build_entity_chain.
type metaNode struct {
	members    []Observation
	startState trackkit.FilterState
	endState   trackkit.FilterState
	startFrame trackkit.TimeIndex
	endFrame   trackkit.TimeIndex
}

// MinCostFlow implements spec.md §4.10: build greedy meta-node chains
// once, then solve a per-group min-cost flow between ground-truth anchors
// over those chains.
type MinCostFlow struct {
	proto        Prototype
	initialState func([]float64) trackkit.FilterState
}

// NewMinCostFlow builds a min-cost-flow tracker from a prototype and the
// initial-state constructor used to seed a fresh chain.
func NewMinCostFlow(proto Prototype, initialState func([]float64) trackkit.FilterState) *MinCostFlow {
	return &MinCostFlow{proto: proto, initialState: initialState}
}

// Process runs phases A-D of spec.md §4.10 and flushes the final
// per-group paths to groups. It returns an error without processing
// anything if gt assigns the same entity to two groups at one frame
// (spec.md §9).
func (m *MinCostFlow) Process(frames *Frames, groups *trackkit.GroupManager, gt GroundTruth, progress func(int)) (Result, error) {
	if err := ValidateGroundTruth(gt); err != nil {
		return nil, err
	}

	metaNodes := m.buildMetaNodes(frames, nil, nil)
	if progress != nil {
		progress(40)
	}

	segments := groundTruthSegments(gt)
	result := make(Result, len(segments))

	for i, seg := range segments {
		path := m.solveGroupFlow(metaNodes, frames, seg)
		if len(path) == 0 {
			continue
		}
		states := m.finalSmooth(path)
		result[seg.group] = StateSequence{Times: timesOf(path), States: states}
		m.writeBack(seg.group, path, groups)

		if progress != nil {
			progress(40 + 60*(i+1)/len(segments))
		}
	}
	groups.NotifyGroupsChanged()
	if progress != nil {
		progress(100)
	}
	return result, nil
}

// buildMetaNodes greedily chains unused observations frame-by-frame
// (spec.md §4.10 Phase A). excluded observations are skipped unless
// present in include.
func (m *MinCostFlow) buildMetaNodes(frames *Frames, excluded, include map[trackkit.EntityID]bool) []metaNode {
	consumed := make(map[trackkit.EntityID]bool)
	var nodes []metaNode
	threshold := m.proto.Config.CheapAssignmentThreshold

	times := frames.Times()
	for ti, t := range times {
		for _, o := range frames.At(t) {
			if consumed[o.EntityID] {
				continue
			}
			if excluded != nil && excluded[o.EntityID] && !(include != nil && include[o.EntityID]) {
				continue
			}

			node := metaNode{members: []Observation{o}, startFrame: t, endFrame: t}
			filter := m.proto.Filter.Clone()
			filter.Initialize(m.initialState(o.Vector))
			node.startState = filter.CurrentState()
			node.endState = filter.CurrentState()
			consumed[o.EntityID] = true

			cursor := ti
			for {
				cursor++
				if cursor >= len(times) {
					break
				}
				nextT := times[cursor]
				candidates := frames.At(nextT)
				best := -1
				bestCost := m.proto.Config.MaxAssignmentDistance * 1e9
				predicted := filter.Predict()
				for ci, c := range candidates {
					if consumed[c.EntityID] {
						continue
					}
					if excluded != nil && excluded[c.EntityID] && !(include != nil && include[c.EntityID]) {
						continue
					}
					cost := m.proto.CostFn(predicted, c.Vector, int(nextT-node.endFrame))
					if cost < bestCost {
						bestCost = cost
						best = ci
					}
				}
				if best < 0 || bestCost > threshold {
					break
				}
				chosen := candidates[best]
				updated, err := filter.Update(predicted, kalman.Measurement{Vector: chosen.Vector})
				if err != nil {
					logWarn(m.proto.Logger, "chain extension update failed, ending meta-node chain early",
						"entity", chosen.EntityID, "frame", nextT, "error", err)
					break
				}
				node.members = append(node.members, chosen)
				node.endFrame = nextT
				node.endState = updated
				consumed[chosen.EntityID] = true
			}
			nodes = append(nodes, node)
		}
	}
	return nodes
}

type groundTruthSegment struct {
	group                   trackkit.GroupID
	startFrame, endFrame    trackkit.TimeIndex
	startEntity, endEntity  trackkit.EntityID
}

// groundTruthSegments collapses the ground-truth map into consecutive
// (start-anchor, end-anchor) pairs per group, ordered by frame.
func groundTruthSegments(gt GroundTruth) []groundTruthSegment {
	byGroup := make(map[trackkit.GroupID][]struct {
		t trackkit.TimeIndex
		e trackkit.EntityID
	})
	for t, byG := range gt {
		for g, e := range byG {
			byGroup[g] = append(byGroup[g], struct {
				t trackkit.TimeIndex
				e trackkit.EntityID
			}{t, e})
		}
	}
	var out []groundTruthSegment
	for g, anchors := range byGroup {
		for i := 0; i < len(anchors); i++ {
			for j := i + 1; j < len(anchors); j++ {
				if anchors[j].t < anchors[i].t {
					anchors[i], anchors[j] = anchors[j], anchors[i]
				}
			}
		}
		for i := 0; i+1 < len(anchors); i++ {
			out = append(out, groundTruthSegment{
				group:       g,
				startFrame:  anchors[i].t,
				startEntity: anchors[i].e,
				endFrame:    anchors[i+1].t,
				endEntity:   anchors[i+1].e,
			})
		}
	}
	return out
}

// solveGroupFlow finds the optimal observation sequence between a
// segment's two anchors (spec.md §4.10 Phases B and B.1).
func (m *MinCostFlow) solveGroupFlow(nodes []metaNode, frames *Frames, seg groundTruthSegment) []Observation {
	startIdx, startMember := findAnchor(nodes, seg.startFrame, seg.startEntity)
	endIdx, endMember := findAnchor(nodes, seg.endFrame, seg.endEntity)
	if startIdx < 0 || endIdx < 0 {
		// spec.md §7: a missing start or end anchor skips the group
		// rather than failing the whole run.
		missing := seg.startEntity
		missingFrame := seg.startFrame
		if startIdx >= 0 {
			missing = seg.endEntity
			missingFrame = seg.endFrame
		}
		logWarn(m.proto.Logger, "missing anchor, skipping group",
			"group", seg.group, "frame", missingFrame, "entity", missing)
		return nil
	}

	trimmedStart := nodes[startIdx].members[startMember:]
	trimmedEnd := nodes[endIdx].members[:endMember+1]

	if startIdx == endIdx {
		if startMember <= endMember {
			return nodes[startIdx].members[startMember : endMember+1]
		}
		return nil
	}

	between := candidateMiddleNodes(nodes, startIdx, endIdx, startMember, endMember, seg)

	path := m.flowOverMeta(between, trimmedStart, trimmedEnd, seg)
	if path != nil {
		return path
	}

	// Fallback: concatenate trimmed start + trimmed end, deduplicating a
	// shared boundary frame (spec.md §4.10.2 Phase B.1 fallback).
	out := append([]Observation{}, trimmedStart...)
	if len(trimmedEnd) > 0 && len(out) > 0 && out[len(out)-1].Time == trimmedEnd[0].Time {
		trimmedEnd = trimmedEnd[1:]
	}
	return append(out, trimmedEnd...)
}

func candidateMiddleNodes(nodes []metaNode, startIdx, endIdx, startMember, endMember int, seg groundTruthSegment) []metaNode {
	start := metaNode{
		members:    nodes[startIdx].members[startMember:],
		startFrame: nodes[startIdx].members[startMember].Time,
		endFrame:   nodes[startIdx].endFrame,
		startState: nodes[startIdx].startState,
		endState:   nodes[startIdx].endState,
	}
	end := metaNode{
		members:    nodes[endIdx].members[:endMember+1],
		startFrame: nodes[endIdx].startFrame,
		endFrame:   nodes[endIdx].members[endMember].Time,
		startState: nodes[endIdx].startState,
		endState:   nodes[endIdx].endState,
	}
	out := []metaNode{start}
	for i, n := range nodes {
		if i == startIdx || i == endIdx {
			continue
		}
		if n.startFrame > seg.startFrame && n.endFrame < seg.endFrame {
			out = append(out, n)
		}
	}
	out = append(out, end)
	return out
}

// flowOverMeta builds the source/sink meta-node graph and solves one
// unit of min-cost flow between trimmedStart (index 0) and trimmedEnd
// (last index) of `between`.
func (m *MinCostFlow) flowOverMeta(between []metaNode, trimmedStart, trimmedEnd []Observation, seg groundTruthSegment) []Observation {
	n := len(between)
	if n < 2 {
		return nil
	}
	source := n
	sink := n + 1
	g := newFlowGraph(n + 2)
	g.addArc(source, 0, 1, 0)
	g.addArc(n-1, sink, 1, 0)

	horizon := m.proto.Config.MaxPredictionHorizon
	scale := m.proto.Config.CostScaleFactor

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			from, to := between[i], between[j]
			if to.startFrame <= from.endFrame {
				continue
			}
			gap := int(to.startFrame - from.endFrame)
			if horizon > 0 && gap > horizon {
				continue
			}
			cost := m.transitionCost(from, to, gap)
			g.addArc(i, j, 1, int64(cost*scale))
		}
	}

	flow, _ := g.minCostFlow(source, sink, 1)
	if flow < 1 {
		return nil
	}
	nodePath := g.path(source, sink)
	if nodePath == nil {
		return nil
	}

	var out []Observation
	for _, idx := range nodePath {
		if idx == source || idx == sink {
			continue
		}
		out = append(out, between[idx].members...)
	}
	return out
}

func (m *MinCostFlow) transitionCost(from, to metaNode, gapFrames int) float64 {
	filter := m.proto.Filter.Clone()
	filter.Initialize(from.endState)
	var predicted trackkit.FilterState
	for i := 0; i < gapFrames; i++ {
		predicted = filter.Predict()
	}
	return m.proto.CostFn(predicted, to.members[0].Vector, gapFrames)
}

func findAnchor(nodes []metaNode, frame trackkit.TimeIndex, entity trackkit.EntityID) (nodeIdx, memberIdx int) {
	for i, n := range nodes {
		for k, mem := range n.members {
			if mem.Time == frame && mem.EntityID == entity {
				return i, k
			}
		}
	}
	return -1, -1
}

// finalSmooth runs a forward Kalman pass over path (predicting
// multiple steps across any frame gaps), then RTS-smooths it (spec.md
// §4.10 Phase C).
func (m *MinCostFlow) finalSmooth(path []Observation) []trackkit.FilterState {
	if len(path) == 0 {
		return nil
	}
	filter := m.proto.Filter.Clone()
	filter.Initialize(m.initialState(path[0].Vector))

	steps := make([]kalman.StepRecord, 0, len(path))
	prevState := filter.CurrentState()
	steps = append(steps, kalman.StepRecord{Filtered: prevState, Predicted: prevState, F: filter.F})

	prevTime := path[0].Time
	for i := 1; i < len(path); i++ {
		gap := int(path[i].Time - prevTime)
		if gap < 1 {
			gap = 1
		}
		var predicted trackkit.FilterState
		for s := 0; s < gap; s++ {
			predicted = filter.Predict()
		}
		updated, err := filter.Update(predicted, kalman.Measurement{Vector: path[i].Vector})
		if err != nil {
			updated = predicted
		}
		steps = append(steps, kalman.StepRecord{Filtered: updated, Predicted: predicted, F: filter.F})
		prevTime = path[i].Time
	}

	if len(steps) < 2 {
		out := make([]trackkit.FilterState, len(steps))
		for i, s := range steps {
			out[i] = s.Filtered
		}
		return out
	}
	smoothed, err := m.proto.Filter.Smooth(steps)
	if err != nil {
		logWarn(m.proto.Logger, "RTS smoothing failed, falling back to filtered states", "error", err)
		out := make([]trackkit.FilterState, len(steps))
		for i, s := range steps {
			out[i] = s.Filtered
		}
		return out
	}
	return smoothed
}

// writeBack adds every path member not already in any group to group,
// per spec.md §4.10 Phase D (never relabels existing membership).
func (m *MinCostFlow) writeBack(group trackkit.GroupID, path []Observation, groups *trackkit.GroupManager) {
	var toAdd []trackkit.EntityID
	for _, o := range path {
		if len(groups.GroupsContainingEntity(o.EntityID)) == 0 {
			toAdd = append(toAdd, o.EntityID)
		}
	}
	groups.AddEntitiesToGroup(group, toAdd)
}

func timesOf(path []Observation) []trackkit.TimeIndex {
	out := make([]trackkit.TimeIndex, len(path))
	for i, o := range path {
		out[i] = o.Time
	}
	return out
}
