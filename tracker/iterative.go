package tracker

import (
	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/assign"
	"github.com/trackkit/trackkit/kalman"
)

// track is one group's running filter state during a forward pass.
type track struct {
	group  trackkit.GroupID
	filter *kalman.Filter
	active bool
	steps  []kalman.StepRecord
	times  []trackkit.TimeIndex
	// assigned[i] is the entity claimed at times[i] (InvalidEntityID if
	// the track went unobserved that frame).
	assigned []trackkit.EntityID
}

// plannedAssignment is the observation a group's smoothed state would
// have chosen at a frame, computed during snapped reassignment and
// consulted as a forced pick on the next iteration's forward pass.
type plannedAssignment struct {
	group    trackkit.GroupID
	time     trackkit.TimeIndex
	entityID trackkit.EntityID
}

// IterativeSmoother implements spec.md §4.9: forward pass + RTS smoothing
// + snapped reassignment, iterated until consistent or a cap is reached.
type IterativeSmoother struct {
	proto        Prototype
	initialState func([]float64) trackkit.FilterState
}

// NewIterativeSmoother builds a smoother from a prototype filter/assigner
// and the function used to seed a freshly (re)initialised track from an
// observation's raw feature vector.
func NewIterativeSmoother(proto Prototype, initialState func([]float64) trackkit.FilterState) *IterativeSmoother {
	return &IterativeSmoother{proto: proto, initialState: initialState}
}

// Process runs the iterative forward/RTS loop over [startFrame,
// endFrame] and flushes the final consistent (or cap-exhausted) result to
// groups. It returns an error without processing anything if gt assigns
// the same entity to two groups at one frame (spec.md §9).
func (s *IterativeSmoother) Process(frames *Frames, groups *trackkit.GroupManager, gt GroundTruth, startFrame, endFrame trackkit.TimeIndex, progress func(int)) (Result, error) {
	if err := ValidateGroundTruth(gt); err != nil {
		return nil, err
	}

	groupSet := make(map[trackkit.GroupID]bool)
	for _, byGroup := range gt {
		for g := range byGroup {
			groupSet[g] = true
		}
	}

	var planned []plannedAssignment
	var lastTracks map[trackkit.GroupID]*track
	maxIter := s.proto.Config.MaxIterations
	if maxIter <= 0 {
		maxIter = 3
	}

	var priorSmoothed map[trackkit.GroupID][]trackkit.FilterState
	var priorTimes map[trackkit.GroupID][]trackkit.TimeIndex

	for iter := 0; iter < maxIter; iter++ {
		tracks := s.resetTracks(groupSet, lastTracks, priorSmoothed)
		anchorMismatch, actual := s.forwardPass(frames, tracks, gt, planned, startFrame, endFrame, priorSmoothed, priorTimes)

		smoothed := s.smoothAll(tracks)
		nextPlanned, snappedMatches := s.snappedReassignment(smoothed, tracks, frames, gt)

		consistent := !anchorMismatch && snappedMatches(actual)
		lastTracks = tracks
		planned = nextPlanned

		priorSmoothed = smoothed
		priorTimes = make(map[trackkit.GroupID][]trackkit.TimeIndex, len(tracks))
		for g, tr := range tracks {
			priorTimes[g] = tr.times
		}

		if progress != nil {
			progress(100 * (iter + 1) / maxIter)
		}

		if consistent || iter == maxIter-1 {
			s.flush(smoothed, tracks, groups)
			if progress != nil {
				progress(100)
			}
			return s.toResult(smoothed), nil
		}
	}
	return Result{}, nil
}

func (s *IterativeSmoother) resetTracks(groupSet map[trackkit.GroupID]bool, prev map[trackkit.GroupID]*track, prevSmoothed map[trackkit.GroupID][]trackkit.FilterState) map[trackkit.GroupID]*track {
	out := make(map[trackkit.GroupID]*track, len(groupSet))
	for g := range groupSet {
		t := &track{group: g, filter: s.proto.Filter.Clone()}
		if p, ok := prev[g]; ok && len(p.steps) > 0 {
			// Reset to the group's smoothed starting state rather than
			// the prototype's default, per spec.md §4.9 step 5.
			start := p.steps[0].Filtered
			if sm := prevSmoothed[g]; len(sm) > 0 {
				start = sm[0]
			}
			t.filter.Initialize(start)
			t.active = true
		}
		out[g] = t
	}
	return out
}

// predictForFrame advances tr to frame t. If the previous iteration
// produced a smoothed state for this group at most two frames before t
// (the adjacent prior frame, spec.md §4.9 step 1), that smoothed belief
// replaces the track's running state before predicting forward across
// the gap, rather than propagating from whatever the current pass has
// accumulated since its last real update — letting a track recover its
// footing across a short blackout using what the previous iteration's
// smoother already learned.
func (s *IterativeSmoother) predictForFrame(tr *track, t trackkit.TimeIndex, priorTimes []trackkit.TimeIndex, priorStates []trackkit.FilterState) trackkit.FilterState {
	if gap, state, ok := adjacentPriorState(t, priorTimes, priorStates); ok && gap <= 2 {
		tr.filter.Initialize(state)
		predicted := tr.filter.Predict()
		for i := 1; i < gap; i++ {
			tr.filter.Initialize(predicted)
			predicted = tr.filter.Predict()
		}
		return predicted
	}
	return tr.filter.Predict()
}

// adjacentPriorState finds the most recent time strictly before t in
// times and returns the gap (t - that time) and its associated state.
func adjacentPriorState(t trackkit.TimeIndex, times []trackkit.TimeIndex, states []trackkit.FilterState) (gap int, state trackkit.FilterState, ok bool) {
	for i := len(times) - 1; i >= 0; i-- {
		if times[i] < t && i < len(states) {
			return int(t - times[i]), states[i], true
		}
	}
	return 0, trackkit.FilterState{}, false
}

// forwardPass walks every frame in order, handling anchors and the
// residual assignment among remaining active tracks and observations.
// priorSmoothed/priorTimes are the previous iteration's smoothed
// sequences, keyed by group, consulted by predictForFrame.
func (s *IterativeSmoother) forwardPass(frames *Frames, tracks map[trackkit.GroupID]*track, gt GroundTruth, planned []plannedAssignment, startFrame, endFrame trackkit.TimeIndex, priorSmoothed map[trackkit.GroupID][]trackkit.FilterState, priorTimes map[trackkit.GroupID][]trackkit.TimeIndex) (mismatch bool, actual map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID) {
	actual = make(map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID)
	plannedByFrame := make(map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID)
	for _, p := range planned {
		if plannedByFrame[p.time] == nil {
			plannedByFrame[p.time] = make(map[trackkit.GroupID]trackkit.EntityID)
		}
		plannedByFrame[p.time][p.group] = p.entityID
	}

	for _, t := range frames.Times() {
		if t < startFrame || t > endFrame {
			continue
		}
		obs := frames.At(t)
		claimed := make(map[trackkit.EntityID]bool)
		byEntity := make(map[trackkit.EntityID]Observation, len(obs))
		for _, o := range obs {
			byEntity[o.EntityID] = o
		}
		actual[t] = make(map[trackkit.GroupID]trackkit.EntityID)

		// Step 1: anchors.
		anchors := gt[t]
		anchorGroups := make(map[trackkit.GroupID]bool, len(anchors))
		for g, anchorEntity := range anchors {
			anchorGroups[g] = true
			tr := tracks[g]
			anchorObs, ok := byEntity[anchorEntity]
			if !ok {
				logWarn(s.proto.Logger, "anchor references a non-existent observation",
					"group", g, "frame", t, "entity", anchorEntity)
				continue // invariant violation
			}
			if !tr.active {
				tr.filter.Initialize(s.initialState(anchorObs.Vector))
				tr.active = true
				tr.appendStep(t, kalman.StepRecord{Filtered: tr.filter.CurrentState(), Predicted: tr.filter.CurrentState(), F: s.proto.Filter.F}, anchorEntity)
				claimed[anchorEntity] = true
				actual[t][g] = anchorEntity
				continue
			}

			predicted := s.predictForFrame(tr, t, priorTimes[g], priorSmoothed[g])
			best := s.bestPick(predicted, obs, claimed)
			if best != anchorEntity {
				mismatch = true
				logWarn(s.proto.Logger, "forward pass would not have picked the ground-truth anchor, reinitializing track",
					"group", g, "frame", t, "anchor", anchorEntity, "predicted_pick", best)
				tr.filter.Initialize(s.initialState(anchorObs.Vector))
				tr.appendStep(t, kalman.StepRecord{Filtered: tr.filter.CurrentState(), Predicted: predicted, F: tr.filter.F}, anchorEntity)
			} else {
				updated, err := tr.filter.Update(predicted, kalman.Measurement{Vector: anchorObs.Vector})
				if err != nil {
					updated = predicted
				}
				tr.appendStep(t, kalman.StepRecord{Filtered: updated, Predicted: predicted, F: tr.filter.F}, anchorEntity)
			}
			claimed[anchorEntity] = true
			actual[t][g] = anchorEntity
		}

		// Step 2: planned snapped assignments from the previous iteration.
		remainingGroups := make([]trackkit.GroupID, 0)
		for g, tr := range tracks {
			if anchorGroups[g] || !tr.active {
				continue
			}
			if plan, ok := plannedByFrame[t][g]; ok {
				if plan != trackkit.InvalidEntityID && !claimed[plan] {
					if o, ok := byEntity[plan]; ok {
						predicted := s.predictForFrame(tr, t, priorTimes[g], priorSmoothed[g])
						updated, err := tr.filter.Update(predicted, kalman.Measurement{Vector: o.Vector})
						if err != nil {
							updated = predicted
						}
						tr.appendStep(t, kalman.StepRecord{Filtered: updated, Predicted: predicted, F: tr.filter.F}, plan)
						claimed[plan] = true
						actual[t][g] = plan
						continue
					}
				}
			}
			remainingGroups = append(remainingGroups, g)
		}

		// Step 3: residual assignment among remaining active tracks and
		// observations not claimed earlier in this frame. Membership of an
		// observation in an existing group is not checked here.
		s.residualAssignment(t, tracks, remainingGroups, obs, claimed, actual, priorSmoothed, priorTimes)
	}
	return mismatch, actual
}

func (s *IterativeSmoother) residualAssignment(t trackkit.TimeIndex, tracks map[trackkit.GroupID]*track, groups []trackkit.GroupID, obs []Observation, claimed map[trackkit.EntityID]bool, actual map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID, priorSmoothed map[trackkit.GroupID][]trackkit.FilterState, priorTimes map[trackkit.GroupID][]trackkit.TimeIndex) {
	if len(groups) == 0 {
		return
	}
	var available []Observation
	for _, o := range obs {
		if !claimed[o.EntityID] {
			available = append(available, o)
		}
	}

	predicted := make([]trackkit.FilterState, len(groups))
	for i, g := range groups {
		predicted[i] = s.predictForFrame(tracks[g], t, priorTimes[g], priorSmoothed[g])
	}

	if len(available) == 0 {
		for i, g := range groups {
			tr := tracks[g]
			tr.appendStep(t, kalman.StepRecord{Filtered: predicted[i], Predicted: predicted[i], F: tr.filter.F}, trackkit.InvalidEntityID)
		}
		return
	}

	cost := make([][]float64, len(predicted))
	for i := range predicted {
		cost[i] = make([]float64, len(available))
		for j, o := range available {
			cost[i][j] = s.proto.CostFn(predicted[i], o.Vector, 1)
		}
	}
	assignments := s.proto.Assigner.Solve(cost, s.proto.Config.MaxAssignmentDistance)

	for _, a := range assignments {
		g := groups[a.Observation]
		tr := tracks[g]
		if a.Prediction < 0 {
			tr.appendStep(t, kalman.StepRecord{Filtered: predicted[a.Observation], Predicted: predicted[a.Observation], F: tr.filter.F}, trackkit.InvalidEntityID)
			continue
		}
		o := available[a.Prediction]
		updated, err := tr.filter.Update(predicted[a.Observation], kalman.Measurement{Vector: o.Vector})
		if err != nil {
			updated = predicted[a.Observation]
		}
		tr.appendStep(t, kalman.StepRecord{Filtered: updated, Predicted: predicted[a.Observation], F: tr.filter.F}, o.EntityID)
		actual[t][g] = o.EntityID
	}
}

func (s *IterativeSmoother) bestPick(predicted trackkit.FilterState, obs []Observation, claimed map[trackkit.EntityID]bool) trackkit.EntityID {
	best := trackkit.InvalidEntityID
	bestCost := assign.Infeasible
	for _, o := range obs {
		if claimed[o.EntityID] {
			continue
		}
		c := s.proto.CostFn(predicted, o.Vector, 1)
		if c < bestCost {
			bestCost = c
			best = o.EntityID
		}
	}
	return best
}

func (s *IterativeSmoother) smoothAll(tracks map[trackkit.GroupID]*track) map[trackkit.GroupID][]trackkit.FilterState {
	out := make(map[trackkit.GroupID][]trackkit.FilterState, len(tracks))
	for g, tr := range tracks {
		if len(tr.steps) < 2 {
			if len(tr.steps) == 1 {
				out[g] = []trackkit.FilterState{tr.steps[0].Filtered}
			}
			continue
		}
		smoothed, err := s.proto.Filter.Smooth(tr.steps)
		if err != nil {
			logWarn(s.proto.Logger, "RTS smoothing failed, falling back to filtered states",
				"group", g, "error", err)
			states := make([]trackkit.FilterState, len(tr.steps))
			for i, st := range tr.steps {
				states[i] = st.Filtered
			}
			out[g] = states
			continue
		}
		out[g] = smoothed
	}
	return out
}

// snappedReassignment recomputes, per frame, the observation each
// group's smoothed state would have chosen, honouring anchors, and
// returns both the next iteration's planned assignments and a matcher
// that checks the current iteration's actual picks against them.
func (s *IterativeSmoother) snappedReassignment(smoothed map[trackkit.GroupID][]trackkit.FilterState, tracks map[trackkit.GroupID]*track, frames *Frames, gt GroundTruth) ([]plannedAssignment, func(map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID) bool) {
	var planned []plannedAssignment
	snapped := make(map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID)
	// gated mirrors snapped but only carries the entries step 4b's
	// consistency check is allowed to compare against: anchors (always
	// checked) and non-anchor frames whose gap from the track's previous
	// processed frame is at most two (spec.md §4.9 step 4b). A frame
	// coming off a longer blackout hasn't had a chance to converge yet,
	// so holding it to the snapped pick would block consistency forever.
	gated := make(map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID)

	for g, tr := range tracks {
		states := smoothed[g]
		for i, t := range tr.times {
			if i >= len(states) {
				break
			}
			if snapped[t] == nil {
				snapped[t] = make(map[trackkit.GroupID]trackkit.EntityID)
			}
			if gated[t] == nil {
				gated[t] = make(map[trackkit.GroupID]trackkit.EntityID)
			}

			gap := 1
			if i > 0 {
				gap = int(t - tr.times[i-1])
			}

			if anchor, ok := gt[t][g]; ok {
				snapped[t][g] = anchor
				gated[t][g] = anchor
				planned = append(planned, plannedAssignment{group: g, time: t, entityID: anchor})
				continue
			}
			obs := frames.At(t)
			pick := s.bestPick(states[i], obs, nil)
			snapped[t][g] = pick
			if gap <= 2 {
				gated[t][g] = pick
			}
			planned = append(planned, plannedAssignment{group: g, time: t, entityID: pick})
		}
	}

	matches := func(actual map[trackkit.TimeIndex]map[trackkit.GroupID]trackkit.EntityID) bool {
		for t, byGroup := range gated {
			for g, want := range byGroup {
				if got, ok := actual[t][g]; ok && got != want {
					return false
				}
			}
		}
		return true
	}
	return planned, matches
}

func (s *IterativeSmoother) flush(smoothed map[trackkit.GroupID][]trackkit.FilterState, tracks map[trackkit.GroupID]*track, groups *trackkit.GroupManager) {
	for g, tr := range tracks {
		if _, ok := smoothed[g]; !ok {
			continue
		}
		if !groups.HasGroup(g) {
			continue
		}
		ids := make([]trackkit.EntityID, 0, len(tr.assigned))
		for _, id := range tr.assigned {
			if id != trackkit.InvalidEntityID {
				ids = append(ids, id)
			}
		}
		groups.AddEntitiesToGroup(g, ids)
	}
	groups.NotifyGroupsChanged()
}

func (s *IterativeSmoother) toResult(smoothed map[trackkit.GroupID][]trackkit.FilterState) Result {
	out := make(Result, len(smoothed))
	for g, states := range smoothed {
		out[g] = StateSequence{States: states}
	}
	return out
}

func (t *track) appendStep(time trackkit.TimeIndex, step kalman.StepRecord, entity trackkit.EntityID) {
	t.steps = append(t.steps, step)
	t.times = append(t.times, time)
	t.assigned = append(t.assigned, entity)
	t.active = true
}

