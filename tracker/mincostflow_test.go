package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackkit/trackkit"
)

func TestMinCostFlowSingleChainBetweenAnchors(t *testing.T) {
	groups := trackkit.NewGroupManager()
	g := groups.CreateGroup("track", "")

	frames := NewFrames([]Observation{
		obs(0, 1, 1.0), obs(0, 99, 500.0),
		obs(1, 1, 1.1), obs(1, 99, 500.1),
		obs(2, 1, 1.2), obs(2, 99, 500.2),
		obs(3, 1, 1.3), obs(3, 99, 500.3),
	})
	gt := GroundTruth{
		0: {g: 1},
		3: {g: 1},
	}

	proto := scalarPrototype(0.5, testConfig())
	tracker := NewMinCostFlow(proto, scalarInitialState)

	var last int
	result, err := tracker.Process(frames, groups, gt, func(p int) { last = p })
	require.NoError(t, err)

	require.Contains(t, result, g)
	assert.Equal(t, []trackkit.TimeIndex{0, 1, 2, 3}, result[g].Times)
	assert.Len(t, result[g].States, 4)
	assert.Equal(t, 100, last)

	assert.ElementsMatch(t, []trackkit.EntityID{1}, groups.EntitiesInGroup(g))
}

func TestMinCostFlowDoesNotRelabelExistingMembership(t *testing.T) {
	groups := trackkit.NewGroupManager()
	g := groups.CreateGroup("track", "")
	other := groups.CreateGroup("other", "")
	groups.AddEntitiesToGroup(other, []trackkit.EntityID{1})

	frames := NewFrames([]Observation{
		obs(0, 1, 1.0),
		obs(1, 1, 1.1),
	})
	gt := GroundTruth{0: {g: 1}, 1: {g: 1}}

	proto := scalarPrototype(0.5, testConfig())
	tracker := NewMinCostFlow(proto, scalarInitialState)
	_, err := tracker.Process(frames, groups, gt, nil)
	require.NoError(t, err)

	assert.Empty(t, groups.EntitiesInGroup(g), "entity already grouped elsewhere is not added to g")
	assert.ElementsMatch(t, []trackkit.EntityID{1}, groups.EntitiesInGroup(other))
}

func TestMinCostFlowRejectsAmbiguousGroundTruth(t *testing.T) {
	groups := trackkit.NewGroupManager()
	g1 := groups.CreateGroup("track1", "")
	g2 := groups.CreateGroup("track2", "")
	frames := NewFrames([]Observation{obs(0, 1, 1.0)})
	gt := GroundTruth{0: {g1: 1, g2: 1}}

	proto := scalarPrototype(0.5, testConfig())
	tracker := NewMinCostFlow(proto, scalarInitialState)
	result, err := tracker.Process(frames, groups, gt, nil)

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestMinCostFlowLogsMissingAnchor(t *testing.T) {
	groups := trackkit.NewGroupManager()
	g := groups.CreateGroup("track", "")

	frames := NewFrames([]Observation{
		obs(0, 1, 1.0),
		obs(1, 1, 1.1),
	})
	// Entity 2 never appears in frames, so the end anchor can't be found.
	gt := GroundTruth{0: {g: 1}, 1: {g: 2}}

	var lines [][]interface{}
	proto := scalarPrototype(0.5, testConfig())
	proto.Logger = recordingLogger(&lines)
	tr := NewMinCostFlow(proto, scalarInitialState)

	result, err := tr.Process(frames, groups, gt, nil)
	require.NoError(t, err)
	assert.NotContains(t, result, g, "a segment with a missing anchor is skipped, not returned")
	assert.NotEmpty(t, lines, "missing anchor is logged per spec.md §7")
}

func TestGroundTruthSegmentsOrdersByFrame(t *testing.T) {
	gt := GroundTruth{
		5: {1: 10},
		2: {1: 20},
		8: {1: 30},
	}
	segs := groundTruthSegments(gt)
	require.Len(t, segs, 2)
	assert.Equal(t, trackkit.TimeIndex(2), segs[0].startFrame)
	assert.Equal(t, trackkit.TimeIndex(5), segs[0].endFrame)
	assert.Equal(t, trackkit.TimeIndex(5), segs[1].startFrame)
	assert.Equal(t, trackkit.TimeIndex(8), segs[1].endFrame)
}

func TestFlowGraphMinCostFlowSingleUnit(t *testing.T) {
	g := newFlowGraph(4)
	g.addArc(0, 1, 1, 10)
	g.addArc(0, 2, 1, 1)
	g.addArc(2, 1, 1, 1)
	g.addArc(1, 3, 1, 0)

	flow, cost := g.minCostFlow(0, 3, 1)
	assert.Equal(t, 1, flow)
	assert.Equal(t, int64(2), cost, "cheaper path via node 2 costs 1+1+0")

	path := g.path(0, 3)
	assert.Equal(t, []int{0, 2, 1, 3}, path)
}
