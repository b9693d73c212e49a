package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackkit/trackkit"
)

func newOutlierDetector(cfg trackkit.Config) *OutlierDetector {
	proto := scalarPrototype(0.5, cfg)
	return NewOutlierDetector(proto, scalarInitialState)
}

func TestFlagByChiSquaredThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.OutlierChiSquared = 9.0 // 3-sigma-equivalent cutoff
	d := newOutlierDetector(cfg)

	residuals := []float64{0.1, 0.2, 5.0, 0.15}
	entities := []trackkit.EntityID{1, 2, 3, 4}

	flagged := d.flagByChiSquared(residuals, entities)
	assert.ElementsMatch(t, []trackkit.EntityID{3}, flagged, "residual 5.0 squares to 25 > threshold 9")
}

func TestFlagByMagnitudeThreshold(t *testing.T) {
	cfg := testConfig()
	// With five samples and a population std, no value can sit more than
	// 4/√5 ≈ 1.79 std above the mean, so k must be below that.
	cfg.OutlierMagnitudeK = 1.5
	d := newOutlierDetector(cfg)

	residuals := []float64{1.0, 1.1, 0.9, 1.05, 20.0}
	entities := []trackkit.EntityID{1, 2, 3, 4, 5}

	flagged := d.flagByMagnitude(residuals, entities)
	assert.ElementsMatch(t, []trackkit.EntityID{5}, flagged)
}

func TestFlagByMagnitudeEmptyResiduals(t *testing.T) {
	d := newOutlierDetector(testConfig())
	assert.Nil(t, d.flagByMagnitude(nil, nil))
}

func TestEnsureOutlierGroupReusesExistingByName(t *testing.T) {
	groups := trackkit.NewGroupManager()
	cfg := testConfig()
	cfg.OutlierGroupName = "flagged"
	existing := groups.CreateGroup("flagged", "pre-existing")

	d := newOutlierDetector(cfg)
	got := d.ensureOutlierGroup(groups)
	assert.Equal(t, existing, got)
}

func TestProcessSkipsGroupsWithNoMembers(t *testing.T) {
	groups := trackkit.NewGroupManager()
	empty := groups.CreateGroup("empty", "")
	frames := NewFrames(nil)

	d := newOutlierDetector(testConfig())
	assert.NotPanics(t, func() {
		d.Process(frames, groups, []trackkit.GroupID{empty}, 0, 10, nil)
	})
}

func TestProcessFlagsObviousOutlierByMagnitude(t *testing.T) {
	groups := trackkit.NewGroupManager()
	g := groups.CreateGroup("track", "")
	groups.AddEntitiesToGroup(g, []trackkit.EntityID{1})

	frames := NewFrames([]Observation{
		obs(0, 1, 1.0), obs(1, 1, 1.05), obs(2, 1, 0.95),
		obs(3, 1, 1.02), obs(4, 1, 40.0), obs(5, 1, 1.0),
	})

	cfg := testConfig()
	cfg.OutlierWarmupFrames = 0
	// Six residuals cap any z-score at 5/√6 ≈ 2.04, below the default k of 3.
	cfg.OutlierMagnitudeK = 1.5
	proto := scalarPrototype(0.5, cfg)
	d := NewOutlierDetector(proto, scalarInitialState)
	d.Strategy = MagnitudeStrategy

	d.Process(frames, groups, []trackkit.GroupID{g}, 0, 5, nil)

	outlierGroup, ok := groups.GroupDescriptor(mustFindGroupByName(groups, "outliers"))
	require.True(t, ok)
	assert.Contains(t, groups.EntitiesInGroup(outlierGroup.ID), trackkit.EntityID(1))
}

func mustFindGroupByName(groups *trackkit.GroupManager, name string) trackkit.GroupID {
	for _, d := range groups.AllGroupDescriptors() {
		if d.Name == name {
			return d.ID
		}
	}
	return trackkit.InvalidGroupID
}
