package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackkit/trackkit"
)

func TestIndexGroupOpVaryingCounts(t *testing.T) {
	gm := trackkit.NewGroupManager()
	e1, e2, e3, e4 := trackkit.EntityID(1), trackkit.EntityID(2), trackkit.EntityID(3), trackkit.EntityID(4)

	in := &IndexGroupInput{
		Times: []trackkit.TimeIndex{0, 1},
		EntitiesAt: map[trackkit.TimeIndex][]trackkit.EntityID{
			0: {e1, e2},
			1: {e3, e4, trackkit.EntityID(5)},
		},
		Groups: gm,
	}

	op := IndexGroupOp{}
	result, err := op.Execute(in, op.DefaultParameters(), nil)
	require.NoError(t, err)

	groupIDs := result.([]trackkit.GroupID)
	require.Len(t, groupIDs, 3) // max entries across frames

	desc0, ok := gm.GroupDescriptor(groupIDs[0])
	require.True(t, ok)
	assert.Equal(t, "index[0]", desc0.Name)

	assert.True(t, gm.IsEntityInGroup(groupIDs[0], e1))
	assert.True(t, gm.IsEntityInGroup(groupIDs[0], e3))
	assert.True(t, gm.IsEntityInGroup(groupIDs[1], e2))
	assert.True(t, gm.IsEntityInGroup(groupIDs[1], e4))
	assert.True(t, gm.IsEntityInGroup(groupIDs[2], trackkit.EntityID(5)))
}

func TestIndexGroupOpCustomBaseName(t *testing.T) {
	gm := trackkit.NewGroupManager()
	in := &IndexGroupInput{
		Times:      []trackkit.TimeIndex{0},
		EntitiesAt: map[trackkit.TimeIndex][]trackkit.EntityID{0: {trackkit.EntityID(1)}},
		Groups:     gm,
	}
	op := IndexGroupOp{}
	params := op.DefaultParameters()
	params["base_name"] = "track"
	result, err := op.Execute(in, params, nil)
	require.NoError(t, err)

	groupIDs := result.([]trackkit.GroupID)
	desc, _ := gm.GroupDescriptor(groupIDs[0])
	assert.Equal(t, "track[0]", desc.Name)
}

func TestIndexGroupOpClearExisting(t *testing.T) {
	gm := trackkit.NewGroupManager()
	stale := gm.CreateGroup("stale", "")
	in := &IndexGroupInput{
		Times:      []trackkit.TimeIndex{0},
		EntitiesAt: map[trackkit.TimeIndex][]trackkit.EntityID{0: {trackkit.EntityID(1)}},
		Groups:     gm,
	}
	op := IndexGroupOp{}
	params := op.DefaultParameters()
	params["clear_existing"] = true
	_, err := op.Execute(in, params, nil)
	require.NoError(t, err)
	assert.False(t, gm.HasGroup(stale))
}
