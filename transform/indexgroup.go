package transform

import (
	"fmt"

	"github.com/trackkit/trackkit"
)

// IndexGroupInput is the tagged-variant input for IndexGroupOp: for every
// frame, the ordered entity IDs present (local index i is position in
// this slice).
type IndexGroupInput struct {
	Times      []trackkit.TimeIndex
	EntitiesAt map[trackkit.TimeIndex][]trackkit.EntityID
	Groups     *trackkit.GroupManager
}

// IndexGroupOp assigns the entry at local index i, across every frame, to
// group `base_name[i]` (spec.md §4.13 "Index grouping").
type IndexGroupOp struct{}

func (IndexGroupOp) Name() string           { return "index_grouping" }
func (IndexGroupOp) TargetInputType() string { return "entity_timeseries" }
func (IndexGroupOp) CanApply(input interface{}) bool {
	v, ok := input.(*IndexGroupInput)
	return ok && v != nil
}
func (IndexGroupOp) DefaultParameters() Parameters {
	return Parameters{"base_name": "index", "clear_existing": false}
}

func (IndexGroupOp) Execute(input interface{}, params Parameters, progress Progress) (interface{}, error) {
	in, ok := input.(*IndexGroupInput)
	if !ok || in == nil || in.Groups == nil {
		report(progress, 100)
		return []trackkit.GroupID(nil), nil
	}

	baseName, _ := params["base_name"].(string)
	if baseName == "" {
		baseName = "index"
	}
	clearExisting := boolParam(params, "clear_existing", false)

	if clearExisting {
		for _, id := range in.Groups.AllGroupIDs() {
			in.Groups.DeleteGroup(id)
		}
	}

	maxEntries := 0
	for _, t := range in.Times {
		if n := len(in.EntitiesAt[t]); n > maxEntries {
			maxEntries = n
		}
	}
	report(progress, 20)

	groupIDs := make([]trackkit.GroupID, maxEntries)
	for i := 0; i < maxEntries; i++ {
		groupIDs[i] = in.Groups.CreateGroup(fmt.Sprintf("%s[%d]", baseName, i), "")
	}
	report(progress, 50)

	for _, t := range in.Times {
		entities := in.EntitiesAt[t]
		for i, e := range entities {
			in.Groups.AddEntityToGroup(groupIDs[i], e)
		}
	}

	in.Groups.NotifyGroupsChanged()
	report(progress, 100)
	return groupIDs, nil
}
