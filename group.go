package trackkit

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// GroupID identifies a user-defined group of entities. IDs start at 1 and
// are never reused; 0 is the invalid sentinel.
type GroupID uint64

// InvalidGroupID is the reserved sentinel for "no group".
const InvalidGroupID GroupID = 0

// GroupDescriptor is the metadata attached to a group.
type GroupDescriptor struct {
	ID          GroupID
	Name        string
	Description string
	EntityCount int
}

// GroupManager holds the bidirectional many-to-many map between groups and
// entities. Forward and reverse indices are always updated together so
// `e in forward(g) <=> g in reverse(e)` holds after every mutation.
//
// Backed by roaring64 bitmaps rather than plain Go sets: the original
// entity-group manager this is grounded on is explicitly sized for hundreds
// of thousands of entities, which is exactly roaring bitmaps' niche.
type GroupManager struct {
	mu sync.Mutex

	names    map[GroupID]string
	descs    map[GroupID]string
	forward  map[GroupID]*roaring64.Bitmap // group -> entities
	reverse  map[EntityID]*roaring64.Bitmap // entity -> groups
	nextID   GroupID
	observer func()
}

// NewGroupManager returns an empty manager whose group IDs start at 1.
func NewGroupManager() *GroupManager {
	return &GroupManager{
		names:   make(map[GroupID]string),
		descs:   make(map[GroupID]string),
		forward: make(map[GroupID]*roaring64.Bitmap),
		reverse: make(map[EntityID]*roaring64.Bitmap),
		nextID:  1,
	}
}

// SetObserver installs a callback invoked by NotifyGroupsChanged.
func (g *GroupManager) SetObserver(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observer = fn
}

// NotifyGroupsChanged invokes the installed observer, if any. Callers
// choose the batch boundary at which to call this.
func (g *GroupManager) NotifyGroupsChanged() {
	g.mu.Lock()
	fn := g.observer
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// CreateGroup creates a new empty group and returns its ID.
func (g *GroupManager) CreateGroup(name, description string) GroupID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.names[id] = name
	g.descs[id] = description
	g.forward[id] = roaring64.New()
	return id
}

// DeleteGroup removes a group and all its memberships, purging any entity
// whose reverse set becomes empty. Returns false if the group didn't exist.
func (g *GroupManager) DeleteGroup(id GroupID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return false
	}
	it := bm.Iterator()
	for it.HasNext() {
		e := EntityID(it.Next())
		if rv, ok := g.reverse[e]; ok {
			rv.Remove(uint64(id))
			if rv.IsEmpty() {
				delete(g.reverse, e)
			}
		}
	}
	delete(g.forward, id)
	delete(g.names, id)
	delete(g.descs, id)
	return true
}

// HasGroup reports whether id refers to an existing group.
func (g *GroupManager) HasGroup(id GroupID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.forward[id]
	return ok
}

// GroupDescriptor returns the descriptor for id, if it exists.
func (g *GroupManager) GroupDescriptor(id GroupID) (GroupDescriptor, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return GroupDescriptor{}, false
	}
	return GroupDescriptor{ID: id, Name: g.names[id], Description: g.descs[id], EntityCount: int(bm.GetCardinality())}, true
}

// UpdateGroup replaces a group's name/description. Returns false if it
// didn't exist.
func (g *GroupManager) UpdateGroup(id GroupID, name, description string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.forward[id]; !ok {
		return false
	}
	g.names[id] = name
	g.descs[id] = description
	return true
}

// AllGroupIDs returns every existing group ID, in no particular order.
func (g *GroupManager) AllGroupIDs() []GroupID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GroupID, 0, len(g.forward))
	for id := range g.forward {
		out = append(out, id)
	}
	return out
}

// AllGroupDescriptors returns a descriptor for every existing group.
func (g *GroupManager) AllGroupDescriptors() []GroupDescriptor {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GroupDescriptor, 0, len(g.forward))
	for id, bm := range g.forward {
		out = append(out, GroupDescriptor{ID: id, Name: g.names[id], Description: g.descs[id], EntityCount: int(bm.GetCardinality())})
	}
	return out
}

// AddEntityToGroup adds a single entity to a group. Returns false if the
// group doesn't exist or the entity was already a member.
func (g *GroupManager) AddEntityToGroup(id GroupID, e EntityID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return false
	}
	if !bm.CheckedAdd(uint64(e)) {
		return false
	}
	rv, ok := g.reverse[e]
	if !ok {
		rv = roaring64.New()
		g.reverse[e] = rv
	}
	rv.Add(uint64(id))
	return true
}

// AddEntitiesToGroup adds many entities at once, returning the count
// actually added (excludes duplicates and a non-existent group).
func (g *GroupManager) AddEntitiesToGroup(id GroupID, entities []EntityID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return 0
	}
	added := 0
	for _, e := range entities {
		if !bm.CheckedAdd(uint64(e)) {
			continue
		}
		rv, ok := g.reverse[e]
		if !ok {
			rv = roaring64.New()
			g.reverse[e] = rv
		}
		rv.Add(uint64(id))
		added++
	}
	return added
}

// RemoveEntityFromGroup removes a single entity from a group. Returns false
// if the group doesn't exist or the entity wasn't a member.
func (g *GroupManager) RemoveEntityFromGroup(id GroupID, e EntityID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return false
	}
	if !bm.CheckedRemove(uint64(e)) {
		return false
	}
	if rv, ok := g.reverse[e]; ok {
		rv.Remove(uint64(id))
		if rv.IsEmpty() {
			delete(g.reverse, e)
		}
	}
	return true
}

// RemoveEntitiesFromGroup removes many entities at once, returning the
// count actually removed.
func (g *GroupManager) RemoveEntitiesFromGroup(id GroupID, entities []EntityID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return 0
	}
	removed := 0
	for _, e := range entities {
		if !bm.CheckedRemove(uint64(e)) {
			continue
		}
		if rv, ok := g.reverse[e]; ok {
			rv.Remove(uint64(id))
			if rv.IsEmpty() {
				delete(g.reverse, e)
			}
		}
		removed++
	}
	return removed
}

// EntitiesInGroup returns every entity in a group, empty if it doesn't exist.
func (g *GroupManager) EntitiesInGroup(id GroupID) []EntityID {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return nil
	}
	arr := bm.ToArray()
	out := make([]EntityID, len(arr))
	for i, v := range arr {
		out[i] = EntityID(v)
	}
	return out
}

// IsEntityInGroup reports whether e is a member of group id.
func (g *GroupManager) IsEntityInGroup(id GroupID, e EntityID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return false
	}
	return bm.Contains(uint64(e))
}

// GroupsContainingEntity returns every group that contains e.
func (g *GroupManager) GroupsContainingEntity(e EntityID) []GroupID {
	g.mu.Lock()
	defer g.mu.Unlock()
	rv, ok := g.reverse[e]
	if !ok {
		return nil
	}
	arr := rv.ToArray()
	out := make([]GroupID, len(arr))
	for i, v := range arr {
		out[i] = GroupID(v)
	}
	return out
}

// GroupSize returns the number of entities in a group, 0 if it doesn't exist.
func (g *GroupManager) GroupSize(id GroupID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// ClearGroup empties a group's membership without deleting it.
func (g *GroupManager) ClearGroup(id GroupID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	bm, ok := g.forward[id]
	if !ok {
		return false
	}
	it := bm.Iterator()
	for it.HasNext() {
		e := EntityID(it.Next())
		if rv, ok := g.reverse[e]; ok {
			rv.Remove(uint64(id))
			if rv.IsEmpty() {
				delete(g.reverse, e)
			}
		}
	}
	bm.Clear()
	return true
}

// Clear resets all groups and memberships (session reset). Group ID
// generation restarts at 1.
func (g *GroupManager) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.names = make(map[GroupID]string)
	g.descs = make(map[GroupID]string)
	g.forward = make(map[GroupID]*roaring64.Bitmap)
	g.reverse = make(map[EntityID]*roaring64.Bitmap)
	g.nextID = 1
}

// GroupCount returns the total number of groups.
func (g *GroupManager) GroupCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.forward)
}

// TotalEntityCount returns the number of unique entities across all groups.
func (g *GroupManager) TotalEntityCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reverse)
}
