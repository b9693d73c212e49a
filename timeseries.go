package trackkit

import (
	"github.com/google/btree"
)

// Notify selects whether a mutating container call should invoke the
// container's observer sink on exit.
type Notify int

const (
	NotifyNo Notify = iota
	NotifyYes
)

// Entry is one ragged time-series element: a typed payload plus the
// identity of the observation it represents.
type Entry[T any] struct {
	Data     T
	EntityID EntityID
}

// FlatEntry is the zero-copy-shaped flattening of a container used by
// callers (notably the tracker) that want a single ordered sequence of
// (time, entity, data) triples rather than a per-frame view.
type FlatEntry[T any] struct {
	Time     TimeIndex
	EntityID EntityID
	Data     T
}

type frameBucket[T any] struct {
	time    TimeIndex
	entries []Entry[T]
}

func lessBucket[T any](a, b *frameBucket[T]) bool { return a.time < b.time }

// TimeSeries is a ragged per-frame container: a mapping from TimeIndex to
// an ordered sequence of typed entries, each carrying an EntityID. Entries
// are materialised in insertion order per frame.
type TimeSeries[T any] struct {
	frames   *btree.BTreeG[*frameBucket[T]]
	byFrame  map[TimeIndex]*frameBucket[T]
	byEntity map[EntityID]struct {
		time  TimeIndex
		index int
	}
	coords   *CoordinateSystem
	observer func()
	registry *EntityRegistry // optional: bound identity context
	dataKey  string
	kind     EntityKind
}

// NewTimeSeries returns an empty container.
func NewTimeSeries[T any]() *TimeSeries[T] {
	return &TimeSeries[T]{
		frames:  btree.NewG[*frameBucket[T]](32, lessBucket[T]),
		byFrame: make(map[TimeIndex]*frameBucket[T]),
		byEntity: make(map[EntityID]struct {
			time  TimeIndex
			index int
		}),
	}
}

// BindIdentity attaches an entity registry + (data-key, kind) so entries
// added without an EntityID acquire one from the registry on insertion.
func (s *TimeSeries[T]) BindIdentity(reg *EntityRegistry, dataKey string, kind EntityKind) {
	s.registry = reg
	s.dataKey = dataKey
	s.kind = kind
}

// BindCoordinateSystem attaches a coordinate system, enabling implicit
// time-frame conversion in cross-container queries.
func (s *TimeSeries[T]) BindCoordinateSystem(cs *CoordinateSystem) { s.coords = cs }

// CoordinateSystem returns the bound coordinate system, if any.
func (s *TimeSeries[T]) CoordinateSystem() *CoordinateSystem { return s.coords }

// SetObserver installs the sink invoked by mutating calls made with NotifyYes.
func (s *TimeSeries[T]) SetObserver(fn func()) { s.observer = fn }

func (s *TimeSeries[T]) notify(n Notify) {
	if n == NotifyYes && s.observer != nil {
		s.observer()
	}
}

func (s *TimeSeries[T]) bucket(t TimeIndex, create bool) *frameBucket[T] {
	if b, ok := s.byFrame[t]; ok {
		return b
	}
	if !create {
		return nil
	}
	b := &frameBucket[T]{time: t}
	s.byFrame[t] = b
	s.frames.ReplaceOrInsert(b)
	return b
}

func (s *TimeSeries[T]) reindexEntity(e EntityID, t TimeIndex, idx int) {
	if e == InvalidEntityID {
		return
	}
	s.byEntity[e] = struct {
		time  TimeIndex
		index int
	}{t, idx}
}

// AddAtTime appends one value at t. If value carries no identity yet (id
// InvalidEntityID) and an identity context is bound, a fresh ID is minted.
func (s *TimeSeries[T]) AddAtTime(t TimeIndex, value T, id EntityID, n Notify) EntityID {
	if id == InvalidEntityID && s.registry != nil {
		b := s.bucket(t, false)
		local := 0
		if b != nil {
			local = len(b.entries)
		}
		id = s.registry.EnsureID(EntityKey{DataKey: s.dataKey, Kind: s.kind, Time: t, LocalIndex: local})
	}
	b := s.bucket(t, true)
	b.entries = append(b.entries, Entry[T]{Data: value, EntityID: id})
	s.reindexEntity(id, t, len(b.entries)-1)
	s.notify(n)
	return id
}

// AddManyAtTime appends several values at t in order, returning their
// (possibly freshly minted) entity IDs.
func (s *TimeSeries[T]) AddManyAtTime(t TimeIndex, values []T, ids []EntityID, n Notify) []EntityID {
	out := make([]EntityID, len(values))
	for i, v := range values {
		var id EntityID
		if ids != nil {
			id = ids[i]
		}
		out[i] = s.AddAtTime(t, v, id, NotifyNo)
	}
	s.notify(n)
	return out
}

// GetAtTime returns the entries at t, in insertion order. Empty if none.
func (s *TimeSeries[T]) GetAtTime(t TimeIndex) []Entry[T] {
	b, ok := s.byFrame[t]
	if !ok {
		return nil
	}
	out := make([]Entry[T], len(b.entries))
	copy(out, b.entries)
	return out
}

// ClearAtTime removes every entry at t.
func (s *TimeSeries[T]) ClearAtTime(t TimeIndex, n Notify) {
	b, ok := s.byFrame[t]
	if !ok {
		return
	}
	for _, e := range b.entries {
		if e.EntityID != InvalidEntityID {
			delete(s.byEntity, e.EntityID)
		}
	}
	delete(s.byFrame, t)
	s.frames.Delete(b)
	s.notify(n)
}

// GetTimesWithData returns every frame with at least one entry, ascending.
func (s *TimeSeries[T]) GetTimesWithData() []TimeIndex {
	out := make([]TimeIndex, 0, s.frames.Len())
	s.frames.Ascend(func(b *frameBucket[T]) bool {
		out = append(out, b.time)
		return true
	})
	return out
}

// GetMaxEntriesAtAnyTime returns the largest per-frame entry count.
func (s *TimeSeries[T]) GetMaxEntriesAtAnyTime() int {
	max := 0
	s.frames.Ascend(func(b *frameBucket[T]) bool {
		if len(b.entries) > max {
			max = len(b.entries)
		}
		return true
	})
	return max
}

// GetEntityIDsAtTime returns the entity IDs present at t, in insertion order.
func (s *TimeSeries[T]) GetEntityIDsAtTime(t TimeIndex) []EntityID {
	b, ok := s.byFrame[t]
	if !ok {
		return nil
	}
	out := make([]EntityID, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.EntityID
	}
	return out
}

// GetDataByEntityID resolves an entity ID back to its payload.
func (s *TimeSeries[T]) GetDataByEntityID(id EntityID) (T, bool) {
	var zero T
	loc, ok := s.byEntity[id]
	if !ok {
		return zero, false
	}
	b := s.byFrame[loc.time]
	if b == nil || loc.index >= len(b.entries) {
		return zero, false
	}
	return b.entries[loc.index].Data, true
}

// GetTimeAndIndexByEntityID resolves an entity ID to its (frame, local index).
func (s *TimeSeries[T]) GetTimeAndIndexByEntityID(id EntityID) (TimeIndex, int, bool) {
	loc, ok := s.byEntity[id]
	if !ok {
		return 0, 0, false
	}
	return loc.time, loc.index, true
}

// GetAllEntries visits every (time, entries-at-time) pair in ascending
// frame order.
func (s *TimeSeries[T]) GetAllEntries(fn func(TimeIndex, []Entry[T])) {
	s.frames.Ascend(func(b *frameBucket[T]) bool {
		fn(b.time, b.entries)
		return true
	})
}

// Flatten returns every entry across all frames as a single ordered
// sequence, the zero-copy-shaped view the tracker consumes.
func (s *TimeSeries[T]) Flatten() []FlatEntry[T] {
	var out []FlatEntry[T]
	s.frames.Ascend(func(b *frameBucket[T]) bool {
		for _, e := range b.entries {
			out = append(out, FlatEntry[T]{Time: b.time, EntityID: e.EntityID, Data: e.Data})
		}
		return true
	})
	return out
}

// CopyByEntityIDs copies the named entries into dest, minting fresh IDs in
// dest (copy semantics never reuse the source's IDs). Returns the count
// copied.
func (s *TimeSeries[T]) CopyByEntityIDs(dest *TimeSeries[T], ids []EntityID, n Notify) int {
	count := 0
	for _, id := range ids {
		loc, ok := s.byEntity[id]
		if !ok {
			continue
		}
		b := s.byFrame[loc.time]
		if b == nil || loc.index >= len(b.entries) {
			continue
		}
		dest.AddAtTime(loc.time, b.entries[loc.index].Data, InvalidEntityID, NotifyNo)
		count++
	}
	dest.notify(n)
	return count
}

// MoveByEntityIDs moves the named entries into dest, preserving their
// entity IDs, and removes them from the source. Returns the count moved.
func (s *TimeSeries[T]) MoveByEntityIDs(dest *TimeSeries[T], ids []EntityID, n Notify) int {
	count := 0
	for _, id := range ids {
		loc, ok := s.byEntity[id]
		if !ok {
			continue
		}
		b := s.byFrame[loc.time]
		if b == nil || loc.index >= len(b.entries) {
			continue
		}
		data := b.entries[loc.index].Data
		dest.AddAtTime(loc.time, data, id, NotifyNo)

		b.entries = append(b.entries[:loc.index], b.entries[loc.index+1:]...)
		delete(s.byEntity, id)
		for i := loc.index; i < len(b.entries); i++ {
			s.reindexEntity(b.entries[i].EntityID, loc.time, i)
		}
		if len(b.entries) == 0 {
			delete(s.byFrame, loc.time)
			s.frames.Delete(b)
		}
		count++
	}
	dest.notify(n)
	s.notify(n)
	return count
}
