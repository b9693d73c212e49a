package trackkit

import (
	"sync"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"

	"github.com/trackkit/trackkit/tracelog"
)

// Session is the single-writer owner of every piece of per-session state:
// the entity registry, group manager, relationship manager, and whatever
// named time-series containers callers register. Spec.md §5/§9: all
// mutation is serialised through Session's write lock; there is no global
// state, everything lives in a Session.
type Session struct {
	ID uuid.UUID

	mu sync.Mutex

	Registry     *EntityRegistry
	Groups       *GroupManager
	Relationships *RelationshipManager
	Config       Config
	Log          kitlog.Logger

	containers map[string]interface{}
}

// NewSession constructs an empty session with default configuration and a
// nop logger (callers wire a real sink with SetLogger).
func NewSession() *Session {
	id := uuid.New()
	return &Session{
		ID:            id,
		Registry:      NewEntityRegistry(),
		Groups:        NewGroupManager(),
		Relationships: NewRelationshipManager(),
		Config:        DefaultConfig(),
		Log:           tracelog.With(tracelog.Nop(), "session", id.String()),
		containers:    make(map[string]interface{}),
	}
}

// SetLogger installs a real logging sink, tagging every line with the
// session id the way estimate.go tags its logger with the estimate name.
func (s *Session) SetLogger(base kitlog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Log = tracelog.With(base, "session", s.ID.String())
}

// Lock/Unlock expose the session's single serialisation point for callers
// that need to group several component mutations into one atomic step
// (e.g. a tracker flushing pending group updates).
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// RegisterContainer names a TimeSeries[T] so it can be retrieved later via
// Container. Typed retrieval happens at the call site via a type assertion
// (Go generics can't express a heterogeneous container map otherwise).
func (s *Session) RegisterContainer(name string, ts interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[name] = ts
}

// Container returns the container previously registered under name.
func (s *Session) Container(name string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.containers[name]
	return v, ok
}

// Clear resets every owned component, restarting ID generation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Registry.Clear()
	s.Groups.Clear()
	s.Relationships = NewRelationshipManager()
	s.containers = make(map[string]interface{})
}
