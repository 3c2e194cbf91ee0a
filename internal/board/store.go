package board

import (
	"sync"

	"frontdesk-service/internal/models"
)

// Store is the in-memory source of truth for the board's appointment
// groups. Status writes go through the transition controller and walk-in
// creation only; no other component mutates the collection.
type Store struct {
	mu     sync.RWMutex
	order  []string
	groups map[string]*models.AppointmentGroup
}

// NewStore creates an empty board store
func NewStore() *Store {
	return &Store{groups: make(map[string]*models.AppointmentGroup)}
}

// Load replaces the entire collection with a fresh server snapshot.
// There is no incremental merge: the server list is the new truth.
func (s *Store) Load(groups []models.AppointmentGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(groups))
	s.groups = make(map[string]*models.AppointmentGroup, len(groups))
	for i := range groups {
		g := groups[i]
		s.order = append(s.order, g.ID)
		s.groups[g.ID] = &g
	}
}

// Get returns a copy of the group with the given id
func (s *Store) Get(id string) (models.AppointmentGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return models.AppointmentGroup{}, false
	}
	return *g, true
}

// UpsertStatus applies a local-only status mutation. It never touches the
// network; persistence is the transition controller's job.
func (s *Store) UpsertStatus(id string, status models.GroupStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return false
	}
	g.Status = status
	return true
}

// Insert adds a group created elsewhere (walk-in) so it appears on the
// board without a full reload. An existing group with the same id is
// replaced in place, keeping its board position.
func (s *Store) Insert(group models.AppointmentGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[group.ID]; !ok {
		s.order = append(s.order, group.ID)
	}
	s.groups[group.ID] = &group
}

// ByStatus returns all groups with the given status in stable insertion
// order, for column rendering.
func (s *Store) ByStatus(status models.GroupStatus) []models.AppointmentGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AppointmentGroup
	for _, id := range s.order {
		if g := s.groups[id]; g.Status == status {
			out = append(out, *g)
		}
	}
	return out
}

// All returns every group in stable insertion order
func (s *Store) All() []models.AppointmentGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AppointmentGroup, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.groups[id])
	}
	return out
}

// Len returns the number of groups on the board
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
