package wm

import "github.com/1broseidon/deskshell/internal/platform"

// ID identifies a managed window for the lifetime of the process. IDs are
// never reused, so a stale ID simply stops resolving.
type ID uint64

// Space maps window ids to the on-screen location of their client area.
type Space struct {
	locations map[ID]platform.Point
}

func NewSpace() *Space {
	return &Space{locations: make(map[ID]platform.Point)}
}

// Map places id at p, replacing any previous location.
func (s *Space) Map(id ID, p platform.Point) {
	s.locations[id] = p
}

// Location returns where id is mapped.
func (s *Space) Location(id ID) (platform.Point, bool) {
	p, ok := s.locations[id]
	return p, ok
}

func (s *Space) Unmap(id ID) {
	delete(s.locations, id)
}

func (s *Space) Len() int {
	return len(s.locations)
}
