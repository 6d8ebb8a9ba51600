package orchestrator

// idSet is an insertion-ordered set of identifiers.
type idSet struct {
	order []string
	has   map[string]bool
}

func newIDSet(ids []string) *idSet {
	s := &idSet{has: make(map[string]bool, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// add reports whether id was not present before.
func (s *idSet) add(id string) bool {
	if s.has[id] {
		return false
	}
	s.has[id] = true
	s.order = append(s.order, id)
	return true
}

func (s *idSet) remove(id string) {
	if !s.has[id] {
		return
	}
	delete(s.has, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *idSet) contains(id string) bool {
	return s.has[id]
}

func (s *idSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *idSet) lookup() map[string]bool {
	out := make(map[string]bool, len(s.has))
	for k := range s.has {
		out[k] = true
	}
	return out
}
