package user

// orderedSet is a string set that remembers insertion order
type orderedSet struct {
	items []string
	index map[string]struct{}
}

func newOrderedSet(items ...string) *orderedSet {
	s := &orderedSet{index: make(map[string]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func (s *orderedSet) Has(item string) bool {
	_, ok := s.index[item]
	return ok
}

func (s *orderedSet) Add(item string) {
	if s.Has(item) {
		return
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
}

func (s *orderedSet) Remove(item string) {
	if !s.Has(item) {
		return
	}
	delete(s.index, item)
	for i, v := range s.items {
		if v == item {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *orderedSet) Items() []string {
	return append([]string{}, s.items...)
}
