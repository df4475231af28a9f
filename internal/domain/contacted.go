package domain

import "sort"

// ContactedSet tracks listing ids that already received an outreach message.
// It only ever grows: ids are added on successful (or dry-run-marked)
// contacts and never removed.
type ContactedSet struct {
	ids map[string]struct{}
}

func NewContactedSet(ids ...string) ContactedSet {
	set := ContactedSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			set.ids[id] = struct{}{}
		}
	}
	return set
}

func (s ContactedSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *ContactedSet) Add(id string) {
	if id == "" {
		return
	}
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}

// Merge unions another set into this one.
func (s *ContactedSet) Merge(other ContactedSet) {
	for id := range other.ids {
		s.Add(id)
	}
}

func (s ContactedSet) Len() int {
	return len(s.ids)
}

// IDs returns the member ids in sorted order for stable persistence.
func (s ContactedSet) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
