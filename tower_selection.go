package tower

import (
	"fmt"
	"sort"
)

// Selection is a set of objects, deduplicated by identity. Iteration follows
// insertion order so operations driven by a Selection are repeatable.
type Selection struct {
	objs  []*TowerObject
	index map[*TowerObject]int
}

// NewSelection builds a Selection from objs, dropping duplicates and nils.
func NewSelection(objs ...*TowerObject) *Selection {
	s := &Selection{index: make(map[*TowerObject]int, len(objs))}
	for _, o := range objs {
		s.Add(o)
	}
	return s
}

// Group is a group id and the objects carrying it.
type Group struct {
	ID      int
	Objects *Selection
}

// Len returns the number of objects.
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.objs)
}

// Objects returns the members in iteration order. The slice is a copy.
func (s *Selection) Objects() []*TowerObject {
	if s == nil {
		return nil
	}
	out := make([]*TowerObject, len(s.objs))
	copy(out, s.objs)
	return out
}

// Contains reports membership.
func (s *Selection) Contains(o *TowerObject) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[o]
	return ok
}

// First returns the first member, or nil when empty.
func (s *Selection) First() *TowerObject {
	if s.Len() == 0 {
		return nil
	}
	return s.objs[0]
}

// Add inserts o, reporting whether it was new.
func (s *Selection) Add(o *TowerObject) bool {
	if o == nil {
		return false
	}
	if s.index == nil {
		s.index = make(map[*TowerObject]int)
	}
	if _, ok := s.index[o]; ok {
		return false
	}
	s.index[o] = len(s.objs)
	s.objs = append(s.objs, o)
	return true
}

// Remove deletes o, reporting whether it was present.
func (s *Selection) Remove(o *TowerObject) bool {
	i, ok := s.index[o]
	if !ok {
		return false
	}
	s.objs = append(s.objs[:i], s.objs[i+1:]...)
	delete(s.index, o)
	for j := i; j < len(s.objs); j++ {
		s.index[s.objs[j]] = j
	}
	return true
}

// Filter returns the members for which keep is true.
func (s *Selection) Filter(keep func(*TowerObject) bool) *Selection {
	out := NewSelection()
	for _, o := range s.Objects() {
		if keep(o) {
			out.Add(o)
		}
	}
	return out
}

//------------------------------------------------------------------------------
// SET ALGEBRA
//------------------------------------------------------------------------------

func mustSelection(op string, other *Selection) {
	if other == nil {
		panic(fmt.Sprintf("tower: %s with nil Selection", op))
	}
}

// Union returns s + other.
func (s *Selection) Union(other *Selection) *Selection {
	mustSelection("union", other)
	out := NewSelection(s.Objects()...)
	for _, o := range other.objs {
		out.Add(o)
	}
	return out
}

// Difference returns s - other.
func (s *Selection) Difference(other *Selection) *Selection {
	mustSelection("difference", other)
	return s.Filter(func(o *TowerObject) bool { return !other.Contains(o) })
}

// Intersection returns s * other.
func (s *Selection) Intersection(other *Selection) *Selection {
	mustSelection("intersection", other)
	return s.Filter(other.Contains)
}

// UnionWith is the in-place s += other.
func (s *Selection) UnionWith(other *Selection) {
	mustSelection("union", other)
	for _, o := range other.Objects() {
		s.Add(o)
	}
}

// Subtract is the in-place s -= other.
func (s *Selection) Subtract(other *Selection) {
	mustSelection("difference", other)
	*s = *s.Difference(other)
}

// IntersectWith is the in-place s *= other.
func (s *Selection) IntersectWith(other *Selection) {
	mustSelection("intersection", other)
	*s = *s.Intersection(other)
}

// Equal reports whether both selections hold the same objects.
func (s *Selection) Equal(other *Selection) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, o := range s.Objects() {
		if !other.Contains(o) {
			return false
		}
	}
	return true
}

//------------------------------------------------------------------------------
// GROUPS
//------------------------------------------------------------------------------

// Groups partitions the grouped members by their current group id, in
// ascending id order. Ungrouped members are left out.
func (s *Selection) Groups() []Group {
	byID := make(map[int]*Selection)
	var ids []int
	for _, o := range s.Objects() {
		id := o.GroupID()
		if id < 0 {
			continue
		}
		g, ok := byID[id]
		if !ok {
			g = NewSelection()
			byID[id] = g
			ids = append(ids, id)
		}
		g.Add(o)
	}
	sort.Ints(ids)
	out := make([]Group, len(ids))
	for i, id := range ids {
		out[i] = Group{ID: id, Objects: byID[id]}
	}
	return out
}

// Ungrouped returns the members without a group.
func (s *Selection) Ungrouped() *Selection {
	return s.Filter(func(o *TowerObject) bool { return o.GroupID() < 0 })
}

// SetGroupID puts every member in group id.
func (s *Selection) SetGroupID(id int) {
	for _, o := range s.Objects() {
		o.SetGroupID(id)
	}
}

// DestroyGroups ungroups every member.
func (s *Selection) DestroyGroups() {
	for _, o := range s.Objects() {
		o.Ungroup()
	}
}

// Centroid is the mean position of the members. It fails on an empty
// selection or when a member has no position.
func (s *Selection) Centroid() (Vector, error) {
	if s.Len() == 0 {
		return Vector{}, ErrEmptySelection
	}
	points := make([]Vector, 0, s.Len())
	for _, o := range s.objs {
		p, ok := o.Position()
		if !ok {
			return Vector{}, fmt.Errorf("%w: %s", ErrMissingPosition, o.Name())
		}
		points = append(points, p)
	}
	return Centroid(points)
}
