package tower

import (
	"errors"
	"testing"
)

func TestSelection_SetSemantics(t *testing.T) {
	a, b, c := objectAt(t, "A", 0, 0, 0), objectAt(t, "B", 0, 0, 0), objectAt(t, "C", 0, 0, 0)

	s := NewSelection(a, b, a, nil)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.First() != a {
		t.Errorf("First() = %v, want A", s.First())
	}
	if s.Add(b) {
		t.Error("Add(existing) = true")
	}

	other := NewSelection(b, c)
	tests := []struct {
		name string
		got  *Selection
		want []*TowerObject
	}{
		{name: "union", got: s.Union(other), want: []*TowerObject{a, b, c}},
		{name: "difference", got: s.Difference(other), want: []*TowerObject{a}},
		{name: "intersection", got: s.Intersection(other), want: []*TowerObject{b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(NewSelection(tt.want...)) {
				t.Errorf("got %v, want %v", tt.got.Objects(), tt.want)
			}
		})
	}
	if s.Len() != 2 || other.Len() != 2 {
		t.Error("binary operators modified their operands")
	}

	s.UnionWith(other)
	if s.Len() != 3 {
		t.Errorf("UnionWith: Len() = %d, want 3", s.Len())
	}
	s.Subtract(NewSelection(c))
	if s.Contains(c) || s.Len() != 2 {
		t.Errorf("Subtract: %v", s.Objects())
	}
	s.IntersectWith(NewSelection(a))
	if !s.Equal(NewSelection(a)) {
		t.Errorf("IntersectWith: %v", s.Objects())
	}
	if !s.Remove(a) || s.Remove(a) || s.Len() != 0 {
		t.Error("Remove() did not report membership correctly")
	}
}

func TestSelection_NilOperandPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Union(nil) did not panic")
		}
	}()
	NewSelection().Union(nil)
}

func TestSelection_Groups(t *testing.T) {
	a, b, c, d := objectAt(t, "A", 0, 0, 0), objectAt(t, "B", 0, 0, 0), objectAt(t, "C", 0, 0, 0), objectAt(t, "D", 0, 0, 0)
	a.SetGroupID(7)
	b.SetGroupID(2)
	c.SetGroupID(7)
	s := NewSelection(a, b, c, d)

	groups := s.Groups()
	if len(groups) != 2 {
		t.Fatalf("Groups() = %d groups, want 2", len(groups))
	}
	if groups[0].ID != 2 || !groups[0].Objects.Equal(NewSelection(b)) {
		t.Errorf("first group = %d %v", groups[0].ID, groups[0].Objects.Objects())
	}
	if groups[1].ID != 7 || !groups[1].Objects.Equal(NewSelection(a, c)) {
		t.Errorf("second group = %d %v", groups[1].ID, groups[1].Objects.Objects())
	}
	if !s.Ungrouped().Equal(NewSelection(d)) {
		t.Errorf("Ungrouped() = %v", s.Ungrouped().Objects())
	}

	// Membership follows live group ids.
	b.SetGroupID(7)
	if groups := s.Groups(); len(groups) != 1 || groups[0].Objects.Len() != 3 {
		t.Errorf("Groups() after regroup = %+v", groups)
	}

	s.DestroyGroups()
	if len(s.Groups()) != 0 {
		t.Error("DestroyGroups() left groups")
	}
}

func TestSelection_Centroid(t *testing.T) {
	s := NewSelection(objectAt(t, "A", 0, 0, 0), objectAt(t, "B", 10, 0, 0), objectAt(t, "C", 5, 10, 0))
	got, err := s.Centroid()
	if err != nil {
		t.Fatalf("Centroid() error = %v", err)
	}
	if !got.Equal(Vec(5, 10.0/3, 0)) {
		t.Errorf("Centroid() = %v, want (5, 3.333, 0)", got)
	}

	if _, err := NewSelection().Centroid(); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty Centroid() error = %v", err)
	}
	meta := wrapRecords(nil, []byte(`{"name":"CondoWeather_C_0"}`))
	if _, err := NewSelection(meta).Centroid(); !errors.Is(err, ErrMissingPosition) {
		t.Errorf("metadata Centroid() error = %v", err)
	}
}
