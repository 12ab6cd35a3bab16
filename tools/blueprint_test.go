package tools

import (
	"path/filepath"
	"testing"

	"github.com/rainbowphysics/tower"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPositions(t *testing.T, sel *tower.Selection, want ...tower.Vector) {
	t.Helper()
	require.Equal(t, len(want), sel.Len())
	for _, w := range want {
		found := false
		for _, o := range sel.Objects() {
			if position(t, o).Equal(w) {
				found = true
				break
			}
		}
		assert.True(t, found, "no object at %v", w)
	}
}

func TestBlueprintPath(t *testing.T) {
	p, err := BlueprintPath("bp", "house/small.json")
	require.NoError(t, err)
	assert.Equal(t, "bp/house/small.json", filepath.ToSlash(p))

	for _, name := range []string{"", "  ", "../escape", "a/../../b"} {
		_, err := BlueprintPath("bp", name)
		assert.ErrorIs(t, err, ErrInvalidBlueprintName, name)
	}
}

func TestMakeBlueprint(t *testing.T) {
	s := loadSave(t)
	cubes := tower.ByObjectName("CanvasCube").Select(s.Everything())
	guids := map[string]bool{}
	for _, o := range cubes.Objects() {
		guids[o.GUID()] = true
	}

	data, err := MakeBlueprint(cubes)
	require.NoError(t, err)

	bp, err := tower.Parse(data)
	require.NoError(t, err)
	objs := bp.Everything()
	assertPositions(t, objs, tower.Vec(-5, 0, 0), tower.Vec(5, 0, 0))
	for _, o := range objs.Objects() {
		assert.True(t, o.HasProperties(), "metadata record kept")
		assert.False(t, guids[o.GUID()], "blueprint reuses source GUID %s", o.GUID())
	}
	assert.Len(t, bp.Groups(), 1)

	assertPositions(t, cubes, tower.Vec(0, 0, 0), tower.Vec(10, 0, 0))

	_, err = MakeBlueprint(tower.NewSelection())
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestPlaceBlueprint(t *testing.T) {
	src := loadSave(t)
	data, err := MakeBlueprint(tower.ByObjectName("CanvasCube").Select(src.Everything()))
	require.NoError(t, err)

	s := loadSave(t)
	marker := s.FindItem("Chair")
	require.NotNil(t, marker)
	marker.SetCustomName(MarkerName)
	marker.SetScale(tower.Vec(2, 1, 1))
	marker.SetRotation(tower.QuatFromEuler(tower.Vec(0, 0, 90)))
	before := s.Len()

	n, err := PlaceBlueprint(s, data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before-1+2, s.Len())
	assert.Zero(t, tower.ByCustomName(MarkerName).Select(s.Everything()).Len(), "marker removed")

	placed := tower.ByObjectName("CanvasCube").Select(s.Everything()).Filter(func(o *tower.TowerObject) bool {
		return o.GroupID() > 0
	})
	assertPositions(t, placed, tower.Vec(5, 0, 0), tower.Vec(5, 20, 0))
	for _, o := range placed.Objects() {
		sc, _ := o.Scale()
		assert.True(t, sc.Equal(tower.Vec(2, 2, 2)), "scale %v", sc)
		q, _ := o.Rotation()
		assert.True(t, q.Equal(tower.QuatFromEuler(tower.Vec(0, 0, 90))), "rotation %v", q)
	}
	assert.Equal(t, placed.First().GroupID(), placed.Objects()[1].GroupID(), "placed copies share one group")

	_, err = s.Marshal()
	require.NoError(t, err)
}

func TestPlaceBlueprint_Errors(t *testing.T) {
	s := loadSave(t)
	data, err := MakeBlueprint(tower.ByObjectName("CanvasCube").Select(s.Everything()))
	require.NoError(t, err)

	_, err = PlaceBlueprint(s, data)
	assert.ErrorIs(t, err, ErrNoMarkers)

	_, err = PlaceBlueprint(s, []byte(`{"items":[]}`))
	assert.ErrorIs(t, err, tower.ErrInvalidDocument)
}
