package tools

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rainbowphysics/tower"
	"go.uber.org/zap"
)

// MarkerName is the custom name of the objects PlaceBlueprint builds at.
const MarkerName = "PyMarker"

// Errors returned by blueprint handling
var (
	ErrNoMarkers            = errors.New("save has no blueprint markers")
	ErrInvalidBlueprintName = errors.New("invalid blueprint name")
)

// BlueprintPath resolves a blueprint name to its file under dir. Names may
// contain subdirectories but never "..".
func BlueprintPath(dir, name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".json")
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlueprintName, name)
	}
	return filepath.Join(dir, filepath.FromSlash(name)+".json"), nil
}

// MakeBlueprint encodes copies of the positioned objects of sel as a
// standalone document. The copies are moved so that the centroid's x and y
// and the lowest z sit at the origin. sel is not modified.
func MakeBlueprint(sel *tower.Selection) ([]byte, error) {
	objs, err := positioned(sel)
	if err != nil {
		return nil, err
	}
	centroid, err := objs.Centroid()
	if err != nil {
		return nil, err
	}
	minZ := math.Inf(1)
	for _, o := range objs.Objects() {
		p, _ := o.Position()
		minZ = math.Min(minZ, p.Z)
	}
	origin := tower.Vec(centroid.X, centroid.Y, minZ)

	copies := tower.CopySelection(objs, -1)
	translate(copies, origin.Scale(-1))
	log().Debug("made blueprint", zap.Int("objects", copies.Len()), zap.Stringer("origin", origin))
	return tower.NewFragment(copies.Objects()...).MarshalIndent()
}

// PlaceBlueprint builds a copy of the blueprint at every marker object of
// save. Each copy takes the marker's largest scale component, then its
// rotation about the blueprint origin, then its position. The markers are
// removed. It returns the number of copies placed.
func PlaceBlueprint(save *tower.Suitebro, blueprint []byte) (int, error) {
	bp, err := tower.Parse(blueprint)
	if err != nil {
		return 0, fmt.Errorf("read blueprint: %w", err)
	}
	objs := bp.Everything()
	if objs.Len() == 0 {
		return 0, ErrEmptySelection
	}
	markers := tower.ByCustomName(MarkerName).Select(save.Everything())
	if markers.Len() == 0 {
		return 0, ErrNoMarkers
	}

	for _, m := range markers.Objects() {
		copies := save.CopySelection(objs)
		save.AddObjects(copies)
		if s, ok := m.Scale(); ok {
			scale(copies, math.Max(s.X, math.Max(s.Y, s.Z)), tower.Vector{})
		}
		if q, ok := m.Rotation(); ok {
			rotate(copies, q.Normalize(), tower.Vector{}, false)
		}
		p, _ := m.Position()
		translate(copies, p)
		log().Debug("placed blueprint", zap.Stringer("at", p), zap.Int("objects", copies.Len()))
	}
	save.RemoveObjects(markers)
	return markers.Len(), nil
}
