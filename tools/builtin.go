package tools

import (
	"math"
	"sort"

	"github.com/rainbowphysics/tower"
	"go.uber.org/zap"
)

const (
	builtinVersion = "1.0"
	builtinAuthor  = "Physics System"
)

// Builtins returns the tools shipped with the toolkit.
func Builtins() []*Tool {
	return []*Tool{
		{
			Name: "Translate", Info: "Translates selection a specified amount (in world coordinates)",
			Params: []ParamInfo{{Name: "offset", Type: XYZParam, Description: "Translation offset"}},
			Main:   translateMain,
		},
		{
			Name: "Rotate", Info: "Rotates selection a specified amount (in world coordinates)",
			Params: []ParamInfo{
				{Name: "rotation", Type: XYZParam, Description: "Rotation to perform (in Euler angles and degrees)"},
				{Name: "local", Type: BoolParam, Description: "Whether to only rotate locally", Default: false},
			},
			Main: rotateMain,
		},
		{
			Name: "Scale", Info: "Scales selection up, either around the centroid (default) or world origin (origin=true)",
			Params: []ParamInfo{
				{Name: "scale", Type: FloatParam, Description: "Scaling factor"},
				{Name: "origin", Type: BoolParam, Description: "Whether to scale around the origin", Default: false},
			},
			Main: scaleMain,
		},
		{
			Name: "Center", Info: "Centers selection at the world origin",
			Params: []ParamInfo{{Name: "offset", Type: XYZParam, Description: "Optional offset", Default: tower.Vector{}}},
			Main:   centerMain,
		},
		{
			Name: "Grouper", Info: "Groups the selection",
			Main: grouperMain,
		},
		{
			Name: "Duplicate", Info: "Duplicates selection (with optional offset)",
			Params: []ParamInfo{{Name: "offset", Type: XYZParam, Description: "Translation offset", Default: tower.Vector{}}},
			Main:   duplicateMain,
		},
		{
			Name: "Tile", Info: "Tiles selection <tile> times in each dimension at offsets <offset>.",
			Params: []ParamInfo{
				{Name: "tile", Type: XYZIntParam, Description: "x,y,z tiling in each dimension"},
				{Name: "offset", Type: XYZParam, Description: "x,y,z offsets"},
			},
			Main: tileMain,
		},
		{
			Name: "Set", Info: "Sets materials on canvas objects in the given selection.",
			Params: []ParamInfo{{Name: "material", Type: StringParam, Description: "Material to apply"}},
			Main:   setMaterialMain,
		},
		{
			Name: "SetURL", Info: "Sets URL on canvas objects in the given selection.",
			Params: []ParamInfo{{Name: "url", Type: StringParam, Description: "URL to set"}},
			Main:   setURLMain,
		},
		{
			Name: "Replace", Info: "Replace materials on canvas objects in the given selection.",
			Params: []ParamInfo{
				{Name: "replace", Type: StringParam, Description: "Material to replace"},
				{Name: "material", Type: StringParam, Description: "Replacement material to use instead"},
			},
			Main: replaceMain,
		},
		{
			Name: "ReplaceURL", Info: "Replaces URL on canvas objects in the given selection.",
			Params: []ParamInfo{
				{Name: "replace", Type: StringParam, Description: "URL to replace"},
				{Name: "url", Type: StringParam, Description: "URL to set"},
			},
			Main: replaceURLMain,
		},
		{
			Name: "Count", Info: "Counts the number of objects in a map", NoWrite: true,
			Main: countMain,
		},
		{
			Name: "Filter", Info: "Filters the save so that only the items in selection remain",
			Main: filterMain,
		},
		{
			Name: "DestroyGroups", Info: "Destroys all groups in selection (useful for when large groups cause lag)",
			Main: destroyGroupsMain,
		},
	}
}

// DefaultRegistry holds the built-in tools.
func DefaultRegistry() *Registry {
	r := &Registry{}
	for _, t := range Builtins() {
		t.Version, t.Author = builtinVersion, builtinAuthor
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// positioned narrows sel to objects with a position, failing when none are left.
func positioned(sel *tower.Selection) (*tower.Selection, error) {
	out := sel.Filter(func(o *tower.TowerObject) bool {
		_, ok := o.Position()
		return ok
	})
	if out.Len() == 0 {
		return nil, ErrEmptySelection
	}
	return out, nil
}

func translate(sel *tower.Selection, offset tower.Vector) {
	for _, o := range sel.Objects() {
		if p, ok := o.Position(); ok {
			o.SetPosition(p.Add(offset))
		}
	}
}

func translateMain(_ *tower.Suitebro, sel *tower.Selection, params Params) error {
	translate(sel, params.Vector("offset"))
	return nil
}

func rotateMain(_ *tower.Suitebro, sel *tower.Selection, params Params) error {
	objs, err := positioned(sel)
	if err != nil {
		return err
	}
	centroid, err := objs.Centroid()
	if err != nil {
		return err
	}
	rotate(objs, tower.QuatFromEuler(params.Vector("rotation")), centroid, params.Bool("local"))
	return nil
}

// rotate applies r to every object's rotation and, unless local, swings its
// position around pivot.
func rotate(objs *tower.Selection, r tower.Quat, pivot tower.Vector, local bool) {
	for _, o := range objs.Objects() {
		if q, ok := o.Rotation(); ok {
			o.SetRotation(r.Mul(q).Normalize())
		}
		if local {
			continue
		}
		if p, ok := o.Position(); ok {
			o.SetPosition(r.Rotate(p.Sub(pivot)).Add(pivot))
		}
	}
}

func scaleMain(_ *tower.Suitebro, sel *tower.Selection, params Params) error {
	objs, err := positioned(sel)
	if err != nil {
		return err
	}
	var pivot tower.Vector
	if !params.Bool("origin") {
		if pivot, err = objs.Centroid(); err != nil {
			return err
		}
	}
	scale(objs, params.Float("scale"), pivot)
	return nil
}

// scale multiplies every object's scale by factor and its distance to pivot.
func scale(objs *tower.Selection, factor float64, pivot tower.Vector) {
	for _, o := range objs.Objects() {
		if p, ok := o.Position(); ok {
			o.SetPosition(p.Sub(pivot).Scale(factor).Add(pivot))
		}
		if s, ok := o.Scale(); ok {
			o.SetScale(s.Scale(factor))
		}
	}
}

func centerMain(_ *tower.Suitebro, sel *tower.Selection, params Params) error {
	objs, err := positioned(sel)
	if err != nil {
		return err
	}
	centroid, err := objs.Centroid()
	if err != nil {
		return err
	}
	translate(objs, params.Vector("offset").Sub(centroid))
	return nil
}

func grouperMain(save *tower.Suitebro, sel *tower.Selection, _ Params) error {
	items := tower.Items().Select(sel)
	if items.Len() == 0 {
		return ErrEmptySelection
	}
	id := save.Group(items)
	log().Info("grouped selection", zap.Int("group_id", id), zap.Int("objects", items.Len()))
	return nil
}

func duplicateMain(save *tower.Suitebro, sel *tower.Selection, params Params) error {
	copies := save.CopySelection(sel)
	save.AddObjects(copies)
	translate(copies, params.Vector("offset"))
	return nil
}

func tileMain(save *tower.Suitebro, sel *tower.Selection, params Params) error {
	n := params.Vector("tile").Max(tower.Vec(1, 1, 1))
	nx, ny, nz := int(math.Round(n.X)), int(math.Round(n.Y)), int(math.Round(n.Z))
	d := params.Vector("offset")
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				copies := save.CopySelection(sel)
				translate(copies, tower.Vec(float64(x), float64(y), float64(z)).Mul(d))
				save.AddObjects(copies)
			}
		}
	}
	return nil
}

// canvases keeps the canvas objects that have both records.
func canvases(sel *tower.Selection) *tower.Selection {
	return sel.Filter(func(o *tower.TowerObject) bool {
		return o.HasItem() && o.HasProperties() && o.IsCanvas()
	})
}

func setMaterialMain(_ *tower.Suitebro, sel *tower.Selection, params Params) error {
	for _, o := range canvases(sel).Objects() {
		o.SetMaterial(params.String("material"))
	}
	return nil
}

func setURLMain(_ *tower.Suitebro, sel *tower.Selection, params Params) error {
	for _, o := range canvases(sel).Objects() {
		o.SetURL(params.String("url"))
	}
	return nil
}

func replaceMain(save *tower.Suitebro, sel *tower.Selection, params Params) error {
	match := canvases(sel).Filter(func(o *tower.TowerObject) bool {
		return o.Material() == params.String("replace")
	})
	return setMaterialMain(save, match, params)
}

func replaceURLMain(save *tower.Suitebro, sel *tower.Selection, params Params) error {
	match := canvases(sel).Filter(func(o *tower.TowerObject) bool {
		return o.URL() == params.String("replace")
	})
	return setURLMain(save, match, params)
}

func countMain(save *tower.Suitebro, _ *tower.Selection, _ Params) error {
	counts := save.ItemCount()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	log().Info("item count", zap.Int("objects", save.Len()))
	for _, name := range names {
		log().Info("count", zap.String("name", name), zap.Int("count", counts[name]))
	}
	return nil
}

func filterMain(save *tower.Suitebro, sel *tower.Selection, _ Params) error {
	var keep []*tower.TowerObject
	for _, o := range save.Objects() {
		if o.IsPropertyOnly() || sel.Contains(o) {
			keep = append(keep, o)
		}
	}
	save.SetObjects(keep)
	return nil
}

func destroyGroupsMain(_ *tower.Suitebro, sel *tower.Selection, _ Params) error {
	sel.DestroyGroups()
	return nil
}
