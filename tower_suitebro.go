package tower

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// noneItemName names the placeholder item left behind by spline anchor
// points. It is dropped on parse.
const noneItemName = "None"

// propertySuffix separates a metadata record's root name from its index.
const propertySuffix = "_C_"

// Suitebro is a parsed save: the ordered objects exploded from the items and
// properties arrays, plus the rest of the document kept as raw JSON.
type Suitebro struct {
	// Filename and Directory locate the save on disk when it was loaded from one.
	Filename  string
	Directory string

	doc     []byte
	objects []*TowerObject
}

// Parse merges the parallel items and properties arrays of a document into
// objects. Records are walked with independent cursors:
//
//  1. an item whose name is no metadata root name has no metadata record;
//  2. an item followed by a metadata record whose name starts with the item
//     name pairs with it;
//  3. otherwise the metadata record stands alone.
//
// Items named "None" are dropped. A state none of the cases resolves is
// reported as ErrParseAmbiguous.
func Parse(data []byte) (*Suitebro, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: not a json object", ErrInvalidDocument)
	}
	items, err := recordArray(data, "items")
	if err != nil {
		return nil, err
	}
	props, err := recordArray(data, "properties")
	if err != nil {
		return nil, err
	}

	roots := make(map[string]struct{}, len(props))
	for _, p := range props {
		if root, ok := rootName(recordName(p)); ok {
			roots[root] = struct{}{}
		}
	}

	s := &Suitebro{doc: cloneBytes(data), objects: make([]*TowerObject, 0, len(items)+len(props))}
	itemIdx, propIdx := 0, 0
	for itemIdx < len(items) || propIdx < len(props) {
		var item, prop []byte
		if itemIdx < len(items) {
			item = items[itemIdx]
		}
		if propIdx < len(props) {
			prop = props[propIdx]
		}

		if item != nil && recordName(item) == noneItemName {
			itemIdx++
			continue
		}

		var obj *TowerObject
		switch {
		case item != nil && !hasRoot(roots, recordName(item)):
			obj = wrapRecords(item, nil)
			itemIdx++
		case item != nil && prop != nil && strings.HasPrefix(recordName(prop), recordName(item)):
			obj = wrapRecords(item, prop)
			itemIdx++
			propIdx++
		case prop != nil:
			obj = wrapRecords(nil, prop)
			propIdx++
		default:
			return nil, fmt.Errorf("%w: item %d (%s) has metadata records but none remain",
				ErrParseAmbiguous, itemIdx, recordName(item))
		}
		s.objects = append(s.objects, obj)
	}

	log().Debug("parsed save",
		zap.Int("items", len(items)), zap.Int("properties", len(props)),
		zap.Int("objects", len(s.objects)), zap.Int("max_group_id", s.MaxGroupID()))
	return s, nil
}

func recordArray(data []byte, key string) ([][]byte, error) {
	r := gjson.GetBytes(data, key)
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: %q is not an array", ErrInvalidDocument, key)
	}
	var (
		out [][]byte
		err error
	)
	r.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() || v.Get("name").Type != gjson.String {
			err = fmt.Errorf("%w: %s[%d] has no name", ErrInvalidDocument, key, len(out))
			return false
		}
		out = append(out, []byte(v.Raw))
		return true
	})
	return out, err
}

func recordName(rec []byte) string {
	return gjson.GetBytes(rec, "name").String()
}

func hasRoot(roots map[string]struct{}, name string) bool {
	_, ok := roots[name]
	return ok
}

// rootName strips the "_C_<n>" suffix of a metadata record name.
func rootName(name string) (string, bool) {
	i := strings.LastIndex(name, propertySuffix)
	if i < 0 {
		return "", false
	}
	return name[:i], true
}

// NewFragment returns a save holding only objs and no other document keys.
// Its Marshal output is a standalone {"groups","items","properties"}
// document that Parse reads back, which is how selections are stored
// outside a save.
func NewFragment(objs ...*TowerObject) *Suitebro {
	s := &Suitebro{doc: []byte("{}")}
	s.SetObjects(objs)
	return s
}

//------------------------------------------------------------------------------
// OBJECTS
//------------------------------------------------------------------------------

// Objects returns the objects in their current order. The slice is a copy.
func (s *Suitebro) Objects() []*TowerObject {
	out := make([]*TowerObject, len(s.objects))
	copy(out, s.objects)
	return out
}

// SetObjects replaces the object list.
func (s *Suitebro) SetObjects(objs []*TowerObject) {
	s.objects = append([]*TowerObject(nil), objs...)
}

// Len returns the number of objects.
func (s *Suitebro) Len() int { return len(s.objects) }

// Everything is a Selection of every object, metadata objects included.
func (s *Suitebro) Everything() *Selection {
	return NewSelection(s.objects...)
}

// AddObject appends obj.
func (s *Suitebro) AddObject(obj *TowerObject) {
	s.objects = append(s.objects, obj)
}

// AddObjects appends every object of sel.
func (s *Suitebro) AddObjects(sel *Selection) {
	s.objects = append(s.objects, sel.Objects()...)
}

// RemoveObjects drops every object of sel from the save.
func (s *Suitebro) RemoveObjects(sel *Selection) {
	kept := s.objects[:0]
	for _, o := range s.objects {
		if !sel.Contains(o) {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(s.objects); i++ {
		s.objects[i] = nil
	}
	s.objects = kept
}

// FindItem returns the first object whose name or custom name matches.
func (s *Suitebro) FindItem(name string) *TowerObject {
	for _, o := range s.objects {
		if o.MatchesName(name) {
			return o
		}
	}
	return nil
}

// Items lists the objects that have an item record.
func (s *Suitebro) Items() []*TowerObject {
	var out []*TowerObject
	for _, o := range s.objects {
		if o.HasItem() {
			out = append(out, o)
		}
	}
	return out
}

// InventoryItems lists the items that come out of a player's inventory.
func (s *Suitebro) InventoryItems() []*TowerObject {
	var out []*TowerObject
	for _, o := range s.objects {
		if o.IsInventoryItem() {
			out = append(out, o)
		}
	}
	return out
}

// ItemCount counts objects per name.
func (s *Suitebro) ItemCount() map[string]int {
	return countNames(s.objects)
}

// InventoryCount counts inventory items per name.
func (s *Suitebro) InventoryCount() map[string]int {
	return countNames(s.InventoryItems())
}

func countNames(objs []*TowerObject) map[string]int {
	out := make(map[string]int)
	for _, o := range objs {
		out[o.Name()]++
	}
	return out
}

//------------------------------------------------------------------------------
// GROUPS
//------------------------------------------------------------------------------

// Groups partitions every grouped object by group id.
func (s *Suitebro) Groups() []Group {
	return s.Everything().Groups()
}

// MaxGroupID is the highest group id in use, -1 when nothing is grouped.
func (s *Suitebro) MaxGroupID() int {
	max := -1
	for _, o := range s.objects {
		if id := o.GroupID(); id > max {
			max = id
		}
	}
	return max
}

// Group puts sel in a new group and returns its id.
func (s *Suitebro) Group(sel *Selection) int {
	id := s.MaxGroupID() + 1
	sel.SetGroupID(id)
	return id
}

// GroupAs puts sel in group id.
func (s *Suitebro) GroupAs(sel *Selection, id int) {
	sel.SetGroupID(id)
}

// CopySelection copies sel with fresh GUIDs and group ids that do not clash
// with any group in the save. The copies are not added to the save.
func (s *Suitebro) CopySelection(sel *Selection) *Selection {
	return CopySelection(sel, s.MaxGroupID())
}

//------------------------------------------------------------------------------
// SERIALIZE
//------------------------------------------------------------------------------

// Marshal rebuilds the document. The groups summary is recomputed from live
// group ids, objects are stably sorted by TowerObject.Less and re-emitted
// into the items and properties arrays. Metadata records of objects with both
// records are renamed <root>_C_<k>, where k counts from zero and restarts
// whenever the root changes from the previous renamed record. Other
// top-level keys are kept verbatim.
func (s *Suitebro) Marshal() ([]byte, error) {
	sort.SliceStable(s.objects, func(i, j int) bool {
		return s.objects[i].Less(s.objects[j])
	})

	var items, props bytes.Buffer
	items.WriteByte('[')
	props.WriteByte('[')
	lastRoot, lastNum := "", 0
	haveRoot := false
	for _, o := range s.objects {
		if o.item != nil {
			if items.Len() > 1 {
				items.WriteByte(',')
			}
			items.Write(o.item)
		}
		if o.properties == nil {
			continue
		}
		if o.item != nil {
			if root, ok := rootName(recordName(o.properties)); ok {
				if haveRoot && root == lastRoot {
					lastNum++
				} else {
					lastNum = 0
				}
				lastRoot, haveRoot = root, true
				o.properties = mustSet(o.properties, namePath, root+propertySuffix+strconv.Itoa(lastNum))
			}
		}
		if props.Len() > 1 {
			props.WriteByte(',')
		}
		props.Write(o.properties)
	}
	items.WriteByte(']')
	props.WriteByte(']')

	doc, err := sjson.SetRawBytes(s.doc, "groups", s.groupsSummary())
	if err != nil {
		return nil, fmt.Errorf("write groups: %w", err)
	}
	if doc, err = sjson.SetRawBytes(doc, "items", items.Bytes()); err != nil {
		return nil, fmt.Errorf("write items: %w", err)
	}
	if doc, err = sjson.SetRawBytes(doc, "properties", props.Bytes()); err != nil {
		return nil, fmt.Errorf("write properties: %w", err)
	}
	s.doc = doc
	return cloneBytes(doc), nil
}

// MarshalIndent is Marshal followed by two-space pretty printing.
func (s *Suitebro) MarshalIndent() ([]byte, error) {
	doc, err := s.Marshal()
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(doc, &pretty.Options{Width: 80, Indent: "  "}), nil
}

func (s *Suitebro) groupsSummary() []byte {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, g := range s.Groups() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"group_id":%d,"item_count":%d}`, g.ID, g.Objects.Len())
	}
	b.WriteByte(']')
	return b.Bytes()
}
