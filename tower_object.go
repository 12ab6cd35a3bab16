package tower

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Fixed field locations inside item and metadata records
var (
	namePath       = PathSpec{"name"}
	guidPath       = PathSpec{"guid"}
	steamIDPath    = PathSpec{"steam_item_id"}
	itemPropsPath  = PathSpec{"properties"}
	groupIDPath    = ParsePath("properties.GroupID.Int.value")
	groupIDField   = ParsePath("properties.GroupID")
	customNamePath = ParsePath("properties.ItemCustomName.Name.value")

	positionPath = PathSpec{"position"}
	rotationPath = PathSpec{"rotation"}
	scalePath    = PathSpec{"scale"}

	respawnPath            = ParsePath("properties.RespawnLocation")
	respawnTranslationPath = ParsePath("properties.RespawnLocation.Struct.value.Struct.Translation.Struct.value.Vector")
	respawnRotationPath    = ParsePath("properties.RespawnLocation.Struct.value.Struct.Rotation.Struct.value.Quat")
	respawnScalePath       = ParsePath("properties.RespawnLocation.Struct.value.Struct.Scale3D.Struct.value.Vector")
	worldScalePath         = ParsePath("properties.WorldScale.Struct.value.Vector")
	worldScaleFactorPath   = ParsePath("properties.WorldScaleFactor.Float.value")

	connectionsFieldPath = ParsePath("properties.ItemConnections")
	connectionsPath      = ParsePath("properties.ItemConnections.Array.value.Struct.value")

	urlPath          = ParsePath("properties.URL.Str.value")
	urlField         = ParsePath("properties.URL")
	materialPath     = ParsePath("properties.SurfaceMaterial.Object.value")
	materialField    = ParsePath("properties.SurfaceMaterial")
	workshopFilePath = ParsePath("properties.WorkshopFile")
)

// workshopTemplatePrefix names the templates that load a Steam Workshop file.
const workshopTemplatePrefix = "Workshop"

var guidPattern = regexp.MustCompile(`^[\da-f]{8}-[\da-f]{4}-[\da-f]{4}-[\da-f]{4}-[\da-f]{12}$`)

// TowerObject is one object of a save: its item record (transform and typed
// properties) and its metadata record, either of which may be absent.
// Property-only objects carry global settings such as CondoWeather.
//
// Fields written through the canonical accessors are mirrored into both
// records so readers of either agree.
type TowerObject struct {
	item       []byte
	properties []byte
}

// NewTowerObject builds an object from copies of the given records. When an
// item is present it is assigned a fresh GUID.
func NewTowerObject(item, properties []byte) (*TowerObject, error) {
	if item == nil && properties == nil {
		return nil, ErrEmptyObject
	}
	for _, rec := range [][]byte{item, properties} {
		if rec != nil && !isObject(rec) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRecord, truncate(rec, 64))
		}
	}
	obj := &TowerObject{item: cloneBytes(item), properties: cloneBytes(properties)}
	if obj.item != nil {
		obj.item = mustSet(obj.item, guidPath, uuid.NewString())
	}
	return obj, nil
}

// wrapRecords adopts the records without copying or touching the GUID. It is
// used while parsing, where the records are already owned by the save.
func wrapRecords(item, properties []byte) *TowerObject {
	return &TowerObject{item: item, properties: properties}
}

func isObject(rec []byte) bool {
	return gjson.ValidBytes(rec) && gjson.ParseBytes(rec).IsObject()
}

// Item returns the item record JSON, nil for property-only objects.
func (o *TowerObject) Item() []byte { return o.item }

// Properties returns the metadata record JSON, nil for item-only objects.
func (o *TowerObject) Properties() []byte { return o.properties }

// HasItem reports whether the object has an item record.
func (o *TowerObject) HasItem() bool { return o.item != nil }

// HasProperties reports whether the object has a metadata record.
func (o *TowerObject) HasProperties() bool { return o.properties != nil }

// IsPropertyOnly reports whether the object is a metadata-only pseudo-object.
func (o *TowerObject) IsPropertyOnly() bool { return o.item == nil }

// Copy returns an independent object with identical records and a fresh
// GUID. References held by other objects are not rewritten; see
// CopySelection.
func (o *TowerObject) Copy() *TowerObject {
	c := &TowerObject{item: cloneBytes(o.item), properties: cloneBytes(o.properties)}
	if c.item != nil {
		c.item = mustSet(c.item, guidPath, uuid.NewString())
	}
	return c
}

// UpdateItem replaces the item record. Callers that edit records directly
// are responsible for keeping the metadata record consistent.
func (o *TowerObject) UpdateItem(item []byte) error {
	if item == nil && o.properties == nil {
		return ErrEmptyObject
	}
	if item != nil && !isObject(item) {
		return ErrInvalidRecord
	}
	o.item = item
	return nil
}

// UpdateProperties replaces the metadata record.
func (o *TowerObject) UpdateProperties(properties []byte) error {
	if properties == nil && o.item == nil {
		return ErrEmptyObject
	}
	if properties != nil && !isObject(properties) {
		return ErrInvalidRecord
	}
	o.properties = properties
	return nil
}

// setMirrored writes raw at p in the item and, when present, the metadata
// record.
func (o *TowerObject) setMirrored(p PathSpec, raw []byte) {
	o.item = mustSetRaw(o.item, p, raw)
	if o.properties != nil {
		o.properties = mustSetRaw(o.properties, p, raw)
	}
}

func (o *TowerObject) String() string {
	return fmt.Sprintf("TowerObject(%s)", o.Name())
}

//------------------------------------------------------------------------------
// NAMES
//------------------------------------------------------------------------------

// Name is the template name the game uses for the object.
func (o *TowerObject) Name() string {
	if o.item != nil {
		r, _ := Get(o.item, namePath)
		return r.String()
	}
	r, _ := Get(o.properties, namePath)
	return r.String()
}

// CustomName is the player-assigned label, empty when unset.
func (o *TowerObject) CustomName() string {
	r, ok := Get(o.item, customNamePath)
	if !ok {
		return ""
	}
	return r.String()
}

// SetCustomName writes the label into both records.
func (o *TowerObject) SetCustomName(name string) {
	if o.item == nil {
		o.warnNoItem("custom name")
		return
	}
	raw, err := Property{Type: NameProperty, Value: name}.Encode()
	if err != nil {
		panic(err)
	}
	o.setMirrored(customNamePath.Parent().Parent(), raw)
}

// MatchesName compares query against Name and CustomName, ignoring case and
// surrounding whitespace.
func (o *TowerObject) MatchesName(query string) bool {
	query = strings.TrimSpace(query)
	return strings.EqualFold(strings.TrimSpace(o.Name()), query) ||
		strings.EqualFold(strings.TrimSpace(o.CustomName()), query)
}

//------------------------------------------------------------------------------
// GROUPS
//------------------------------------------------------------------------------

// GroupID returns the object's group, or -1 when ungrouped.
func (o *TowerObject) GroupID() int {
	r, ok := Get(o.item, groupIDPath)
	if !ok {
		return -1
	}
	return int(r.Int())
}

// SetGroupID writes the group into both records.
func (o *TowerObject) SetGroupID(id int) {
	if o.item == nil {
		o.warnNoItem("group id")
		return
	}
	raw, err := Property{Type: IntProperty, Value: int64(id)}.Encode()
	if err != nil {
		panic(err)
	}
	o.setMirrored(groupIDField, raw)
}

// Ungroup removes the group from the item. The metadata copy is reset to -1
// rather than removed; if it was never there, nothing is written.
func (o *TowerObject) Ungroup() {
	o.item = mustDelete(o.item, groupIDField)
	if Exists(o.properties, groupIDPath) {
		o.properties = mustSet(o.properties, groupIDPath, -1)
	}
}

//------------------------------------------------------------------------------
// GUID
//------------------------------------------------------------------------------

// GUID returns the item's GUID. Calling it on a property-only object is a
// programming error and panics.
func (o *TowerObject) GUID() string {
	if o.item == nil {
		panic("tower: GUID of property-only object " + o.Name())
	}
	r, _ := Get(o.item, guidPath)
	return r.String()
}

// SetGUID validates and stores a canonical lowercase GUID.
func (o *TowerObject) SetGUID(guid string) error {
	if o.item == nil {
		panic("tower: SetGUID on property-only object " + o.Name())
	}
	guid = strings.ToLower(strings.TrimSpace(guid))
	if !guidPattern.MatchString(guid) {
		return fmt.Errorf("%w: %q", ErrInvalidGUID, guid)
	}
	o.item = mustSet(o.item, guidPath, guid)
	return nil
}

//------------------------------------------------------------------------------
// TRANSFORM
//------------------------------------------------------------------------------

// Position returns the world position. ok is false for property-only objects.
func (o *TowerObject) Position() (Vector, bool) {
	r, ok := Get(o.item, positionPath)
	if !ok {
		return Vector{}, false
	}
	return vectorFromResult(r)
}

// SetPosition moves the object, keeping RespawnLocation in step when the
// object has one.
func (o *TowerObject) SetPosition(v Vector) {
	if o.item == nil {
		o.warnNoItem("position")
		return
	}
	raw := v.rawJSON()
	o.item = mustSetRaw(o.item, positionPath, raw)
	if Exists(o.item, respawnPath) {
		o.setMirrored(respawnTranslationPath, raw)
	}
}

// Rotation returns the rotation quaternion.
func (o *TowerObject) Rotation() (Quat, bool) {
	r, ok := Get(o.item, rotationPath)
	if !ok {
		return Quat{}, false
	}
	return quatFromResult(r)
}

// SetRotation rotates the object, keeping RespawnLocation in step.
func (o *TowerObject) SetRotation(q Quat) {
	if o.item == nil {
		o.warnNoItem("rotation")
		return
	}
	raw := q.rawJSON()
	o.item = mustSetRaw(o.item, rotationPath, raw)
	if Exists(o.item, respawnPath) {
		o.setMirrored(respawnRotationPath, raw)
	}
}

// Scale returns the local scale.
func (o *TowerObject) Scale() (Vector, bool) {
	r, ok := Get(o.item, scalePath)
	if !ok {
		return Vector{}, false
	}
	return vectorFromResult(r)
}

// SetScale rescales the object. An existing WorldScale field receives the
// scale divided by MetadataScale, and RespawnLocation's Scale3D the scale
// itself.
func (o *TowerObject) SetScale(v Vector) {
	if o.item == nil {
		o.warnNoItem("scale")
		return
	}
	o.item = mustSetRaw(o.item, scalePath, v.rawJSON())
	if Exists(o.item, worldScalePath) {
		o.setMirrored(worldScalePath, v.Scale(1/o.MetadataScale()).rawJSON())
	}
	if Exists(o.item, respawnPath) {
		o.setMirrored(respawnScalePath, v.rawJSON())
	}
}

// MetadataScale is the factor between local scale and WorldScale, read from
// the metadata record first. It defaults to 1.
func (o *TowerObject) MetadataScale() float64 {
	for _, rec := range [][]byte{o.properties, o.item} {
		if r, ok := Get(rec, worldScaleFactorPath); ok && r.Float() != 0 {
			return r.Float()
		}
	}
	return 1
}

func (o *TowerObject) warnNoItem(field string) {
	log().Warn("cannot set field on property-only object",
		zap.String("field", field), zap.String("object", o.Name()))
}

//------------------------------------------------------------------------------
// TYPED PROPERTIES
//------------------------------------------------------------------------------

// Property reads and unwraps item.properties.<name>, falling back to the
// metadata record for property-only objects.
func (o *TowerObject) Property(name string) (Property, bool) {
	rec := o.item
	if rec == nil {
		rec = o.properties
	}
	r, ok := Get(rec, itemPropsPath.Append(name))
	if !ok {
		return Property{}, false
	}
	return DecodeProperty(r)
}

// PropertyValue is Property(name).Value, or nil when absent.
func (o *TowerObject) PropertyValue(name string) interface{} {
	p, ok := o.Property(name)
	if !ok {
		return nil
	}
	return p.Value
}

// HasProperty reports whether the typed field exists.
func (o *TowerObject) HasProperty(name string) bool {
	rec := o.item
	if rec == nil {
		rec = o.properties
	}
	return Exists(rec, itemPropsPath.Append(name))
}

// SetProperty wraps value in the envelope inferred from its Go type and
// writes it into every record the object has.
func (o *TowerObject) SetProperty(name string, value interface{}) error {
	p, err := InferProperty(value)
	if err != nil {
		return err
	}
	return o.SetTypedProperty(name, p)
}

// SetTypedProperty writes an explicit envelope into every record the object has.
func (o *TowerObject) SetTypedProperty(name string, p Property) error {
	raw, err := p.Encode()
	if err != nil {
		return err
	}
	path := itemPropsPath.Append(name)
	if o.item != nil {
		o.item = mustSetRaw(o.item, path, raw)
	}
	if o.properties != nil {
		o.properties = mustSetRaw(o.properties, path, raw)
	}
	return nil
}

// DeleteProperty removes the typed field from every record.
func (o *TowerObject) DeleteProperty(name string) {
	path := itemPropsPath.Append(name)
	o.item = mustDelete(o.item, path)
	o.properties = mustDelete(o.properties, path)
}

//------------------------------------------------------------------------------
// CANVAS FIELDS
//------------------------------------------------------------------------------

// IsCanvas reports whether the object displays a material or image: canvas
// templates and anything with a SurfaceMaterial or URL field.
func (o *TowerObject) IsCanvas() bool {
	if o.item == nil {
		return false
	}
	return strings.HasPrefix(o.Name(), "Canvas") ||
		Exists(o.item, materialField) || Exists(o.item, urlField)
}

// URL is the canvas image URL, empty when unset.
func (o *TowerObject) URL() string {
	r, _ := Get(o.item, urlPath)
	return r.String()
}

// SetURL switches a canvas to an image URL. The item drops its material; the
// metadata record keeps an empty material next to the URL.
func (o *TowerObject) SetURL(url string) {
	if o.item == nil {
		o.warnNoItem("url")
		return
	}
	urlRaw, _ := Property{Type: StrProperty, Value: url}.Encode()
	o.item = mustDelete(o.item, materialField)
	o.item = mustSetRaw(o.item, urlField, urlRaw)
	if o.properties != nil {
		matRaw, _ := Property{Type: ObjectProperty, Value: ""}.Encode()
		o.properties = mustSetRaw(o.properties, materialField, matRaw)
		o.properties = mustSetRaw(o.properties, urlField, urlRaw)
	}
}

// Material is the canvas surface material path, read from the metadata
// record when present since both set paths keep it there.
func (o *TowerObject) Material() string {
	if r, ok := Get(o.properties, materialPath); ok {
		return r.String()
	}
	r, _ := Get(o.item, materialPath)
	return r.String()
}

// SetMaterial switches a canvas to a surface material. The item drops its
// URL; the metadata record keeps an empty URL next to the material.
func (o *TowerObject) SetMaterial(material string) {
	if o.item == nil {
		o.warnNoItem("material")
		return
	}
	matRaw, _ := Property{Type: ObjectProperty, Value: material}.Encode()
	o.item = mustDelete(o.item, urlField)
	o.item = mustSetRaw(o.item, materialField, matRaw)
	if o.properties != nil {
		urlRaw, _ := Property{Type: StrProperty, Value: ""}.Encode()
		o.properties = mustSetRaw(o.properties, materialField, matRaw)
		o.properties = mustSetRaw(o.properties, urlField, urlRaw)
	}
}

// SteamItemID is the inventory item id, 0 for I/O and world objects.
func (o *TowerObject) SteamItemID() int64 {
	r, _ := Get(o.item, steamIDPath)
	return r.Int()
}

// IsInventoryItem reports whether placing the object consumes an item from
// the player's Steam inventory.
func (o *TowerObject) IsInventoryItem() bool {
	return o.item != nil && o.SteamItemID() != 0
}

//------------------------------------------------------------------------------
// CONNECTIONS
//------------------------------------------------------------------------------

func (o *TowerObject) ensureConnections() {
	if !Exists(o.item, connectionsPath) {
		o.item = mustSetRaw(o.item, connectionsFieldPath, []byte(connectionsTemplate))
	}
	if o.properties != nil && !Exists(o.properties, connectionsPath) {
		o.properties = mustSetRaw(o.properties, connectionsFieldPath, []byte(connectionsTemplate))
	}
}

// AddConnection appends an event wire, creating ItemConnections if needed.
func (o *TowerObject) AddConnection(c Connection) {
	if o.item == nil {
		panic("tower: AddConnection on property-only object " + o.Name())
	}
	o.ensureConnections()
	o.item = mustSetRaw(o.item, connectionsPath.Append("-1"), c.raw)
	if o.properties != nil {
		r, _ := Get(o.item, connectionsPath)
		o.properties = mustSetRaw(o.properties, connectionsPath, []byte(r.Raw))
	}
}

// Connections lists the object's event wires.
func (o *TowerObject) Connections() []Connection {
	if o.item == nil {
		panic("tower: Connections on property-only object " + o.Name())
	}
	o.ensureConnections()
	r, _ := Get(o.item, connectionsPath)
	var out []Connection
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, Connection{raw: []byte(v.Raw)})
		return true
	})
	return out
}

// SetConnections replaces every event wire.
func (o *TowerObject) SetConnections(conns []Connection) {
	if o.item == nil {
		panic("tower: SetConnections on property-only object " + o.Name())
	}
	o.ensureConnections()
	var b bytes.Buffer
	b.WriteByte('[')
	for i, c := range conns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(c.raw)
	}
	b.WriteByte(']')
	o.setMirrored(connectionsPath, b.Bytes())
}

// Connect wires listenerEvent on o to eventName on target.
func (o *TowerObject) Connect(listenerEvent string, target *TowerObject, eventName string, delay float64) {
	o.AddConnection(NewConnection(target.GUID(), eventName, delay, listenerEvent))
}

//------------------------------------------------------------------------------
// ORDERING
//------------------------------------------------------------------------------

// pinnedRank orders the singleton actors the game expects at the front of
// the save: weather, then the settings manager, then the sky.
func pinnedRank(name string) int {
	switch {
	case strings.HasPrefix(name, "CondoWeather"):
		return 0
	case strings.HasPrefix(name, "CondoSettingsManager"):
		return 1
	case strings.HasPrefix(name, "Ultra_Dynamic_Sky"):
		return 2
	}
	return 3
}

// Less is the serialization order: property-only objects first (pinned
// singletons ahead of the rest, then by name), then items by name. Workshop
// items of the same template are ordered by their WorkshopFile identifier,
// objects without one first.
func (o *TowerObject) Less(other *TowerObject) bool {
	switch {
	case o.item == nil && other.item == nil:
		a, b := o.Name(), other.Name()
		ra, rb := pinnedRank(a), pinnedRank(b)
		if ra != rb {
			return ra < rb
		}
		return a < b
	case o.item == nil:
		return true
	case other.item == nil:
		return false
	}

	a, b := o.Name(), other.Name()
	if a != b {
		return a < b
	}
	if !strings.HasPrefix(a, workshopTemplatePrefix) {
		return false
	}
	wa, oka := o.workshopID()
	wb, okb := other.workshopID()
	if oka != okb {
		return okb
	}
	if !oka {
		return false
	}
	na, errA := strconv.ParseUint(wa, 10, 64)
	nb, errB := strconv.ParseUint(wb, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return wa < wb
}

// workshopID is the first scalar inside the item's WorkshopFile property,
// whatever envelope wraps it.
func (o *TowerObject) workshopID() (string, bool) {
	r, ok := Get(o.item, workshopFilePath)
	if !ok {
		return "", false
	}
	id := firstScalar(r)
	return id, id != ""
}

func firstScalar(r gjson.Result) string {
	if !r.IsObject() && !r.IsArray() {
		return r.String()
	}
	var id string
	r.ForEach(func(_, v gjson.Result) bool {
		id = firstScalar(v)
		return id == ""
	})
	return id
}
