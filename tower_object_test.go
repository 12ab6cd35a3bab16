package tower

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const (
	pairedItem  = `{"name":"Canvas","guid":"aaaaaaaa-1111-2222-3333-bbbbbbbbbbbb","position":{"x":1.0,"y":2.0,"z":3.0},"rotation":{"x":0.0,"y":0.0,"z":0.0,"w":1.0},"scale":{"x":1.0,"y":1.0,"z":1.0},"properties":{"WorldScale":{"Struct":{"value":{"Vector":{"x":1.0,"y":1.0,"z":1.0}},"struct_type":"Vector","struct_id":"00000000-0000-0000-0000-000000000000"}},"RespawnLocation":{"Struct":{"value":{"Struct":{"Translation":{"Struct":{"value":{"Vector":{"x":1.0,"y":2.0,"z":3.0}}}},"Rotation":{"Struct":{"value":{"Quat":{"x":0.0,"y":0.0,"z":0.0,"w":1.0}}}},"Scale3D":{"Struct":{"value":{"Vector":{"x":1.0,"y":1.0,"z":1.0}}}}}}}},"SurfaceMaterial":{"Object":{"value":"/Game/Wood.Wood"}}}}`
	pairedProps = `{"name":"Canvas_C_0","properties":{"WorldScale":{"Struct":{"value":{"Vector":{"x":1.0,"y":1.0,"z":1.0}},"struct_type":"Vector","struct_id":"00000000-0000-0000-0000-000000000000"}},"WorldScaleFactor":{"Float":{"value":4.0}},"RespawnLocation":{"Struct":{"value":{"Struct":{"Translation":{"Struct":{"value":{"Vector":{"x":1.0,"y":2.0,"z":3.0}}}},"Rotation":{"Struct":{"value":{"Quat":{"x":0.0,"y":0.0,"z":0.0,"w":1.0}}}},"Scale3D":{"Struct":{"value":{"Vector":{"x":1.0,"y":1.0,"z":1.0}}}}}}}}}}`
)

func vectorAt(t *testing.T, rec []byte, p PathSpec) Vector {
	t.Helper()
	r, ok := Get(rec, p)
	if !ok {
		t.Fatalf("%s missing", p)
	}
	v, ok := vectorFromResult(r)
	if !ok {
		t.Fatalf("%s is not a vector: %s", p, r.Raw)
	}
	return v
}

func TestNewTowerObject(t *testing.T) {
	if _, err := NewTowerObject(nil, nil); !errors.Is(err, ErrEmptyObject) {
		t.Errorf("NewTowerObject(nil, nil) error = %v, want ErrEmptyObject", err)
	}
	if _, err := NewTowerObject([]byte(`[1]`), nil); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("NewTowerObject(array) error = %v, want ErrInvalidRecord", err)
	}

	item := []byte(pairedItem)
	o, err := NewTowerObject(item, []byte(pairedProps))
	if err != nil {
		t.Fatalf("NewTowerObject() error = %v", err)
	}
	if o.GUID() == chairGUID {
		t.Error("constructed object kept the source GUID")
	}
	if !guidPattern.MatchString(o.GUID()) {
		t.Errorf("GUID() = %q is not canonical", o.GUID())
	}
	if string(item) != pairedItem {
		t.Error("NewTowerObject modified the caller's record")
	}

	props, err := NewTowerObject(nil, []byte(`{"name":"CondoWeather_C_0"}`))
	if err != nil {
		t.Fatalf("NewTowerObject(properties only) error = %v", err)
	}
	if !props.IsPropertyOnly() || props.HasItem() || !props.HasProperties() {
		t.Errorf("property-only flags wrong: %v %v %v", props.IsPropertyOnly(), props.HasItem(), props.HasProperties())
	}
	if props.Name() != "CondoWeather_C_0" {
		t.Errorf("Name() = %q", props.Name())
	}
}

func TestTowerObject_Copy(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), []byte(pairedProps))
	c := o.Copy()
	if c.GUID() == o.GUID() {
		t.Fatal("Copy() kept the GUID")
	}
	if o.GUID() != chairGUID {
		t.Errorf("Copy() modified the source GUID: %s", o.GUID())
	}
	c.SetPosition(Vec(9, 9, 9))
	if p, _ := o.Position(); !p.Equal(Vec(1, 2, 3)) {
		t.Errorf("editing the copy moved the source to %v", p)
	}
	if got := vectorAt(t, o.Properties(), respawnTranslationPath); !got.Equal(Vec(1, 2, 3)) {
		t.Errorf("editing the copy changed the source metadata to %v", got)
	}
	if got := vectorAt(t, c.Properties(), respawnTranslationPath); !got.Equal(Vec(9, 9, 9)) {
		t.Errorf("copy metadata translation = %v, want (9,9,9)", got)
	}
}

func TestTowerObject_Names(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), []byte(pairedProps))
	if o.CustomName() != "" {
		t.Errorf("CustomName() = %q, want empty", o.CustomName())
	}
	o.SetCustomName("Sign")
	if o.CustomName() != "Sign" {
		t.Errorf("CustomName() = %q, want Sign", o.CustomName())
	}
	r, ok := Get(o.Properties(), customNamePath)
	if !ok || r.String() != "Sign" {
		t.Errorf("custom name not mirrored to metadata: %s", o.Properties())
	}

	for _, q := range []string{"canvas", " CANVAS ", "sign", "Sign"} {
		if !o.MatchesName(q) {
			t.Errorf("MatchesName(%q) = false", q)
		}
	}
	if o.MatchesName("can") {
		t.Error("MatchesName matched a prefix")
	}
}

func TestTowerObject_GroupID(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), []byte(pairedProps))
	if o.GroupID() != -1 {
		t.Fatalf("GroupID() = %d, want -1", o.GroupID())
	}

	// Ungrouping an ungrouped object is a no-op.
	before := string(o.Properties())
	o.Ungroup()
	if o.GroupID() != -1 || string(o.Properties()) != before {
		t.Errorf("Ungroup() on ungrouped object changed it: %d %s", o.GroupID(), o.Properties())
	}

	o.SetGroupID(3)
	if o.GroupID() != 3 {
		t.Errorf("GroupID() = %d, want 3", o.GroupID())
	}
	if r, _ := Get(o.Properties(), groupIDPath); r.Int() != 3 {
		t.Errorf("metadata group id = %s, want 3", r.Raw)
	}

	o.Ungroup()
	if o.GroupID() != -1 {
		t.Errorf("GroupID() after Ungroup = %d, want -1", o.GroupID())
	}
	if Exists(o.Item(), groupIDField) {
		t.Error("Ungroup() left the item field in place")
	}
	if r, ok := Get(o.Properties(), groupIDPath); !ok || r.Int() != -1 {
		t.Errorf("metadata group id after Ungroup = %s, want -1", r.Raw)
	}
}

func TestTowerObject_PropertyOnlySetters(t *testing.T) {
	o := wrapRecords(nil, []byte(`{"name":"CondoSettingsManager_C_0","properties":{}}`))
	before := string(o.Properties())

	o.SetGroupID(2)
	o.SetPosition(Vec(1, 1, 1))
	o.SetScale(Vec(2, 2, 2))
	o.SetRotation(IdentityQuat)
	o.SetCustomName("x")

	if string(o.Properties()) != before {
		t.Errorf("setters changed a property-only object: %s", o.Properties())
	}
	if _, ok := o.Position(); ok {
		t.Error("Position() ok on property-only object")
	}
	if o.GroupID() != -1 {
		t.Errorf("GroupID() = %d, want -1", o.GroupID())
	}

	defer func() {
		if recover() == nil {
			t.Error("GUID() on property-only object did not panic")
		}
	}()
	_ = o.GUID()
}

func TestTowerObject_SetGUID(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), nil)
	if err := o.SetGUID(" CCCCCCCC-4444-5555-6666-DDDDDDDDDDDD "); err != nil {
		t.Fatalf("SetGUID() error = %v", err)
	}
	if o.GUID() != lampGUID {
		t.Errorf("GUID() = %q, want %q", o.GUID(), lampGUID)
	}
	if err := o.SetGUID("not-a-guid"); !errors.Is(err, ErrInvalidGUID) {
		t.Errorf("SetGUID(bad) error = %v, want ErrInvalidGUID", err)
	}
}

func TestTowerObject_TransformMirrors(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), []byte(pairedProps))

	o.SetPosition(Vec(10, 20, 30))
	if p, _ := o.Position(); !p.Equal(Vec(10, 20, 30)) {
		t.Errorf("Position() = %v", p)
	}
	for _, rec := range [][]byte{o.Item(), o.Properties()} {
		if got := vectorAt(t, rec, respawnTranslationPath); !got.Equal(Vec(10, 20, 30)) {
			t.Errorf("respawn translation = %v", got)
		}
	}

	q := QuatFromEuler(Vec(0, 0, 45))
	o.SetRotation(q)
	if got, _ := o.Rotation(); !got.Equal(q) {
		t.Errorf("Rotation() = %v, want %v", got, q)
	}
	r, _ := Get(o.Properties(), respawnRotationPath)
	if got, _ := quatFromResult(r); !got.Equal(q) {
		t.Errorf("respawn rotation = %v, want %v", got, q)
	}
}

func TestTowerObject_SetScaleMirrors(t *testing.T) {
	tests := []struct {
		name      string
		item      string
		props     string
		scale     Vector
		wantWorld Vector
		hasWorld  bool
	}{
		{
			name:      "factor_from_metadata",
			item:      pairedItem,
			props:     pairedProps,
			scale:     Vec(2, 4, 8),
			wantWorld: Vec(0.5, 1, 2),
			hasWorld:  true,
		},
		{
			name:      "default_factor",
			item:      pairedItem,
			scale:     Vec(2, 4, 8),
			wantWorld: Vec(2, 4, 8),
			hasWorld:  true,
		},
		{
			name:  "no_world_scale_field",
			item:  `{"name":"Chair","guid":"aaaaaaaa-1111-2222-3333-bbbbbbbbbbbb","scale":{"x":1.0,"y":1.0,"z":1.0},"properties":{}}`,
			props: `{"name":"Chair_C_0","properties":{}}`,
			scale: Vec(3, 3, 3),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var props []byte
			if tt.props != "" {
				props = []byte(tt.props)
			}
			o := wrapRecords([]byte(tt.item), props)
			o.SetScale(tt.scale)

			if got, _ := o.Scale(); !got.Equal(tt.scale) {
				t.Errorf("Scale() = %v, want %v", got, tt.scale)
			}
			if !tt.hasWorld {
				if Exists(o.Item(), worldScalePath) || Exists(o.Properties(), worldScalePath) {
					t.Error("SetScale() created a WorldScale field")
				}
				return
			}
			if got := vectorAt(t, o.Item(), worldScalePath); !got.Equal(tt.wantWorld) {
				t.Errorf("item WorldScale = %v, want %v", got, tt.wantWorld)
			}
			if got := vectorAt(t, o.Item(), respawnScalePath); !got.Equal(tt.scale) {
				t.Errorf("respawn Scale3D = %v, want %v", got, tt.scale)
			}
			if props != nil {
				if got := vectorAt(t, o.Properties(), worldScalePath); !got.Equal(tt.wantWorld) {
					t.Errorf("metadata WorldScale = %v, want %v", got, tt.wantWorld)
				}
			}
		})
	}
}

func TestTowerObject_TypedProperties(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), []byte(pairedProps))

	if err := o.SetProperty("Brightness", 2.0); err != nil {
		t.Fatalf("SetProperty() error = %v", err)
	}
	if err := o.SetProperty("Offset", Vec(1, 0, 0)); err != nil {
		t.Fatalf("SetProperty(vector) error = %v", err)
	}
	if got := o.PropertyValue("Brightness"); got != 2.0 {
		t.Errorf("PropertyValue(Brightness) = %v", got)
	}
	if diff := cmp.Diff(Vec(1, 0, 0), o.PropertyValue("Offset")); diff != "" {
		t.Errorf("PropertyValue(Offset) mismatch (-want +got):\n%s", diff)
	}
	if r, ok := Get(o.Properties(), ParsePath("properties.Brightness.Float.value")); !ok || r.Raw != "2.0" {
		t.Errorf("metadata Brightness = %q", r.Raw)
	}

	o.DeleteProperty("Brightness")
	if o.HasProperty("Brightness") || Exists(o.Properties(), ParsePath("properties.Brightness")) {
		t.Error("DeleteProperty() left the field")
	}
	if o.PropertyValue("Brightness") != nil {
		t.Error("PropertyValue() of a deleted field is not nil")
	}
	if err := o.SetProperty("Bad", map[string]int{}); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("SetProperty(map) error = %v, want ErrUnsupportedValue", err)
	}

	po := wrapRecords(nil, []byte(`{"name":"CondoWeather_C_0","properties":{"Rain":{"Bool":{"value":true}}}}`))
	if po.PropertyValue("Rain") != true {
		t.Errorf("PropertyValue(Rain) on metadata object = %v", po.PropertyValue("Rain"))
	}
}

func TestTowerObject_Canvas(t *testing.T) {
	o := wrapRecords([]byte(pairedItem), []byte(pairedProps))
	if !o.IsCanvas() {
		t.Fatal("IsCanvas() = false")
	}
	if o.Material() != "/Game/Wood.Wood" {
		t.Errorf("Material() = %q", o.Material())
	}

	o.SetURL("https://example.com/cat.png")
	if o.URL() != "https://example.com/cat.png" {
		t.Errorf("URL() = %q", o.URL())
	}
	if Exists(o.Item(), materialField) {
		t.Error("SetURL() left the item material")
	}
	if r, _ := Get(o.Properties(), materialPath); r.String() != "" || !r.Exists() {
		t.Errorf("metadata material = %q, want empty string", r.Raw)
	}

	o.SetMaterial("/Game/Glass.Glass")
	if o.Material() != "/Game/Glass.Glass" || Exists(o.Item(), urlField) {
		t.Errorf("SetMaterial() item = %s", o.Item())
	}

	plain := wrapRecords([]byte(`{"name":"Chair","guid":"`+chairGUID+`","properties":{}}`), nil)
	if plain.IsCanvas() {
		t.Error("IsCanvas() = true for a chair")
	}
}

func TestTowerObject_Connections(t *testing.T) {
	a := wrapRecords([]byte(`{"name":"Button","guid":"`+chairGUID+`","properties":{}}`), []byte(`{"name":"Button_C_0","properties":{}}`))
	b := wrapRecords([]byte(`{"name":"Light","guid":"`+lampGUID+`","properties":{}}`), nil)

	if got := a.Connections(); len(got) != 0 {
		t.Fatalf("Connections() = %d, want 0", len(got))
	}
	if !Exists(a.Properties(), connectionsPath) {
		t.Error("connections field not created in metadata")
	}

	a.Connect("OnPressed", b, "Toggle", 0.25)
	a.Connect("OnReleased", b, "Off", 0)
	conns := a.Connections()
	if len(conns) != 2 {
		t.Fatalf("Connections() = %d, want 2", len(conns))
	}
	if conns[0].TargetGUID() != lampGUID || conns[0].EventName() != "Toggle" ||
		conns[0].ListenerEventName() != "OnPressed" || conns[0].Delay() != 0.25 {
		t.Errorf("first connection = %s", conns[0].Raw())
	}
	r, _ := Get(a.Properties(), connectionsPath)
	if n := len(r.Array()); n != 2 {
		t.Errorf("metadata connections = %d, want 2", n)
	}

	a.SetConnections(conns[1:])
	if got := a.Connections(); len(got) != 1 || got[0].EventName() != "Off" {
		t.Errorf("SetConnections() left %d connections", len(got))
	}
}

func TestTowerObject_Less(t *testing.T) {
	weather := wrapRecords(nil, []byte(`{"name":"CondoWeather_C_0"}`))
	settings := wrapRecords(nil, []byte(`{"name":"CondoSettingsManager_C_0"}`))
	sky := wrapRecords(nil, []byte(`{"name":"Ultra_Dynamic_Sky_C_0"}`))
	other := wrapRecords(nil, []byte(`{"name":"AAA_C_0"}`))
	apple := wrapRecords([]byte(`{"name":"Apple"}`), nil)
	wsNone := wrapRecords([]byte(`{"name":"WorkshopItem","properties":{}}`), nil)
	ws9 := wrapRecords([]byte(`{"name":"WorkshopItem","properties":{"WorkshopFile":{"Str":{"value":"9"}}}}`), nil)
	ws10 := wrapRecords([]byte(`{"name":"WorkshopItem","properties":{"WorkshopFile":{"Struct":{"value":{"Struct":{"ID":{"UInt64":{"value":10}}}},"struct_type":"WorkshopFile"}}}}`), nil)

	order := []*TowerObject{weather, settings, sky, other, apple, wsNone, ws9, ws10}
	for i := range order {
		for j := range order {
			want := i < j
			if got := order[i].Less(order[j]); got != want {
				t.Errorf("%s(%d).Less(%s(%d)) = %v, want %v", order[i].Name(), i, order[j].Name(), j, got, want)
			}
		}
	}
}

func TestTowerObject_LessIgnoresWorkshopFileOnOtherTemplates(t *testing.T) {
	a := wrapRecords([]byte(`{"name":"Chair","properties":{"WorkshopFile":{"Str":{"value":"2"}}}}`), nil)
	b := wrapRecords([]byte(`{"name":"Chair","properties":{"WorkshopFile":{"Str":{"value":"1"}}}}`), nil)
	if a.Less(b) || b.Less(a) {
		t.Errorf("same-name non-workshop items should compare equal")
	}
}
