package tower

import (
	"testing"
)

const (
	chairGUID  = "aaaaaaaa-1111-2222-3333-bbbbbbbbbbbb"
	lampGUID   = "cccccccc-4444-5555-6666-dddddddddddd"
	pickupGUID = "eeeeeeee-7777-8888-9999-ffffffffffff"
)

// testSave has property-only singletons out of order, two paired objects
// whose metadata indexes are stale, an item-only pickup and a "None" spline
// anchor. The lamp fires an event on the chair, both under group 4.
const testSave = `{
  "format_version": 3,
  "groups": [{"group_id": 1, "item_count": 99}],
  "items": [
    {"name":"AmmoPickup","guid":"eeeeeeee-7777-8888-9999-ffffffffffff","steam_item_id":0,"position":{"x":5.0,"y":10.0,"z":0.0},"rotation":{"x":0.0,"y":0.0,"z":0.0,"w":1.0},"scale":{"x":1.0,"y":1.0,"z":1.0},"properties":{"GroupID":{"Int":{"value":9}}}},
    {"name":"Chair","guid":"aaaaaaaa-1111-2222-3333-bbbbbbbbbbbb","steam_item_id":1234,"position":{"x":0.0,"y":0.0,"z":0.0},"rotation":{"x":0.0,"y":0.0,"z":0.0,"w":1.0},"scale":{"x":1.0,"y":1.0,"z":1.0},"properties":{"GroupID":{"Int":{"value":4}},"WorldScale":{"Struct":{"value":{"Vector":{"x":1.0,"y":1.0,"z":1.0}},"struct_type":"Vector","struct_id":"00000000-0000-0000-0000-000000000000"}}}},
    {"name":"Lamp","guid":"cccccccc-4444-5555-6666-dddddddddddd","steam_item_id":5678,"position":{"x":10.0,"y":0.0,"z":0.0},"rotation":{"x":0.0,"y":0.0,"z":0.0,"w":1.0},"scale":{"x":1.0,"y":1.0,"z":1.0},"properties":{"GroupID":{"Int":{"value":4}},"ItemCustomName":{"Name":{"value":"Desk Lamp"}},"Owner":{"Str":{"value":"AAAAAAAA111122223333BBBBBBBBBBBB"}},"ItemConnections":{"Array":{"array_type":"StructProperty","value":{"Struct":{"_type":"ItemConnections","name":"StructProperty","struct_type":{"Struct":"ItemConnectionData"},"id":"00000000-0000-0000-0000-000000000000","value":[{"Struct":{"Item":{"Struct":{"value":{"Guid":"aaaaaaaa-1111-2222-3333-bbbbbbbbbbbb"},"struct_type":"Guid","struct_id":"00000000-0000-0000-0000-000000000000"}},"EventName":{"Name":{"value":"Sit"}},"Delay":{"Float":{"value":0.5}},"ListenerEventName":{"Name":{"value":"OnToggle"}},"DataType":{"Enum":{"enum_type":"FItemDataType","value":"FItemDataType::NONE"}},"Data":{"Str":{"value":""}}}}]}}}}}},
    {"name":"None","guid":"00000000-0000-0000-0000-000000000000","position":{"x":0.0,"y":0.0,"z":0.0}}
  ],
  "properties": [
    {"name":"Ultra_Dynamic_Sky_C_0","properties":{"TimeOfDay":{"Float":{"value":1200.0}}}},
    {"name":"CondoWeather_C_0","properties":{"Rain":{"Bool":{"value":false}}}},
    {"name":"Chair_C_3","properties":{"GroupID":{"Int":{"value":4}},"WorldScale":{"Struct":{"value":{"Vector":{"x":1.0,"y":1.0,"z":1.0}},"struct_type":"Vector","struct_id":"00000000-0000-0000-0000-000000000000"}},"WorldScaleFactor":{"Float":{"value":2.0}}}},
    {"name":"Lamp_C_7","properties":{"GroupID":{"Int":{"value":4}}}}
  ]
}`

func mustParse(t *testing.T, doc string) *Suitebro {
	t.Helper()
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return s
}

func mustFind(t *testing.T, s *Suitebro, name string) *TowerObject {
	t.Helper()
	o := s.FindItem(name)
	if o == nil {
		t.Fatalf("FindItem(%q) = nil", name)
	}
	return o
}

func mustObject(t *testing.T, item, props string) *TowerObject {
	t.Helper()
	var i, p []byte
	if item != "" {
		i = []byte(item)
	}
	if props != "" {
		p = []byte(props)
	}
	o, err := NewTowerObject(i, p)
	if err != nil {
		t.Fatalf("NewTowerObject() error = %v", err)
	}
	return o
}

func objectAt(t *testing.T, name string, x, y, z float64) *TowerObject {
	t.Helper()
	o := mustObject(t, `{"name":"`+name+`","guid":"","position":{"x":0.0,"y":0.0,"z":0.0}}`, "")
	o.SetPosition(Vec(x, y, z))
	return o
}
