package tower

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PropertyType names the wire type of a field envelope: the single key of
// objects such as {"Int":{"value":3}}.
type PropertyType string

// Envelope types produced by the save converter
const (
	BoolProperty   PropertyType = "Bool"
	IntProperty    PropertyType = "Int"
	FloatProperty  PropertyType = "Float"
	StrProperty    PropertyType = "Str"
	NameProperty   PropertyType = "Name"
	StructProperty PropertyType = "Struct"
	ArrayProperty  PropertyType = "Array"
	EnumProperty   PropertyType = "Enum"
	ByteProperty   PropertyType = "Byte"
	ObjectProperty PropertyType = "Object"
)

// ZeroGUID is the struct_id written for struct envelopes the toolkit creates.
const ZeroGUID = "00000000-0000-0000-0000-000000000000"

// Property is a decoded field envelope. Value holds one of:
//
//	bool                          Bool
//	int64                         Int, Byte (numeric)
//	float64                       Float
//	string                        Str, Name, Enum, Object, Byte (named), Struct Guid
//	Vector                        Struct Vector/Rotator
//	Quat                          Struct Quat
//	json.RawMessage               any other Struct value or Array value
//
// TypeName carries struct_type, array_type or enum_type when the envelope
// has one.
type Property struct {
	Type     PropertyType
	Value    interface{}
	TypeName string
}

// DecodeProperty unwraps a field envelope. The boolean is false when r is not
// an envelope (not an object with a single type key).
func DecodeProperty(r gjson.Result) (Property, bool) {
	if !r.IsObject() {
		return Property{}, false
	}
	var (
		key   string
		inner gjson.Result
		n     int
	)
	r.ForEach(func(k, v gjson.Result) bool {
		n++
		key, inner = k.String(), v
		return n < 2
	})
	if n != 1 || !inner.IsObject() {
		return Property{}, false
	}

	p := Property{Type: PropertyType(key)}
	value := inner.Get("value")
	switch p.Type {
	case BoolProperty:
		p.Value = value.Bool()
	case IntProperty:
		p.Value = value.Int()
	case FloatProperty:
		p.Value = value.Float()
	case StrProperty, NameProperty, ObjectProperty:
		p.Value = value.String()
	case EnumProperty:
		p.Value = value.String()
		p.TypeName = inner.Get("enum_type").String()
	case ByteProperty:
		if value.Type == gjson.Number {
			p.Value = value.Int()
		} else {
			p.Value = value.String()
		}
	case StructProperty:
		p.TypeName = inner.Get("struct_type").String()
		p.Value = decodeStructValue(value)
	case ArrayProperty:
		p.TypeName = inner.Get("array_type").String()
		p.Value = json.RawMessage(value.Raw)
	default:
		p.Value = json.RawMessage(inner.Raw)
	}
	return p, true
}

func decodeStructValue(value gjson.Result) interface{} {
	if q, ok := quatFromResult(value.Get("Quat")); ok {
		return q
	}
	if v, ok := vectorFromResult(value.Get("Vector")); ok {
		return v
	}
	if v, ok := vectorFromResult(value.Get("Rotator")); ok {
		return v
	}
	if g := value.Get("Guid"); g.Type == gjson.String {
		return g.String()
	}
	return json.RawMessage(value.Raw)
}

// InferProperty builds the envelope for a plain Go value: bool -> Bool,
// integers -> Int, floats -> Float, string -> Str, Vector -> Struct Vector,
// Quat -> Struct Quat. A Property is returned unchanged.
func InferProperty(value interface{}) (Property, error) {
	switch v := value.(type) {
	case Property:
		return v, nil
	case bool:
		return Property{Type: BoolProperty, Value: v}, nil
	case int:
		return Property{Type: IntProperty, Value: int64(v)}, nil
	case int32:
		return Property{Type: IntProperty, Value: int64(v)}, nil
	case int64:
		return Property{Type: IntProperty, Value: v}, nil
	case float32:
		return Property{Type: FloatProperty, Value: float64(v)}, nil
	case float64:
		return Property{Type: FloatProperty, Value: v}, nil
	case string:
		return Property{Type: StrProperty, Value: v}, nil
	case Vector:
		return Property{Type: StructProperty, Value: v, TypeName: "Vector"}, nil
	case Quat:
		return Property{Type: StructProperty, Value: v, TypeName: "Quat"}, nil
	}
	return Property{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
}

// Encode renders the envelope JSON.
func (p Property) Encode() ([]byte, error) {
	if p.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrUnsupportedValue)
	}
	valuePath := BuildEscapedPath(string(p.Type), "value")

	switch p.Type {
	case StructProperty:
		return p.encodeStruct()
	case ArrayProperty:
		raw, ok := p.Value.(json.RawMessage)
		if !ok {
			return nil, fmt.Errorf("%w: array value must be raw json, got %T", ErrUnsupportedValue, p.Value)
		}
		out, err := sjson.SetBytes(nil, BuildEscapedPath(string(p.Type), "array_type"), p.TypeName)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(out, valuePath, raw)
	case FloatProperty:
		f, ok := toFloat(p.Value)
		if !ok {
			return nil, fmt.Errorf("%w: float value %T", ErrUnsupportedValue, p.Value)
		}
		return sjson.SetRawBytes(nil, valuePath, appendFloat(nil, f))
	case EnumProperty:
		out, err := sjson.SetBytes(nil, valuePath, p.Value)
		if err != nil || p.TypeName == "" {
			return out, err
		}
		return sjson.SetBytes(out, BuildEscapedPath(string(p.Type), "enum_type"), p.TypeName)
	}

	if raw, ok := p.Value.(json.RawMessage); ok {
		return sjson.SetRawBytes(nil, BuildEscapedPath(string(p.Type)), raw)
	}
	return sjson.SetBytes(nil, valuePath, p.Value)
}

func (p Property) encodeStruct() ([]byte, error) {
	var value []byte
	switch v := p.Value.(type) {
	case Vector:
		value = append(append([]byte(`{"Vector":`), v.rawJSON()...), '}')
	case Quat:
		value = append(append([]byte(`{"Quat":`), v.rawJSON()...), '}')
	case json.RawMessage:
		value = v
	default:
		return nil, fmt.Errorf("%w: struct value %T", ErrUnsupportedValue, p.Value)
	}

	out, err := sjson.SetRawBytes(nil, "Struct.value", value)
	if err != nil {
		return nil, err
	}
	if p.TypeName != "" {
		if out, err = sjson.SetBytes(out, "Struct.struct_type", p.TypeName); err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(out, "Struct.struct_id", ZeroGUID)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
