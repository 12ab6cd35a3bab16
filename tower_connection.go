package tower

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// connectionTemplate is a single ItemConnectionData record with every field
// at its default.
const connectionTemplate = `{"Struct":{"Item":{"Struct":{"value":{"Guid":null},"struct_type":"Guid","struct_id":"00000000-0000-0000-0000-000000000000"}},"EventName":{"Name":{"value":null}},"Delay":{"Float":{"value":0.0}},"ListenerEventName":{"Name":{"value":null}},"DataType":{"Enum":{"enum_type":"FItemDataType","value":"FItemDataType::NONE"}},"Data":{"Str":{"value":""}}}}`

// connectionsTemplate is the empty ItemConnections array field.
const connectionsTemplate = `{"Array":{"array_type":"StructProperty","value":{"Struct":{"_type":"ItemConnections","name":"StructProperty","struct_type":{"Struct":"ItemConnectionData"},"id":"00000000-0000-0000-0000-000000000000","value":[]}}}}`

var (
	connTargetPath   = ParsePath("Struct.Item.Struct.value.Guid")
	connEventPath    = ParsePath("Struct.EventName.Name.value")
	connDelayPath    = ParsePath("Struct.Delay.Float.value")
	connListenerPath = ParsePath("Struct.ListenerEventName.Name.value")
	connDataTypePath = ParsePath("Struct.DataType.Enum.value")
	connDataPath     = ParsePath("Struct.Data")
)

// Connection is one event wire inside an item's ItemConnections field: when
// the owner fires ListenerEventName, EventName is fired on the object whose
// GUID is TargetGUID after Delay seconds.
type Connection struct {
	raw []byte
}

// NewConnection builds a connection from the default record.
func NewConnection(target, eventName string, delay float64, listenerEvent string) Connection {
	c := Connection{raw: []byte(connectionTemplate)}
	c.SetTargetGUID(target)
	c.SetEventName(eventName)
	c.SetDelay(delay)
	c.SetListenerEventName(listenerEvent)
	return c
}

// ParseConnection wraps an existing ItemConnectionData record.
func ParseConnection(raw []byte) (Connection, error) {
	r := gjson.ParseBytes(raw)
	if !r.IsObject() || !r.Get("Struct").IsObject() {
		return Connection{}, fmt.Errorf("%w: %s", ErrInvalidConnection, truncate(raw, 64))
	}
	return Connection{raw: cloneBytes(raw)}, nil
}

// Raw returns a copy of the record JSON.
func (c Connection) Raw() []byte {
	return cloneBytes(c.raw)
}

// TargetGUID is the GUID of the object receiving the event.
func (c Connection) TargetGUID() string {
	r, _ := Get(c.raw, connTargetPath)
	return r.String()
}

// SetTargetGUID points the connection at another object.
func (c *Connection) SetTargetGUID(guid string) {
	c.raw = mustSet(c.raw, connTargetPath, guid)
}

// EventName is the event fired on the target.
func (c Connection) EventName() string {
	r, _ := Get(c.raw, connEventPath)
	return r.String()
}

func (c *Connection) SetEventName(name string) {
	c.raw = mustSet(c.raw, connEventPath, name)
}

// Delay in seconds.
func (c Connection) Delay() float64 {
	r, _ := Get(c.raw, connDelayPath)
	return r.Float()
}

func (c *Connection) SetDelay(delay float64) {
	c.raw = mustSetRaw(c.raw, connDelayPath, appendFloat(nil, delay))
}

// ListenerEventName is the event on the owner that triggers the wire.
func (c Connection) ListenerEventName() string {
	r, _ := Get(c.raw, connListenerPath)
	return r.String()
}

func (c *Connection) SetListenerEventName(name string) {
	c.raw = mustSet(c.raw, connListenerPath, name)
}

// DataType is the FItemDataType enum value of the payload.
func (c Connection) DataType() string {
	r, _ := Get(c.raw, connDataTypePath)
	return r.String()
}

func (c *Connection) SetDataType(dataType string) {
	c.raw = mustSet(c.raw, connDataTypePath, dataType)
}

// Data returns the decoded payload envelope.
func (c Connection) Data() (Property, bool) {
	r, ok := Get(c.raw, connDataPath)
	if !ok {
		return Property{}, false
	}
	return DecodeProperty(r)
}

// SetData replaces the payload envelope and its data type.
func (c *Connection) SetData(dataType string, data Property) error {
	raw, err := data.Encode()
	if err != nil {
		return err
	}
	c.raw = mustSetRaw(c.raw, connDataPath, raw)
	c.SetDataType(dataType)
	return nil
}

func mustSet(root []byte, p PathSpec, value interface{}) []byte {
	out, err := Set(root, p, value)
	if err != nil {
		panic(err)
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
