package tower

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PathSpec is a symbolic path into a nested JSON record, one key or array
// index per element. It is rendered to an escaped gjson/sjson path only at
// the point of use, so keys never need to be pre-escaped by callers.
type PathSpec []string

// ParsePath splits a dotted path such as "properties.GroupID.Int.value".
// Dots inside keys cannot be expressed this way; build the PathSpec literal
// instead.
func ParsePath(dotted string) PathSpec {
	if dotted == "" {
		return PathSpec{}
	}
	return PathSpec(strings.Split(dotted, "."))
}

// Append returns a new PathSpec extended by keys. The receiver is not modified.
func (p PathSpec) Append(keys ...string) PathSpec {
	out := make(PathSpec, 0, len(p)+len(keys))
	out = append(out, p...)
	return append(out, keys...)
}

// Parent returns the path without its last element.
func (p PathSpec) Parent() PathSpec {
	if len(p) == 0 {
		return PathSpec{}
	}
	parent := p[:len(p)-1]
	return parent[:len(parent):len(parent)]
}

// String renders the escaped gjson read path. Writes go through writePath,
// which also pins numeric keys to objects.
func (p PathSpec) String() string {
	return BuildEscapedPath(p...)
}

//------------------------------------------------------------------------------
// READ
//------------------------------------------------------------------------------

// Exists reports whether every key of p is present under root. It never
// panics: a nil or malformed root simply has no paths.
func Exists(root []byte, p PathSpec) bool {
	_, ok := Get(root, p)
	return ok
}

// Get returns the value at p. The boolean is false when any key along the way
// is missing.
func Get(root []byte, p PathSpec) (gjson.Result, bool) {
	if len(root) == 0 {
		return gjson.Result{}, false
	}
	if len(p) == 0 {
		r := gjson.ParseBytes(root)
		return r, r.Exists()
	}
	r := gjson.GetBytes(root, p.String())
	return r, r.Exists()
}

// GetOr returns the decoded value at p, or def when p is absent. Numbers
// decode as float64, objects as map[string]interface{}.
func GetOr(root []byte, p PathSpec, def interface{}) interface{} {
	r, ok := Get(root, p)
	if !ok {
		return def
	}
	return r.Value()
}

//------------------------------------------------------------------------------
// WRITE
//------------------------------------------------------------------------------

// Set returns root with the leaf at p replaced by value, creating missing
// intermediate objects. A nil root starts as an empty object. The input slice
// is never modified.
func Set(root []byte, p PathSpec, value interface{}) ([]byte, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	out, err := sjson.SetBytes(emptyIfNil(root), writePath(root, p), value)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", p, err)
	}
	return out, nil
}

// SetRaw is like Set but splices already-encoded JSON.
func SetRaw(root []byte, p PathSpec, raw []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	out, err := sjson.SetRawBytes(emptyIfNil(root), writePath(root, p), raw)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", p, err)
	}
	return out, nil
}

// Delete returns root without the leaf at p. Deleting an absent path returns
// root unchanged.
func Delete(root []byte, p PathSpec) ([]byte, error) {
	if !Exists(root, p) {
		return root, nil
	}
	out, err := sjson.DeleteBytes(root, writePath(root, p))
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", p, err)
	}
	return out, nil
}

func emptyIfNil(root []byte) []byte {
	if len(root) == 0 {
		return []byte("{}")
	}
	return root
}

// mustSetRaw is used for writes on the model's fixed paths, where sjson can
// only fail on a programming error.
func mustSetRaw(root []byte, p PathSpec, raw []byte) []byte {
	out, err := SetRaw(root, p, raw)
	if err != nil {
		panic(err)
	}
	return out
}

func mustDelete(root []byte, p PathSpec) []byte {
	out, err := Delete(root, p)
	if err != nil {
		panic(err)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
