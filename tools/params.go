package tools

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rainbowphysics/tower"
)

// ParamType is the type a parameter value is coerced to.
type ParamType string

// Parameter types accepted on the command line
const (
	StringParam ParamType = "str"
	BoolParam   ParamType = "bool"
	IntParam    ParamType = "int"
	FloatParam  ParamType = "float"
	XYZParam    ParamType = "xyz"
	XYZIntParam ParamType = "xyzint"
)

// ParamInfo describes one tool parameter. A nil Default makes the parameter
// required.
type ParamInfo struct {
	Name        string      `json:"-"`
	Type        ParamType   `json:"dtype"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
}

// Coerce converts a command line string to the parameter's type.
func (p ParamInfo) Coerce(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch p.Type {
	case StringParam, "":
		return raw, nil
	case BoolParam:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a bool", ErrInvalidParam, p.Name, raw)
		}
		return b, nil
	case IntParam:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an int", ErrInvalidParam, p.Name, raw)
		}
		return n, nil
	case FloatParam:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a float", ErrInvalidParam, p.Name, raw)
		}
		return f, nil
	case XYZParam, XYZIntParam:
		v, err := tower.ParseVector(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, p.Name, err)
		}
		if p.Type == XYZIntParam && (v.X != math.Trunc(v.X) || v.Y != math.Trunc(v.Y) || v.Z != math.Trunc(v.Z)) {
			return nil, fmt.Errorf("%w: %s=%q needs whole numbers", ErrInvalidParam, p.Name, raw)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s has unknown type %q", ErrInvalidParam, p.Name, p.Type)
}

// Params holds coerced parameter values by lowercase name.
type Params map[string]interface{}

// Has reports whether name was given or defaulted.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns a str parameter, or "" when absent.
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Bool returns a bool parameter, or false when absent.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// Int returns an int parameter, or 0 when absent.
func (p Params) Int(name string) int {
	n, _ := p[name].(int)
	return n
}

// Float returns a float parameter; ints are widened.
func (p Params) Float(name string) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Vector returns an xyz or xyzint parameter, or the zero vector.
func (p Params) Vector(name string) tower.Vector {
	v, _ := p[name].(tower.Vector)
	return v
}

// Names lists the parameter names in sorted order.
func (p Params) Names() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseParams turns "name=value" arguments into Params for t. Names are
// case-insensitive. Values of declared parameters are coerced; undeclared
// ones are kept as strings. Declared parameters that were not given take
// their default, and a missing required parameter is an error.
func ParseParams(args []string, t *Tool) (Params, error) {
	out := make(Params, len(args)+len(t.Params))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.Contains(value, "=") {
			return nil, fmt.Errorf("%w: %q should have the form parameter=value", ErrInvalidParam, arg)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		info, declared := t.Param(name)
		if !declared {
			out[name] = value
			continue
		}
		v, err := info.Coerce(value)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}

	for _, info := range t.Params {
		key := strings.ToLower(info.Name)
		if out.Has(key) {
			continue
		}
		if info.Default == nil {
			return nil, fmt.Errorf("%w: %s (%s) for %s", ErrMissingParam, info.Name, info.Type, t.Name)
		}
		out[key] = info.Default
	}
	return out, nil
}
