package tower

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Epsilon is the tolerance used by Vector.Equal and Quat.Equal.
const Epsilon = 1e-7

// Vector is a world-space triple: positions, scales and Euler angles.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec is a shorthand constructor for Vector.
func Vec(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

// Add returns v + w.
func (v Vector) Add(w Vector) Vector {
	return Vector{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vector) Sub(w Vector) Vector {
	return Vector{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns v * s.
func (v Vector) Scale(s float64) Vector {
	return Vector{v.X * s, v.Y * s, v.Z * s}
}

// Mul returns the component-wise product.
func (v Vector) Mul(w Vector) Vector {
	return Vector{v.X * w.X, v.Y * w.Y, v.Z * w.Z}
}

// Length returns the Euclidean length of the vector.
func (v Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the Euclidean distance from v to w.
func (v Vector) Distance(w Vector) float64 {
	return v.Sub(w).Length()
}

// Min returns the component-wise minimum.
func (v Vector) Min(w Vector) Vector {
	return Vector{math.Min(v.X, w.X), math.Min(v.Y, w.Y), math.Min(v.Z, w.Z)}
}

// Max returns the component-wise maximum.
func (v Vector) Max(w Vector) Vector {
	return Vector{math.Max(v.X, w.X), math.Max(v.Y, w.Y), math.Max(v.Z, w.Z)}
}

// Within reports whether v lies inside the box spanned by lo and hi, bounds included.
func (v Vector) Within(lo, hi Vector) bool {
	return v.X >= lo.X && v.X <= hi.X &&
		v.Y >= lo.Y && v.Y <= hi.Y &&
		v.Z >= lo.Z && v.Z <= hi.Z
}

// Round rounds each component to the nearest integer.
func (v Vector) Round() Vector {
	return Vector{math.Round(v.X), math.Round(v.Y), math.Round(v.Z)}
}

// Equal compares with Epsilon tolerance.
func (v Vector) Equal(w Vector) bool {
	return closeTo(v.X, w.X) && closeTo(v.Y, w.Y) && closeTo(v.Z, w.Z)
}

// String formats as "x,y,z", the same form ParseVector accepts.
func (v Vector) String() string {
	return formatComponent(v.X) + "," + formatComponent(v.Y) + "," + formatComponent(v.Z)
}

// ParseVector parses "x,y,z".
func ParseVector(s string) (Vector, error) {
	nums, err := parseComponents(s, 3)
	if err != nil {
		return Vector{}, err
	}
	return Vector{nums[0], nums[1], nums[2]}, nil
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []Vector) (Vector, error) {
	if len(points) == 0 {
		return Vector{}, ErrEmptySelection
	}
	var sum Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points))), nil
}

// Quat is a rotation quaternion as stored in item rotation fields.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuat is the no-op rotation.
var IdentityQuat = Quat{W: 1}

// QuatFromEuler converts extrinsic x, then y, then z rotations given in
// degrees.
func QuatFromEuler(deg Vector) Quat {
	qx := axisAngle(Vector{1, 0, 0}, deg.X)
	qy := axisAngle(Vector{0, 1, 0}, deg.Y)
	qz := axisAngle(Vector{0, 0, 1}, deg.Z)
	return qz.Mul(qy).Mul(qx)
}

func axisAngle(axis Vector, deg float64) Quat {
	half := deg * math.Pi / 360
	s := math.Sin(half)
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, math.Cos(half)}
}

// Mul returns the Hamilton product q*r, the rotation r followed by q.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Conjugate returns the inverse of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Normalize returns the unit quaternion. The zero quaternion maps to identity.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n < 1e-12 {
		return IdentityQuat
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vector) Vector {
	p := q.Mul(Quat{v.X, v.Y, v.Z, 0}).Mul(q.Conjugate())
	return Vector{p.X, p.Y, p.Z}
}

// Equal compares with Epsilon tolerance.
func (q Quat) Equal(r Quat) bool {
	return closeTo(q.X, r.X) && closeTo(q.Y, r.Y) && closeTo(q.Z, r.Z) && closeTo(q.W, r.W)
}

// String formats as "x,y,z,w".
func (q Quat) String() string {
	return formatComponent(q.X) + "," + formatComponent(q.Y) + "," +
		formatComponent(q.Z) + "," + formatComponent(q.W)
}

//------------------------------------------------------------------------------
// JSON SHAPES
//------------------------------------------------------------------------------

// rawJSON renders {"x":..,"y":..,"z":..} with floats always carrying a
// fractional part, the spelling the save converter emits.
func (v Vector) rawJSON() []byte {
	b := make([]byte, 0, 64)
	b = append(b, `{"x":`...)
	b = appendFloat(b, v.X)
	b = append(b, `,"y":`...)
	b = appendFloat(b, v.Y)
	b = append(b, `,"z":`...)
	b = appendFloat(b, v.Z)
	return append(b, '}')
}

func (q Quat) rawJSON() []byte {
	b := make([]byte, 0, 80)
	b = append(b, `{"x":`...)
	b = appendFloat(b, q.X)
	b = append(b, `,"y":`...)
	b = appendFloat(b, q.Y)
	b = append(b, `,"z":`...)
	b = appendFloat(b, q.Z)
	b = append(b, `,"w":`...)
	b = appendFloat(b, q.W)
	return append(b, '}')
}

func vectorFromResult(r gjson.Result) (Vector, bool) {
	if !r.IsObject() {
		return Vector{}, false
	}
	x, y, z := r.Get("x"), r.Get("y"), r.Get("z")
	if !x.Exists() || !y.Exists() || !z.Exists() {
		return Vector{}, false
	}
	return Vector{x.Float(), y.Float(), z.Float()}, true
}

func quatFromResult(r gjson.Result) (Quat, bool) {
	v, ok := vectorFromResult(r)
	if !ok {
		return Quat{}, false
	}
	return Quat{v.X, v.Y, v.Z, r.Get("w").Float()}, true
}

func appendFloat(b []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(b, "0.0"...)
	}
	start := len(b)
	b = strconv.AppendFloat(b, f, 'f', -1, 64)
	for _, c := range b[start:] {
		if c == '.' {
			return b
		}
	}
	return append(b, ".0"...)
}

func formatComponent(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseComponents(s string, n int) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: expected %d values, got %d in %q", ErrInvalidVector, n, len(parts), s)
	}
	nums := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidVector, s, err)
		}
		nums[i] = f
	}
	return nums, nil
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
