package tower

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/tidwall/match"
	"go.uber.org/zap"
)

// SelectorKind tags the variant a Selector holds.
type SelectorKind int

// Selector variants
const (
	SelectEverything SelectorKind = iota
	SelectNothing
	SelectName
	SelectCustomName
	SelectObjectName
	SelectRegex
	SelectGlob
	SelectJQ
	SelectGroup
	SelectItems
	SelectRandom
	SelectTake
	SelectPercent
	SelectBox
	SelectSphere
	SelectUnion
	SelectIntersection
	SelectDifference
	SelectCompose
)

var selectorNames = map[SelectorKind]string{
	SelectEverything:   "EverythingSelector",
	SelectNothing:      "NothingSelector",
	SelectName:         "NameSelector",
	SelectCustomName:   "CustomNameSelector",
	SelectObjectName:   "ObjectNameSelector",
	SelectRegex:        "RegexSelector",
	SelectGlob:         "GlobSelector",
	SelectJQ:           "JQSelector",
	SelectGroup:        "GroupSelector",
	SelectItems:        "ItemSelector",
	SelectRandom:       "RandomSelector",
	SelectTake:         "TakeSelector",
	SelectPercent:      "PercentSelector",
	SelectBox:          "BoxSelector",
	SelectSphere:       "SphereSelector",
	SelectUnion:        "UnionSelector",
	SelectIntersection: "IntersectionSelector",
	SelectDifference:   "DifferenceSelector",
	SelectCompose:      "CompositionSelector",
}

func (k SelectorKind) String() string {
	if s, ok := selectorNames[k]; ok {
		return s
	}
	return "Selector(" + strconv.Itoa(int(k)) + ")"
}

// Selector maps a Selection to a narrower one. It is a closed set of
// variants; combinators hold two child selectors of any kind, so criteria
// form an expression tree that can be reused across selections. Select
// never mutates its input.
type Selector struct {
	kind SelectorKind

	text   string
	re     *regexp.Regexp
	code   *gojq.Code
	group  int
	amount float64
	count  int
	lo, hi Vector
	radius float64

	left, right *Selector
	rng         *rand.Rand
}

// Kind returns the variant tag.
func (s *Selector) Kind() SelectorKind { return s.kind }

// WithRand makes the random variants draw from rng; nil restores the global
// source.
func (s *Selector) WithRand(rng *rand.Rand) *Selector {
	s.rng = rng
	return s
}

// Everything selects its whole input.
func Everything() *Selector { return &Selector{kind: SelectEverything} }

// Nothing selects no objects, for tools that ignore the selection.
func Nothing() *Selector { return &Selector{kind: SelectNothing} }

// Items selects objects with an item record, dropping metadata-only
// pseudo-objects.
func Items() *Selector { return &Selector{kind: SelectItems} }

// ByName matches Name or CustomName, ignoring case.
func ByName(name string) *Selector { return &Selector{kind: SelectName, text: name} }

// ByCustomName matches CustomName only.
func ByCustomName(name string) *Selector { return &Selector{kind: SelectCustomName, text: name} }

// ByObjectName matches the template Name only.
func ByObjectName(name string) *Selector { return &Selector{kind: SelectObjectName, text: name} }

// ByRegex matches Name or CustomName against pattern, case-insensitively and
// anchored at the start.
func ByRegex(pattern string) (*Selector, error) {
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w: regex %q: %v", ErrInvalidSelector, pattern, err)
	}
	return &Selector{kind: SelectRegex, text: pattern, re: re}, nil
}

// ByGlob matches Name or CustomName against a '*'/'?' wildcard pattern,
// ignoring case.
func ByGlob(pattern string) *Selector {
	return &Selector{kind: SelectGlob, text: strings.ToLower(pattern)}
}

// ByJQ keeps objects for which the jq expression yields a truthy first
// result. The expression sees the item record, or the metadata record of a
// property-only object.
func ByJQ(query string) (*Selector, error) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("%w: jq %q: %v", ErrInvalidSelector, query, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("%w: jq %q: %v", ErrInvalidSelector, query, err)
	}
	return &Selector{kind: SelectJQ, text: query, code: code}, nil
}

// ByGroup selects members of one group.
func ByGroup(id int) *Selector { return &Selector{kind: SelectGroup, group: id} }

// RandomChance keeps each object independently with the given probability.
func RandomChance(probability float64) *Selector {
	return &Selector{kind: SelectRandom, amount: probability}
}

// Take keeps n objects chosen at random.
func Take(n int) *Selector { return &Selector{kind: SelectTake, count: n} }

// Percent keeps a random percentage of the objects, rounded to nearest.
func Percent(percentage float64) *Selector {
	return &Selector{kind: SelectPercent, amount: percentage}
}

// Box keeps objects whose position lies in the axis-aligned box with corners
// a and b.
func Box(a, b Vector) *Selector {
	return &Selector{kind: SelectBox, lo: a.Min(b), hi: a.Max(b)}
}

// Sphere keeps objects strictly closer than radius to center.
func Sphere(center Vector, radius float64) *Selector {
	return &Selector{kind: SelectSphere, lo: center, radius: radius}
}

// Union selects what either child selects.
func Union(left, right *Selector) *Selector { return combinator(SelectUnion, left, right) }

// Intersection selects what both children select.
func Intersection(left, right *Selector) *Selector {
	return combinator(SelectIntersection, left, right)
}

// Difference selects what left selects and right does not.
func Difference(left, right *Selector) *Selector {
	return combinator(SelectDifference, left, right)
}

// Compose applies left, then right to left's result.
func Compose(left, right *Selector) *Selector { return combinator(SelectCompose, left, right) }

func combinator(kind SelectorKind, left, right *Selector) *Selector {
	if left == nil || right == nil {
		panic("tower: " + kind.String() + " with nil operand")
	}
	return &Selector{kind: kind, left: left, right: right}
}

// Select applies the selector to everything.
func (s *Selector) Select(everything *Selection) *Selection {
	switch s.kind {
	case SelectEverything:
		return NewSelection(everything.Objects()...)
	case SelectNothing:
		return NewSelection()
	case SelectItems:
		return everything.Filter((*TowerObject).HasItem)
	case SelectName:
		return everything.Filter(func(o *TowerObject) bool { return o.MatchesName(s.text) })
	case SelectCustomName:
		return everything.Filter(func(o *TowerObject) bool {
			return strings.EqualFold(o.CustomName(), s.text)
		})
	case SelectObjectName:
		return everything.Filter(func(o *TowerObject) bool {
			return strings.EqualFold(o.Name(), s.text)
		})
	case SelectRegex:
		return everything.Filter(func(o *TowerObject) bool {
			return s.re.MatchString(o.Name()) || s.re.MatchString(o.CustomName())
		})
	case SelectGlob:
		return everything.Filter(func(o *TowerObject) bool {
			return match.Match(strings.ToLower(o.Name()), s.text) ||
				match.Match(strings.ToLower(o.CustomName()), s.text)
		})
	case SelectJQ:
		return everything.Filter(s.jqMatches)
	case SelectGroup:
		return everything.Filter(func(o *TowerObject) bool { return o.GroupID() == s.group })
	case SelectRandom:
		return everything.Filter(func(*TowerObject) bool { return s.float() <= s.amount })
	case SelectTake:
		return s.sample(everything, s.count)
	case SelectPercent:
		return s.sample(everything, int(float64(everything.Len())*s.amount/100+0.5))
	case SelectBox:
		return everything.Filter(func(o *TowerObject) bool {
			p, ok := o.Position()
			return ok && p.Within(s.lo, s.hi)
		})
	case SelectSphere:
		return everything.Filter(func(o *TowerObject) bool {
			p, ok := o.Position()
			return ok && p.Distance(s.lo) < s.radius
		})
	case SelectUnion:
		return s.left.Select(everything).Union(s.right.Select(everything))
	case SelectIntersection:
		return s.left.Select(everything).Intersection(s.right.Select(everything))
	case SelectDifference:
		return s.left.Select(everything).Difference(s.right.Select(everything))
	case SelectCompose:
		return s.right.Select(s.left.Select(everything))
	}
	panic("tower: unknown selector kind " + s.kind.String())
}

func (s *Selector) jqMatches(o *TowerObject) bool {
	rec := o.Item()
	if rec == nil {
		rec = o.Properties()
	}
	var input interface{}
	if err := json.Unmarshal(rec, &input); err != nil {
		return false
	}
	v, ok := s.code.Run(input).Next()
	if !ok {
		return false
	}
	if err, isErr := v.(error); isErr {
		log().Debug("jq selector failed", zap.String("query", s.text), zap.Error(err))
		return false
	}
	return v != nil && v != false
}

func (s *Selector) float() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

func (s *Selector) sample(everything *Selection, n int) *Selection {
	objs := everything.Objects()
	swap := func(i, j int) { objs[i], objs[j] = objs[j], objs[i] }
	if s.rng != nil {
		s.rng.Shuffle(len(objs), swap)
	} else {
		rand.Shuffle(len(objs), swap)
	}
	if n < 0 {
		n = 0
	}
	if n > len(objs) {
		n = len(objs)
	}
	return NewSelection(objs[:n]...)
}

func (s *Selector) String() string {
	name := s.kind.String()
	switch s.kind {
	case SelectName, SelectCustomName, SelectObjectName, SelectRegex, SelectGlob, SelectJQ:
		return fmt.Sprintf("%s[%q]", name, s.text)
	case SelectGroup:
		return fmt.Sprintf("%s[%d]", name, s.group)
	case SelectRandom, SelectPercent:
		return fmt.Sprintf("%s[%g]", name, s.amount)
	case SelectTake:
		return fmt.Sprintf("%s[%d]", name, s.count)
	case SelectBox:
		return fmt.Sprintf("%s[%s/%s]", name, s.lo, s.hi)
	case SelectSphere:
		return fmt.Sprintf("%s[%s/%g]", name, s.lo, s.radius)
	case SelectUnion, SelectIntersection, SelectDifference, SelectCompose:
		return fmt.Sprintf("%s[%s, %s]", name, s.left, s.right)
	}
	return name
}

//------------------------------------------------------------------------------
// SELECTOR STRINGS
//------------------------------------------------------------------------------

// ParseSelector parses one selector expression:
//
//	items | all | none | group:<id> | regex:<re> | glob:<pattern> | jq:<expr>
//	name:<n> | customname:<n> | objname:<n> | random:<p> | take:<n> | <n>
//	<p>% | box:x,y,z/x,y,z | sphere:x,y,z/r
func ParseSelector(input string) (*Selector, error) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "item", "items":
		return Items(), nil
	case "all", "everything":
		return Everything(), nil
	case "none", "nothing":
		return Nothing(), nil
	}

	if strings.HasSuffix(lower, "%") {
		p, err := strconv.ParseFloat(strings.TrimSuffix(lower, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, input)
		}
		return Percent(p), nil
	}
	if n, err := strconv.Atoi(lower); err == nil {
		return Take(n), nil
	}

	kind, arg, ok := strings.Cut(trimmed, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, input)
	}
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(kind) {
	case "group":
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid group id", ErrInvalidSelector, arg)
		}
		return ByGroup(id), nil
	case "regex":
		return ByRegex(arg)
	case "glob":
		return ByGlob(arg), nil
	case "jq":
		return ByJQ(arg)
	case "name":
		return ByName(arg), nil
	case "customname":
		return ByCustomName(arg), nil
	case "objname":
		return ByObjectName(arg), nil
	case "random":
		p, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a probability", ErrInvalidSelector, arg)
		}
		return RandomChance(p), nil
	case "take":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a count", ErrInvalidSelector, arg)
		}
		return Take(n), nil
	case "percent":
		p, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a percentage", ErrInvalidSelector, arg)
		}
		return Percent(p), nil
	case "box":
		a, b, ok := strings.Cut(arg, "/")
		if !ok {
			return nil, fmt.Errorf("%w: box needs two corners: %q", ErrInvalidSelector, arg)
		}
		lo, err := ParseVector(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
		}
		hi, err := ParseVector(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
		}
		return Box(lo, hi), nil
	case "sphere":
		c, r, ok := strings.Cut(arg, "/")
		if !ok {
			return nil, fmt.Errorf("%w: sphere needs center and radius: %q", ErrInvalidSelector, arg)
		}
		center, err := ParseVector(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
		}
		radius, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a radius", ErrInvalidSelector, r)
		}
		return Sphere(center, radius), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, input)
}

// ParseSelectors parses ';'-separated selectors and composes them left to
// right. An empty input selects items.
func ParseSelectors(input string) (*Selector, error) {
	if strings.TrimSpace(input) == "" {
		return Items(), nil
	}
	var out *Selector
	for _, part := range strings.Split(input, ";") {
		sel, err := ParseSelector(part)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = sel
		} else {
			out = Compose(out, sel)
		}
	}
	return out, nil
}
