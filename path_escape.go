package tower

import "strings"

// EscapePathSegment renders one literal key for a gjson/sjson path. Path
// syntax characters are backslash-escaped, and so is a leading ':', which
// sjson would otherwise read as its force-object-key marker.
func EscapePathSegment(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if isPathSyntax(c) || (i == 0 && c == ':') {
			if b.Len() == 0 {
				b.Grow(len(seg) + 4)
				b.WriteString(seg[:i])
			}
			b.WriteByte('\\')
			b.WriteByte(c)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return seg
	}
	return b.String()
}

// BuildEscapedPath joins literal keys into a read path.
// BuildEscapedPath("properties", "foo.bar", "Int") is `properties.foo\.bar.Int`.
func BuildEscapedPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = EscapePathSegment(s)
	}
	return strings.Join(escaped, ".")
}

// writePath renders p for sjson against root. A numeric key indexes into an
// existing array; anywhere else it is written as an object key rather than
// letting sjson grow a new array.
func writePath(root []byte, p PathSpec) string {
	escaped := make([]string, len(p))
	for i, seg := range p {
		escaped[i] = EscapePathSegment(seg)
		if !isIndex(seg) {
			continue
		}
		if parent, _ := Get(root, p[:i]); !parent.IsArray() {
			escaped[i] = ":" + escaped[i]
		}
	}
	return strings.Join(escaped, ".")
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

func isPathSyntax(c byte) bool {
	switch c {
	case '\\', '.', '|', '@', '*', '?', '#', ',', '(', ')', '=', '!', '<', '>', '~', '%', '[', ']', '{', '}':
		return true
	}
	return false
}
