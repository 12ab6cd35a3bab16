package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// Registry holds tools by name.
type Registry struct {
	tools []*Tool
}

// NewRegistry registers tools in order.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. Names must be unique ignoring case.
func (r *Registry) Register(t *Tool) error {
	for _, have := range r.tools {
		if strings.EqualFold(have.Name, t.Name) {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name)
		}
	}
	r.tools = append(r.tools, t)
	sort.SliceStable(r.tools, func(i, j int) bool { return r.tools[i].Name < r.tools[j].Name })
	return nil
}

// Tools lists the visible tools by name.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if !t.Hidden {
			out = append(out, t)
		}
	}
	return out
}

// Names is the comma-separated list of visible tool names.
func (r *Registry) Names() string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.Tools() {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

// Find resolves name to a tool. An exact case-insensitive match wins;
// otherwise the tool sharing the longest common prefix with name is chosen,
// provided no other tool shares a prefix of the same length.
func (r *Registry) Find(name string) (*Tool, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	var (
		best     *Tool
		bestLen  int
		conflict bool
	)
	for _, t := range r.Tools() {
		toolName := strings.ToLower(strings.TrimSpace(t.Name))
		if query == toolName {
			return t, nil
		}
		n := commonPrefixLen(query, toolName)
		switch {
		case n == bestLen:
			conflict = true
		case n > bestLen:
			best, bestLen, conflict = t, n, false
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrToolNotFound, name, r.Names())
	}
	if conflict {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrAmbiguousTool, name, r.Names())
	}
	return best, nil
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

//------------------------------------------------------------------------------
// TOOLS INDEX
//------------------------------------------------------------------------------

type indexEntry struct {
	ToolName string                `json:"tool_name"`
	Version  string                `json:"version,omitempty"`
	Author   string                `json:"author,omitempty"`
	URL      string                `json:"url,omitempty"`
	Info     string                `json:"info,omitempty"`
	Hidden   bool                  `json:"hidden"`
	NoWrite  bool                  `json:"nowrite"`
	Params   map[string]indexParam `json:"params"`
}

type indexParam struct {
	DType       ParamType   `json:"dtype"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
}

// WriteIndex writes the metadata of every registered tool to path as
// indented JSON, keyed by tool name, for editors and shell completion.
func (r *Registry) WriteIndex(path string) error {
	index := make(map[string]indexEntry, len(r.tools))
	for _, t := range r.tools {
		e := indexEntry{
			ToolName: t.Name, Version: t.Version, Author: t.Author, URL: t.URL, Info: t.Info,
			Hidden: t.Hidden, NoWrite: t.NoWrite, Params: make(map[string]indexParam, len(t.Params)),
		}
		for _, p := range t.Params {
			def := p.Default
			if s, ok := def.(fmt.Stringer); ok {
				def = s.String()
			}
			e.Params[p.Name] = indexParam{DType: p.Type, Description: p.Description, Default: def}
		}
		index[t.Name] = e
	}
	raw, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode tools index: %w", err)
	}
	if err := os.WriteFile(path, pretty.Pretty(raw), 0o644); err != nil {
		return fmt.Errorf("write tools index: %w", err)
	}
	log().Debug("wrote tools index", zap.String("path", path), zap.Int("tools", len(index)))
	return nil
}

// IndexedTools reads a tools index and returns the tool names it lists, in
// sorted order.
func IndexedTools(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tools index: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("read tools index %s: invalid json", path)
	}
	var names []string
	gjson.ParseBytes(raw).ForEach(func(_, v gjson.Result) bool {
		names = append(names, v.Get("tool_name").String())
		return true
	})
	sort.Strings(names)
	return names, nil
}
