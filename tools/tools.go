// Package tools runs edit tools against a parsed save. A tool is a named
// function over the save, a selection already narrowed by the caller, and
// typed parameters; the package provides parameter coercion, tool lookup,
// per-group execution and the built-in tool set.
package tools

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rainbowphysics/tower"
	"go.uber.org/zap"
)

// Errors returned by tool lookup and parameter handling
var (
	ErrToolNotFound   = errors.New("tool not found")
	ErrAmbiguousTool  = errors.New("tool name is ambiguous")
	ErrDuplicateTool  = errors.New("tool already registered")
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrMissingParam   = errors.New("missing required parameter")
	ErrEmptySelection = errors.New("tool needs a non-empty selection")
)

// MainFunc is a tool body. It may mutate save and the selected objects; the
// caller persists whatever state save holds afterwards.
type MainFunc func(save *tower.Suitebro, sel *tower.Selection, params Params) error

// Tool is a registered tool and its metadata.
type Tool struct {
	Name    string
	Version string
	Author  string
	URL     string
	Info    string
	Params  []ParamInfo
	// Hidden tools are never matched by name lookup.
	Hidden bool
	// NoWrite tools only report; the save is not written back.
	NoWrite bool
	Main    MainFunc
}

// Param looks up a declared parameter by case-insensitive name.
func (t *Tool) Param(name string) (ParamInfo, bool) {
	for _, p := range t.Params {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return ParamInfo{}, false
}

// Describe renders the tool's help text.
func (t *Tool) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Information:", t.Name)
	if t.Version != "" {
		fmt.Fprintf(&b, "\n  Version: %s", t.Version)
	}
	if t.Author != "" {
		fmt.Fprintf(&b, "\n  Author: %s", t.Author)
	}
	if t.URL != "" {
		fmt.Fprintf(&b, "\n  URL: %s", t.URL)
	}
	if t.Info != "" {
		fmt.Fprintf(&b, "\n\n%s", t.Info)
	}
	if len(t.Params) > 0 {
		b.WriteString("\n\nParameters:")
		for _, p := range t.Params {
			fmt.Fprintf(&b, "\n  %s:%s - %s", p.Name, p.Type, p.Description)
			if p.Default != nil {
				fmt.Fprintf(&b, " (default: %v)", p.Default)
			}
		}
	}
	return b.String()
}

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger sets the logger tools report through. A nil logger silences them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func log() *zap.Logger {
	return logger.Load()
}
