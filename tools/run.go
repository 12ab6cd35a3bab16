package tools

import (
	"fmt"

	"github.com/rainbowphysics/tower"
	"go.uber.org/zap"
)

// RunOptions controls how a tool is invoked.
type RunOptions struct {
	// NumRuns repeats the tool; values below 1 run it once.
	NumRuns int
	// PerGroup invokes the tool once per group of the selection, then once
	// per ungrouped object as a selection of its own.
	PerGroup bool
}

// Run invokes t on sel. Groups are recomputed before every repetition.
func Run(t *Tool, save *tower.Suitebro, sel *tower.Selection, params Params, opts RunOptions) error {
	runs := opts.NumRuns
	if runs < 1 {
		runs = 1
	}
	if runs == 1 {
		log().Info("running tool", zap.String("tool", t.Name), zap.Int("selected", sel.Len()))
	} else {
		log().Info("running tool", zap.String("tool", t.Name), zap.Int("selected", sel.Len()), zap.Int("runs", runs))
	}

	for i := 0; i < runs; i++ {
		if !opts.PerGroup {
			if err := t.Main(save, sel, params); err != nil {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			continue
		}
		for _, g := range sel.Groups() {
			if err := t.Main(save, g.Objects, params); err != nil {
				return fmt.Errorf("%s: group %d: %w", t.Name, g.ID, err)
			}
		}
		for _, o := range sel.Ungrouped().Objects() {
			if err := t.Main(save, tower.NewSelection(o), params); err != nil {
				return fmt.Errorf("%s: %s: %w", t.Name, o.Name(), err)
			}
		}
	}
	return nil
}

// Invert returns the complement of sel among save's items. With full set,
// metadata objects are included in the complement too.
func Invert(save *tower.Suitebro, sel *tower.Selection, full bool) *tower.Selection {
	universe := save.Everything()
	if !full {
		universe = tower.Items().Select(universe)
	}
	return universe.Difference(sel)
}
