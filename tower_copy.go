package tower

import (
	"strings"

	"go.uber.org/zap"
)

// CopySelection returns independent copies of every object in sel, safe to
// add to the save the selection came from. maxGroupID is the highest group
// id in use anywhere in that save.
//
// Each copy gets a fresh GUID. Every group of sel is mapped to a new group id
// above maxGroupID, keeping the partition. References to the GUID of any
// copied object, in lowercase hyphenated or uppercase hyphen-free form, are
// rewritten in both records of every copy so that connections inside the
// selection point at the corresponding copies. sel is not modified.
func CopySelection(sel *Selection, maxGroupID int) *Selection {
	mustSelection("copy", sel)
	src := sel.Objects()

	next := maxGroupID
	for _, o := range src {
		if id := o.GroupID(); id > next {
			next = id
		}
	}

	copies := make([]*TowerObject, 0, len(src))
	guids := make([]string, 0, 4*len(src))
	groups := make(map[int]int)
	for _, o := range src {
		c := o.Copy()
		if o.HasItem() && o.GUID() != "" {
			guids = append(guids, o.GUID(), c.GUID())
		}
		if id := o.GroupID(); id >= 0 {
			newID, ok := groups[id]
			if !ok {
				next++
				newID = next
				groups[id] = newID
			}
			c.SetGroupID(newID)
		}
		copies = append(copies, c)
	}

	n := len(guids)
	for i := 0; i < n; i += 2 {
		guids = append(guids, compactGUID(guids[i]), compactGUID(guids[i+1]))
	}

	if len(guids) > 0 {
		r := strings.NewReplacer(guids...)
		for _, c := range copies {
			if c.item != nil {
				c.item = []byte(r.Replace(string(c.item)))
			}
			if c.properties != nil {
				c.properties = []byte(r.Replace(string(c.properties)))
			}
		}
	}

	log().Debug("copied selection",
		zap.Int("objects", len(copies)), zap.Int("guids", n/2), zap.Int("groups", len(groups)))
	return NewSelection(copies...)
}

// compactGUID is the uppercase hyphen-free spelling some struct fields use.
func compactGUID(guid string) string {
	return strings.ToUpper(strings.ReplaceAll(guid, "-", ""))
}
