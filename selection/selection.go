// selection tracks the heatmap cells pinned by the user.
package selection

import (
	"brheatmap/models"
	"brheatmap/scale"

	"github.com/lucasb-eyer/go-colorful"
)

// Entry is a selected cell and the value it had when selected.
type Entry struct {
	models.CellKey
	Value float64
}

// Set is the ordered selection list. Membership is an explicit flag per cell key, so
// two cells painted the same color are never confused.
type Set struct {
	selected map[models.CellKey]bool
	entries  []Entry
	accent   colorful.Color
	onChange func()
}

// New returns an empty set calling onChange after every toggle.
func New(onChange func()) *Set {
	return &Set{
		selected: map[models.CellKey]bool{},
		accent:   scale.Selected,
		onChange: onChange,
	}
}

// Toggle flips the selection of entry. Selecting returns the accent color; deselecting
// returns natural, the cell's data-driven color.
func (set *Set) Toggle(entry Entry, natural colorful.Color) (newColor colorful.Color, added bool) {
	if set.selected[entry.CellKey] {
		delete(set.selected, entry.CellKey)
		kept := set.entries[:0]
		for _, each := range set.entries {
			if each.CellKey != entry.CellKey {
				kept = append(kept, each)
			}
		}
		set.entries = kept
		newColor, added = natural, false
	} else {
		set.selected[entry.CellKey] = true
		set.entries = append(set.entries, entry)
		newColor, added = set.accent, true
	}

	if set.onChange != nil {
		set.onChange()
	}
	return
}

// IsSelected reports whether key is pinned.
func (set *Set) IsSelected(key models.CellKey) bool {
	return set.selected[key]
}

// Accent is the fill of selected cells.
func (set *Set) Accent() colorful.Color {
	return set.accent
}

// Entries returns a copy of the selection list, in selection order.
func (set *Set) Entries() []Entry {
	return append([]Entry(nil), set.entries...)
}

func (set *Set) Len() int {
	return len(set.entries)
}
