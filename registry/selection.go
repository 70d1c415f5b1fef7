package registry

// Selection is an optional registry position chosen by a host.
//
// The zero value is NoSelection.
type Selection struct {
	index int
	valid bool
}

// NoSelection selects nothing. Looking it up always reports absent.
var NoSelection = Selection{}

// Select returns a selection of index. Negative indexes select nothing.
func Select(index int) Selection {
	if index < 0 {
		return NoSelection
	}
	return Selection{index: index, valid: true}
}

// FromWidgetIndex converts an index reported by a list widget, where -1 (or any
// negative value) means that nothing is selected.
func FromWidgetIndex(index int) Selection {
	return Select(index)
}

// Index returns the selected position and whether anything is selected.
func (s Selection) Index() (int, bool) {
	return s.index, s.valid
}
