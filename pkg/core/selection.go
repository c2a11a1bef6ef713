// pkg/core/selection.go
package core

// Optional is a label that may be unset.
type Optional struct {
	Value string
	Set   bool
}

// Some returns a set Optional holding v.
func Some(v string) Optional {
	return Optional{Value: v, Set: true}
}

// Is reports whether o is set to label.
func (o Optional) Is(label string) bool {
	return o.Set && o.Value == label
}

// Selection is the cross-filter state: at most one chosen label per dimension.
// The zero value selects nothing.
type Selection struct {
	ShipType  Optional
	NavStatus Optional
}

// Empty reports whether no dimension is set.
func (s Selection) Empty() bool {
	return !s.ShipType.Set && !s.NavStatus.Set
}
