package unit

import "strings"

// Unit is one addressable piece of translatable content.
type Unit struct {
	Loc Location `json:"location"`
	// Raw is the serialized fragment for ModeFragment units and the visible
	// text for ModeMarked and ModeText units.
	Raw string `json:"raw"`
}

// New creates a unit at the given location.
func New(loc Location, raw string) Unit {
	return Unit{Loc: loc, Raw: raw}
}

// Kind returns the kind of the unit's location.
func (u Unit) Kind() Kind {
	return u.Loc.Kind
}

// Mode returns the content mode of the unit.
func (u Unit) Mode() Mode {
	return u.Loc.Kind.Mode()
}

// IsEmpty reports whether the unit has no content worth translating.
func (u Unit) IsEmpty() bool {
	return strings.TrimSpace(u.Raw) == ""
}

// Preview returns the first n runes of s on a single line.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
