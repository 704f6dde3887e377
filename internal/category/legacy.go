// Package category resolves the category reference stored on a task into
// something displayable, bridging the hardcoded legacy buckets onto the
// user-defined categories by name.
package category

import "strings"

// LegacyID is one of the hardcoded category buckets that predate
// user-defined categories. Old tasks still carry these literals.
type LegacyID string

const (
	LegacyWork     LegacyID = "work"
	LegacyPersonal LegacyID = "personal"
	LegacyShopping LegacyID = "shopping"
	LegacyStudy    LegacyID = "study"
	LegacyHealth   LegacyID = "health"
)

type legacyEntry struct {
	name  string
	color Color
}

var legacyTable = map[LegacyID]legacyEntry{
	LegacyWork:     {name: "Travail", color: paletteSlot(0)},
	LegacyPersonal: {name: "Personnel", color: paletteSlot(1)},
	LegacyShopping: {name: "Courses", color: paletteSlot(2)},
	LegacyStudy:    {name: "Études", color: paletteSlot(3)},
	LegacyHealth:   {name: "Santé", color: paletteSlot(4)},
}

// LegacyIDs lists the legacy identifiers in a fixed order.
func LegacyIDs() []LegacyID {
	return []LegacyID{LegacyWork, LegacyPersonal, LegacyShopping, LegacyStudy, LegacyHealth}
}

// ParseLegacy reports whether ref is a legacy literal.
func ParseLegacy(ref string) (LegacyID, bool) {
	id := LegacyID(ref)
	_, ok := legacyTable[id]
	return id, ok
}

// Name returns the fixed display name of the legacy bucket.
func (id LegacyID) Name() string {
	return legacyTable[id].name
}

// Color returns the fixed palette color of the legacy bucket.
func (id LegacyID) Color() Color {
	return legacyTable[id].color
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
