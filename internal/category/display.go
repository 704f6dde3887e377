package category

import "taskflow/internal/model"

// Color is a palette token understood by the presentation layer.
type Color string

const (
	ColorDefault Color = "stone"
	ColorNone    Color = "gray"
)

// UncategorizedName labels tasks without a category.
const UncategorizedName = "Sans catégorie"

// palette holds the ten positional slots. The "default" and "none" entries
// are not listed but still count towards the modulus.
var palette = [...]Color{
	"blue", "purple", "green", "yellow", "pink",
	"indigo", "teal", "amber", "red", "sky",
}

const paletteSize = len(palette) + 2

func paletteSlot(i int) Color {
	if i < 0 || i >= len(palette) {
		return ColorDefault
	}
	return palette[i]
}

// Display is the name/color pair rendered for a task's category.
type Display struct {
	Name  string
	Color Color
}

// Uncategorized is returned for tasks that carry no category at all.
var Uncategorized = Display{Name: UncategorizedName, Color: ColorNone}

// Resolve maps a raw category reference to a display pair. Colors of
// user-defined categories follow their position in categories, so they shift
// when the list is reordered.
func Resolve(ref string, categories []model.Category) Display {
	if ref == "" {
		return Uncategorized
	}
	for i, c := range categories {
		if c.ID == ref {
			return Display{Name: c.Name, Color: paletteSlot(i % paletteSize)}
		}
	}
	if legacy, ok := ParseLegacy(ref); ok {
		return Display{Name: legacy.Name(), Color: legacy.Color()}
	}
	return Display{Name: ref, Color: ColorDefault}
}

// ResolveIDByName finds a category by case-insensitive name. A legacy literal
// passed as name is retried with its mapped display name.
func ResolveIDByName(name string, categories []model.Category) (string, bool) {
	if id, ok := findByName(name, categories); ok {
		return id, true
	}
	if legacy, ok := ParseLegacy(name); ok {
		return findByName(legacy.Name(), categories)
	}
	return "", false
}

// NormalizeLegacyID rewrites a legacy literal into the ID of the matching
// current category. Current IDs, unknown references and legacy literals
// without a match are returned unchanged.
func NormalizeLegacyID(ref string, categories []model.Category) string {
	if ref == "" {
		return ""
	}
	if HasID(ref, categories) {
		return ref
	}
	if legacy, ok := ParseLegacy(ref); ok {
		if id, found := ResolveIDByName(legacy.Name(), categories); found {
			return id
		}
	}
	return ref
}

// Bridge maps every legacy literal to the current category bearing its
// display name. When several categories share the name the last one wins.
func Bridge(categories []model.Category) map[LegacyID]string {
	bridge := make(map[LegacyID]string)
	for _, c := range categories {
		for _, legacy := range LegacyIDs() {
			if sameName(c.Name, legacy.Name()) {
				bridge[legacy] = c.ID
			}
		}
	}
	return bridge
}

// Target resolves a task's category reference to the current category ID
// it counts towards. It returns false for empty or dangling references.
func Target(ref string, categories []model.Category, bridge map[LegacyID]string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if HasID(ref, categories) {
		return ref, true
	}
	if legacy, ok := ParseLegacy(ref); ok {
		id, bridged := bridge[legacy]
		return id, bridged
	}
	return "", false
}

// HasID reports whether id belongs to one of categories.
func HasID(id string, categories []model.Category) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func findByName(name string, categories []model.Category) (string, bool) {
	for _, c := range categories {
		if sameName(c.Name, name) {
			return c.ID, true
		}
	}
	return "", false
}
