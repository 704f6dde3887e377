package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskflow/internal/model"
)

func sampleCategories() []model.Category {
	return []model.Category{
		{ID: "c1", Name: "Personnel"},
		{ID: "c2", Name: "Travail"},
		{ID: "c3", Name: "Courses"},
	}
}

func TestResolveEmptyIsUncategorized(t *testing.T) {
	assert.Equal(t, Uncategorized, Resolve("", nil))
	assert.Equal(t, Uncategorized, Resolve("", sampleCategories()))
}

func TestResolveCurrentCategoryUsesPosition(t *testing.T) {
	cats := sampleCategories()

	assert.Equal(t, Display{Name: "Personnel", Color: "blue"}, Resolve("c1", cats))
	assert.Equal(t, Display{Name: "Courses", Color: "green"}, Resolve("c3", cats))

	// Moving c3 to the front changes its color.
	reordered := []model.Category{cats[2], cats[0], cats[1]}
	assert.Equal(t, Color("blue"), Resolve("c3", reordered).Color)
}

func TestResolvePositionBeyondPalette(t *testing.T) {
	var cats []model.Category
	for i := 0; i < 13; i++ {
		cats = append(cats, model.Category{ID: string(rune('a' + i)), Name: "n"})
	}
	assert.Equal(t, Color("sky"), Resolve("j", cats).Color)
	assert.Equal(t, ColorDefault, Resolve("k", cats).Color)
	assert.Equal(t, ColorDefault, Resolve("l", cats).Color)
	assert.Equal(t, Color("blue"), Resolve("m", cats).Color)
}

func TestResolveLegacyLiteral(t *testing.T) {
	assert.Equal(t, Display{Name: "Travail", Color: "blue"}, Resolve("work", nil))
	assert.Equal(t, Display{Name: "Santé", Color: "pink"}, Resolve("health", sampleCategories()))
}

func TestResolveUnknownReference(t *testing.T) {
	assert.Equal(t, Display{Name: "deleted-id", Color: ColorDefault}, Resolve("deleted-id", sampleCategories()))
}

func TestResolveIDByName(t *testing.T) {
	cats := sampleCategories()

	id, ok := ResolveIDByName("personnel", cats)
	assert.True(t, ok)
	assert.Equal(t, "c1", id)

	id, ok = ResolveIDByName("TRAVAIL", cats)
	assert.True(t, ok)
	assert.Equal(t, "c2", id)

	id, ok = ResolveIDByName("shopping", cats)
	assert.True(t, ok)
	assert.Equal(t, "c3", id)

	_, ok = ResolveIDByName("health", cats)
	assert.False(t, ok)

	_, ok = ResolveIDByName("Loisirs", cats)
	assert.False(t, ok)
}

func TestNormalizeLegacyID(t *testing.T) {
	cats := sampleCategories()

	for _, c := range cats {
		assert.Equal(t, c.ID, NormalizeLegacyID(c.ID, cats))
	}
	assert.Equal(t, "c2", NormalizeLegacyID("work", cats))
	assert.Equal(t, "study", NormalizeLegacyID("study", cats))
	assert.Equal(t, "orphan", NormalizeLegacyID("orphan", cats))
	assert.Equal(t, "", NormalizeLegacyID("", cats))
}

func TestBridgeIsCaseInsensitiveAndLastWins(t *testing.T) {
	cats := []model.Category{
		{ID: "a", Name: "travail"},
		{ID: "b", Name: "ÉTUDES"},
		{ID: "c", Name: "Travail"},
	}
	bridge := Bridge(cats)

	assert.Equal(t, "c", bridge[LegacyWork])
	assert.Equal(t, "b", bridge[LegacyStudy])
	_, ok := bridge[LegacyPersonal]
	assert.False(t, ok)
}

func TestTarget(t *testing.T) {
	cats := sampleCategories()
	bridge := Bridge(cats)

	id, ok := Target("c3", cats, bridge)
	assert.True(t, ok)
	assert.Equal(t, "c3", id)

	id, ok = Target("personal", cats, bridge)
	assert.True(t, ok)
	assert.Equal(t, "c1", id)

	_, ok = Target("health", cats, bridge)
	assert.False(t, ok)

	_, ok = Target("", cats, bridge)
	assert.False(t, ok)

	_, ok = Target("gone", cats, bridge)
	assert.False(t, ok)
}
