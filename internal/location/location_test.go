package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offersync/pkg/platform/sentinel"
)

func testCatalog() *Catalog {
	return NewCatalog([]Governorate{
		{ID: "cairo", Name: "Cairo", Cities: []City{
			{ID: "nasr-city", Name: "Nasr City"},
			{ID: "maadi", Name: "Maadi"},
		}},
		{ID: "sharkia", Name: "Sharkia", Cities: []City{
			{ID: "zagazig", Name: "Zagazig"},
		}},
	})
}

func TestSelection_Set(t *testing.T) {
	sel := NewSelection(testCatalog())

	t.Run("governorate only", func(t *testing.T) {
		require.NoError(t, sel.Set("cairo", ""))
		assert.Equal(t, "cairo", sel.GovernorateID())
		assert.Empty(t, sel.CityID())
	})

	t.Run("governorate and matching city", func(t *testing.T) {
		require.NoError(t, sel.Set("cairo", "maadi"))
		assert.Equal(t, "maadi", sel.CityID())
	})

	t.Run("city without governorate is rejected", func(t *testing.T) {
		assert.ErrorIs(t, sel.Set("", "maadi"), sentinel.ErrInvalidState)
	})

	t.Run("city outside the governorate is rejected", func(t *testing.T) {
		assert.ErrorIs(t, sel.Set("sharkia", "maadi"), sentinel.ErrNotFound)
	})

	t.Run("unknown governorate is rejected", func(t *testing.T) {
		assert.ErrorIs(t, sel.Set("atlantis", ""), sentinel.ErrNotFound)
	})

	t.Run("clear drops the selection", func(t *testing.T) {
		sel.Clear()
		assert.Empty(t, sel.GovernorateID())
		assert.Empty(t, sel.CityID())
	})
}

func TestSelection_RestoredFlag(t *testing.T) {
	sel := NewSelection(testCatalog())
	var replays int
	sel.SetNotifier(func(replace bool) {
		if replace {
			replays++
		}
	})

	assert.False(t, sel.Restored(), "flag starts unset")

	t.Run("empty remote location still completes the check", func(t *testing.T) {
		sel.RestoreFromRemote("", "")
		assert.True(t, sel.Restored())
		assert.Empty(t, sel.GovernorateID())
		assert.Equal(t, 1, replays, "restore notifies as hydration")
	})

	t.Run("remote values are adopted", func(t *testing.T) {
		sel.RestoreFromRemote("sharkia", "zagazig")
		assert.Equal(t, "sharkia", sel.GovernorateID())
		assert.Equal(t, "zagazig", sel.CityID())
	})

	t.Run("invalid remote pair degrades to empty, not broken state", func(t *testing.T) {
		sel.RestoreFromRemote("cairo", "zagazig")
		assert.True(t, sel.Restored())
		assert.Empty(t, sel.GovernorateID())
		assert.Empty(t, sel.CityID())
	})

	t.Run("reset clears only the flag source for next sign-in", func(t *testing.T) {
		sel.ResetRestored()
		assert.False(t, sel.Restored())
	})
}

func TestSnapshotAndFromFields(t *testing.T) {
	sel := NewSelection(testCatalog())
	require.NoError(t, sel.Set("cairo", "maadi"))

	gov, city := FromFields(sel.Snapshot())
	assert.Equal(t, "cairo", gov)
	assert.Equal(t, "maadi", city)

	gov, city = FromFields(map[string]any{"governorateId": 42})
	assert.Empty(t, gov)
	assert.Empty(t, city)
}
