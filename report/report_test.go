package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
	"github.com/istlunch/lunchpipe/router"
	"github.com/istlunch/lunchpipe/strategy"
)

func price(v int) *int { return &v }

func sampleResults() []router.Result {
	return []router.Result{
		{
			Restaurant: registry.Restaurant{ID: "restaurang-s", Name: "Restaurang S", Priority: 1},
			Items: []menu.Item{
				{Name: "Köttbullar", Price: price(125), Category: menu.CategoryMeat,
					RestaurantID: "restaurang-s", RestaurantName: "Restaurang S",
					ExtractionMethod: menu.MethodTraditional},
				{Name: "Lax", Price: price(149), Category: menu.CategoryFish,
					RestaurantID: "restaurang-s", RestaurantName: "Restaurang S",
					ExtractionMethod: menu.MethodTraditional},
			},
			Method: menu.MethodTraditional,
			Attempts: []router.Attempt{
				{RestaurantID: "restaurang-s", Strategy: strategy.KindTraditional,
					Outcome: router.OutcomeSuccess, ItemCount: 2, EstimatedCost: 0.002},
			},
		},
		{
			Restaurant: registry.Restaurant{ID: "chopchop", Name: "ChopChop", Priority: 2},
			Items: []menu.Item{
				{Name: "Wok", Price: price(139), Category: menu.CategoryAsian,
					RestaurantID: "chopchop", RestaurantName: "ChopChop",
					ExtractionMethod: menu.MethodVision},
			},
			Method: menu.MethodVision,
			Attempts: []router.Attempt{
				{RestaurantID: "chopchop", Strategy: strategy.KindTraditional,
					Outcome: router.OutcomeFailure, EstimatedCost: 0.002},
				{RestaurantID: "chopchop", Strategy: strategy.KindVision,
					Outcome: router.OutcomeSuccess, ItemCount: 1, EstimatedCost: 0.10},
			},
		},
		{
			Restaurant:    registry.Restaurant{ID: "gone", Name: "Gone", Priority: 3},
			FailureReason: router.ReasonNoItems,
			Attempts: []router.Attempt{
				{RestaurantID: "gone", Strategy: strategy.KindTraditional,
					Outcome: router.OutcomeFailure, EstimatedCost: 0.002},
				{RestaurantID: "gone", Strategy: strategy.KindVision,
					Outcome: router.OutcomeFailure, EstimatedCost: 0.10},
			},
		},
		{
			Restaurant:    registry.Restaurant{ID: "piatti", Name: "Piatti", Priority: 3, Excluded: true},
			FailureReason: router.ReasonExcluded,
		},
	}
}

func TestBuildComputesRunStatistics(t *testing.T) {
	generatedAt := time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC)
	report := Build("run-1", generatedAt, sampleResults())

	assert.Equal(t, 4, report.TotalRestaurants)
	assert.Equal(t, 3, report.RestaurantsAttempted, "excluded restaurant was never attempted")
	assert.Equal(t, 2, report.RestaurantsWithDishes)
	assert.Equal(t, 3, report.TotalDishes)
	assert.InDelta(t, 2.0/3.0, report.SuccessRate, 1e-9)
	assert.InDelta(t, 0.002+0.002+0.10+0.002+0.10, report.EstimatedCost, 1e-9)
	assert.Equal(t, 3, report.Invocations.Traditional)
	assert.Equal(t, 2, report.Invocations.Vision)
	assert.Len(t, report.Dishes(), 3)
}

func TestBuildEmptyRun(t *testing.T) {
	report := Build("run-0", time.Now(), nil)

	assert.Zero(t, report.TotalDishes)
	assert.Zero(t, report.SuccessRate)
	assert.Empty(t, report.Dishes())
}

func TestWriterProducesConsistentSnapshots(t *testing.T) {
	dir := t.TempDir()
	generatedAt := time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC)
	report := Build("run-1", generatedAt, sampleResults())

	w := NewWriter(dir, nil)
	require.NoError(t, w.Write(report))

	var restaurants restaurantsDoc
	var menus menusDoc
	var dishes dishesDoc
	readJSON(t, filepath.Join(dir, RestaurantsFile), &restaurants)
	readJSON(t, filepath.Join(dir, MenusFile), &menus)
	readJSON(t, filepath.Join(dir, DishesFile), &dishes)

	// All three documents come from the same run.
	assert.True(t, restaurants.GeneratedAt.Equal(menus.GeneratedAt))
	assert.True(t, menus.GeneratedAt.Equal(dishes.GeneratedAt))
	assert.Equal(t, menus.TotalDishes, dishes.TotalDishes)
	assert.Len(t, dishes.Dishes, menus.TotalDishes)

	assert.Len(t, restaurants.Restaurants, 4)
	for _, meta := range restaurants.Restaurants {
		if meta.ID == "piatti" {
			assert.False(t, meta.Included)
		} else {
			assert.True(t, meta.Included)
		}
	}

	// No staging leftovers.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestWriterOverwritesPreviousRunAtomically(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	first := Build("run-1", time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), sampleResults())
	require.NoError(t, w.Write(first))

	second := Build("run-2", time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), sampleResults()[:1])
	require.NoError(t, w.Write(second))

	var menus menusDoc
	readJSON(t, filepath.Join(dir, MenusFile), &menus)
	assert.True(t, menus.GeneratedAt.Equal(second.GeneratedAt))
	assert.Len(t, menus.Menus, 1)
}

func TestWriterFailsWhenDirectoryUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	w := NewWriter(dir, nil)
	err := w.Write(Build("run-1", time.Now(), sampleResults()))
	assert.Error(t, err)
}

func readJSON(t *testing.T, path string, out any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}
