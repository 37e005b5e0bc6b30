package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/istlunch/lunchpipe/menu"
	"github.com/istlunch/lunchpipe/registry"
	"github.com/istlunch/lunchpipe/router"
)

// Output file names under the data directory.
const (
	RestaurantsFile = "restaurants.json"
	MenusFile       = "menus.json"
	DishesFile      = "dishes.json"
)

// restaurantMeta is the discovery/meta document entry: restaurant identity
// plus its inclusion outcome for the run.
type restaurantMeta struct {
	registry.Restaurant
	Included      bool   `json:"included"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type restaurantsDoc struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Restaurants []restaurantMeta `json:"restaurants"`
}

type menusDoc struct {
	GeneratedAt time.Time          `json:"generated_at"`
	TotalDishes int                `json:"total_dishes"`
	SuccessRate float64            `json:"success_rate"`
	Menus       []RestaurantReport `json:"menus"`
}

type dishesDoc struct {
	GeneratedAt time.Time   `json:"generated_at"`
	TotalDishes int         `json:"total_dishes"`
	Dishes      []menu.Item `json:"dishes"`
}

// Writer persists the run's three output documents. All three are staged
// to temporary files first and renamed into place only after every write
// succeeded, so readers never observe a partial file or documents from
// different runs.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer targeting dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// Write persists the report as restaurants.json, menus.json and
// dishes.json. Any failure leaves the previous snapshots untouched.
func (w *Writer) Write(report *RunReport) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	staging, err := os.MkdirTemp(w.dir, ".staging-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	dishes := report.Dishes()
	if dishes == nil {
		dishes = []menu.Item{}
	}

	meta := make([]restaurantMeta, 0, len(report.Restaurants))
	for _, rest := range report.Restaurants {
		meta = append(meta, restaurantMeta{
			Restaurant:    rest.Restaurant,
			Included:      rest.FailureReason != router.ReasonExcluded,
			FailureReason: rest.FailureReason,
		})
	}

	docs := map[string]any{
		RestaurantsFile: restaurantsDoc{
			GeneratedAt: report.GeneratedAt,
			Restaurants: meta,
		},
		MenusFile: menusDoc{
			GeneratedAt: report.GeneratedAt,
			TotalDishes: report.TotalDishes,
			SuccessRate: report.SuccessRate,
			Menus:       report.Restaurants,
		},
		DishesFile: dishesDoc{
			GeneratedAt: report.GeneratedAt,
			TotalDishes: report.TotalDishes,
			Dishes:      dishes,
		},
	}

	// Stage everything before renaming anything: a failure here must not
	// leave the three documents describing different runs.
	for name, doc := range docs {
		if err := writeJSON(filepath.Join(staging, name), doc); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}

	for name := range docs {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(w.dir, name)); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}

	w.logger.Info("run output written",
		"dir", w.dir,
		"restaurants", report.TotalRestaurants,
		"dishes", report.TotalDishes)
	return nil
}

func writeJSON(path string, doc any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
