// Package menu defines the canonical lunch menu data model and the
// normalization pipeline that converts raw extraction output into it.
package menu

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Method identifies which extraction path produced an item.
type Method string

const (
	MethodTraditional Method = "traditional"
	MethodVision      Method = "vision"
	MethodManual      Method = "manual"
)

// RawItem is a menu item as returned by an extraction strategy, before
// normalization. Price and category are free-form text at this stage.
type RawItem struct {
	Name         string
	Description  string
	PriceText    string
	CategoryText string
}

// rawItemJSON mirrors the JSON shape the extraction model returns.
// Price arrives as either a number or a string ("145 kr", "145:-"),
// so it is captured raw and stringified.
type rawItemJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price"`
	Category    string          `json:"category"`
}

// UnmarshalJSON accepts both numeric and textual prices.
func (r *RawItem) UnmarshalJSON(data []byte) error {
	var raw rawItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Name = strings.TrimSpace(raw.Name)
	r.Description = strings.TrimSpace(raw.Description)
	r.CategoryText = strings.TrimSpace(raw.Category)

	if len(raw.Price) > 0 && string(raw.Price) != "null" {
		var num float64
		if err := json.Unmarshal(raw.Price, &num); err == nil {
			r.PriceText = fmt.Sprintf("%d", int(num))
		} else {
			var s string
			if err := json.Unmarshal(raw.Price, &s); err == nil {
				r.PriceText = strings.TrimSpace(s)
			}
		}
	}

	return nil
}

// Item is the canonical menu item shape consumed by the display layer.
// Price is nil when unknown or outside the plausible lunch-price band.
type Item struct {
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Price            *int     `json:"price"`
	Category         Category `json:"category"`
	RestaurantID     string   `json:"restaurant_id"`
	RestaurantName   string   `json:"restaurant"`
	ExtractionMethod Method   `json:"extraction_method"`
}

// NormalizedName returns the dedup key form of an item name:
// lowercased with whitespace runs collapsed to single spaces.
func NormalizedName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
