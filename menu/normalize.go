package menu

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NormalizeConfig bounds the normalization pipeline.
type NormalizeConfig struct {
	// MinPrice and MaxPrice define the inclusive plausible lunch-price band
	// in SEK. Prices outside the band are coerced to nil, not rejected.
	MinPrice int `yaml:"min_price"`
	MaxPrice int `yaml:"max_price"`

	// MaxItems caps the number of items kept per restaurant, in encounter
	// order.
	MaxItems int `yaml:"max_items"`
}

// DefaultNormalizeConfig returns the standard lunch normalization bounds.
func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{
		MinPrice: 40,
		MaxPrice: 200,
		MaxItems: 10,
	}
}

// Validate checks the configuration is usable.
func (c NormalizeConfig) Validate() error {
	if c.MinPrice < 0 || c.MaxPrice < c.MinPrice {
		return fmt.Errorf("invalid price band [%d, %d]", c.MinPrice, c.MaxPrice)
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max items must be positive, got %d", c.MaxItems)
	}
	return nil
}

// NormalizeStats reports what the pipeline dropped or coerced.
type NormalizeStats struct {
	DuplicatesDropped int
	Truncated         int
	PricesCoerced     int
}

// Normalize converts raw strategy output into canonical items for one
// restaurant: parse and band-check prices, map categories, deduplicate by
// (normalized name, price) with first occurrence winning, cap the item
// count, and stamp the extraction method. It is a pure function with no
// I/O; running it on already-normalized input yields the same output.
func Normalize(raw []RawItem, restaurantID, restaurantName string, method Method, cfg NormalizeConfig) ([]Item, NormalizeStats) {
	var stats NormalizeStats
	items := make([]Item, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}

		price := ParsePrice(r.PriceText)
		if price != nil && (*price < cfg.MinPrice || *price > cfg.MaxPrice) {
			// Out-of-band prices are usually dinner leakage or parse noise.
			price = nil
			stats.PricesCoerced++
		}

		key := dedupKey(name, price)
		if seen[key] {
			stats.DuplicatesDropped++
			continue
		}
		seen[key] = true

		items = append(items, Item{
			Name:             name,
			Description:      strings.TrimSpace(r.Description),
			Price:            price,
			Category:         MapCategory(r.CategoryText),
			RestaurantID:     restaurantID,
			RestaurantName:   restaurantName,
			ExtractionMethod: method,
		})
	}

	if len(items) > cfg.MaxItems {
		stats.Truncated = len(items) - cfg.MaxItems
		items = items[:cfg.MaxItems]
	}

	return items, stats
}

// Renormalize re-runs the pipeline over canonical items, used to verify
// idempotence and to re-apply bounds after config changes.
func Renormalize(items []Item, cfg NormalizeConfig) ([]Item, NormalizeStats) {
	if len(items) == 0 {
		return nil, NormalizeStats{}
	}
	raw := make([]RawItem, 0, len(items))
	for _, it := range items {
		priceText := ""
		if it.Price != nil {
			priceText = strconv.Itoa(*it.Price)
		}
		raw = append(raw, RawItem{
			Name:         it.Name,
			Description:  it.Description,
			PriceText:    priceText,
			CategoryText: string(it.Category),
		})
	}
	first := items[0]
	return Normalize(raw, first.RestaurantID, first.RestaurantName, first.ExtractionMethod, cfg)
}

// ParsePrice extracts an integer SEK amount from free-form price text such
// as "145", "145 kr", "145:-", "SEK 145" or "145,50". Returns nil when no
// digits are present.
func ParsePrice(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	start := -1
	end := len(text)
	for i, ch := range text {
		if unicode.IsDigit(ch) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			end = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	value, err := strconv.Atoi(text[start:end])
	if err != nil {
		return nil
	}
	return &value
}

func dedupKey(name string, price *int) string {
	if price == nil {
		return NormalizedName(name) + "|"
	}
	return NormalizedName(name) + "|" + strconv.Itoa(*price)
}
