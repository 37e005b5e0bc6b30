package menu

import "strings"

// Category is one of a fixed closed set of dish categories. Unrecognized
// category text maps to CategoryOther rather than rejecting the item.
type Category string

const (
	CategoryMeat       Category = "Kött"
	CategoryChicken    Category = "Kyckling"
	CategoryFish       Category = "Fisk"
	CategoryVegetarian Category = "Vegetarisk"
	CategoryVegan      Category = "Vegansk"
	CategoryPizza      Category = "Pizza"
	CategoryPasta      Category = "Pasta"
	CategoryAsian      Category = "Asiatiskt"
	CategorySushi      Category = "Sushi"
	CategorySalad      Category = "Sallad"
	CategorySoup       Category = "Soppa"
	CategoryBuffet     Category = "Buffé"
	CategoryOther      Category = "Övrigt"
)

// categoryRule maps substrings of free-form category text to a canonical
// category. Rules are checked in order; "vegan" must precede the broader
// "veg" match.
type categoryRule struct {
	substrings []string
	category   Category
}

var categoryRules = []categoryRule{
	{[]string{"sushi"}, CategorySushi},
	{[]string{"pizza"}, CategoryPizza},
	{[]string{"pasta"}, CategoryPasta},
	{[]string{"vegan"}, CategoryVegan},
	{[]string{"veg"}, CategoryVegetarian},
	{[]string{"kyckling", "chicken"}, CategoryChicken},
	{[]string{"fisk", "fish", "lax", "skaldjur", "seafood"}, CategoryFish},
	{[]string{"kött", "biff", "fläsk", "meat", "beef", "pork"}, CategoryMeat},
	{[]string{"asiat", "thai", "wok", "asian"}, CategoryAsian},
	{[]string{"sallad", "salad"}, CategorySalad},
	{[]string{"soppa", "soup"}, CategorySoup},
	{[]string{"buff"}, CategoryBuffet},
}

// MapCategory resolves free-form category text against the fixed set using
// case-insensitive substring rules. Unmatched text maps to CategoryOther.
func MapCategory(text string) Category {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return CategoryOther
	}
	for _, rule := range categoryRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lowered, sub) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// Categories returns the full canonical category set, catch-all last.
func Categories() []Category {
	return []Category{
		CategoryMeat, CategoryChicken, CategoryFish, CategoryVegetarian,
		CategoryVegan, CategoryPizza, CategoryPasta, CategoryAsian,
		CategorySushi, CategorySalad, CategorySoup, CategoryBuffet,
		CategoryOther,
	}
}
