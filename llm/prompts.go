package llm

import (
	"fmt"
	"strings"

	"github.com/istlunch/lunchpipe/menu"
)

// maxMarkdownChars bounds how much page content is sent to the text model.
const maxMarkdownChars = 8000

func categoryList() string {
	cats := menu.Categories()
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// buildTextPrompt asks the text model to extract lunch items from
// markdown-reduced page content.
func buildTextPrompt(restaurantName, markdown string) string {
	if len(markdown) > maxMarkdownChars {
		markdown = markdown[:maxMarkdownChars]
	}

	return fmt.Sprintf(`Extract lunch menu items from this restaurant web page.
Restaurant: %s
Location: Sundbyberg, Stockholm

Return a JSON array of items with:
- name: dish name (Swedish or English)
- description: ingredients/description if available
- price: price in SEK (lunch is typically 50-200 kr)
- category: one of %s

Page content:
%s

Return ONLY a valid JSON array. Return [] if no lunch menu is found.`,
		restaurantName, categoryList(), markdown)
}

// buildVisionPrompt asks the vision model to read a menu from a screenshot.
// Foreign-cuisine restaurants get an extra instruction to describe dishes,
// since bare transliterated names are useless to readers.
func buildVisionPrompt(restaurantName string) string {
	hint := ""
	lowered := strings.ToLower(restaurantName)
	for _, kw := range []string{"thai", "sushi", "persian", "indian", "asian", "wok"} {
		if strings.Contains(lowered, kw) {
			hint = "\nIMPORTANT: include Swedish descriptions for foreign dish names."
			break
		}
	}

	return fmt.Sprintf(`Extract lunch menu items from this restaurant website screenshot.
Restaurant: %s
Location: Sundbyberg, Stockholm%s

Return a JSON array of items with:
- name: dish name
- description: what the dish contains
- price: in SEK (look for forms like "145:-", "145 kr" or plain "145")
- category: one of %s

Include any dish that could be ordered for lunch, including weekday menus
(måndag, tisdag, ...). Maximum 20 items.
Return ONLY a valid JSON array. Return [] if no menu is visible.`,
		restaurantName, hint, categoryList())
}
