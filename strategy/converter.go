package strategy

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Converter reduces fetched restaurant HTML to markdown the text model can
// read. Readability extracts the main content; when it finds nothing (menu
// pages are often table soup it rejects), the whole document is pruned of
// chrome and converted instead.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates an HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// Convert returns markdown for the page at pageURL. An empty string means
// the page had no usable text content.
func (c *Converter) Convert(htmlContent []byte, pageURL string) (string, error) {
	content := mainContent(htmlContent, pageURL)

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return "", err
	}

	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// mainContent extracts the main content HTML, preferring readability and
// falling back to pruning navigation chrome from the full document.
func mainContent(content []byte, pageURL string) string {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(content), parsedURL)
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= 100 {
		return article.Content
	}
	return prunedDocument(content)
}

// prunedDocument removes script/style/navigation elements and returns the
// body HTML, or the raw input when parsing fails.
func prunedDocument(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}

	removeElements(doc, []string{
		"nav", "header", "footer", "aside", "script", "style", "noscript",
		"iframe", "object", "embed", "form", "input", "button", "svg",
	})

	if body := findElement(doc, "body"); body != nil {
		var sb strings.Builder
		if err := html.Render(&sb, body); err == nil {
			return sb.String()
		}
	}
	return string(content)
}

func findElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}
