package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// Elements whose text content is never user-visible.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
	"iframe":   true,
	"head":     true,
	"template": true,
}

// visibleText extracts the human-visible text from an HTML document,
// skipping scripts, styles and other non-rendered noise. Whitespace is
// collapsed so phrase matching does not depend on markup layout.
func visibleText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// A page that fails to parse still has no text worth matching.
		return ""
	}

	var builder strings.Builder
	collectText(doc, &builder)
	return strings.Join(strings.Fields(builder.String()), " ")
}

func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && skippedElements[strings.ToLower(n.Data)] {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			builder.WriteString(text)
			builder.WriteString(" ")
		}
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
}
