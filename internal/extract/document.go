package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Document is a readable summary of a page, used to explain empty results
// (login redirects, error pages, expired sessions).
type Document struct {
	Title string
	Text  string
}

// Summarize extracts the title and visible body text of a page, truncated to
// maxChars runes when maxChars > 0.
func Summarize(input string, maxChars int) Document {
	node, err := html.Parse(strings.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}
	title := ""
	if head := findFirst(node, "head"); head != nil {
		if t := findFirst(head, "title"); t != nil && t.FirstChild != nil {
			title = strings.TrimSpace(t.FirstChild.Data)
		}
	}
	content := findFirst(node, "body")
	if content == nil {
		content = node
	}
	var b strings.Builder
	collectText(&b, content)
	text := strings.Join(strings.Fields(b.String()), " ")
	if maxChars > 0 {
		if r := []rune(text); len(r) > maxChars {
			text = string(r[:maxChars])
		}
	}
	return Document{Title: title, Text: text}
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "head":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}
