package usecase

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute visible text
var skippedElements = map[string]bool{
	"style": true, "noscript": true, "template": true, "svg": true, "iframe": true,
}

// blockElements end a line of visible text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "table": true, "section": true,
	"article": true, "header": true, "footer": true, "dd": true, "dt": true,
	"dl": true, "summary": true, "details": true, "button": true, "title": true,
}

// PlainText renders page HTML as the line-oriented text a shopper would read.
// String values inside JSON script blocks (ld+json, __NEXT_DATA__) are included
// one per line, so structured-data extractions remain traceable to the page.
func PlainText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return CollapseWhitespace(content)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" {
				if isJSONScript(n) && n.FirstChild != nil {
					writeJSONStrings(&b, n.FirstChild.Data)
				}
				return
			}
			if skippedElements[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return tidyLines(b.String())
}

// tidyLines collapses whitespace inside each line and drops empty lines
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = CollapseWhitespace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func isJSONScript(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch {
		case attr.Key == "type" && (attr.Val == "application/ld+json" || attr.Val == "application/json"):
			return true
		case attr.Key == "id" && attr.Val == "__NEXT_DATA__":
			return true
		}
	}
	return false
}

func writeJSONStrings(b *strings.Builder, raw string) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return
	}
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(stripInlineMarkup(t)); s != "" {
				b.WriteString(s)
				b.WriteByte('\n')
			}
		case []any:
			if joined, ok := joinStrings(t); ok {
				walk(joined)
				return
			}
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		}
	}
	walk(v)
}

// stripInlineMarkup removes HTML tags some retailers embed in JSON strings
func stripInlineMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return strings.ReplaceAll(PlainText(s), "\n", " ")
}

// joinStrings renders an all-string JSON array the way a label prints a list
func joinStrings(items []any) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return "", false
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", "), true
}

// VerbatimIn reports whether text appears contiguously in pageText once
// whitespace runs are folded on both sides.
func VerbatimIn(pageText, text string) bool {
	needle := CollapseWhitespace(text)
	if needle == "" {
		return false
	}
	return strings.Contains(CollapseWhitespace(pageText), needle)
}
