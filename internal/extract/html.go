package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t\r\f\v]+`)
	blockNodes = map[string]bool{
		"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true,
		"article": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"blockquote": true, "pre": true, "table": true, "ul": true, "ol": true,
	}
)

// VisibleText extracts readable text from HTML, skipping scripts/styles.
// Block elements become paragraph breaks so sentence segmentation sees document structure.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			// Skip script, style, noscript tags
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(spaceRuns.ReplaceAllString(n.Data, " "))
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockNodes[n.Data] {
			buf.WriteString("\n\n")
		}
	}

	walk(doc)

	// Normalize line whitespace and collapse runs of blank lines
	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(text), nil
}
