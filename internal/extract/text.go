package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reBreak      = regexp.MustCompile(`(?i)<br\s*/?>`)
)

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// fragmentText renders an HTML fragment down to its normalized text.
func fragmentText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeText(fragment)
	}
	return normalizeText(doc.Text())
}

// splitOnBreaks divides a cell's inner HTML on <br> tags and returns the
// normalized text of each part.
func splitOnBreaks(innerHTML string) []string {
	parts := reBreak.Split(innerHTML, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, fragmentText(p))
	}
	return out
}

func cellText(sel *goquery.Selection) string {
	return normalizeText(sel.Text())
}
