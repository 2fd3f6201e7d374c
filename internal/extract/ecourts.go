package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"court_spider/internal/models"
)

const ecourtsCourt = "uttarakhand_hc"

var reDDMMYYYY = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// ECourts parses the order-date search results (tbody#showList1) of the
// eCourts High Court portal. Record ids carry a uuid nonce, so identical
// rows scraped twice produce two documents; this mirrors the portal
// variant's intentional no-dedup behavior (see DESIGN.md).
func ECourts(html, baseURL string, unit models.QueryUnit, log *zap.Logger) ([]models.Judgement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	searchRange := unit.From.Format("02-01-2006") + " to " + unit.To.Format("02-01-2006")
	var records []models.Judgement

	doc.Find("tbody#showList1 tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			log.Warn("skipping short row",
				zap.Int("row", i+1),
				zap.Int("cells", cells.Length()),
				zap.String("unit", unit.Key))
			return
		}

		caseIdentifier := cellText(cells.Eq(1))
		caseType, caseYear := splitCaseIdentifier(caseIdentifier)

		dateText := cellText(cells.Eq(2).Find("h2.h2class"))
		if !reDDMMYYYY.MatchString(dateText) {
			log.Warn("skipping row with invalid date",
				zap.Int("row", i+1), zap.String("date", dateText))
			return
		}

		rec := models.Judgement{
			ID:            "TRP_" + caseIdentifier + "_" + dateText + "_" + uuid.NewString(),
			Court:         ecourtsCourt,
			CaseNumber:    caseIdentifier,
			CaseType:      caseType,
			CaseYear:      caseYear,
			JudgementDate: dateText,
			SearchQuery:   searchRange,
			ScrapedAt:     time.Now().UTC(),
		}

		if link := cells.Eq(3).Find("a[href]").First(); link.Length() > 0 {
			href, _ := link.Attr("href")
			text := normalizeText(link.Text())
			if text == "" {
				text = "OrderLink"
			}
			if href = strings.TrimSpace(href); href != "" {
				if rel, err := url.Parse(href); err == nil {
					rec.Links = append(rec.Links, models.JudgementLink{
						Text: text,
						URL:  base.ResolveReference(rel).String(),
					})
				}
			}
		}

		records = append(records, rec)
	})

	return records, nil
}

// splitCaseIdentifier pulls the type and year out of "TYPE/NNN/YYYY".
// Two-part identifiers yield a year only when the second part looks like
// one; anything else leaves the fields empty rather than guessing.
func splitCaseIdentifier(identifier string) (caseType, caseYear string) {
	if identifier == "" {
		return "", ""
	}
	parts := strings.Split(identifier, "/")
	caseType = strings.TrimSpace(parts[0])
	switch len(parts) {
	case 3:
		y := strings.TrimSpace(parts[2])
		if isYear(y) {
			caseYear = y
		}
	case 2:
		y := strings.TrimSpace(parts[1])
		if isYear(y) {
			caseYear = y
		}
	}
	return caseType, caseYear
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s > "1900" && s < "2100"
}
