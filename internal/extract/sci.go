package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"court_spider/internal/models"
)

const sciCourt = "supreme_court"

var (
	reLeadingDate = regexp.MustCompile(`^(\d{2}-\d{2}-\d{4})`)
	reHrefDate    = regexp.MustCompile(`_(\d{2}-[A-Za-z]{3}-\d{4})\.pdf$`)
)

// SupremeCourt parses the judgement-date search results inside
// div.distTableContent. The judgement date is taken from the first PDF link
// text ("dd-mm-yyyy(English)"), falling back to the link filename; rows
// where no date can be derived are skipped so the composite id stays
// stable.
func SupremeCourt(html string, unit models.QueryUnit, log *zap.Logger) ([]models.Judgement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	searchMonth := unit.From.Format("01-2006")
	var records []models.Judgement

	doc.Find("div.distTableContent table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			log.Warn("skipping short row",
				zap.Int("row", i+1),
				zap.Int("cells", cells.Length()),
				zap.String("unit", unit.Key))
			return
		}

		diaryNo, _ := row.Attr("data-diary-no")
		diaryNo = strings.TrimSpace(diaryNo)
		if diaryNo == "" {
			diaryNo = sciCellText(cells.Eq(1))
		}
		if diaryNo == "" {
			log.Warn("skipping row without diary number", zap.Int("row", i+1))
			return
		}

		linksCell := cells.Eq(7)
		if span := linksCell.Find("span.bt-content"); span.Length() > 0 {
			linksCell = span
		}

		judgementDate := sciJudgementDate(linksCell)
		if judgementDate == "" {
			log.Warn("skipping row without derivable judgement date",
				zap.Int("row", i+1), zap.String("diary", diaryNo))
			return
		}

		rec := models.Judgement{
			ID:             diaryNo + "_" + judgementDate,
			Court:          sciCourt,
			SerialNumber:   sciCellText(cells.Eq(0)),
			DiaryNumber:    diaryNo,
			CaseNumber:     sciCellText(cells.Eq(2)),
			PartyDetail:    sciCellText(cells.Eq(3)),
			AdvocateDetail: sciCellText(cells.Eq(4)),
			Bench:          sciCellText(cells.Eq(5)),
			JudgmentBy:     sciCellText(cells.Eq(6)),
			JudgementDate:  judgementDate,
			SearchQuery:    searchMonth,
			ScrapedAt:      time.Now().UTC(),
		}

		linksCell.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			text := normalizeText(a.Text())
			if href != "" && text != "" && strings.Contains(href, "api.sci.gov.in") {
				rec.Links = append(rec.Links, models.JudgementLink{Text: text, URL: href})
			}
		})

		records = append(records, rec)
	})

	return records, nil
}

// sciCellText prefers the bt-content span used by the responsive table
// markup; petitioner and advocate cells nest one div per party line.
func sciCellText(cell *goquery.Selection) string {
	if span := cell.Find("span.bt-content"); span.Length() > 0 {
		if divs := span.Find("div"); divs.Length() > 0 {
			var parts []string
			divs.Each(func(_ int, d *goquery.Selection) {
				if t := normalizeText(d.Text()); t != "" {
					parts = append(parts, t)
				}
			})
			if len(parts) > 0 {
				return strings.Join(parts, " ")
			}
		}
		return normalizeText(span.Text())
	}
	return cellText(cell)
}

func sciJudgementDate(linksCell *goquery.Selection) string {
	link := linksCell.Find("a[href]").First()
	if link.Length() == 0 {
		return ""
	}
	if m := reLeadingDate.FindStringSubmatch(normalizeText(link.Text())); m != nil {
		return m[1]
	}
	// Fallback: "..._09-May-2025.pdf" in the href.
	href, _ := link.Attr("href")
	if m := reHrefDate.FindStringSubmatch(href); m != nil {
		if parsed, err := time.Parse("02-Jan-2006", m[1]); err == nil {
			return parsed.Format("02-01-2006")
		}
	}
	return ""
}
