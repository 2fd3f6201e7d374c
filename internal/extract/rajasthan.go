package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"court_spider/internal/models"
)

const (
	rajasthanCourt      = "rajasthan_hc_jodhpur"
	directPDFStoreBase  = "https://hcraj.nic.in/cishcraj-jdp/storefiles/createordjud/"
	pdfViewerURLPrefix  = "http://hcraj.nic.in/cishcraj-jdp/pdfjs-dist/web/viewer.php?file="
	rajasthanDateLayout = "02-Jan-2006"
)

// Rajasthan parses the Jodhpur bench results table (table#sample_1). PDF
// URLs are derived directly from the view button's data attributes rather
// than followed, so no extra navigation happens per row. Rows with fewer
// than five cells or an unusable action cell are skipped individually.
func Rajasthan(html string, unit models.QueryUnit, log *zap.Logger) ([]models.Judgement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	rows := doc.Find("table#sample_1 tbody tr")
	if rows.Length() == 1 && strings.Contains(rows.First().Text(), "No matching records found") {
		return nil, nil
	}

	searchDate := unit.From.Format("02/01/2006")
	var records []models.Judgement

	rows.Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			if cells.Length() == 1 && strings.Contains(cellText(cells.First()), "No matching records found") {
				return
			}
			log.Warn("skipping short row",
				zap.Int("row", i+1),
				zap.Int("cells", cells.Length()),
				zap.String("unit", unit.Key))
			return
		}

		detailsHTML, err := cells.Eq(1).Html()
		if err != nil {
			log.Warn("unreadable case details cell", zap.Int("row", i+1), zap.Error(err))
			return
		}
		parts := splitOnBreaks(detailsHTML)
		caseNumber := "N/A"
		party := "N/A"
		if len(parts) > 0 && parts[0] != "" {
			caseNumber = parts[0]
		}
		if len(parts) > 1 && parts[1] != "" {
			party = parts[1]
		}

		rawDate := cellText(cells.Eq(3))
		isoDate := rawDate
		if parsed, err := time.Parse(rajasthanDateLayout, rawDate); err == nil {
			isoDate = parsed.Format("2006-01-02")
		} else {
			log.Warn("unparseable judgement date, storing raw",
				zap.String("date", rawDate), zap.Int("row", i+1))
		}

		rec := models.Judgement{
			ID:               strings.ReplaceAll(caseNumber, "/", "-") + "_" + isoDate + "_" + unit.CategoryValue,
			Court:            rajasthanCourt,
			SerialNumber:     cellText(cells.Eq(0)),
			CaseNumber:       caseNumber,
			PartyDetail:      party,
			Bench:            cellText(cells.Eq(2)),
			JudgementDate:    rawDate,
			JudgementDateISO: isoDate,
			CategoryValue:    unit.CategoryValue,
			CategoryName:     unit.CategoryName,
			SearchQuery:      searchDate,
			ScrapedAt:        time.Now().UTC(),
		}

		action := cells.Eq(4)
		if caseNo, orderNo, ok := viewButtonParams(action); ok {
			rec.DirectPDFURL = directPDFStoreBase + caseNo + "_" + orderNo + ".pdf"
			rec.ViewPDFURL = pdfViewerURLPrefix + rec.DirectPDFURL
			rec.Links = append(rec.Links, models.JudgementLink{Text: "view", URL: rec.ViewPDFURL})
		} else {
			log.Warn("view button missing case/order attributes",
				zap.Int("row", i+1), zap.String("unit", unit.Key))
		}

		records = append(records, rec)
	})

	return records, nil
}

// viewButtonParams finds the view button (onclick DownloadOrdJud(this,'V'))
// and returns its data-caseno / data-orderno attributes.
func viewButtonParams(action *goquery.Selection) (caseNo, orderNo string, ok bool) {
	action.Find("button").EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		onclick, _ := btn.Attr("onclick")
		if !strings.Contains(onclick, "DownloadOrdJud(this,'V')") {
			return true
		}
		caseNo, _ = btn.Attr("data-caseno")
		orderNo, _ = btn.Attr("data-orderno")
		ok = caseNo != "" && orderNo != ""
		return false
	})
	return caseNo, orderNo, ok
}
