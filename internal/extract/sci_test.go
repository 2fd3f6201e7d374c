package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"court_spider/internal/models"
)

func sciUnit() models.QueryUnit {
	return models.NewMonthUnit(2025, time.May)
}

func sciRow(diaryAttr, cells string) string {
	return `<div class="distTableContent"><table><tbody>
		<tr ` + diaryAttr + `>` + cells + `</tr>
	</tbody></table></div>`
}

func TestSupremeCourtParsesRow(t *testing.T) {
	html := sciRow(`data-diary-no="12345/2024"`, `
		<td>1</td>
		<td>12345 / 2024</td>
		<td>C.A. No. 100/2025</td>
		<td><span class="bt-content"><div>APPELLANT ONE</div><div>RESPONDENT TWO</div></span></td>
		<td>ADV A</td>
		<td>HON'BLE BENCH</td>
		<td>HON'BLE J</td>
		<td><span class="bt-content">
			<a href="https://api.sci.gov.in/jud/100.pdf">09-05-2025(English)</a>
			<a href="https://example.com/mirror.pdf">mirror</a>
		</span></td>`)

	recs, err := SupremeCourt(html, sciUnit(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "12345/2024_09-05-2025", rec.ID)
	assert.Equal(t, "12345/2024", rec.DiaryNumber)
	assert.Equal(t, "09-05-2025", rec.JudgementDate)
	assert.Equal(t, "APPELLANT ONE RESPONDENT TWO", rec.PartyDetail)
	assert.Equal(t, "05-2025", rec.SearchQuery)

	// Only links on the court's document host are kept.
	require.Len(t, rec.Links, 1)
	assert.Equal(t, "https://api.sci.gov.in/jud/100.pdf", rec.Links[0].URL)
}

func TestSupremeCourtDateFromFilename(t *testing.T) {
	html := sciRow(``, `
		<td>1</td>
		<td>777/2023</td>
		<td>SLP 1/2025</td>
		<td>A VS B</td>
		<td>ADV</td>
		<td>BENCH</td>
		<td>J</td>
		<td><a href="https://api.sci.gov.in/jud/777_09-May-2025.pdf">Judgement</a></td>`)

	recs, err := SupremeCourt(html, sciUnit(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "09-05-2025", recs[0].JudgementDate)
	assert.Equal(t, "777/2023", recs[0].DiaryNumber)
}

func TestSupremeCourtSkipsRowWithoutDate(t *testing.T) {
	html := sciRow(`data-diary-no="1/2025"`, `
		<td>1</td><td>1/2025</td><td>c</td><td>p</td>
		<td>a</td><td>b</td><td>j</td>
		<td><a href="https://api.sci.gov.in/jud/nodate.pdf">Judgement</a></td>`)

	recs, err := SupremeCourt(html, sciUnit(), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSupremeCourtSkipsShortRows(t *testing.T) {
	html := sciRow(``, `<td>only</td><td>two</td>`)
	recs, err := SupremeCourt(html, sciUnit(), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
