package models

import "time"

// Processed-unit statuses. A marker with any of these means the unit is
// never re-attempted on a later run.
const (
	StatusSuccess   = "SUCCESS"
	StatusNoRecords = "NO_RECORDS"
	StatusOverLimit = "FAILED_OVER_LIMIT"
	StatusError     = "ERROR"
)

// QueryUnit is the atomic scope of one scrape attempt: a single date plus
// category, a calendar month, or a multi-day chunk. Key is its identity in
// the processed-units collection.
type QueryUnit struct {
	Key           string
	From          time.Time
	To            time.Time
	CategoryValue string
	CategoryName  string
}

// SingleDay reports whether the unit covers exactly one calendar day.
func (u QueryUnit) SingleDay() bool {
	return u.From.Equal(u.To)
}

func NewDateCategoryUnit(day time.Time, categoryValue, categoryName string) QueryUnit {
	return QueryUnit{
		Key:           day.Format("2006-01-02") + "_" + categoryValue,
		From:          day,
		To:            day,
		CategoryValue: categoryValue,
		CategoryName:  categoryName,
	}
}

func NewMonthUnit(year int, month time.Month) QueryUnit {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return QueryUnit{
		Key:  first.Format("2006-01"),
		From: first,
		To:   last,
	}
}

func NewRangeUnit(from, to time.Time) QueryUnit {
	return QueryUnit{
		Key:  from.Format("2006-01-02") + "_" + to.Format("2006-01-02"),
		From: from,
		To:   to,
	}
}

// EnumerateDateCategories walks backwards from start for days entries,
// crossing every day with every category. Categories keep the order given.
func EnumerateDateCategories(start time.Time, days int, categories []Category) []QueryUnit {
	units := make([]QueryUnit, 0, days*len(categories))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, -i)
		for _, cat := range categories {
			units = append(units, NewDateCategoryUnit(day, cat.Value, cat.Name))
		}
	}
	return units
}

// EnumerateMonths walks backwards month by month starting at the month
// containing start.
func EnumerateMonths(start time.Time, months int) []QueryUnit {
	units := make([]QueryUnit, 0, months)
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		units = append(units, NewMonthUnit(cur.Year(), cur.Month()))
		cur = cur.AddDate(0, -1, 0)
	}
	return units
}

// EnumerateRangeChunks splits a backwards window of totalDays into chunks
// of chunkDays, newest chunk first. The oldest chunk may be shorter.
func EnumerateRangeChunks(start time.Time, totalDays, chunkDays int) []QueryUnit {
	if chunkDays < 1 {
		chunkDays = 1
	}
	var units []QueryUnit
	for offset := 0; offset < totalDays; offset += chunkDays {
		to := start.AddDate(0, 0, -offset)
		fromOffset := offset + chunkDays - 1
		if fromOffset > totalDays-1 {
			fromOffset = totalDays - 1
		}
		from := start.AddDate(0, 0, -fromOffset)
		if from.After(to) {
			continue
		}
		units = append(units, NewRangeUnit(from, to))
	}
	return units
}

// Category is one entry of a site's search category dropdown.
type Category struct {
	Value string `yaml:"value"`
	Name  string `yaml:"name"`
}

// ProcessedMarker records the final outcome for one QueryUnit. At most one
// marker exists per unit key (unique index on _id).
type ProcessedMarker struct {
	Key           string    `bson:"_id"`
	CategoryValue string    `bson:"category_value,omitempty"`
	CategoryName  string    `bson:"category_name,omitempty"`
	Status        string    `bson:"status"`
	Detail        string    `bson:"detail,omitempty"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

// Terminal reports whether the status is a definitive outcome that must
// not be overwritten by a later ERROR.
func (m ProcessedMarker) Terminal() bool {
	switch m.Status {
	case StatusSuccess, StatusNoRecords, StatusOverLimit:
		return true
	}
	return false
}

// JudgementLink is one document link attached to a judgement row.
type JudgementLink struct {
	Text string `bson:"text"`
	URL  string `bson:"url"`
}

// Judgement is one scraped results-table row. The ID is a deterministic
// composite of the natural key where one exists; the eCourts variant
// appends a nonce instead (see the extract package).
type Judgement struct {
	ID               string          `bson:"_id"`
	Court            string          `bson:"court"`
	SerialNumber     string          `bson:"serial_number,omitempty"`
	CaseNumber       string          `bson:"case_number,omitempty"`
	DiaryNumber      string          `bson:"diary_number,omitempty"`
	CaseType         string          `bson:"case_type,omitempty"`
	CaseYear         string          `bson:"case_year,omitempty"`
	PartyDetail      string          `bson:"petitioner_respondent,omitempty"`
	AdvocateDetail   string          `bson:"petitioner_respondent_advocate,omitempty"`
	Bench            string          `bson:"bench,omitempty"`
	JudgmentBy       string          `bson:"judgment_by,omitempty"`
	JudgementDate    string          `bson:"judgement_date"`
	JudgementDateISO string          `bson:"judgement_date_iso,omitempty"`
	CategoryValue    string          `bson:"category_value,omitempty"`
	CategoryName     string          `bson:"category_name,omitempty"`
	ViewPDFURL       string          `bson:"view_pdf_url,omitempty"`
	DirectPDFURL     string          `bson:"direct_pdf_url,omitempty"`
	Links            []JudgementLink `bson:"judgment_links,omitempty"`
	SearchQuery      string          `bson:"search_query"`
	ScrapedAt        time.Time       `bson:"scraped_at_utc"`
}

// LandmarkSummary is one row of the SCI landmark judgement summaries
// listing, a CAPTCHA-free surface scraped separately.
type LandmarkSummary struct {
	ID           string    `bson:"_id"`
	JudgmentDate string    `bson:"judgment_date"`
	CauseTitle   string    `bson:"cause_title_case_no"`
	Subject      string    `bson:"subject"`
	Summary      string    `bson:"judgment_summary"`
	PDFLink      string    `bson:"pdf_link,omitempty"`
	Year         int       `bson:"year"`
	ScrapedAt    time.Time `bson:"scraped_at_utc"`
}
