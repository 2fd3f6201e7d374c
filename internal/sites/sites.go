// Package sites binds the generic scrape loop to the individual court
// portals: selectors, outcome rules, unit enumeration and CAPTCHA answer
// shapes.
package sites

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"court_spider/internal/captcha"
)

// Timing carries the outcome polling parameters shared by every site.
type Timing struct {
	OutcomeTimeout time.Duration
	PollInterval   time.Duration
}

// RajasthanCaptchaSpec: exactly six alphanumeric characters.
var RajasthanCaptchaSpec = captcha.Spec{
	Alphabet: captcha.Alphanumeric,
	MinLen:   6,
	MaxLen:   6,
	Prompt: "Extract the text from this CAPTCHA image. The text consists of " +
		"exactly 6 alphanumeric characters. Respond with only the characters, " +
		"nothing else.",
}

// SupremeCourtCaptchaSpec: the image shows a simple arithmetic question;
// the answer is the numeric result.
var SupremeCourtCaptchaSpec = captcha.Spec{
	Alphabet: captcha.Numeric,
	MinLen:   1,
	MaxLen:   6,
	Prompt: "This CAPTCHA image shows a simple math expression. Solve it and " +
		"respond with only the numeric answer, nothing else.",
}

// ECourtsCaptchaSpec: short alphanumeric code of varying length.
var ECourtsCaptchaSpec = captcha.Spec{
	Alphabet: captcha.Alphanumeric,
	MinLen:   3,
	MaxLen:   7,
	Prompt: "Extract the text from this CAPTCHA image. The text is a short " +
		"alphanumeric code. Respond with only the characters, nothing else.",
}

// textNotEmpty matches when any element of the selector carries visible
// text.
func textNotEmpty(selector string) func(doc *goquery.Document) bool {
	return func(doc *goquery.Document) bool {
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if strings.TrimSpace(sel.Text()) != "" {
				found = true
				return false
			}
			return true
		})
		return found
	}
}

// parseStartDate reads a YYYY-MM-DD config value, defaulting to today.
func parseStartDate(value string) time.Time {
	if value != "" {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t
		}
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
