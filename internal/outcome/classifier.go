package outcome

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// State is the terminal page condition after a form submission.
type State int

const (
	Unknown State = iota
	InvalidCaptcha
	NoRecords
	OverLimit
	ResultsFound
)

func (s State) String() string {
	switch s {
	case InvalidCaptcha:
		return "invalid_captcha"
	case NoRecords:
		return "no_records"
	case OverLimit:
		return "over_limit"
	case ResultsFound:
		return "results_found"
	default:
		return "unknown"
	}
}

// Rule pairs a page predicate with the state it proves. Rules are evaluated
// strictly in slice order; the first match wins. Sites must therefore list
// invalid-captcha rules before results rules, since an invalid-captcha
// banner invalidates any co-present stale results table.
type Rule struct {
	State State
	Match func(doc *goquery.Document) bool
}

// Classifier resolves the page state after a submission by polling the
// page snapshot until any rule fires or the timeout elapses.
type Classifier struct {
	rules    []Rule
	timeout  time.Duration
	interval time.Duration
}

func NewClassifier(rules []Rule, timeout, interval time.Duration) *Classifier {
	return &Classifier{rules: rules, timeout: timeout, interval: interval}
}

// Classify evaluates the rules in priority order against a single snapshot.
func (c *Classifier) Classify(doc *goquery.Document) State {
	for _, rule := range c.rules {
		if rule.Match(doc) {
			return rule.State
		}
	}
	return Unknown
}

// ClassifyHTML parses the markup and classifies it. Unparseable markup is
// Unknown, not an error: the caller falls back to a best-effort parse.
func (c *Classifier) ClassifyHTML(html string) State {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Unknown
	}
	return c.Classify(doc)
}

// Wait polls snapshots from source until a rule matches or the timeout
// elapses. It returns the resolved state and the final snapshot; on
// timeout the state is Unknown and the snapshot is still returned so the
// caller can attempt a fallback parse.
func (c *Classifier) Wait(ctx context.Context, source func() (string, error)) (State, string, error) {
	deadline := time.Now().Add(c.timeout)
	var lastHTML string
	for {
		html, err := source()
		if err != nil {
			return Unknown, lastHTML, err
		}
		lastHTML = html

		if state := c.ClassifyHTML(html); state != Unknown {
			return state, html, nil
		}
		if time.Now().After(deadline) {
			return Unknown, lastHTML, nil
		}

		select {
		case <-ctx.Done():
			return Unknown, lastHTML, ctx.Err()
		case <-time.After(c.interval):
		}
	}
}

// TextContains builds a predicate matching any element of the selector
// whose text contains the given fragment.
func TextContains(selector, fragment string) func(doc *goquery.Document) bool {
	return func(doc *goquery.Document) bool {
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if strings.Contains(sel.Text(), fragment) {
				found = true
				return false
			}
			return true
		})
		return found
	}
}

// Exists builds a predicate matching when the selector resolves at all.
func Exists(selector string) func(doc *goquery.Document) bool {
	return func(doc *goquery.Document) bool {
		return doc.Find(selector).Length() > 0
	}
}

// AttrEquals builds a predicate matching an element whose attribute equals
// the given value after trimming.
func AttrEquals(selector, attr, value string) func(doc *goquery.Document) bool {
	return func(doc *goquery.Document) bool {
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) == value {
				found = true
				return false
			}
			return true
		})
		return found
	}
}
