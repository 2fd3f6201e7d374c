package sites

import (
	"context"

	"go.uber.org/zap"

	"court_spider/internal/browser"
	"court_spider/internal/config"
	"court_spider/internal/extract"
	"court_spider/internal/models"
	"court_spider/internal/outcome"
)

// Rajasthan scrapes the Jodhpur bench judgement search. One unit is one
// date crossed with one case category; the portal keeps the filled dates
// across a rejected CAPTCHA, so retries resubmit without refilling.
type Rajasthan struct {
	cfg        config.RajasthanConfig
	session    *browser.Session
	classifier *outcome.Classifier
	log        *zap.Logger
	started    bool
}

func NewRajasthan(cfg config.RajasthanConfig, session *browser.Session, timing Timing, log *zap.Logger) *Rajasthan {
	rules := []outcome.Rule{
		// The invalid-captcha banner outranks everything: a stale results
		// table can still be present underneath it.
		{State: outcome.InvalidCaptcha, Match: outcome.TextContains(".alert-danger", "Invalid Security Code !!")},
		{State: outcome.InvalidCaptcha, Match: textNotEmpty("span#ErrorMsgCaptcha")},
		{State: outcome.NoRecords, Match: outcome.TextContains(".alert-danger", "No Record Found !!")},
		{State: outcome.NoRecords, Match: outcome.TextContains(".note-common", "No record found.")},
		{State: outcome.NoRecords, Match: outcome.TextContains(".alert-info", "No record found.")},
		{State: outcome.OverLimit, Match: outcome.TextContains("b.myjudcountmsg", "Search results are more than 1000")},
		{State: outcome.ResultsFound, Match: outcome.Exists("table#sample_1")},
	}
	return &Rajasthan{
		cfg:        cfg,
		session:    session,
		classifier: outcome.NewClassifier(rules, timing.OutcomeTimeout, timing.PollInterval),
		log:        log,
	}
}

func (r *Rajasthan) Name() string     { return "rajasthan_hc" }
func (r *Rajasthan) AppendOnly() bool { return false }

func (r *Rajasthan) Units() []models.QueryUnit {
	start := parseStartDate(r.cfg.StartDate)
	return models.EnumerateDateCategories(start, r.cfg.DaysBack, r.cfg.Categories)
}

func (r *Rajasthan) FillForm(ctx context.Context, unit models.QueryUnit) error {
	if !r.started {
		if err := r.session.Navigate(r.cfg.URL); err != nil {
			return err
		}
		r.started = true
	}
	if err := r.session.WaitElement("#partyFromDate"); err != nil {
		// The back-button path occasionally lands somewhere stale.
		if err := r.session.Navigate(r.cfg.URL); err != nil {
			return err
		}
		if err := r.session.WaitElement("#partyFromDate"); err != nil {
			return err
		}
	}

	day := unit.From.Format("02/01/2006")
	if err := r.session.SetValue("#partyFromDate", day); err != nil {
		return err
	}
	if err := r.session.SetValue("#partyToDate", day); err != nil {
		return err
	}
	return r.session.SelectOption("#casebasetype", unit.CategoryValue)
}

func (r *Rajasthan) CaptchaImage(ctx context.Context) ([]byte, error) {
	return r.session.DataURIPNG("img#captcha")
}

func (r *Rajasthan) Submit(ctx context.Context, solution string) error {
	if err := r.session.TypeValue("#txtCaptcha", solution); err != nil {
		return err
	}
	return r.session.Click("#btncasedetail1_1")
}

func (r *Rajasthan) WaitOutcome(ctx context.Context) (outcome.State, string, error) {
	return r.classifier.Wait(ctx, r.session.HTML)
}

func (r *Rajasthan) Screenshot(ctx context.Context) ([]byte, error) {
	return r.session.Screenshot()
}

func (r *Rajasthan) Extract(html string, unit models.QueryUnit) ([]models.Judgement, error) {
	return extract.Rajasthan(html, unit, r.log)
}

// Reset leaves the results view through the portal's own back button,
// then history back, then a full reload.
func (r *Rajasthan) Reset(ctx context.Context) error {
	if err := r.session.Click("#srchbackBtndiv button.btn-danger"); err == nil {
		return nil
	}
	if err := r.session.NavigateBack(); err == nil {
		return nil
	}
	r.started = false
	return r.session.Navigate(r.cfg.URL)
}
