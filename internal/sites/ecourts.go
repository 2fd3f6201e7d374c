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

// ECourts scrapes the High Court services order-date search in multi-day
// chunks. Persisted ids carry a nonce, so the site is append-only.
type ECourts struct {
	cfg        config.ECourtsConfig
	session    *browser.Session
	classifier *outcome.Classifier
	log        *zap.Logger
}

func NewECourts(cfg config.ECourtsConfig, session *browser.Session, timing Timing, log *zap.Logger) *ECourts {
	rules := []outcome.Rule{
		{State: outcome.InvalidCaptcha, Match: outcome.AttrEquals("input#txtmsg", "value", "Invalid Captcha")},
		{State: outcome.InvalidCaptcha, Match: outcome.AttrEquals("input#txtmsg", "title", "Invalid Captcha")},
		{State: outcome.NoRecords, Match: outcome.TextContains("h2.h2class", "Record Not Found")},
		{State: outcome.ResultsFound, Match: outcome.Exists("tbody#showList1 tr")},
	}
	return &ECourts{
		cfg:        cfg,
		session:    session,
		classifier: outcome.NewClassifier(rules, timing.OutcomeTimeout, timing.PollInterval),
		log:        log,
	}
}

func (e *ECourts) Name() string     { return "uttarakhand_hc" }
func (e *ECourts) AppendOnly() bool { return true }

func (e *ECourts) Units() []models.QueryUnit {
	start := parseStartDate(e.cfg.StartDate)
	return models.EnumerateRangeChunks(start, e.cfg.DaysBack, e.cfg.ChunkDays)
}

func (e *ECourts) FillForm(ctx context.Context, unit models.QueryUnit) error {
	if err := e.session.Navigate(e.cfg.URL); err != nil {
		return err
	}
	if err := e.session.WaitElement("#from_date"); err != nil {
		return err
	}
	if err := e.session.SetValue("#from_date", unit.From.Format("02-01-2006")); err != nil {
		return err
	}
	return e.session.SetValue("#to_date", unit.To.Format("02-01-2006"))
}

func (e *ECourts) CaptchaImage(ctx context.Context) ([]byte, error) {
	return e.session.ElementPNG("#captcha_image")
}

func (e *ECourts) Submit(ctx context.Context, solution string) error {
	if err := e.session.TypeValue("#captcha", solution); err != nil {
		return err
	}
	return e.session.Click(`input[name="submit1"]`)
}

func (e *ECourts) WaitOutcome(ctx context.Context) (outcome.State, string, error) {
	return e.classifier.Wait(ctx, e.session.HTML)
}

func (e *ECourts) Screenshot(ctx context.Context) ([]byte, error) {
	return e.session.Screenshot()
}

func (e *ECourts) Extract(html string, unit models.QueryUnit) ([]models.Judgement, error) {
	return extract.ECourts(html, e.cfg.BaseURL, unit, e.log)
}

// Reset is a no-op: FillForm reloads the search page for every unit.
func (e *ECourts) Reset(ctx context.Context) error { return nil }
