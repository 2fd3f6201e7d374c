package sites

import (
	"context"
	"time"

	"go.uber.org/zap"

	"court_spider/internal/browser"
	"court_spider/internal/config"
	"court_spider/internal/extract"
	"court_spider/internal/models"
	"court_spider/internal/outcome"
)

// SupremeCourt scrapes the judgement-date search month by month. The date
// widgets reformat input, so dates go in as typed digit runs.
type SupremeCourt struct {
	cfg        config.SupremeCourtConfig
	session    *browser.Session
	classifier *outcome.Classifier
	log        *zap.Logger
}

func NewSupremeCourt(cfg config.SupremeCourtConfig, session *browser.Session, timing Timing, log *zap.Logger) *SupremeCourt {
	rules := []outcome.Rule{
		{State: outcome.InvalidCaptcha, Match: outcome.TextContains("div.notfound", "captcha code entered was incorrect")},
		{State: outcome.NoRecords, Match: outcome.TextContains("div.notfound", "No record")},
		{State: outcome.ResultsFound, Match: outcome.Exists("div.distTableContent table tbody tr")},
	}
	return &SupremeCourt{
		cfg:        cfg,
		session:    session,
		classifier: outcome.NewClassifier(rules, timing.OutcomeTimeout, timing.PollInterval),
		log:        log,
	}
}

func (s *SupremeCourt) Name() string     { return "supreme_court" }
func (s *SupremeCourt) AppendOnly() bool { return false }

func (s *SupremeCourt) Units() []models.QueryUnit {
	start := time.Now().UTC()
	if s.cfg.StartMonth != "" {
		if t, err := time.Parse("2006-01", s.cfg.StartMonth); err == nil {
			start = t
		}
	}
	return models.EnumerateMonths(start, s.cfg.MonthsBack)
}

func (s *SupremeCourt) FillForm(ctx context.Context, unit models.QueryUnit) error {
	if err := s.session.Navigate(s.cfg.URL); err != nil {
		return err
	}
	if err := s.session.WaitElement("#from_date"); err != nil {
		return err
	}
	if err := s.session.TypeValue("#from_date", unit.From.Format("02012006")); err != nil {
		return err
	}
	return s.session.TypeValue("#to_date", unit.To.Format("02012006"))
}

func (s *SupremeCourt) CaptchaImage(ctx context.Context) ([]byte, error) {
	return s.session.ElementPNG("#siwp_captcha_image_0")
}

func (s *SupremeCourt) Submit(ctx context.Context, solution string) error {
	if err := s.session.TypeValue("#siwp_captcha_value_0", solution); err != nil {
		return err
	}
	return s.session.Click(`[name="submit"]`)
}

func (s *SupremeCourt) WaitOutcome(ctx context.Context) (outcome.State, string, error) {
	return s.classifier.Wait(ctx, s.session.HTML)
}

func (s *SupremeCourt) Screenshot(ctx context.Context) ([]byte, error) {
	return s.session.Screenshot()
}

func (s *SupremeCourt) Extract(html string, unit models.QueryUnit) ([]models.Judgement, error) {
	return extract.SupremeCourt(html, unit, s.log)
}

// Reset is a no-op: FillForm reloads the search page for every unit.
func (s *SupremeCourt) Reset(ctx context.Context) error { return nil }
