// Package landmark crawls the Supreme Court landmark judgement summaries
// listing, a plain paginated-by-year HTML surface with no CAPTCHA, and
// upserts one document per summary row.
package landmark

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"court_spider/internal/config"
	"court_spider/internal/models"
)

type Store interface {
	UpsertLandmark(ctx context.Context, rec models.LandmarkSummary) error
}

type Crawler struct {
	cfg         config.LandmarkConfig
	store       Store
	log         *zap.Logger
	collector   *colly.Collector
	robotsGroup *robotstxt.Group

	ctx  context.Context
	year int
}

func NewCrawler(cfg config.LandmarkConfig, store Store, log *zap.Logger) (*Crawler, error) {
	first := fmt.Sprintf(cfg.URLTemplate, cfg.YearFrom)
	u, err := url.Parse(first)
	if err != nil {
		return nil, fmt.Errorf("landmark: bad url template: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      time.Duration(cfg.DelayMS) * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("landmark: limit rule: %w", err)
	}

	cr := &Crawler{
		cfg:       cfg,
		store:     store,
		log:       log,
		collector: c,
	}

	c.OnResponse(func(r *colly.Response) {
		cr.handleResponse(r)
	})
	c.OnError(func(r *colly.Response, err error) {
		log.Error("landmark page fetch failed",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Error(err))
	})

	return cr, nil
}

// Run walks the configured year range oldest first. Each year is one
// listing page; per-year failures are logged and the walk continues.
func (c *Crawler) Run(ctx context.Context) error {
	c.ctx = ctx
	c.initRobots()

	for year := c.cfg.YearFrom; year <= c.cfg.YearTo; year++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := fmt.Sprintf(c.cfg.URLTemplate, year)
		if !c.allowed(target) {
			c.log.Warn("landmark page disallowed by robots.txt", zap.String("url", target))
			continue
		}

		c.year = year
		if err := c.collector.Visit(target); err != nil {
			c.log.Error("landmark visit failed", zap.Int("year", year), zap.Error(err))
		}
	}
	return nil
}

func (c *Crawler) initRobots() {
	first := fmt.Sprintf(c.cfg.URLTemplate, c.cfg.YearFrom)
	u, err := url.Parse(first)
	if err != nil {
		return
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	resp, err := http.Get(robotsURL)
	if err != nil {
		c.log.Warn("robots.txt fetch failed, proceeding without it", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		c.log.Warn("robots.txt parse failed, proceeding without it", zap.Error(err))
		return
	}
	c.robotsGroup = data.FindGroup(c.cfg.UserAgent)
	c.log.Info("robots.txt loaded", zap.String("url", robotsURL))
}

func (c *Crawler) allowed(target string) bool {
	if c.robotsGroup == nil {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return c.robotsGroup.Test(u.Path)
}

func (c *Crawler) handleResponse(r *colly.Response) {
	contentType := r.Headers.Get("Content-Type")
	reader, err := charset.NewReader(bytes.NewReader(r.Body), contentType)
	if err != nil {
		c.log.Error("charset detection failed", zap.String("url", r.Request.URL.String()), zap.Error(err))
		return
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		c.log.Error("landmark page parse failed", zap.String("url", r.Request.URL.String()), zap.Error(err))
		return
	}

	rows := ParseListing(doc, c.year)
	saved := 0
	for _, rec := range rows {
		if err := c.store.UpsertLandmark(c.ctx, rec); err != nil {
			c.log.Error("landmark save failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		saved++
	}
	c.log.Info("landmark year scraped",
		zap.Int("year", c.year),
		zap.Int("rows", len(rows)),
		zap.Int("saved", saved))
}

// ParseListing extracts the summary rows of one year page. The column
// order shifts between years, so cells are mapped by header text.
func ParseListing(doc *goquery.Document, year int) []models.LandmarkSummary {
	var records []models.LandmarkSummary

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := headerColumns(table)
		if cols.date < 0 || cols.cause < 0 {
			return true
		}

		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= cols.cause {
				return
			}

			rec := models.LandmarkSummary{
				JudgmentDate: cleanCell(cells.Eq(cols.date)),
				CauseTitle:   cleanCell(cells.Eq(cols.cause)),
				Year:         year,
				ScrapedAt:    time.Now().UTC(),
			}
			if cols.subject >= 0 && cells.Length() > cols.subject {
				rec.Subject = cleanCell(cells.Eq(cols.subject))
			}
			if cols.summary >= 0 && cells.Length() > cols.summary {
				sumCell := cells.Eq(cols.summary)
				rec.Summary = cleanCell(sumCell)
				if href, ok := sumCell.Find("a[href]").First().Attr("href"); ok {
					rec.PDFLink = strings.TrimSpace(href)
				}
			}
			if rec.PDFLink == "" {
				if href, ok := row.Find("a[href$='.pdf']").First().Attr("href"); ok {
					rec.PDFLink = strings.TrimSpace(href)
				}
			}
			if rec.CauseTitle == "" {
				return
			}

			rec.ID = contentHash(fmt.Sprintf("%d|%s|%s", year, rec.CauseTitle, rec.JudgmentDate))
			records = append(records, rec)
		})
		return false
	})

	return records
}

type columnMap struct {
	date, cause, subject, summary int
}

func headerColumns(table *goquery.Selection) columnMap {
	cols := columnMap{date: -1, cause: -1, subject: -1, summary: -1}
	table.Find("thead th, tr th").Each(func(i int, th *goquery.Selection) {
		switch h := strings.ToLower(strings.TrimSpace(th.Text())); {
		case strings.Contains(h, "date"):
			cols.date = i
		case strings.Contains(h, "cause") || strings.Contains(h, "case"):
			cols.cause = i
		case strings.Contains(h, "subject"):
			cols.subject = i
		case strings.Contains(h, "summary"):
			cols.summary = i
		}
	})
	return cols
}

var nbspReplacer = strings.NewReplacer("\u00a0", " ")

func cleanCell(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(nbspReplacer.Replace(cell.Text())), " ")
}

func contentHash(content string) string {
	hash := md5.Sum([]byte(content))
	return fmt.Sprintf("%x", hash)
}
