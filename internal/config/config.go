package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"court_spider/internal/models"
)

type DBConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Judgements     string `yaml:"judgements"`
		ProcessedUnits string `yaml:"processed_units"`
		Landmark       string `yaml:"landmark"`
	} `yaml:"collections"`
}

type GeminiConfig struct {
	APIKeys         []string `yaml:"api_keys"`
	Model           string   `yaml:"model"`
	Endpoint        string   `yaml:"endpoint"`
	Temperature     float64  `yaml:"temperature"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	TimeoutSec      int      `yaml:"timeout_sec"`
}

type BrowserConfig struct {
	Headless       bool `yaml:"headless"`
	NoSandbox      bool `yaml:"no_sandbox"`
	NavTimeoutSec  int  `yaml:"nav_timeout_sec"`
	PollIntervalMS int  `yaml:"poll_interval_ms"`
}

type LoopConfig struct {
	MaxAttempts        int `yaml:"max_attempts"`
	PolitenessDelaySec int `yaml:"politeness_delay_sec"`
	OutcomeTimeoutSec  int `yaml:"outcome_timeout_sec"`
}

type RajasthanConfig struct {
	Enabled    bool              `yaml:"enabled"`
	URL        string            `yaml:"url"`
	StartDate  string            `yaml:"start_date"` // YYYY-MM-DD
	DaysBack   int               `yaml:"days_back"`
	Categories []models.Category `yaml:"categories"`
}

type SupremeCourtConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	StartMonth string `yaml:"start_month"` // YYYY-MM
	MonthsBack int    `yaml:"months_back"`
}

type ECourtsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	BaseURL   string `yaml:"base_url"`
	StartDate string `yaml:"start_date"` // YYYY-MM-DD, empty = today
	DaysBack  int    `yaml:"days_back"`
	ChunkDays int    `yaml:"chunk_days"`
}

type SitesConfig struct {
	Rajasthan    RajasthanConfig    `yaml:"rajasthan"`
	SupremeCourt SupremeCourtConfig `yaml:"supremecourt"`
	ECourts      ECourtsConfig      `yaml:"ecourts"`
}

type LandmarkConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URLTemplate string `yaml:"url_template"` // %d = year
	YearFrom    int    `yaml:"year_from"`
	YearTo      int    `yaml:"year_to"`
	DelayMS     int    `yaml:"delay_ms"`
	UserAgent   string `yaml:"user_agent"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	DB        DBConfig        `yaml:"db"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Browser   BrowserConfig   `yaml:"browser"`
	Loop      LoopConfig      `yaml:"loop"`
	Sites     SitesConfig     `yaml:"sites"`
	Landmark  LandmarkConfig  `yaml:"landmark"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	LogDev    bool            `yaml:"log_dev"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.Endpoint == "" {
		c.Gemini.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Gemini.MaxOutputTokens == 0 {
		c.Gemini.MaxOutputTokens = 20
	}
	if c.Gemini.TimeoutSec == 0 {
		c.Gemini.TimeoutSec = 30
	}
	if c.Browser.NavTimeoutSec == 0 {
		c.Browser.NavTimeoutSec = 30
	}
	if c.Browser.PollIntervalMS == 0 {
		c.Browser.PollIntervalMS = 500
	}
	if c.Loop.MaxAttempts == 0 {
		c.Loop.MaxAttempts = 10
	}
	if c.Loop.PolitenessDelaySec == 0 {
		c.Loop.PolitenessDelaySec = 5
	}
	if c.Loop.OutcomeTimeoutSec == 0 {
		c.Loop.OutcomeTimeoutSec = 45
	}
	if c.Sites.ECourts.ChunkDays == 0 {
		c.Sites.ECourts.ChunkDays = 5
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "captcha_debug"
	}
	if c.Landmark.UserAgent == "" {
		c.Landmark.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
}

// Validate catches fatal misconfiguration before any session is opened.
func (c *Config) Validate() error {
	if c.DB.Connection == "" {
		return fmt.Errorf("config: db.connection is required")
	}
	if c.DB.Database == "" {
		return fmt.Errorf("config: db.database is required")
	}
	anySite := c.Sites.Rajasthan.Enabled || c.Sites.SupremeCourt.Enabled || c.Sites.ECourts.Enabled
	if anySite {
		if len(c.Gemini.APIKeys) == 0 {
			return fmt.Errorf("config: gemini.api_keys must not be empty when a site is enabled")
		}
		for _, key := range c.Gemini.APIKeys {
			if key == "" || strings.HasPrefix(key, "YOUR_GEMINI_API_KEY") {
				return fmt.Errorf("config: gemini.api_keys contains a placeholder entry")
			}
		}
	}
	return nil
}

func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Browser.PollIntervalMS) * time.Millisecond
}

func (c *Config) OutcomeTimeout() time.Duration {
	return time.Duration(c.Loop.OutcomeTimeoutSec) * time.Second
}

func (c *Config) PolitenessDelay() time.Duration {
	return time.Duration(c.Loop.PolitenessDelaySec) * time.Second
}
