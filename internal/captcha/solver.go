package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"court_spider/internal/artifacts"
	"court_spider/internal/config"
)

// ErrBadSolution marks answers that came back but failed the site's format
// check. Callers treat it the same as any solve failure: retry within the
// attempt budget.
var ErrBadSolution = errors.New("captcha: model answer failed format validation")

// Solver sends CAPTCHA images to the Gemini generateContent endpoint and
// validates the answers against a per-site Spec. Each call consumes one
// key from the pool; identical images may yield different answers across
// calls, so nothing is cached.
type Solver struct {
	pool   *KeyPool
	client *resty.Client
	cfg    config.GeminiConfig
	sink   *artifacts.Sink
	log    *zap.Logger
}

func NewSolver(cfg config.GeminiConfig, pool *KeyPool, sink *artifacts.Sink, log *zap.Logger) *Solver {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(time.Duration(cfg.TimeoutSec) * time.Second).
		SetRetryCount(0)
	return &Solver{
		pool:   pool,
		client: client,
		cfg:    cfg,
		sink:   sink,
		log:    log,
	}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Solve sends the image with the spec's prompt and returns the normalized
// answer. On a malformed answer the image and raw response are dumped to
// the artifact sink and ErrBadSolution is returned.
func (s *Solver) Solve(ctx context.Context, image []byte, spec Spec) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("captcha: empty image")
	}

	key := s.pool.Next()
	s.log.Info("sending CAPTCHA to model", zap.String("key_suffix", keySuffix(key)))

	req := generateRequest{
		Contents: []generateContent{{
			Parts: []generatePart{
				{Text: spec.Prompt},
				{InlineData: &inlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: s.cfg.MaxOutputTokens,
			CandidateCount:  1,
		},
	}

	var out generateResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/models/%s:generateContent", s.cfg.Model))
	if err != nil {
		return "", fmt.Errorf("captcha: model request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("captcha: model returned HTTP %d: %s", resp.StatusCode(), out.Error.Message)
	}
	if out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("captcha: model blocked content: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("captcha: model returned no candidates")
	}

	raw := out.Candidates[0].Content.Parts[0].Text
	cleaned, ok := spec.Normalize(raw)
	if !ok {
		s.log.Warn("model answer failed format check",
			zap.String("raw", raw),
			zap.String("cleaned", cleaned))
		s.sink.SaveCaptchaFailure("badformat", image, raw, cleaned)
		return "", ErrBadSolution
	}

	s.log.Info("CAPTCHA solved", zap.String("solution", cleaned))
	return cleaned, nil
}

// Bound ties a Solver to one site's Spec so callers only handle images.
type Bound struct {
	Solver *Solver
	Spec   Spec
}

func (b Bound) Solve(ctx context.Context, image []byte) (string, error) {
	return b.Solver.Solve(ctx, image, b.Spec)
}

func keySuffix(key string) string {
	if len(key) <= 4 {
		return key
	}
	return "..." + key[len(key)-4:]
}
