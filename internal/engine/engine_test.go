package engine

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"court_spider/internal/artifacts"
	"court_spider/internal/models"
	"court_spider/internal/outcome"
)

type fakeStore struct {
	markers map[string]models.ProcessedMarker
	upserts []models.Judgement
	inserts []models.Judgement
}

func newFakeStore() *fakeStore {
	return &fakeStore{markers: make(map[string]models.ProcessedMarker)}
}

func (s *fakeStore) IsProcessed(_ context.Context, unit models.QueryUnit) (bool, error) {
	_, ok := s.markers[unit.Key]
	return ok, nil
}

func (s *fakeStore) MarkProcessed(_ context.Context, unit models.QueryUnit, status, detail string) error {
	if existing, ok := s.markers[unit.Key]; ok && existing.Terminal() && status == models.StatusError {
		return nil
	}
	s.markers[unit.Key] = models.ProcessedMarker{
		Key:         unit.Key,
		Status:      status,
		Detail:      detail,
		ProcessedAt: time.Now().UTC(),
	}
	return nil
}

func (s *fakeStore) UpsertJudgement(_ context.Context, rec models.Judgement) error {
	s.upserts = append(s.upserts, rec)
	return nil
}

func (s *fakeStore) InsertJudgement(_ context.Context, rec models.Judgement) error {
	s.inserts = append(s.inserts, rec)
	return nil
}

type fakeSolver struct {
	calls int
}

func (f *fakeSolver) Solve(context.Context, []byte) (string, error) {
	f.calls++
	return "aB3xY9", nil
}

type fakeSite struct {
	units      []models.QueryUnit
	states     []outcome.State
	records    []models.Judgement
	appendOnly bool

	fillCalls       int
	captchaCalls    int
	submitCalls     int
	waitCalls       int
	extractCalls    int
	resetCalls      int
	screenshotCalls int
}

func (f *fakeSite) Name() string              { return "fake_court" }
func (f *fakeSite) Units() []models.QueryUnit { return f.units }
func (f *fakeSite) AppendOnly() bool          { return f.appendOnly }

func (f *fakeSite) FillForm(context.Context, models.QueryUnit) error {
	f.fillCalls++
	return nil
}

func (f *fakeSite) CaptchaImage(context.Context) ([]byte, error) {
	f.captchaCalls++
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (f *fakeSite) Submit(context.Context, string) error {
	f.submitCalls++
	return nil
}

func (f *fakeSite) WaitOutcome(context.Context) (outcome.State, string, error) {
	state := f.states[len(f.states)-1]
	if f.waitCalls < len(f.states) {
		state = f.states[f.waitCalls]
	}
	f.waitCalls++
	return state, "<html></html>", nil
}

func (f *fakeSite) Screenshot(context.Context) ([]byte, error) {
	f.screenshotCalls++
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (f *fakeSite) Extract(string, models.QueryUnit) ([]models.Judgement, error) {
	f.extractCalls++
	return f.records, nil
}

func (f *fakeSite) Reset(context.Context) error {
	f.resetCalls++
	return nil
}

func criminalUnit() models.QueryUnit {
	return models.NewDateCategoryUnit(
		time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC), "2", "Criminal")
}

func newTestEngine(store Store, solver Solver) *Engine {
	return New(Config{MaxAttempts: 10}, store, solver, nil, zap.NewNop())
}

func TestRunSkipsProcessedUnits(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	store.markers[unit.Key] = models.ProcessedMarker{Key: unit.Key, Status: models.StatusSuccess}

	solver := &fakeSolver{}
	site := &fakeSite{units: []models.QueryUnit{unit}, states: []outcome.State{outcome.ResultsFound}}

	require.NoError(t, newTestEngine(store, solver).Run(context.Background(), site))

	assert.Zero(t, site.fillCalls)
	assert.Zero(t, solver.calls)
	assert.Equal(t, models.StatusSuccess, store.markers[unit.Key].Status)
}

func TestRunRetriesRejectedCaptchasThenSucceeds(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	solver := &fakeSolver{}
	site := &fakeSite{
		units: []models.QueryUnit{unit},
		states: []outcome.State{
			outcome.InvalidCaptcha,
			outcome.InvalidCaptcha,
			outcome.InvalidCaptcha,
			outcome.ResultsFound,
		},
		records: []models.Judgement{
			{ID: "CRLA-123-2020_2025-05-12_2"},
			{ID: "CRLA-456-2021_2025-05-12_2"},
		},
	}

	require.NoError(t, newTestEngine(store, solver).Run(context.Background(), site))

	assert.Equal(t, 4, solver.calls, "one solve per submission")
	assert.Equal(t, 1, site.extractCalls, "extraction runs once, on the results page")
	assert.Equal(t, 1, site.fillCalls, "dates survive a rejected captcha")
	assert.Len(t, store.upserts, 2)

	marker := store.markers["2025-05-12_2"]
	assert.Equal(t, models.StatusSuccess, marker.Status)
	assert.Equal(t, "parsed 2 records", marker.Detail)
}

func TestRunMarksNoRecords(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	site := &fakeSite{units: []models.QueryUnit{unit}, states: []outcome.State{outcome.NoRecords}}

	require.NoError(t, newTestEngine(store, &fakeSolver{}).Run(context.Background(), site))

	assert.Zero(t, site.extractCalls)
	assert.Empty(t, store.upserts)
	assert.Equal(t, models.StatusNoRecords, store.markers[unit.Key].Status)
}

func TestRunMarksOverLimit(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	site := &fakeSite{units: []models.QueryUnit{unit}, states: []outcome.State{outcome.OverLimit}}

	require.NoError(t, newTestEngine(store, &fakeSolver{}).Run(context.Background(), site))

	assert.Equal(t, models.StatusOverLimit, store.markers[unit.Key].Status)
	assert.Equal(t, "FAILED_OVER_LIMIT", store.markers[unit.Key].Status)
}

func TestRunMarksErrorAfterExhaustion(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	solver := &fakeSolver{}
	site := &fakeSite{units: []models.QueryUnit{unit}, states: []outcome.State{outcome.InvalidCaptcha}}

	eng := New(Config{MaxAttempts: 3}, store, solver, nil, zap.NewNop())
	require.NoError(t, eng.Run(context.Background(), site))

	assert.Equal(t, 3, solver.calls)
	marker := store.markers[unit.Key]
	assert.Equal(t, models.StatusError, marker.Status)
	assert.Equal(t, "failed after 3 attempts", marker.Detail)
}

func TestRunErrorNeverDemotesTerminalMarker(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	store.markers[unit.Key] = models.ProcessedMarker{Key: unit.Key, Status: models.StatusNoRecords}

	require.NoError(t, store.MarkProcessed(context.Background(), unit, models.StatusError, "late failure"))
	assert.Equal(t, models.StatusNoRecords, store.markers[unit.Key].Status)
}

func TestRunFallbackParseOnUnknownState(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	site := &fakeSite{
		units:   []models.QueryUnit{unit},
		states:  []outcome.State{outcome.Unknown},
		records: []models.Judgement{{ID: "recovered"}},
	}

	require.NoError(t, newTestEngine(store, &fakeSolver{}).Run(context.Background(), site))

	marker := store.markers[unit.Key]
	assert.Equal(t, models.StatusSuccess, marker.Status)
	assert.Contains(t, marker.Detail, "fallback")
	assert.Len(t, store.upserts, 1)
}

func TestRunUnexpectedStateSavesPageAndScreenshot(t *testing.T) {
	store := newFakeStore()
	unit := criminalUnit()
	site := &fakeSite{
		units:  []models.QueryUnit{unit},
		states: []outcome.State{outcome.Unknown},
	}

	dir := t.TempDir()
	sink, err := artifacts.NewSink(dir, zap.NewNop())
	require.NoError(t, err)

	eng := New(Config{MaxAttempts: 2}, store, &fakeSolver{}, sink, zap.NewNop())
	require.NoError(t, eng.Run(context.Background(), site))

	assert.Equal(t, 2, site.screenshotCalls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var pages, screens int
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "PAGE_"):
			pages++
		case strings.HasPrefix(e.Name(), "SCREEN_"):
			screens++
		}
	}
	assert.Equal(t, 2, pages, "one HTML snapshot per burned attempt")
	assert.Equal(t, 2, screens, "one screenshot per burned attempt")
}

func TestRunAppendOnlySiteInserts(t *testing.T) {
	store := newFakeStore()
	unit := models.NewRangeUnit(
		time.Date(2025, 5, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC))
	site := &fakeSite{
		units:      []models.QueryUnit{unit},
		states:     []outcome.State{outcome.ResultsFound},
		records:    []models.Judgement{{ID: "TRP_X_1"}, {ID: "TRP_X_2"}},
		appendOnly: true,
	}

	require.NoError(t, newTestEngine(store, &fakeSolver{}).Run(context.Background(), site))

	assert.Empty(t, store.upserts)
	assert.Len(t, store.inserts, 2)
	assert.Equal(t, models.StatusSuccess, store.markers[unit.Key].Status)
}

func TestRunResetsBetweenUnits(t *testing.T) {
	store := newFakeStore()
	units := []models.QueryUnit{
		models.NewDateCategoryUnit(time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC), "2", "Criminal"),
		models.NewDateCategoryUnit(time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC), "2", "Criminal"),
	}
	site := &fakeSite{units: units, states: []outcome.State{outcome.NoRecords}}

	require.NoError(t, newTestEngine(store, &fakeSolver{}).Run(context.Background(), site))

	assert.Equal(t, 2, site.resetCalls)
	assert.Len(t, store.markers, 2)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newFakeStore()
	site := &fakeSite{
		units:  []models.QueryUnit{criminalUnit()},
		states: []outcome.State{outcome.ResultsFound},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestEngine(store, &fakeSolver{}).Run(ctx, site)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, site.fillCalls)
}
