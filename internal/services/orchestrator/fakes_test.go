package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
	"github.com/LeonardoBeccarini/cropwatch/internal/services/alerting"
)

var testNow = time.Date(2026, 6, 2, 2, 0, 0, 0, time.UTC)

type fakeFarms struct {
	mu      sync.Mutex
	farms   []entities.Farm
	listErr error
	listed  chan struct{} // closed on first List when set
	release chan struct{} // List waits on it when set
	updated map[string]time.Time
}

func (f *fakeFarms) ListActiveFarms(ctx context.Context) ([]entities.Farm, error) {
	if f.listed != nil {
		close(f.listed)
		f.listed = nil
	}
	if f.release != nil {
		<-f.release
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]entities.Farm, len(f.farms))
	copy(out, f.farms)
	return out, nil
}

func (f *fakeFarms) UpdateLastAnalyzedAt(_ context.Context, farmID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[string]time.Time{}
	}
	f.updated[farmID] = at
	return nil
}

func (f *fakeFarms) wasUpdated(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.updated[id]
	return ok
}

type fakeAnalyses struct {
	mu      sync.Mutex
	records []entities.AnalysisRecord
	errs    []entities.ErrorRecord
	latest  map[string]*entities.AnalysisSummary
}

func (f *fakeAnalyses) SaveAnalysis(_ context.Context, rec entities.AnalysisRecord) error {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	return nil
}

func (f *fakeAnalyses) SaveError(_ context.Context, rec entities.ErrorRecord) error {
	f.mu.Lock()
	f.errs = append(f.errs, rec)
	f.mu.Unlock()
	return nil
}

func (f *fakeAnalyses) LatestAnalysis(_ context.Context, farmID string) (*entities.AnalysisSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[farmID], nil
}

func (f *fakeAnalyses) analyzedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.records))
	for _, r := range f.records {
		ids = append(ids, r.FarmID)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeAnalyses) errorFor(farmID string) (entities.ErrorRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.errs {
		if e.FarmID == farmID {
			return e, true
		}
	}
	return entities.ErrorRecord{}, false
}

type fakeReports struct {
	mu      sync.Mutex
	reports []entities.RunReport
}

func (f *fakeReports) SaveRunReport(_ context.Context, r entities.RunReport) error {
	f.mu.Lock()
	f.reports = append(f.reports, r)
	f.mu.Unlock()
	return nil
}

func (f *fakeReports) LatestRunReport(context.Context) (*entities.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) == 0 {
		return nil, nil
	}
	r := f.reports[len(f.reports)-1]
	return &r, nil
}

func (f *fakeReports) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type fakeBands struct {
	byFarm      map[string]entities.BandSet
	unavailable map[string]bool
	fail        map[string]error
	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeBands) GetBands(_ context.Context, farm entities.Farm, _ int) (entities.BandSet, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	if f.unavailable[farm.ID] {
		return entities.BandSet{}, model.ErrDataUnavailable
	}
	if err := f.fail[farm.ID]; err != nil {
		return entities.BandSet{}, err
	}
	if bs, ok := f.byFarm[farm.ID]; ok {
		return bs, nil
	}
	return moderateBands(), nil
}

type fakeVision struct {
	fail     map[string]error
	panicFor string
	block    bool
	result   entities.VisionResult
}

func (f *fakeVision) Analyze(ctx context.Context, _ []byte, fc entities.FarmContext, _ entities.IndexResult) (entities.VisionResult, error) {
	if fc.FarmID == f.panicFor && f.panicFor != "" {
		panic("vision client bug")
	}
	if f.block {
		<-ctx.Done()
		return entities.VisionResult{}, ctx.Err()
	}
	if err := f.fail[fc.FarmID]; err != nil {
		return entities.VisionResult{}, err
	}
	return f.result, nil
}

type fakeAlertRepo struct {
	mu    sync.Mutex
	saved []entities.Alert
}

func (f *fakeAlertRepo) SaveAlerts(_ context.Context, farmID string, alerts []entities.Alert) ([]entities.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.Alert, len(alerts))
	for i, a := range alerts {
		a.ID = fmt.Sprintf("%s-%d", farmID, len(f.saved)+i)
		out[i] = a
	}
	f.saved = append(f.saved, out...)
	return out, nil
}

type sentMessage struct {
	to  string
	msg messages.NotificationMessage
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeDispatcher) Send(_ context.Context, to string, msg messages.NotificationMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{to: to, msg: msg})
	f.mu.Unlock()
	return nil
}

func (f *fakeDispatcher) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// bandsOf builds a 1-row raster pair from (nir, red) raw reflectance pairs.
func bandsOf(pairs ...[2]float64) entities.BandSet {
	nir := make([]float64, len(pairs))
	red := make([]float64, len(pairs))
	for i, p := range pairs {
		nir[i], red[i] = p[0], p[1]
	}
	return entities.BandSet{
		NIR:         entities.BandRaster{Width: len(pairs), Height: 1, Values: nir, AcquiredAt: testNow.Add(-48 * time.Hour)},
		Red:         entities.BandRaster{Width: len(pairs), Height: 1, Values: red, AcquiredAt: testNow.Add(-48 * time.Hour)},
		SensingDate: testNow.Add(-48 * time.Hour),
	}
}

// moderateBands: every pixel at index ~0.43, which derives no alert.
func moderateBands() entities.BandSet {
	return bandsOf([2]float64{5000, 2000}, [2]float64{5000, 2000}, [2]float64{5000, 2000}, [2]float64{5000, 2000})
}

// stressBands: 7 pixels at 0.25 and 3 at -0.083, mean 0.15, std ~0.15,
// no bare soil. Only the stress rule fires.
func stressBands() entities.BandSet {
	pairs := make([][2]float64, 0, 10)
	for i := 0; i < 7; i++ {
		pairs = append(pairs, [2]float64{5000, 3000})
	}
	for i := 0; i < 3; i++ {
		pairs = append(pairs, [2]float64{2750, 3250})
	}
	return bandsOf(pairs...)
}

func farmsN(n int) []entities.Farm {
	out := make([]entities.Farm, n)
	for i := range out {
		out[i] = entities.Farm{
			ID:        fmt.Sprintf("f%02d", i+1),
			Name:      fmt.Sprintf("Farm %d", i+1),
			CropType:  "wheat",
			Priority:  entities.PriorityMedium,
			CropStage: entities.StageVegetative,
			Active:    true,
		}
	}
	return out
}

type harness struct {
	orch     *Orchestrator
	farms    *fakeFarms
	analyses *fakeAnalyses
	reports  *fakeReports
	bands    *fakeBands
	vision   *fakeVision
	alerts   *fakeAlertRepo
	admin    *fakeDispatcher
	logs     *syncBuffer
	sleeps   atomic.Int32
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newHarness wires fakes around a real alert aggregator. mutate may adjust
// the config before construction.
func newHarness(t *testing.T, farms []entities.Farm, mutate func(h *harness, cfg *Config)) *harness {
	t.Helper()
	h := &harness{
		farms:    &fakeFarms{farms: farms},
		analyses: &fakeAnalyses{latest: map[string]*entities.AnalysisSummary{}},
		reports:  &fakeReports{},
		bands:    &fakeBands{byFarm: map[string]entities.BandSet{}, unavailable: map[string]bool{}, fail: map[string]error{}},
		vision:   &fakeVision{fail: map[string]error{}},
		alerts:   &fakeAlertRepo{},
		admin:    &fakeDispatcher{},
		logs:     &syncBuffer{},
	}
	logger := log.New(h.logs, "", 0)
	cfg := Config{
		BatchSize:       5,
		InterBatchDelay: 30 * time.Second,
		Logger:          logger,
		Now:             func() time.Time { return testNow },
		Sleep: func(ctx context.Context, _ time.Duration) error {
			h.sleeps.Add(1)
			return ctx.Err()
		},
	}
	if mutate != nil {
		mutate(h, &cfg)
	}
	agg := alerting.NewAggregator(h.alerts, nil, alerting.Config{Logger: logger, Now: cfg.Now})
	o, err := New(Deps{
		Farms:    h.farms,
		Analyses: h.analyses,
		Reports:  h.reports,
		Bands:    h.bands,
		Vision:   h.vision,
		Alerts:   agg,
		Admin:    h.admin,
	}, cfg)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	h.orch = o
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

var errBoom = errors.New("boom")
