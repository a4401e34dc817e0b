package influx

import (
	"bytes"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

type fakeWriteAPI struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
	errs    chan error
}

func newFakeWriteAPI() *fakeWriteAPI { return &fakeWriteAPI{errs: make(chan error, 1)} }

func (f *fakeWriteAPI) WriteRecord(string) {}
func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}
func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}
func (f *fakeWriteAPI) Errors() <-chan error                         { return f.errs }
func (f *fakeWriteAPI) SetWriteFailedCallback(api.WriteFailedCallback) {}

func tagValue(p *write.Point, key string) string {
	for _, t := range p.TagList() {
		if t.Key == key {
			return t.Value
		}
	}
	return ""
}

func fieldValue(p *write.Point, key string) (interface{}, bool) {
	for _, f := range p.FieldList() {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func TestIndexPointFields(t *testing.T) {
	ts := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	farm := entities.Farm{ID: "f1", CropType: "corn", CropStage: entities.StageVegetative}
	idx := entities.IndexResult{
		Timestamp:  ts,
		Statistics: entities.Statistics{Mean: 0.55, Std: 0.1, ValidPixelCount: 10, TotalPixelCount: 12},
		Zones: entities.ZoneHistogram{
			entities.ZoneModerateVegetation: {Count: 10, Percentage: 100},
		},
	}
	p := IndexPoint(farm, idx)

	if p.Name() != MeasurementIndex || !p.Time().Equal(ts) {
		t.Fatalf("unexpected point %s at %v", p.Name(), p.Time())
	}
	if tagValue(p, "farm_id") != "f1" || tagValue(p, "crop_type") != "corn" {
		t.Fatalf("missing tags: %+v", p.TagList())
	}
	if v, _ := fieldValue(p, "pct_moderate_vegetation"); v != 100.0 {
		t.Fatalf("zone percentage field = %v", v)
	}
	if _, ok := fieldValue(p, "pct_water"); !ok {
		t.Fatalf("every zone must have a field")
	}
	if v, _ := fieldValue(p, "valid_pixels"); v != int64(10) {
		t.Fatalf("valid_pixels = %v", v)
	}
}

func TestRunPoint(t *testing.T) {
	p := RunPoint(entities.RunReport{TotalFarms: 12, Succeeded: 11, Failed: 1, Canceled: true, SuccessRatePercent: 91.6})
	if p.Name() != MeasurementRun || tagValue(p, "canceled") != "true" {
		t.Fatalf("unexpected run point")
	}
	if v, _ := fieldValue(p, "failed"); v != int64(1) {
		t.Fatalf("failed = %v", v)
	}
}

func TestWriterQueuesAndTracksErrors(t *testing.T) {
	fake := newFakeWriteAPI()
	w := NewWriter(nil, fake, log.New(&bytes.Buffer{}, "", 0))

	w.WriteIndex(entities.Farm{ID: "f1"}, entities.IndexResult{Timestamp: time.Now()})
	w.WriteRun(entities.RunReport{Date: time.Now()})

	if w.Written(MeasurementIndex) != 1 || w.Written(MeasurementRun) != 1 {
		t.Fatalf("unexpected counters")
	}
	fake.mu.Lock()
	n, flushes := len(fake.points), fake.flushes
	fake.mu.Unlock()
	if n != 2 || flushes != 1 {
		t.Fatalf("points=%d flushes=%d", n, flushes)
	}

	if w.LastErrorAge() < time.Hour {
		t.Fatalf("fresh writer must report an old error age")
	}
	fake.errs <- errors.New("unauthorized")
	deadline := time.Now().Add(time.Second)
	for w.LastErrorAge() > time.Minute {
		if time.Now().After(deadline) {
			t.Fatalf("async error was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var w *Writer
	w.WriteIndex(entities.Farm{}, entities.IndexResult{})
	w.WriteRun(entities.RunReport{})
	w.Close()
}
