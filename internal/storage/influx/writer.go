package influx

import (
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	Logger *log.Logger
}

// Writer wraps the async WriteAPI and tracks the last write error for /readyz.
type Writer struct {
	client  influxdb2.Client
	api     api.WriteAPI
	logger  *log.Logger
	mu      sync.RWMutex
	lastErr time.Time
	written map[string]int64
}

// New opens a client and starts draining the async error channel.
func New(cfg Config) *Writer {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return NewWriter(client, client.WriteAPI(cfg.Org, cfg.Bucket), cfg.Logger)
}

// NewWriter wires an existing WriteAPI; client may be nil.
func NewWriter(client influxdb2.Client, w api.WriteAPI, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	ww := &Writer{
		client:  client,
		api:     w,
		logger:  logger,
		lastErr: time.Now().Add(-24 * time.Hour),
		written: make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				ww.logger.Printf("influx: write error: %v", err)
			}
		}
	}()
	return ww
}

// WriteIndex queues the index point of one analyzed farm.
func (w *Writer) WriteIndex(farm entities.Farm, idx entities.IndexResult) {
	if w == nil {
		return
	}
	w.api.WritePoint(IndexPoint(farm, idx))
	w.mark(MeasurementIndex)
}

// WriteRun queues the summary point of a finished run and flushes.
func (w *Writer) WriteRun(r entities.RunReport) {
	if w == nil {
		return
	}
	w.api.WritePoint(RunPoint(r))
	w.mark(MeasurementRun)
	w.api.Flush()
}

// LastErrorAge is the time since the last async write error.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Written returns how many points of a measurement were queued.
func (w *Writer) Written(measurement string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written[measurement]
}

func (w *Writer) Close() {
	if w == nil {
		return
	}
	w.api.Flush()
	if w.client != nil {
		w.client.Close()
	}
}

func (w *Writer) mark(measurement string) {
	w.mu.Lock()
	w.written[measurement]++
	w.mu.Unlock()
}
