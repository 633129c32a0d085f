package metrics

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

var (
	storage  tstorage.Storage
	storeMux sync.RWMutex

	counters   = map[string]int64{}
	counterMux sync.Mutex
)

// Point is a single sample returned by Query
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// InitMetrics opens the time-series storage under workdir/data/metrics
func InitMetrics(workdir string) error {
	dir := filepath.Join(workdir, "data", "metrics")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create metrics dir")
	}
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(dir),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	storeMux.Lock()
	storage = st
	storeMux.Unlock()
	return nil
}

// SetGauge records the current value of a gauge. It is a no-op until InitMetrics succeeds.
func SetGauge(name string, value int64) {
	storeMux.RLock()
	defer storeMux.RUnlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
	}})
}

// Incr bumps an in-memory counter; FlushCounters persists and resets them.
func Incr(name string) {
	counterMux.Lock()
	counters[name]++
	counterMux.Unlock()
}

// Counter returns the unflushed value of a counter
func Counter(name string) int64 {
	counterMux.Lock()
	defer counterMux.Unlock()
	return counters[name]
}

// FlushCounters writes every pending counter as a sample and resets it
func FlushCounters() {
	counterMux.Lock()
	pending := counters
	counters = map[string]int64{}
	counterMux.Unlock()

	for name, v := range pending {
		SetGauge(name, v)
	}
}

// Query returns samples of a metric in [start, end) ordered by time
func Query(name string, start, end time.Time) ([]Point, error) {
	storeMux.RLock()
	defer storeMux.RUnlock()
	if storage == nil {
		return nil, errors.New("metrics not initialized")
	}
	points, err := storage.Select(name, nil, start.Unix(), end.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	result := make([]Point, 0, len(points))
	for _, p := range points {
		result = append(result, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result, nil
}

func Close() error {
	storeMux.Lock()
	defer storeMux.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
