package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Snapshot is a point-in-time view of every registered instrument.
type Snapshot struct {
	CollectedAt time.Time          `json:"collected_at"`
	Metrics     map[string][]Point `json:"metrics"`
}

// Point is the value for one attribute set. Histograms report their sum in
// Value and the number of recordings in Count.
type Point struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

// Snapshotter reads cumulative values from a manual reader on demand.
type Snapshotter struct {
	reader *sdkmetric.ManualReader
	now    func() time.Time
}

// NewSnapshotter wraps reader, which must be registered with a MeterProvider.
func NewSnapshotter(reader *sdkmetric.ManualReader) *Snapshotter {
	return &Snapshotter{reader: reader, now: time.Now}
}

// Snapshot collects the current value of every instrument.
func (s *Snapshotter) Snapshot(ctx context.Context) (Snapshot, error) {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return Snapshot{}, fmt.Errorf("collect metrics: %w", err)
	}

	out := Snapshot{CollectedAt: s.now().UTC(), Metrics: make(map[string][]Point)}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if points := pointsOf(m.Data); len(points) > 0 {
				out.Metrics[m.Name] = append(out.Metrics[m.Name], points...)
			}
		}
	}
	return out, nil
}

func pointsOf(data metricdata.Aggregation) []Point {
	var out []Point
	switch d := data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range d.DataPoints {
			out = append(out, Point{Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
		}
	case metricdata.Sum[float64]:
		for _, dp := range d.DataPoints {
			out = append(out, Point{Attributes: attrMap(dp.Attributes), Value: dp.Value})
		}
	case metricdata.Gauge[int64]:
		for _, dp := range d.DataPoints {
			out = append(out, Point{Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
		}
	case metricdata.Gauge[float64]:
		for _, dp := range d.DataPoints {
			out = append(out, Point{Attributes: attrMap(dp.Attributes), Value: dp.Value})
		}
	case metricdata.Histogram[float64]:
		for _, dp := range d.DataPoints {
			out = append(out, Point{Attributes: attrMap(dp.Attributes), Value: dp.Sum, Count: dp.Count})
		}
	}
	return out
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
