package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecordCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"), func(context.Context) (int, error) { return 4, nil })
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.MessageReceived(ctx)
	m.MessageReceived(ctx)
	m.MessageSent(ctx, "text", true)
	m.UpstreamOutcome(ctx, "getMyResults", "business")
	m.SessionsExpired(ctx, 3)
	m.SessionsExpired(ctx, 0)

	got := collect(t, reader)
	if n := sumOf(t, got["gateway.messages.received"]); n != 2 {
		t.Errorf("messages received = %d, want 2", n)
	}
	if n := sumOf(t, got["gateway.messages.sent"]); n != 1 {
		t.Errorf("messages sent = %d, want 1", n)
	}
	if n := sumOf(t, got["gateway.sessions.expired"]); n != 3 {
		t.Errorf("sessions expired = %d, want 3", n)
	}
	gauge, ok := got["gateway.sessions.active"].Data.(metricdata.Gauge[int64])
	if !ok || len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 4 {
		t.Errorf("active sessions gauge = %+v", got["gateway.sessions.active"].Data)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.MessageReceived(ctx)
	m.MessageSent(ctx, "menu", false)
	m.UpstreamOutcome(ctx, "getHomeData", "success")
	m.LoginAttempt(ctx, true)
	m.SessionsExpired(ctx, 1)
	m.JournalPruned(ctx, 1)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"), nil)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/conversations/{phone}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/conversations/263771234567", nil))

	got := collect(t, reader)
	sum, ok := got["gateway.http.requests"].Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 {
		t.Fatalf("http requests = %+v", got["gateway.http.requests"].Data)
	}
	route, _ := sum.DataPoints[0].Attributes.Value("route")
	if route.AsString() != "/api/conversations/{phone}" {
		t.Fatalf("route attribute = %q", route.AsString())
	}
}

func TestInitDisabledStillServesSnapshots(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, false, "", "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer func() { _ = p.Shutdown(ctx) }()

	m, err := NewMetrics(p.Meter, func(context.Context) (int, error) { return 2, nil })
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.UpstreamOutcome(ctx, "getMyResults", "success")
	m.UpstreamOutcome(ctx, "getMyResults", "success")
	m.LoginAttempt(ctx, false)

	snap, err := p.Snapshots.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	outcomes := snap.Metrics["gateway.upstream.outcomes"]
	if len(outcomes) != 1 || outcomes[0].Value != 2 || outcomes[0].Attributes["endpoint"] != "getMyResults" {
		t.Fatalf("upstream outcomes = %+v", outcomes)
	}
	if logins := snap.Metrics["gateway.login.attempts"]; len(logins) != 1 || logins[0].Attributes["success"] != "false" {
		t.Fatalf("login attempts = %+v", logins)
	}
	if active := snap.Metrics["gateway.sessions.active"]; len(active) != 1 || active[0].Value != 2 {
		t.Fatalf("active sessions = %+v", active)
	}
	if snap.CollectedAt.IsZero() {
		t.Fatal("zero collection time")
	}
}

func TestSnapshotReportsHistogramCount(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"), nil)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	snap, err := NewSnapshotter(reader).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	durations := snap.Metrics["gateway.http.duration"]
	if len(durations) != 1 || durations[0].Count != 3 {
		t.Fatalf("http duration = %+v", durations)
	}
}

func TestInitEnabledWritesToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "telemetry")
	p, err := Init(context.Background(), true, dir, "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gateway.log")
	logger, closer, err := NewLogger(path, 0)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
