package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func populated() fakeSource {
	return fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess:     7,
				goSession.MetricRefreshCoalesced: 4,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	out := NewPrometheusExporterFromSource(populated()).Render()

	for _, want := range []string{
		"gosession_login_success_total 7",
		"gosession_refresh_coalesced_total 4",
		"gosession_refresh_latency_seconds_bucket{le=\"0.005\"} 1",
		"gosession_refresh_latency_seconds_bucket{le=\"+Inf\"} 36",
		"gosession_refresh_latency_seconds_count 36",
		"gosession_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(populated())

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCollectorGathers(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewPrometheusExporterFromSource(populated()))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 21 {
		t.Fatalf("expected 21 metric families, got %d", len(families))
	}
	byName := make(map[string]float64)
	var hist uint64
	for _, mf := range families {
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			byName[mf.GetName()] = c.GetValue()
		}
		if h := m.GetHistogram(); h != nil && mf.GetName() == "gosession_refresh_latency_seconds" {
			hist = h.GetSampleCount()
		}
	}
	if byName["gosession_login_success_total"] != 7 || byName["gosession_audit_dropped_total"] != 2 {
		t.Fatalf("unexpected counter values: %v", byName)
	}
	if hist != 36 {
		t.Fatalf("expected 36 histogram samples, got %d", hist)
	}
}

func TestRegistryHandlerServesCollector(t *testing.T) {
	exp := NewPrometheusExporterFromSource(populated())
	reg := prometheus.NewRegistry()

	h, err := exp.RegistryHandler(reg)
	if err != nil {
		t.Fatalf("RegistryHandler: %v", err)
	}
	if _, err := exp.RegistryHandler(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	srv := httptest.NewServer(h)
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "gosession_refresh_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected histogram in registry output, got:\n%s", body)
	}
}

func TestManagerBackedExporter(t *testing.T) {
	m, err := goSession.New().
		WithClient(nopClient{}).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	exp := NewPrometheusExporter(m)
	out := exp.Render()
	for _, want := range []string{
		"gosession_logout_total 0",
		"gosession_session_authenticated 0",
		`gosession_session_access_level{level="NO_ACCESS"} 1`,
		`gosession_session_access_level{level="FULL"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q from a fresh manager, got:\n%s", want, out)
		}
	}
}

type statefulSource struct {
	fakeSource
	snap goSession.Snapshot
}

func (s statefulSource) State() goSession.Snapshot { return s.snap }

func TestCollectorExportsSessionState(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	exp := NewPrometheusExporterFromSource(statefulSource{
		fakeSource: populated(),
		snap: goSession.Snapshot{
			IsAuthenticated: true,
			AccessLevel:     goSession.AccessFull,
			TokenExpiresAt:  now.Add(2 * time.Minute),
		},
	})
	exp.now = func() time.Time { return now }

	reg := prometheus.NewRegistry()
	reg.MustRegister(exp)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 25 {
		t.Fatalf("expected 25 metric families, got %d", len(families))
	}

	levels := map[string]float64{}
	gauges := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			g := m.GetGauge()
			if g == nil {
				continue
			}
			if mf.GetName() == "gosession_session_access_level" {
				levels[m.GetLabel()[0].GetValue()] = g.GetValue()
				continue
			}
			gauges[mf.GetName()] = g.GetValue()
		}
	}
	if gauges["gosession_session_authenticated"] != 1 || gauges["gosession_session_expires_in_seconds"] != 120 {
		t.Fatalf("unexpected session gauges %v", gauges)
	}
	if len(levels) != 4 || levels["FULL"] != 1 || levels["LIMITED"] != 0 {
		t.Fatalf("unexpected access level series %v", levels)
	}

	if out := exp.Render(); !strings.Contains(out, "gosession_session_expires_in_seconds 120") {
		t.Fatalf("expected expiry gauge in text output, got:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(populated())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

type nopClient struct{}

func (nopClient) Login(context.Context, string, string) (*goSession.LoginResponse, error) {
	return nil, errors.New("offline")
}
func (nopClient) Register(context.Context, goSession.RegisterRequest) (*goSession.RegisterResponse, error) {
	return nil, errors.New("offline")
}
func (nopClient) RefreshToken(context.Context, string) (*goSession.RefreshResponse, error) {
	return nil, errors.New("offline")
}
func (nopClient) Logout(context.Context, string) error { return nil }
func (nopClient) GetProfile(context.Context, string) (*goSession.User, error) {
	return nil, errors.New("offline")
}
func (nopClient) GetAccountStatus(context.Context, string) (*goSession.AccountStatusInfo, error) {
	return nil, errors.New("offline")
}
