package prometheus

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type stateSource interface {
	State() goSession.Snapshot
}

// PrometheusExporter renders session metrics in Prometheus text exposition
// format and doubles as a [prometheus.Collector]. A source that also reports
// its session Snapshot, such as a Manager, gets session state gauges.
type PrometheusExporter struct {
	source metricsSource
	state  stateSource
	now    func() time.Time

	counterDescs   []*prometheus.Desc
	histogramDescs []*prometheus.Desc
	droppedDesc    *prometheus.Desc

	authenticatedDesc *prometheus.Desc
	warningDesc       *prometheus.Desc
	levelDesc         *prometheus.Desc
	expiresInDesc     *prometheus.Desc
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [goSession.Manager].
func NewPrometheusExporter(m *goSession.Manager) *PrometheusExporter {
	return NewPrometheusExporterFromSource(m)
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// value exposing MetricsSnapshot and AuditDropped.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:         source,
		counterDescs:   make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histogramDescs: make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		droppedDesc: prometheus.NewDesc(
			internaldefs.AuditDroppedName,
			"Dropped audit events due to dispatcher backpressure.",
			nil, nil,
		),
	}
	for i, def := range internaldefs.CounterDefs {
		p.counterDescs[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		p.histogramDescs[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	if state, ok := source.(stateSource); ok {
		p.state = state
		p.now = time.Now
		p.authenticatedDesc = prometheus.NewDesc(internaldefs.SessionAuthenticatedName, internaldefs.SessionAuthenticatedHelp, nil, nil)
		p.warningDesc = prometheus.NewDesc(internaldefs.SessionWarningName, internaldefs.SessionWarningHelp, nil, nil)
		p.levelDesc = prometheus.NewDesc(internaldefs.SessionAccessLevelName, internaldefs.SessionAccessLevelHelp,
			[]string{internaldefs.AccessLevelLabel}, nil)
		p.expiresInDesc = prometheus.NewDesc(internaldefs.SessionExpiresInName, internaldefs.SessionExpiresInHelp, nil, nil)
	}
	return p
}

// Handler returns an http.Handler that serves the hand-rendered exposition.
// Use [PrometheusExporter.RegistryHandler] to serve through client_golang.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// RegistryHandler registers the exporter on reg and returns a promhttp
// handler for it. A nil reg gets a fresh private registry.
func (p *PrometheusExporter) RegistryHandler(reg *prometheus.Registry) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if err := reg.Register(p); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// Describe implements [prometheus.Collector].
func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range p.counterDescs {
		ch <- d
	}
	for _, d := range p.histogramDescs {
		ch <- d
	}
	ch <- p.droppedDesc
	if p.state != nil {
		ch <- p.authenticatedDesc
		ch <- p.warningDesc
		ch <- p.levelDesc
		ch <- p.expiresInDesc
	}
}

// Collect implements [prometheus.Collector].
func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if p == nil || p.source == nil {
		return
	}
	snapshot := p.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(p.counterDescs[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, upper := range internaldefs.HistogramUpperBounds {
			buckets[upper] = cumulative[j]
		}
		// Sum is not tracked by the core histogram.
		ch <- prometheus.MustNewConstHistogram(p.histogramDescs[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(p.droppedDesc, prometheus.CounterValue, float64(p.source.AuditDropped()))

	if p.state == nil {
		return
	}
	g := internaldefs.SessionGaugesFrom(p.state.State(), p.now())
	ch <- prometheus.MustNewConstMetric(p.authenticatedDesc, prometheus.GaugeValue, float64(g.Authenticated))
	ch <- prometheus.MustNewConstMetric(p.warningDesc, prometheus.GaugeValue, float64(g.Warning))
	ch <- prometheus.MustNewConstMetric(p.expiresInDesc, prometheus.GaugeValue, g.ExpiresIn)
	for _, level := range internaldefs.AccessLevels {
		ch <- prometheus.MustNewConstMetric(p.levelDesc, prometheus.GaugeValue, float64(g.LevelValue(level)), string(level))
	}
}

// Render writes the current metrics in Prometheus text exposition format.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeCounter(&b, internaldefs.AuditDroppedName, "Dropped audit events due to dispatcher backpressure.", dropped)

	if p.state != nil {
		g := internaldefs.SessionGaugesFrom(p.state.State(), p.now())
		writeGauge(&b, internaldefs.SessionAuthenticatedName, internaldefs.SessionAuthenticatedHelp, "", float64(g.Authenticated))
		writeGauge(&b, internaldefs.SessionWarningName, internaldefs.SessionWarningHelp, "", float64(g.Warning))
		writeGauge(&b, internaldefs.SessionExpiresInName, internaldefs.SessionExpiresInHelp, "", g.ExpiresIn)
		writeHeader(&b, internaldefs.SessionAccessLevelName, internaldefs.SessionAccessLevelHelp, "gauge")
		for _, level := range internaldefs.AccessLevels {
			writeSample(&b, internaldefs.SessionAccessLevelName,
				internaldefs.AccessLevelLabel+"=\""+string(level)+"\"", float64(g.LevelValue(level)))
		}
	}

	return b.String()
}

func writeGauge(b *strings.Builder, name, help, labels string, value float64) {
	writeHeader(b, name, help, "gauge")
	writeSample(b, name, labels, value)
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels string, value float64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" histogram\n")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
