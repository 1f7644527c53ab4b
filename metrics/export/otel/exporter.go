package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Constructor errors.
var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// stateSource is implemented by *goSession.Manager. Sources without it
// export counters only.
type stateSource interface {
	State() goSession.Snapshot
}

type observedCounter struct {
	id         goSession.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      goSession.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// sessionGauges mirror the live session: who is signed in, at what level,
// and how long the access token has left.
type sessionGauges struct {
	state         stateSource
	authenticated metric.Int64ObservableGauge
	warning       metric.Int64ObservableGauge
	level         metric.Int64ObservableGauge
	levelAttrs    []metric.ObserveOption
	expiresIn     metric.Float64ObservableGauge
}

// OTelExporter publishes a manager's counters and session state as
// observable instruments on a caller-supplied meter.
type OTelExporter struct {
	source       metricsSource
	now          func() time.Time
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	session      *sessionGauges
}

// NewOTelExporter registers instruments for m on meter.
func NewOTelExporter(meter metric.Meter, m *goSession.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m)
}

// NewOTelExporterFromSource registers instruments for source. Session state
// gauges are added when source also reports a session Snapshot.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:     source,
		now:        time.Now,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	var observables []metric.Observable
	add := func(o metric.Observable) { observables = append(observables, o) }

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		add(ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative refresh latency bucket."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			add(ins)
		}
		countIns, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Refreshes timed."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
		}
		h.count = countIns
		add(countIns)
		e.histograms = append(e.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription("Session audit events lost to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = auditDropped
	add(auditDropped)

	if state, ok := source.(stateSource); ok {
		g, err := newSessionGauges(meter, state)
		if err != nil {
			return nil, err
		}
		e.session = g
		add(g.authenticated)
		add(g.warning)
		add(g.level)
		add(g.expiresIn)
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	e.registration = registration
	return e, nil
}

func newSessionGauges(meter metric.Meter, state stateSource) (*sessionGauges, error) {
	g := &sessionGauges{state: state}
	var err error
	if g.authenticated, err = meter.Int64ObservableGauge(internaldefs.SessionAuthenticatedName,
		metric.WithDescription(internaldefs.SessionAuthenticatedHelp)); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", internaldefs.SessionAuthenticatedName, err)
	}
	if g.warning, err = meter.Int64ObservableGauge(internaldefs.SessionWarningName,
		metric.WithDescription(internaldefs.SessionWarningHelp)); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", internaldefs.SessionWarningName, err)
	}
	if g.level, err = meter.Int64ObservableGauge(internaldefs.SessionAccessLevelName,
		metric.WithDescription(internaldefs.SessionAccessLevelHelp)); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", internaldefs.SessionAccessLevelName, err)
	}
	if g.expiresIn, err = meter.Float64ObservableGauge(internaldefs.SessionExpiresInName,
		metric.WithDescription(internaldefs.SessionExpiresInHelp), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", internaldefs.SessionExpiresInName, err)
	}
	for _, level := range internaldefs.AccessLevels {
		g.levelAttrs = append(g.levelAttrs,
			metric.WithAttributes(attribute.String(internaldefs.AccessLevelLabel, string(level))))
	}
	return g, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			o.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	if s := e.session; s != nil {
		g := internaldefs.SessionGaugesFrom(s.state.State(), e.now())
		o.ObserveInt64(s.authenticated, g.Authenticated)
		o.ObserveInt64(s.warning, g.Warning)
		o.ObserveFloat64(s.expiresIn, g.ExpiresIn)
		for i, level := range internaldefs.AccessLevels {
			o.ObserveInt64(s.level, g.LevelValue(level), s.levelAttrs[i])
		}
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
