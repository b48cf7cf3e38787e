package detecs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type compositeObserver struct {
	observers []SchedulerObserver
}

func (c compositeObserver) PhaseCompleted(summary PhaseSummary) {
	for _, observer := range c.observers {
		observer.PhaseCompleted(summary)
	}
}

func (c compositeObserver) BarrierCompleted(summary BarrierSummary) {
	for _, observer := range c.observers {
		observer.BarrierCompleted(summary)
	}
}

type loggingObserver struct {
	logger Logger
	format ObservationLogFormat
}

func newLoggingObserver(logger Logger, format ObservationLogFormat) SchedulerObserver {
	if logger == nil {
		return noopObserver{}
	}
	if format != ObservationLogFormatKeyValue {
		format = ObservationLogFormatJSON
	}
	return loggingObserver{logger: logger, format: format}
}

func (o loggingObserver) PhaseCompleted(summary PhaseSummary) {
	switch o.format {
	case ObservationLogFormatKeyValue:
		args := []any{
			"tick", summary.Tick,
			"duration", summary.Duration,
			"systems_total", summary.SystemsTotal,
			"systems_executed", summary.SystemsExecuted,
		}
		if summary.Error != nil {
			args = append(args, "error", summary.Error.Error())
		}
		o.logger.With("phase", summary.Phase.String()).Info("phase summary", args...)
	default:
		payload := map[string]any{
			"phase":            summary.Phase.String(),
			"tick":             summary.Tick,
			"duration_ms":      float64(summary.Duration) / float64(time.Millisecond),
			"systems_total":    summary.SystemsTotal,
			"systems_executed": summary.SystemsExecuted,
		}
		if summary.Error != nil {
			payload["error"] = summary.Error.Error()
		}
		o.logJSON(payload)
	}
}

func (o loggingObserver) BarrierCompleted(summary BarrierSummary) {
	switch o.format {
	case ObservationLogFormatKeyValue:
		o.logger.Info("barrier summary",
			"tick", summary.Tick,
			"frame", summary.Frame,
			"buffers", summary.Buffers,
			"commands_applied", summary.CommandsApplied,
			"deltas_dispatched", summary.DeltasDispatched,
			"external_drained", summary.ExternalDrained,
		)
	default:
		o.logJSON(map[string]any{
			"barrier":           true,
			"tick":              summary.Tick,
			"frame":             summary.Frame,
			"buffers":           summary.Buffers,
			"commands_applied":  summary.CommandsApplied,
			"deltas_dispatched": summary.DeltasDispatched,
			"external_drained":  summary.ExternalDrained,
		})
	}
}

func (o loggingObserver) logJSON(payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.Error("summary marshal error", "err", err)
		return
	}
	o.logger.Info(string(data))
}

type prometheusObserver struct {
	collector PrometheusCollector
}

func (o prometheusObserver) PhaseCompleted(summary PhaseSummary) {
	o.collector.ObservePhase(summary)
}

func (o prometheusObserver) BarrierCompleted(summary BarrierSummary) {
	o.collector.ObserveBarrier(summary)
}

type sigNozObserver struct {
	exporter SigNozExporter
}

func (o sigNozObserver) PhaseCompleted(summary PhaseSummary) {
	o.exporter.ExportPhase(summary)
}

func (o sigNozObserver) BarrierCompleted(summary BarrierSummary) {
	o.exporter.ExportBarrier(summary)
}

func buildObserverChain(logger Logger, settings ObservationSettings) SchedulerObserver {
	var observers []SchedulerObserver

	if settings.Observer != nil {
		observers = append(observers, settings.Observer)
	}

	if settings.EnableStructuredLogging {
		structuredLogger := settings.StructuredLogger
		if structuredLogger == nil {
			structuredLogger = logger
		}
		observers = append(observers, newLoggingObserver(structuredLogger, settings.LoggingFormat))
	}

	if settings.EnablePrometheus {
		collector := settings.PrometheusCollector
		if collector == nil {
			collector = NewPrometheusPhaseCollector(settings.PrometheusOptions)
		}
		observers = append(observers, prometheusObserver{collector: collector})
	}

	if settings.EnableSigNoz {
		exporter := settings.SigNozExporter
		if exporter == nil {
			exporter = NewSigNozSpanExporter(settings.SigNozOptions)
		}
		observers = append(observers, sigNozObserver{exporter: exporter})
	}

	if len(observers) == 0 {
		return noopObserver{}
	}
	if len(observers) == 1 {
		return observers[0]
	}
	return compositeObserver{observers: observers}
}

// PrometheusPhaseCollector aggregates phase and barrier summaries into
// Prometheus text exposition format.
type PrometheusPhaseCollector struct {
	options *PrometheusCollectorOptions
	mu      sync.Mutex
	samples map[string]*phaseSample
	barrier barrierSample
}

type phaseSample struct {
	durationSum   float64
	durationCount float64
	buckets       []float64
	executed      float64
	errors        float64
}

type barrierSample struct {
	flushes  float64
	commands float64
	deltas   float64
	external float64
}

func NewPrometheusPhaseCollector(opts *PrometheusCollectorOptions) *PrometheusPhaseCollector {
	if opts == nil {
		opts = &PrometheusCollectorOptions{}
	}
	return &PrometheusPhaseCollector{
		options: opts,
		samples: make(map[string]*phaseSample),
	}
}

func (c *PrometheusPhaseCollector) ObservePhase(summary PhaseSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := summary.Phase.String()
	sample, ok := c.samples[key]
	if !ok {
		sample = &phaseSample{}
		if buckets := c.options.DurationBuckets; len(buckets) > 0 {
			sample.buckets = make([]float64, len(buckets))
		}
		c.samples[key] = sample
	}
	durSeconds := summary.Duration.Seconds()
	sample.durationSum += durSeconds
	sample.durationCount++
	for i := range sample.buckets {
		if durSeconds <= c.options.DurationBuckets[i].Seconds() {
			sample.buckets[i]++
		}
	}
	sample.executed += float64(summary.SystemsExecuted)
	if summary.Error != nil {
		sample.errors++
	}

	if writer := c.options.Writer; writer != nil {
		_ = c.writeMetricsLocked(writer)
	}
}

func (c *PrometheusPhaseCollector) ObserveBarrier(summary BarrierSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.barrier.flushes++
	c.barrier.commands += float64(summary.CommandsApplied)
	c.barrier.deltas += float64(summary.DeltasDispatched)
	c.barrier.external += float64(summary.ExternalDrained)
}

func (c *PrometheusPhaseCollector) WriteMetrics(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeMetricsLocked(w)
}

func (c *PrometheusPhaseCollector) writeMetricsLocked(w io.Writer) error {
	if w == nil {
		return nil
	}
	var buf bytes.Buffer

	keys := make([]string, 0, len(c.samples))
	for key := range c.samples {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buf.WriteString("# HELP detecs_phase_duration_seconds Phase execution duration.\n")
	buf.WriteString("# TYPE detecs_phase_duration_seconds summary\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("phase=%q", key)
		fmt.Fprintf(&buf, "detecs_phase_duration_seconds_sum{%s} %f\n", labels, sample.durationSum)
		fmt.Fprintf(&buf, "detecs_phase_duration_seconds_count{%s} %f\n", labels, sample.durationCount)
		for i, bucket := range sample.buckets {
			le := c.options.DurationBuckets[i].Seconds()
			fmt.Fprintf(&buf, "detecs_phase_duration_seconds_bucket{%s,le=\"%.3f\"} %f\n", labels, le, bucket)
		}
	}

	buf.WriteString("# HELP detecs_phase_systems_executed_total Systems executed per phase.\n")
	buf.WriteString("# TYPE detecs_phase_systems_executed_total counter\n")
	for _, key := range keys {
		fmt.Fprintf(&buf, "detecs_phase_systems_executed_total{phase=%q} %f\n", key, c.samples[key].executed)
	}

	buf.WriteString("# HELP detecs_phase_errors_total Phase error count.\n")
	buf.WriteString("# TYPE detecs_phase_errors_total counter\n")
	for _, key := range keys {
		fmt.Fprintf(&buf, "detecs_phase_errors_total{phase=%q} %f\n", key, c.samples[key].errors)
	}

	buf.WriteString("# HELP detecs_barrier_commands_applied_total Commands applied at barriers.\n")
	buf.WriteString("# TYPE detecs_barrier_commands_applied_total counter\n")
	fmt.Fprintf(&buf, "detecs_barrier_commands_applied_total %f\n", c.barrier.commands)
	buf.WriteString("# HELP detecs_barrier_deltas_dispatched_total Deltas dispatched at barriers.\n")
	buf.WriteString("# TYPE detecs_barrier_deltas_dispatched_total counter\n")
	fmt.Fprintf(&buf, "detecs_barrier_deltas_dispatched_total %f\n", c.barrier.deltas)
	buf.WriteString("# HELP detecs_barrier_external_drained_total External commands drained at barriers.\n")
	buf.WriteString("# TYPE detecs_barrier_external_drained_total counter\n")
	fmt.Fprintf(&buf, "detecs_barrier_external_drained_total %f\n", c.barrier.external)

	_, err := w.Write(buf.Bytes())
	return err
}

// SigNozSpanExporter emits summaries as span-shaped JSON lines.
type SigNozSpanExporter struct {
	opts *SigNozOptions
	mu   sync.Mutex
}

func NewSigNozSpanExporter(opts *SigNozOptions) *SigNozSpanExporter {
	if opts == nil {
		opts = &SigNozOptions{}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "detecs-scheduler"
	}
	return &SigNozSpanExporter{opts: opts}
}

func (e *SigNozSpanExporter) ExportPhase(summary PhaseSummary) {
	span := map[string]any{
		"service_name": e.opts.ServiceName,
		"name":         fmt.Sprintf("phase:%s", summary.Phase),
		"timestamp":    time.Now().UnixNano(),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"tick":             summary.Tick,
			"systems_total":    summary.SystemsTotal,
			"systems_executed": summary.SystemsExecuted,
		},
	}
	if summary.Error != nil {
		span["error"] = summary.Error.Error()
	}
	e.write(span)
}

func (e *SigNozSpanExporter) ExportBarrier(summary BarrierSummary) {
	e.write(map[string]any{
		"service_name": e.opts.ServiceName,
		"name":         "barrier",
		"timestamp":    time.Now().UnixNano(),
		"attributes": map[string]any{
			"tick":              summary.Tick,
			"frame":             summary.Frame,
			"buffers":           summary.Buffers,
			"commands_applied":  summary.CommandsApplied,
			"deltas_dispatched": summary.DeltasDispatched,
			"external_drained":  summary.ExternalDrained,
		},
	})
}

func (e *SigNozSpanExporter) write(span map[string]any) {
	if e.opts.Writer == nil {
		return
	}
	payload, err := json.Marshal(span)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.opts.Writer.Write(append(payload, '\n'))
}

var (
	_ PrometheusCollector = (*PrometheusPhaseCollector)(nil)
	_ SigNozExporter      = (*SigNozSpanExporter)(nil)
)
