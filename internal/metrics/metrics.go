// Package metrics collects merge and fetch metrics on a private registry
// that can be dumped in the Prometheus text format.
package metrics

import (
	"bytes"
	"time"

	md "github.com/nao1215/markdown"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/records"
)

const namespace = "rirstats"

type definition struct {
	Name string
	Help string
	Type string
}

// Metrics holds the collectors. It implements resolver.Observer,
// merger.Recorder and retriever.Observer.
type Metrics struct {
	registry *prometheus.Registry
	defs     []definition

	conflicts  *prometheus.CounterVec
	recordsIn  *prometheus.GaugeVec
	recordsOut *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	fetches    *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.conflicts = m.counterVec(prometheus.CounterOpts{
		Name: "conflicts_total",
		Help: "Number of overlapping claims resolved, per kind",
	}, "kind")
	m.recordsIn = m.gaugeVec(prometheus.GaugeOpts{
		Name: "records_in",
		Help: "Number of records fed to the last merge, per kind",
	}, "kind")
	m.recordsOut = m.gaugeVec(prometheus.GaugeOpts{
		Name: "records_out",
		Help: "Number of records produced by the last merge, per kind",
	}, "kind")
	m.duration = m.histogramVec(prometheus.HistogramOpts{
		Name:    "merge_duration_seconds",
		Help:    "Time spent merging one kind",
		Buckets: []float64{.001, .01, .1, 1, 10, 100},
	}, "kind")
	m.fetches = m.counterVec(prometheus.CounterOpts{
		Name: "fetch_total",
		Help: "Number of source fetches, per source and result",
	}, "source", "result")
	return m
}

func (m *Metrics) track(name, help, typ string) {
	m.defs = append(m.defs, definition{Name: namespace + "_" + name, Help: help, Type: typ})
}

func (m *Metrics) counterVec(opts prometheus.CounterOpts, labels ...string) *prometheus.CounterVec {
	opts.Namespace = namespace
	m.track(opts.Name, opts.Help, "counter")
	c := prometheus.NewCounterVec(opts, labels)
	m.registry.MustRegister(c)
	return c
}

func (m *Metrics) gaugeVec(opts prometheus.GaugeOpts, labels ...string) *prometheus.GaugeVec {
	opts.Namespace = namespace
	m.track(opts.Name, opts.Help, "gauge")
	g := prometheus.NewGaugeVec(opts, labels)
	m.registry.MustRegister(g)
	return g
}

func (m *Metrics) histogramVec(opts prometheus.HistogramOpts, labels ...string) *prometheus.HistogramVec {
	opts.Namespace = namespace
	m.track(opts.Name, opts.Help, "histogram")
	h := prometheus.NewHistogramVec(opts, labels)
	m.registry.MustRegister(h)
	return h
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Conflict counts one resolved conflict.
func (m *Metrics) Conflict(kind records.Kind) {
	m.conflicts.WithLabelValues(kind.String()).Inc()
}

// ObserveMerge records the size and duration of one kind's merge.
func (m *Metrics) ObserveMerge(kind records.Kind, in, out int, elapsed time.Duration) {
	k := kind.String()
	m.recordsIn.WithLabelValues(k).Set(float64(in))
	m.recordsOut.WithLabelValues(k).Set(float64(out))
	m.duration.WithLabelValues(k).Observe(elapsed.Seconds())
}

// ObserveFetch counts one fetch outcome.
func (m *Metrics) ObserveFetch(source, result string) {
	m.fetches.WithLabelValues(source, result).Inc()
}

// WriteTextfile writes the current values to path in the text exposition
// format, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.WrapIO("write", path, prometheus.WriteToTextfile(path, m.registry))
}

// Documentation describes every metric as markdown.
func (m *Metrics) Documentation() (string, error) {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	for _, d := range m.defs {
		doc.H3(d.Name).LF()
		doc.Table(md.TableSet{
			Header: []string{"Name", d.Name},
			Rows: [][]string{
				{"Description", d.Help},
				{"Type", d.Type},
			},
		}).LF()
	}
	if err := doc.Build(); err != nil {
		return "", errors.NewResourceError("render", "metrics documentation", "", err)
	}
	return buf.String(), nil
}
