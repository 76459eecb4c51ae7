// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricOpts contains naming pieces of the exposed metric
type MetricOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
}

// Registry hands out collectors that are registered on creation.
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates a registry that also exports the Go runtime and
// process collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(prometheus.NewGoCollector())
	r.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return &Registry{r}
}

// NewPedanticRegistry creates an empty registry, suitable for tests.
func NewPedanticRegistry() *Registry {
	return &Registry{prometheus.NewPedanticRegistry()}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// StartMetrics adds the metrics handler to a http.ServeMux
func (r *Registry) StartMetrics(mux *http.ServeMux) {
	mux.Handle("/metrics", r.Handler())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// CounterVec creates and registers a prometheus.CounterVec
func (r *Registry) CounterVec(opts MetricOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      help(opts),
	}, labels)
	r.reg.MustRegister(c)
	return c
}

// Gauge creates and registers a prometheus.Gauge
func (r *Registry) Gauge(opts MetricOpts) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      help(opts),
	})
	r.reg.MustRegister(g)
	return g
}

// GaugeVec creates and registers a prometheus.GaugeVec
func (r *Registry) GaugeVec(opts MetricOpts, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      help(opts),
	}, labels)
	r.reg.MustRegister(g)
	return g
}

// Histogram creates and registers a prometheus.Histogram
func (r *Registry) Histogram(opts MetricOpts, buckets []float64) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      help(opts),
		Buckets:   buckets,
	})
	r.reg.MustRegister(h)
	return h
}

func help(opts MetricOpts) string {
	if opts.Help != "" {
		return opts.Help
	}
	return prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
}
