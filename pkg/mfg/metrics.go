// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/u-root/mfgpm/pkg/metric"
)

const namespace = "mfg"

type metrics struct {
	powered     prometheus.Gauge
	frequency   prometheus.Gauge
	degraded    prometheus.Gauge
	transitions *prometheus.CounterVec
	teardown    *prometheus.CounterVec
	clockErrors *prometheus.CounterVec
	idleWait    prometheus.Histogram
	voltage     *prometheus.GaugeVec
}

func newMetrics(r *metric.Registry) *metrics {
	return &metrics{
		powered: r.Gauge(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "power",
			Name:      "powered",
			Help:      "1 while the GPU is powered.",
		}),
		frequency: r.Gauge(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "frequency_hz",
			Help:      "Last frequency applied to the main clock.",
		}),
		degraded: r.Gauge(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "degraded",
			Help:      "1 while the mux is left on the sub clock after a failed restore.",
		}),
		transitions: r.CounterVec(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "power",
			Name:      "transitions_total",
		}, []string{"op", "result"}),
		teardown: r.CounterVec(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "power",
			Name:      "teardown_errors_total",
			Help:      "Errors ignored while powering off, by resource class.",
		}, []string{"stage"}),
		clockErrors: r.CounterVec(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "switch_errors_total",
		}, []string{"stage"}),
		idleWait: r.Histogram(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "idle",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the MFG bus to go idle.",
		}, prometheus.ExponentialBuckets(1e-6, 10, 7)),
		voltage: r.GaugeVec(metric.MetricOpts{
			Namespace: namespace,
			Subsystem: "regulator",
			Name:      "voltage_microvolts",
			Help:      "Lower bound last requested from each regulator.",
		}, []string{"regulator"}),
	}
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
