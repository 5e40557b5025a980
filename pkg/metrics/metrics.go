/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package metrics exports DMA transfer counters in the Prometheus format
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

const Namespace = "gospec"

type Metrics struct {
	registry    *prometheus.Registry
	configured  *prometheus.CounterVec
	transfers   *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	descriptors *prometheus.HistogramVec
}

var _ spec.Observer = &Metrics{}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		configured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bringups_total",
			Help:      "Number of bridge bring-up sequences run",
		}, []string{"card"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "dma",
			Name:      "transfers_total",
			Help:      "Number of DMA transfers by direction and result",
		}, []string{"card", "direction", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "dma",
			Name:      "bytes_total",
			Help:      "Bytes moved by completed DMA transfers",
		}, []string{"card", "direction"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "dma",
			Name:      "transfer_duration_seconds",
			Help:      "Duration of DMA transfers from status check to release of buffers",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"card", "direction"}),
		descriptors: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "dma",
			Name:      "chain_descriptors",
			Help:      "Length of installed descriptor chains",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"card"}),
	}
	m.registry.MustRegister(m.configured, m.transfers, m.bytes, m.duration, m.descriptors)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorLog: log.Std()})
}

func (m *Metrics) Configured(card uint, _ []spec.RegValue) {
	m.configured.WithLabelValues(cardLabel(card)).Inc()
}

func (m *Metrics) Transferred(rec spec.TransferRecord) {
	card := cardLabel(rec.Card)
	m.transfers.WithLabelValues(card, rec.Direction, rec.Result).Inc()
	m.duration.WithLabelValues(card, rec.Direction).Observe(rec.Duration.Seconds())
	if rec.Result == spec.ResultCompleted.String() {
		m.bytes.WithLabelValues(card, rec.Direction).Add(float64(rec.Bytes))
	}
	if rec.Descriptors > 0 {
		m.descriptors.WithLabelValues(card).Observe(float64(rec.Descriptors))
	}
}

func cardLabel(card uint) string {
	return strconv.FormatUint(uint64(card), 10)
}
