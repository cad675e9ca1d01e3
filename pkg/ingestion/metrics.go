// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds the Prometheus metrics for one pipeline run,
// grounded on the teacher's sync.Once-guarded lazy-init pattern
// (pkg/ingestion/metrics.go) but renamed to the compass_* prefix and
// rebuilt around the walk/parse/resolve/write stages Compass actually has
// in place of the teacher's delta/embedding/batch counters.
type metricsIngestion struct {
	once sync.Once

	filesWalked  prometheus.Gauge
	filesSkipped *prometheus.CounterVec

	symbolsWritten              prometheus.Counter
	rawDependenciesWritten      prometheus.Counter
	fileEdgesTotal              prometheus.Counter
	symbolEdgesTotal            prometheus.Counter
	unresolvedDependenciesTotal prometheus.Counter

	stageDuration *prometheus.HistogramVec
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.filesWalked = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compass_ingestion_files_walked", Help: "Files selected by the most recent walk",
		})
		m.filesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_ingestion_files_skipped_total", Help: "Files excluded during the walk, by reason",
		}, []string{"reason"})

		m.symbolsWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compass_ingestion_symbols_written_total", Help: "Symbols persisted across all runs",
		})
		m.rawDependenciesWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compass_ingestion_raw_dependencies_written_total", Help: "Raw (unresolved) dependencies persisted across all runs",
		})
		m.fileEdgesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compass_ingestion_file_edges_written_total", Help: "File graph edges written across all runs",
		})
		m.symbolEdgesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compass_ingestion_symbol_edges_written_total", Help: "Symbol graph edges written across all runs",
		})
		m.unresolvedDependenciesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compass_ingestion_unresolved_dependencies_total", Help: "Raw dependencies the resolver could not bind to a symbol",
		})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "compass_ingestion_stage_duration_seconds", Help: "Duration of each pipeline stage", Buckets: buckets,
		}, []string{"stage"})

		prometheus.MustRegister(
			m.filesWalked, m.filesSkipped,
			m.symbolsWritten, m.rawDependenciesWritten, m.fileEdgesTotal, m.symbolEdgesTotal, m.unresolvedDependenciesTotal,
			m.stageDuration,
		)
	})
}

// recordWalk, recordWrite and friends are the narrow entry points
// pipeline.go uses instead of reaching into ingMetrics directly, so every
// caller pays for init() exactly once via sync.Once regardless of call
// order.

func recordFilesWalked(n int) {
	ingMetrics.init()
	ingMetrics.filesWalked.Set(float64(n))
}

func recordFilesSkipped(reason string, n int) {
	ingMetrics.init()
	ingMetrics.filesSkipped.WithLabelValues(reason).Add(float64(n))
}

func recordSymbolsWritten(n int)              { ingMetrics.init(); ingMetrics.symbolsWritten.Add(float64(n)) }
func recordRawDependenciesWritten(n int)      { ingMetrics.init(); ingMetrics.rawDependenciesWritten.Add(float64(n)) }
func recordFileEdgesWritten(n int)            { ingMetrics.init(); ingMetrics.fileEdgesTotal.Add(float64(n)) }
func recordSymbolEdgesWritten(n int)          { ingMetrics.init(); ingMetrics.symbolEdgesTotal.Add(float64(n)) }
func recordUnresolvedDependencies(n int)      { ingMetrics.init(); ingMetrics.unresolvedDependenciesTotal.Add(float64(n)) }

// observeStageDuration records how long a named pipeline stage took.
func observeStageDuration(stage string, d time.Duration) {
	ingMetrics.init()
	ingMetrics.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
