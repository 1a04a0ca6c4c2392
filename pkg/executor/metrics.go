// Copyright 2025 The Kube Resource Orchestrator Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	// Register metrics with the global prometheus registry
	metrics.Registry.MustRegister(
		changesTotal,
		handlerBatchDuration,
		handlerPanicsTotal,
	)
}

var (
	// changesTotal counts the executed changes per operation and status.
	changesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_changes_total",
			Help: "Total number of changes executed per operation and status",
		},
		[]string{"operation", "status"},
	)
	handlerBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconciler_handler_batch_duration_seconds",
			Help:    "Duration of the batches applied by each handler",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)
	handlerPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_handler_panics_total",
			Help: "Total number of handler batches aborted by a panic",
		},
		[]string{"handler"},
	)
)
