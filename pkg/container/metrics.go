// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package container

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NVIDIA/addon-container/pkg/addon"
	"github.com/NVIDIA/addon-container/pkg/registry"
)

var (
	addonsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "addon_container_addons",
			Help: "Number of registered addons by status",
		},
		[]string{"status"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "addon_container_reconcile_duration_seconds",
			Help:    "Duration of one reconciliation tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_container_transitions_total",
			Help: "Total number of addon status transitions by target status",
		},
		[]string{"to"},
	)

	loadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addon_container_load_failures_total",
			Help: "Total number of addon load failures",
		},
	)

	startingInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "addon_container_starting_inflight",
			Help: "Current number of addons in their start step",
		},
	)

	// Panic recovery metrics
	workerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addon_container_worker_panics_total",
			Help: "Total number of panics recovered in addon workers",
		},
	)
)

func recordStatusCounts(reg *registry.Registry) {
	for status, n := range reg.CountByStatus() {
		addonsByStatus.WithLabelValues(status.String()).Set(float64(n))
	}
}

func recordTransition(to addon.Status) {
	transitionsTotal.WithLabelValues(to.String()).Inc()
}
