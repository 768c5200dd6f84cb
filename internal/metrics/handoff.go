// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandoffChannelsActive tracks open watcher/collector channels.
	HandoffChannelsActive = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "channels_active",
			Help:      "Number of currently open handoff channels, by role",
		},
		[]string{"role"}, // watcher, collector
	)

	// HandoffBundlesBuffered tracks bundles waiting in the pending-bundle map.
	HandoffBundlesBuffered = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "bundles_buffered",
			Help:      "Number of pending bundles currently buffered awaiting a collector",
		},
	)

	// HandoffBundlesDelivered tracks bundles relayed to a collector.
	HandoffBundlesDelivered = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "bundles_delivered_total",
			Help:      "Total number of bundles delivered to a collector, by delivery path",
		},
		[]string{"path"}, // direct, buffered
	)

	// HandoffBundlesExpired tracks bundles dropped by the TTL sweep.
	HandoffBundlesExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "bundles_expired_total",
			Help:      "Total number of pending bundles removed by the TTL sweep",
		},
	)
)
