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
	// EntriesUploaded tracks accepted uploads.
	EntriesUploaded = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "uploaded_total",
			Help:      "Total number of entries accepted by upload",
		},
	)

	// EntriesRateLimited tracks uploads rejected by the per-day cap.
	EntriesRateLimited = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "rate_limited_total",
			Help:      "Total number of uploads rejected by the per-day rate limit",
		},
	)

	// EntriesFetched tracks undelivered-entry fetches.
	EntriesFetched = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "fetched_total",
			Help:      "Total number of entries returned by fetchUndelivered",
		},
	)

	// EntriesAcked tracks deletions via ack.
	EntriesAcked = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "acked_total",
			Help:      "Total number of entries deleted via ack",
		},
	)
)
