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

package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/relaymesh/relayd/internal/apierr"
	"github.com/relaymesh/relayd/internal/logger"
	"github.com/relaymesh/relayd/internal/metrics"
)

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRoute wraps a handler with panic recovery, the uniform metrics
// label, and request-duration observation. route is the label used by
// internal/metrics, not necessarily the literal URL path.
func (s *Server) withRoute(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rv := recover(); rv != nil {
				s.log.Error("panic in handler",
					logger.String("route", route),
					logger.Any("recovered", rv),
					logger.String("stack", string(debug.Stack())),
				)
				rec.status = http.StatusInternalServerError
				apierr.WriteJSON(rec, apierr.Internal(nil))
			}
			metrics.RequestsTotal.WithLabelValues(route, statusLabel(rec.status)).Inc()
			metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}()

		next(rec, r)
	}
}

// withThrottle rejects requests over the per-key cap before the
// wrapped handler (and, for signed routes, before signature
// verification) ever runs.
func (s *Server) withThrottle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		if key != "" && !s.throttle.Allow(key) {
			metrics.ThrottleRejections.Inc()
			apierr.WriteThrottled(w)
			return
		}
		next(w, r)
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
