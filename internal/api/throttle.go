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
	"sync"
	"time"
)

// Throttle is a process-local, fixed-window rate limiter keyed by the
// caller's public key. Requests carrying no key are never throttled by
// it; the signature cost and token semantics are the abuse defence for
// the unauthenticated pairing endpoints.
type Throttle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewThrottle builds a Throttle allowing limit requests per window, per key.
func NewThrottle(limit int, window time.Duration) *Throttle {
	return &Throttle{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed, incrementing its counter.
// A resetAt in the past (including the zero value on first use) starts
// a fresh window.
func (t *Throttle) Allow(key string) bool {
	if key == "" {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok || !b.resetAt.After(now) {
		b = &bucket{count: 0, resetAt: now.Add(t.window)}
		t.buckets[key] = b
	}

	b.count++
	return b.count <= t.limit
}

// Sweep discards buckets whose window has already elapsed, bounding
// map growth across many distinct keys over the relay's lifetime.
func (t *Throttle) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, b := range t.buckets {
		if !b.resetAt.After(now) {
			delete(t.buckets, key)
		}
	}
}
