// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package health

import (
	"context"
	"errors"
)

// Pinger is satisfied by internal/store.Store; kept as its own narrow
// interface here so pkg/health never imports the store package.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthCheck reports the persistence backend's reachability. A
// nil pinger (misconfigured wiring) is reported as unhealthy rather
// than panicking.
func StoreHealthCheck(pinger Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if pinger == nil {
			return errors.New("store not configured")
		}
		return pinger.Ping(ctx)
	}
}

// DatabaseHealthCheck adapts a raw ping function (e.g. *sql.DB.PingContext)
// into a CheckFunc.
func DatabaseHealthCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if ping == nil {
			return errors.New("database not configured")
		}
		return ping(ctx)
	}
}

// ServiceHealthCheck probes a single external URL with a caller-supplied
// prober, for optional downstream collaborators like a push transport.
func ServiceHealthCheck(url string, probe func(ctx context.Context, url string) error) CheckFunc {
	return func(ctx context.Context) error {
		if probe == nil {
			return errors.New("service probe not configured")
		}
		return probe(ctx, url)
	}
}
