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

// Package api is the relay's HTTP front door: routing, the per-key
// throttle, the uniform error envelope, and websocket upgrade dispatch
// to internal/handoff.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/relaymesh/relayd/internal/entry"
	"github.com/relaymesh/relayd/internal/handoff"
	"github.com/relaymesh/relayd/internal/logger"
	"github.com/relaymesh/relayd/internal/pairing"
	"github.com/relaymesh/relayd/internal/sigverify"
	"github.com/relaymesh/relayd/internal/store"
)

// ThrottleLimit and ThrottleWindowDuration are the spec-fixed per-key cap.
const (
	ThrottleLimit          = 60
	ThrottleWindowDuration = 60 * time.Second
)

// Server holds the front door's collaborators and builds the routed
// http.Handler.
type Server struct {
	pairing  *pairing.Service
	entry    *entry.Service
	handoff  *handoff.Service
	verifier *sigverify.Verifier
	users    store.UserStore
	throttle *Throttle
	log      logger.Logger
}

// New builds a Server. throttle may be supplied by the caller (for
// tests that want to control its clock); a nil throttle gets the
// spec-fixed 60-requests-per-60-seconds default.
func New(pairingSvc *pairing.Service, entrySvc *entry.Service, handoffSvc *handoff.Service, verifier *sigverify.Verifier, users store.UserStore, throttle *Throttle, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if throttle == nil {
		throttle = NewThrottle(ThrottleLimit, ThrottleWindowDuration)
	}
	return &Server{
		pairing:  pairingSvc,
		entry:    entrySvc,
		handoff:  handoffSvc,
		verifier: verifier,
		users:    users,
		throttle: throttle,
		log:      log,
	}
}

// Handler builds the routed mux. Call once at startup.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/pairs/initiate", s.withThrottle(s.withRoute("pairs_initiate", s.handleInitiate)))
	mux.HandleFunc("POST /api/pairs/join", s.withThrottle(s.withRoute("pairs_join", s.handleJoin)))
	mux.HandleFunc("GET /api/pairs/watch", s.withRoute("pairs_watch", s.handleWatch))
	mux.HandleFunc("GET /api/pairs/status", s.withThrottle(s.withRoute("pairs_status", s.handleStatus)))
	mux.HandleFunc("POST /api/entries", s.withThrottle(s.withRoute("entries_upload", s.handleUpload)))
	mux.HandleFunc("GET /api/entries", s.withThrottle(s.withRoute("entries_fetch", s.handleFetch)))
	mux.HandleFunc("POST /api/entries/ack", s.withThrottle(s.withRoute("entries_ack", s.handleAck)))
	mux.HandleFunc("POST /api/push/subscribe", s.withThrottle(s.withRoute("push_subscribe", s.handleSubscribe)))
	mux.HandleFunc("DELETE /api/account", s.withThrottle(s.withRoute("account_delete", s.handleDeleteAccount)))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
