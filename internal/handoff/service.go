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

package handoff

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaymesh/relayd/internal/logger"
	"github.com/relaymesh/relayd/internal/metrics"
	"github.com/relaymesh/relayd/internal/sigverify"
)

// Service owns the process-local directories of open handoff channels
// and the bundles buffered for followers who haven't connected yet.
// None of this state is replicated; a restart invalidates any
// in-flight bundle transfer.
type Service struct {
	verifier *sigverify.Verifier
	log      logger.Logger
	upgrader websocket.Upgrader

	mu             sync.Mutex
	waiters        map[string]*channel
	collectors     map[string]*channel
	pendingBundles map[string]pendingBundle

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
}

// New builds a handoff Service backed by verifier for channel auth.
func New(verifier *sigverify.Verifier, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Service{
		verifier: verifier,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		waiters:        make(map[string]*channel),
		collectors:     make(map[string]*channel),
		pendingBundles: make(map[string]pendingBundle),
	}
}

// Start launches the periodic pending-bundle TTL sweep.
func (s *Service) Start() {
	s.sweepTicker = time.NewTicker(SweepInterval)
	s.stopSweep = make(chan struct{})
	go s.sweepLoop()
}

// Stop halts the TTL sweep; open channels are left for the caller to
// close via the HTTP server shutdown.
func (s *Service) Stop() {
	if s.stopSweep != nil {
		close(s.stopSweep)
	}
}

func (s *Service) sweepLoop() {
	for {
		select {
		case <-s.sweepTicker.C:
			s.sweepExpiredBundles(time.Now())
		case <-s.stopSweep:
			s.sweepTicker.Stop()
			return
		}
	}
}

func (s *Service) sweepExpiredBundles(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for pairID, b := range s.pendingBundles {
		if now.After(b.expiresAt) {
			delete(s.pendingBundles, pairID)
			metrics.HandoffBundlesExpired.Inc()
		}
	}
	metrics.HandoffBundlesBuffered.Set(float64(len(s.pendingBundles)))
}

// NotifyPaired implements pairing.WatchNotifier: on a successful join,
// the pairing service pushes a paired event to the initiator's open
// watch channel without closing it, since the initiator may still
// send a bundle.
func (s *Service) NotifyPaired(pairID string, partnerPublicKey string) {
	s.mu.Lock()
	waiter, ok := s.waiters[pairID]
	s.mu.Unlock()
	if !ok {
		return
	}
	_ = waiter.send(outboundMessage{Type: msgTypePaired, PartnerPublicKey: partnerPublicKey})
}

// Handler upgrades the request and dispatches the new channel through
// its auth handshake.
func (s *Service) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("handoff upgrade failed", logger.Error(err))
			return
		}
		s.handleConnection(r.Context(), conn)
	})
}

func (s *Service) handleConnection(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	var msg inboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return
	}

	switch msg.Type {
	case msgTypeAuth:
		s.handleWatcherAuth(ctx, conn, msg)
	case msgTypeCollectAuth:
		s.handleCollectorAuth(ctx, conn, msg)
	default:
		ch := newChannel(conn, "", roleWatcher)
		ch.sendError("first message must be auth or collect_auth")
	}
}

func (s *Service) authenticate(ctx context.Context, msg inboundMessage, prefix string) (*sigverify.Identity, *sigverify.VerifyError) {
	return s.verifier.VerifyChannel(ctx, sigverify.ChannelAuth{
		Prefix:       prefix,
		PublicKey:    msg.PublicKey,
		TimestampRaw: msg.TimestampRaw,
		Signature:    msg.Signature,
	})
}
