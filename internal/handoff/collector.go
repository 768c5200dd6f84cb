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
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaymesh/relayd/internal/metrics"
)

func (s *Service) handleCollectorAuth(ctx context.Context, conn *websocket.Conn, msg inboundMessage) {
	identity, failErr := s.authenticate(ctx, msg, collectPrefix)
	if failErr != nil {
		newChannel(conn, "", roleCollector).sendError(failErr.Message)
		return
	}

	ch := newChannel(conn, identity.PairID, roleCollector)

	if delivered := s.tryDeliverPendingBundle(ch); delivered {
		return
	}

	s.mu.Lock()
	s.collectors[identity.PairID] = ch
	s.mu.Unlock()
	metrics.HandoffChannelsActive.WithLabelValues("collector").Inc()
	defer func() {
		s.removeCollectorIfCurrent(identity.PairID, ch)
		metrics.HandoffChannelsActive.WithLabelValues("collector").Dec()
	}()

	if err := ch.send(outboundMessage{Type: msgTypeReady}); err != nil {
		return
	}

	// Block on the connection until it closes; a collector only ever
	// receives, it never sends a second frame.
	var discard inboundMessage
	for {
		if err := ch.conn.ReadJSON(&discard); err != nil {
			return
		}
	}
}

// tryDeliverPendingBundle checks for an unexpired buffered bundle and,
// if present, delivers and closes immediately rather than waiting.
func (s *Service) tryDeliverPendingBundle(ch *channel) bool {
	s.mu.Lock()
	b, ok := s.pendingBundles[ch.pairID]
	if ok {
		if time.Now().After(b.expiresAt) {
			delete(s.pendingBundles, ch.pairID)
			ok = false
		} else {
			delete(s.pendingBundles, ch.pairID)
		}
		metrics.HandoffBundlesBuffered.Set(float64(len(s.pendingBundles)))
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	_ = ch.send(outboundMessage{Type: msgTypeBundle, Payload: b.payload})
	ch.close()
	metrics.HandoffBundlesDelivered.WithLabelValues("buffered").Inc()
	return true
}

func (s *Service) removeCollectorIfCurrent(pairID string, ch *channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.collectors[pairID]; ok && cur == ch {
		delete(s.collectors, pairID)
	}
}
