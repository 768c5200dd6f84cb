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

const watchPrefix = "WATCH"
const collectPrefix = "COLLECT"

func (s *Service) handleWatcherAuth(ctx context.Context, conn *websocket.Conn, msg inboundMessage) {
	identity, failErr := s.authenticate(ctx, msg, watchPrefix)
	if failErr != nil {
		newChannel(conn, "", roleWatcher).sendError(failErr.Message)
		return
	}

	ch := newChannel(conn, identity.PairID, roleWatcher)
	s.mu.Lock()
	s.waiters[identity.PairID] = ch
	s.mu.Unlock()
	metrics.HandoffChannelsActive.WithLabelValues("watcher").Inc()
	defer func() {
		s.removeWaiterIfCurrent(identity.PairID, ch)
		metrics.HandoffChannelsActive.WithLabelValues("watcher").Dec()
	}()

	if err := ch.send(outboundMessage{Type: msgTypeReady}); err != nil {
		return
	}

	s.watcherLoop(ctx, ch)
}

// watcherLoop waits for the initiator's single bundle send, or for
// disconnect. A disconnected watcher must not evict a collector
// for the same pair.
func (s *Service) watcherLoop(ctx context.Context, ch *channel) {
	for {
		var msg inboundMessage
		if err := ch.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != msgTypeBundle {
			ch.sendError("expected a bundle message")
			continue
		}

		s.relayOrBufferBundle(ch.pairID, msg.Payload)
		return
	}
}

func (s *Service) relayOrBufferBundle(pairID, payload string) {
	s.mu.Lock()
	collector, hasCollector := s.collectors[pairID]
	if hasCollector {
		delete(s.collectors, pairID)
	} else {
		s.pendingBundles[pairID] = pendingBundle{payload: payload, expiresAt: time.Now().Add(BundleTTL)}
		metrics.HandoffBundlesBuffered.Set(float64(len(s.pendingBundles)))
	}
	delete(s.waiters, pairID)
	s.mu.Unlock()

	if hasCollector {
		_ = collector.send(outboundMessage{Type: msgTypeBundle, Payload: payload})
		collector.close()
		metrics.HandoffBundlesDelivered.WithLabelValues("direct").Inc()
	}
}

// removeWaiterIfCurrent deletes pairID's waiter entry only if it is
// still ch, so a newer channel for the same pair is never evicted by
// a stale disconnect handler.
func (s *Service) removeWaiterIfCurrent(pairID string, ch *channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.waiters[pairID]; ok && cur == ch {
		delete(s.waiters, pairID)
	}
}
