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

// Package push looks up a recipient's push subscription and hands the
// opaque "partner has mail" event to a Transport collaborator. The
// wire format and delivery guarantees of that transport are outside
// this repository's scope; Transport is a narrow interface only.
package push

import (
	"context"
	"errors"

	"github.com/relaymesh/relayd/internal/logger"
	"github.com/relaymesh/relayd/internal/metrics"
	"github.com/relaymesh/relayd/internal/store"
)

// ErrGone is returned by Transport.Send when the subscription has been
// permanently rejected by the push service (HTTP 410 upstream).
var ErrGone = errors.New("push: subscription gone")

// Transport delivers one opaque notify event to a subscribed endpoint.
// Implementations own the actual wire protocol (Web Push, APNs, FCM,
// or a test double); Notifier only knows ErrGone as a sentinel.
type Transport interface {
	Send(ctx context.Context, sub store.PushSubscription, pairID string) error
}

// Notifier is the entry service's push collaborator: it resolves a
// recipient's subscription and relays the event, pruning subscriptions
// the transport reports as gone.
type Notifier struct {
	users     store.UserStore
	transport Transport
	log       logger.Logger
}

// New builds a Notifier. transport may be nil in dev/test
// configurations that run without a real push backend; in that case
// Notify is a no-op.
func New(users store.UserStore, transport Transport, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Notifier{users: users, transport: transport, log: log}
}

// Notify looks up recipientPublicKey's subscription and delivers the
// event. Failures never propagate to the entry service; the entry is
// already durably stored regardless of notify outcome.
func (n *Notifier) Notify(ctx context.Context, recipientPublicKey, pairID string) {
	if n.transport == nil {
		return
	}

	user, err := n.users.GetUser(ctx, recipientPublicKey)
	if err != nil {
		n.log.Warn("push notify: recipient lookup failed", logger.String("recipient", recipientPublicKey), logger.Error(err))
		metrics.PushNotifications.WithLabelValues("transient_error").Inc()
		return
	}

	if user.Push.IsZero() {
		metrics.PushNotifications.WithLabelValues("no_subscription").Inc()
		return
	}

	err = n.transport.Send(ctx, user.Push, pairID)
	switch {
	case err == nil:
		metrics.PushNotifications.WithLabelValues("delivered").Inc()
	case errors.Is(err, ErrGone):
		metrics.PushNotifications.WithLabelValues("gone").Inc()
		if clearErr := n.users.ClearPushSubscription(ctx, recipientPublicKey); clearErr != nil {
			n.log.Warn("push notify: clear stale subscription failed", logger.Error(clearErr))
		}
	default:
		metrics.PushNotifications.WithLabelValues("transient_error").Inc()
		n.log.Warn("push notify: transport error", logger.Error(err))
	}
}
