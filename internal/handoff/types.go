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

// Package handoff relays an opaque history bundle from a just-paired
// initiator to its follower over a long-lived bidirectional channel.
package handoff

import "time"

// inboundMessage is the wire shape of every client-to-server frame;
// only the fields relevant to msg.Type are populated.
type inboundMessage struct {
	Type         string `json:"type"`
	PublicKey    string `json:"publicKey,omitempty"`
	TimestampRaw string `json:"timestamp,omitempty"`
	Signature    string `json:"signature,omitempty"`
	Payload      string `json:"payload,omitempty"`
}

// outboundMessage is the wire shape of every server-to-client frame.
type outboundMessage struct {
	Type             string `json:"type"`
	PartnerPublicKey string `json:"partnerPublicKey,omitempty"`
	Payload          string `json:"payload,omitempty"`
	Message          string `json:"message,omitempty"`
}

const (
	msgTypeAuth        = "auth"
	msgTypeCollectAuth = "collect_auth"
	msgTypeBundle      = "bundle"
	msgTypeReady       = "ready"
	msgTypePaired      = "paired"
	msgTypeError       = "error"
)

// role distinguishes a watcher (bundle sender) channel from a
// collector (bundle receiver) channel.
type role int

const (
	roleWatcher role = iota
	roleCollector
)

// pendingBundle is a bundle buffered because its collector has not
// connected yet.
type pendingBundle struct {
	payload   string
	expiresAt time.Time
}

// BundleTTL bounds how long a pending bundle waits for its collector.
const BundleTTL = 5 * time.Minute

// SweepInterval is how often the TTL sweeper runs; spec requires at
// least every two minutes.
const SweepInterval = 2 * time.Minute
