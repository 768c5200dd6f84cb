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

package sigverify

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"time"

	"github.com/relaymesh/relayd/internal/store"
)

// ChannelAuth is a handoff channel's auth/collect_auth message, signed
// over a role-specific prefix rather than an HTTP method and path.
type ChannelAuth struct {
	Prefix       string // "WATCH" or "COLLECT"; distinct prefixes prevent role confusion
	PublicKey    string
	TimestampRaw string
	Signature    string
}

// VerifyChannel checks a handoff channel auth message identically to
// an HTTP request's signature and freshness rules, then resolves the
// signing key, returning the same Identity shape as Verify.
func (v *Verifier) VerifyChannel(ctx context.Context, auth ChannelAuth) (*Identity, *VerifyError) {
	if auth.Signature == "" || auth.PublicKey == "" || auth.TimestampRaw == "" {
		return nil, newFailure(FailureMissingHeaders, "missing auth fields")
	}

	ts, err := time.Parse(time.RFC3339, auth.TimestampRaw)
	if err != nil {
		return nil, newFailure(FailureBadHeader, "malformed timestamp")
	}

	sig, err := base64.StdEncoding.DecodeString(auth.Signature)
	if err != nil {
		return nil, newFailure(FailureBadHeader, "malformed signature")
	}

	pubKey, err := decodePublicKey(auth.PublicKey)
	if err != nil {
		return nil, newFailure(FailureBadHeader, "malformed public key")
	}

	now := v.now()
	if skew := now.Sub(ts); skew < -MaxClockSkew || skew > MaxClockSkew {
		return nil, newFailure(FailureClockSkew, "timestamp outside acceptable range")
	}

	base := auth.Prefix + "\n" + auth.PublicKey + "\n" + auth.TimestampRaw
	if !ed25519.Verify(pubKey, []byte(base), sig) {
		return nil, newFailure(FailureBadSignature, "signature verification failed")
	}

	user, err := v.users.GetUser(ctx, auth.PublicKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newFailure(FailureUnknownUser, "signing key is not enrolled")
		}
		return nil, newFailure(FailureUnknownUser, "key lookup failed")
	}

	return &Identity{PublicKey: user.PublicKey, PairID: user.PairID}, nil
}
