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

// Package sigverify authenticates relay requests by reconstructing the
// exact signed-payload bytes and verifying an Ed25519 signature over
// them, then resolving the signing key to an enrolled user.
package sigverify

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/relaymesh/relayd/internal/store"
)

// MaxClockSkew bounds how far a request timestamp may drift from the
// server's wall clock in either direction. The verifier keeps no nonce
// cache; this window plus the exact-byte signature binding is the
// entire replay defence.
const MaxClockSkew = 5 * time.Minute

// Failure classifies why verification did not succeed. Every value
// maps to HTTP 401 at the front door; the distinction exists for logs
// and metrics, never for the response body.
type Failure int

const (
	FailureNone Failure = iota
	FailureMissingHeaders
	FailureBadHeader
	FailureClockSkew
	FailureBadSignature
	FailureUnknownUser
)

func (f Failure) String() string {
	switch f {
	case FailureMissingHeaders:
		return "missing_headers"
	case FailureBadHeader:
		return "bad_header"
	case FailureClockSkew:
		return "clock_skew"
	case FailureBadSignature:
		return "bad_signature"
	case FailureUnknownUser:
		return "unknown_user"
	default:
		return "ok"
	}
}

// VerifyError reports which failure class rejected a request.
type VerifyError struct {
	Failure Failure
	Message string
}

func (e *VerifyError) Error() string {
	return e.Message
}

func newFailure(kind Failure, message string) *VerifyError {
	return &VerifyError{Failure: kind, Message: message}
}

// Request is the subset of an inbound HTTP request the verifier needs.
// Callers in internal/api build this from the net/http request; tests
// construct it directly.
type Request struct {
	Method       string
	Path         string // includes the query string, where applicable
	Body         []byte
	Signature    string // base64, from the Authorization header
	PublicKey    string // from X-Public-Key
	TimestampRaw string // from X-Timestamp, ISO-8601
}

// Identity is what a successfully verified request resolves to.
type Identity struct {
	PublicKey string
	PairID    string
}

// Verifier checks request signatures and resolves the signing key
// against the user store.
type Verifier struct {
	users store.UserStore
	now   func() time.Time
}

// New builds a Verifier backed by users for key resolution.
func New(users store.UserStore) *Verifier {
	return &Verifier{users: users, now: time.Now}
}

// Verify validates req's headers, freshness, signature, and enrollment,
// in that order, and returns the caller's identity on success.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Identity, *VerifyError) {
	if req.Signature == "" || req.PublicKey == "" || req.TimestampRaw == "" {
		return nil, newFailure(FailureMissingHeaders, "missing signature headers")
	}

	ts, err := time.Parse(time.RFC3339, req.TimestampRaw)
	if err != nil {
		return nil, newFailure(FailureBadHeader, "malformed timestamp header")
	}

	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return nil, newFailure(FailureBadHeader, "malformed signature header")
	}

	pubKey, err := decodePublicKey(req.PublicKey)
	if err != nil {
		return nil, newFailure(FailureBadHeader, "malformed public key header")
	}

	now := v.now()
	if skew := now.Sub(ts); skew < -MaxClockSkew || skew > MaxClockSkew {
		return nil, newFailure(FailureClockSkew, "timestamp outside acceptable range")
	}

	base := SignatureBase(req.Method, req.Path, req.TimestampRaw, req.Body)
	if !ed25519.Verify(pubKey, []byte(base), sig) {
		return nil, newFailure(FailureBadSignature, "signature verification failed")
	}

	user, err := v.users.GetUser(ctx, req.PublicKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newFailure(FailureUnknownUser, "signing key is not enrolled")
		}
		return nil, newFailure(FailureUnknownUser, "key lookup failed")
	}

	return &Identity{PublicKey: user.PublicKey, PairID: user.PairID}, nil
}

// SignatureBase reconstructs the exact byte sequence a client signs:
// method + "\n" + path + "\n" + timestamp + "\n" + sha256HexLower(body).
func SignatureBase(method, path, timestamp string, body []byte) string {
	sum := sha256.Sum256(body)
	return method + "\n" + path + "\n" + timestamp + "\n" + hex.EncodeToString(sum[:])
}

// decodePublicKey treats the header value as an opaque printable
// string of exactly ed25519.PublicKeySize bytes once base64-decoded;
// the relay never infers key type beyond that length.
func decodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("public key has wrong length")
	}
	return ed25519.PublicKey(raw), nil
}
