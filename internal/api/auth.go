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
	"io"
	"net/http"
	"strings"

	"github.com/relaymesh/relayd/internal/apierr"
	"github.com/relaymesh/relayd/internal/metrics"
	"github.com/relaymesh/relayd/internal/sigverify"
)

const signaturePrefix = "Signature "

// callerKey returns the X-Public-Key header, used by the throttle
// whether or not the request's signature ultimately verifies.
func callerKey(r *http.Request) string {
	return r.Header.Get("X-Public-Key")
}

// authenticate reads the full body, builds a sigverify.Request from r,
// and verifies it. On success it returns the raw body bytes so the
// caller can decode JSON from them without a second, now-empty read of
// r.Body. On failure it writes the error response itself: 400 when the
// body cannot be read, 401 when verification fails.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*sigverify.Identity, []byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "failed to read request body"))
		return nil, nil, false
	}
	r.Body.Close()

	auth := r.Header.Get("Authorization")
	sig := strings.TrimPrefix(auth, signaturePrefix)
	if sig == auth {
		sig = ""
	}

	req := sigverify.Request{
		Method:       r.Method,
		Path:         r.URL.RequestURI(),
		Body:         body,
		Signature:    sig,
		PublicKey:    callerKey(r),
		TimestampRaw: r.Header.Get("X-Timestamp"),
	}

	identity, verr := s.verifier.Verify(r.Context(), req)
	metrics.SignatureVerifications.WithLabelValues(outcomeOf(verr)).Inc()
	if verr != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindUnauthenticated, verr.Message))
		return nil, nil, false
	}

	return identity, body, true
}

func outcomeOf(verr *sigverify.VerifyError) string {
	if verr == nil {
		return "ok"
	}
	return verr.Failure.String()
}
