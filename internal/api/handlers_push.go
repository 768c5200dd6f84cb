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
	"encoding/json"
	"net/http"

	"github.com/relaymesh/relayd/internal/apierr"
	"github.com/relaymesh/relayd/internal/store"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type subscribeResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	identity, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var in subscribeRequest
	if err := json.Unmarshal(body, &in); err != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "malformed JSON body"))
		return
	}
	if in.Endpoint == "" || in.P256DH == "" || in.Auth == "" {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "endpoint, p256dh, and auth are all required"))
		return
	}

	sub := store.PushSubscription{Endpoint: in.Endpoint, P256DH: in.P256DH, Auth: in.Auth}
	if err := s.users.SetPushSubscription(r.Context(), identity.PublicKey, sub); err != nil {
		apierr.WriteJSON(w, apierr.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, subscribeResponse{Status: "subscribed"})
}
