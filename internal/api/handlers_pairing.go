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
)

type initiateRequest struct {
	PublicKey string `json:"publicKey"`
}

type initiateResponse struct {
	PairID     string `json:"pairId"`
	RelayToken string `json:"relayToken"`
}

// handleInitiate is unauthenticated: spec.md §4.3 relies on the relay
// token's own single-use semantics, not a request signature, to gate it.
func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var in initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "malformed JSON body"))
		return
	}

	result, err := s.pairing.Initiate(r.Context(), in.PublicKey)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initiateResponse{PairID: result.PairID, RelayToken: result.RelayToken})
}

type joinRequest struct {
	PublicKey  string `json:"publicKey"`
	RelayToken string `json:"relayToken"`
}

type joinResponse struct {
	PairID           string `json:"pairId"`
	PartnerPublicKey string `json:"partnerPublicKey"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var in joinRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "malformed JSON body"))
		return
	}

	result, err := s.pairing.Join(r.Context(), in.PublicKey, in.RelayToken)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{PairID: result.PairID, PartnerPublicKey: result.PartnerPublicKey})
}

type statusResponse struct {
	Paired           bool   `json:"paired"`
	PartnerPublicKey string `json:"partnerPublicKey,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	result, err := s.pairing.Status(r.Context(), identity.PublicKey)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Paired: result.Paired, PartnerPublicKey: result.PartnerPublicKey})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	if err := s.pairing.DeleteAccount(r.Context(), identity.PublicKey); err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWatch upgrades to the long-lived handoff websocket; the
// connection authenticates itself over the channel, not via these HTTP
// headers, so no signature check happens here.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	s.handoff.Handler().ServeHTTP(w, r)
}
