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

type uploadRequest struct {
	DayID   string `json:"dayId"`
	Payload string `json:"payload"`
}

type uploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	identity, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var in uploadRequest
	if err := json.Unmarshal(body, &in); err != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "malformed JSON body"))
		return
	}

	result, err := s.entry.Upload(r.Context(), identity.PublicKey, identity.PairID, in.DayID, in.Payload)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{ID: result.ID, Status: result.Status})
}

type fetchedEntryResponse struct {
	ID      string `json:"id"`
	DayID   string `json:"dayId"`
	Payload string `json:"payload"`
}

type fetchResponse struct {
	Entries []fetchedEntryResponse `json:"entries"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	since := r.URL.Query().Get("since")
	entries, err := s.entry.FetchUndelivered(r.Context(), identity.PublicKey, identity.PairID, since)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	out := make([]fetchedEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = fetchedEntryResponse{ID: e.ID, DayID: e.DayID, Payload: e.Payload}
	}

	writeJSON(w, http.StatusOK, fetchResponse{Entries: out})
}

type ackRequest struct {
	EntryIDs []string `json:"entryIds"`
}

type ackResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	identity, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var in ackRequest
	if err := json.Unmarshal(body, &in); err != nil {
		apierr.WriteJSON(w, apierr.New(apierr.KindInvalidInput, "malformed JSON body"))
		return
	}

	deleted, err := s.entry.Ack(r.Context(), identity.PublicKey, identity.PairID, in.EntryIDs)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Deleted: deleted})
}
