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
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relayd/internal/entry"
	"github.com/relaymesh/relayd/internal/handoff"
	"github.com/relaymesh/relayd/internal/pairing"
	"github.com/relaymesh/relayd/internal/sigverify"
	"github.com/relaymesh/relayd/internal/store/memory"
)

type testClient struct {
	t      *testing.T
	pub    ed25519.PublicKey
	priv   ed25519.PrivateKey
	pubB64 string
	base   string
}

func newTestClient(t *testing.T, base string) *testClient {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &testClient{
		t:      t,
		pub:    pub,
		priv:   priv,
		pubB64: base64.RawURLEncoding.EncodeToString(pub),
		base:   base,
	}
}

func (c *testClient) do(method, path string, body []byte, signed bool) *http.Response {
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	require.NoError(c.t, err)

	if signed {
		ts := time.Now().UTC().Format(time.RFC3339)
		sum := sha256.Sum256(body)
		base := method + "\n" + path + "\n" + ts + "\n" + hex.EncodeToString(sum[:])
		sig := ed25519.Sign(c.priv, []byte(base))

		req.Header.Set("Authorization", "Signature "+base64.StdEncoding.EncodeToString(sig))
		req.Header.Set("X-Public-Key", c.pubB64)
		req.Header.Set("X-Timestamp", ts)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	st := memory.New()
	verifier := sigverify.New(st)
	handoffSvc := handoff.New(verifier, nil)
	handoffSvc.Start()
	t.Cleanup(handoffSvc.Stop)

	pairingSvc := pairing.New(st, st, handoffSvc, pairing.DefaultTokenTTL)
	entrySvc := entry.New(st, st, nil, nil, entry.DefaultDailyUploadLimit)

	srv := New(pairingSvc, entrySvc, handoffSvc, verifier, st, NewThrottle(1000, time.Minute), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, ts.URL
}

func TestHappyPath_InitiateJoinStatusOnBothSides(t *testing.T) {
	_, base := newTestServer(t)
	initiator := newTestClient(t, base)
	follower := newTestClient(t, base)

	initBody, _ := json.Marshal(initiateRequest{PublicKey: initiator.pubB64})
	resp := initiator.do(http.MethodPost, "/api/pairs/initiate", initBody, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var initOut initiateResponse
	decodeBody(t, resp, &initOut)
	require.NotEmpty(t, initOut.RelayToken)

	joinBody, _ := json.Marshal(joinRequest{PublicKey: follower.pubB64, RelayToken: initOut.RelayToken})
	resp = follower.do(http.MethodPost, "/api/pairs/join", joinBody, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joinOut joinResponse
	decodeBody(t, resp, &joinOut)
	require.Equal(t, initOut.PairID, joinOut.PairID)
	require.Equal(t, initiator.pubB64, joinOut.PartnerPublicKey)

	resp = initiator.do(http.MethodGet, "/api/pairs/status", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var statusOut statusResponse
	decodeBody(t, resp, &statusOut)
	require.True(t, statusOut.Paired)
	require.Equal(t, follower.pubB64, statusOut.PartnerPublicKey)

	resp = follower.do(http.MethodGet, "/api/pairs/status", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &statusOut)
	require.True(t, statusOut.Paired)
	require.Equal(t, initiator.pubB64, statusOut.PartnerPublicKey)
}

func TestEntryUploadFetchAck_RoundTrip(t *testing.T) {
	_, base := newTestServer(t)
	a := newTestClient(t, base)
	b := newTestClient(t, base)

	initBody, _ := json.Marshal(initiateRequest{PublicKey: a.pubB64})
	resp := a.do(http.MethodPost, "/api/pairs/initiate", initBody, false)
	var initOut initiateResponse
	decodeBody(t, resp, &initOut)

	joinBody, _ := json.Marshal(joinRequest{PublicKey: b.pubB64, RelayToken: initOut.RelayToken})
	resp = b.do(http.MethodPost, "/api/pairs/join", joinBody, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	uploadBody, _ := json.Marshal(uploadRequest{DayID: "2026-07-31", Payload: base64.StdEncoding.EncodeToString([]byte("hello"))})
	resp = a.do(http.MethodPost, "/api/entries", uploadBody, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var uploadOut uploadResponse
	decodeBody(t, resp, &uploadOut)
	require.Equal(t, "stored", uploadOut.Status)

	resp = b.do(http.MethodGet, "/api/entries?since=2026-07-30", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetchOut fetchResponse
	decodeBody(t, resp, &fetchOut)
	require.Len(t, fetchOut.Entries, 1)
	require.Equal(t, uploadOut.ID, fetchOut.Entries[0].ID)

	ackBody, _ := json.Marshal(ackRequest{EntryIDs: []string{uploadOut.ID}})
	resp = b.do(http.MethodPost, "/api/entries/ack", ackBody, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ackOut ackResponse
	decodeBody(t, resp, &ackOut)
	require.Equal(t, 1, ackOut.Deleted)
}

func TestUpload_RejectsStaleTimestamp(t *testing.T) {
	_, base := newTestServer(t)
	a := newTestClient(t, base)

	initBody, _ := json.Marshal(initiateRequest{PublicKey: a.pubB64})
	resp := a.do(http.MethodPost, "/api/pairs/initiate", initBody, false)
	resp.Body.Close()

	body := []byte(`{"dayId":"2026-07-31","payload":"aGVsbG8="}`)
	req, err := http.NewRequest(http.MethodPost, base+"/api/entries", bytes.NewReader(body))
	require.NoError(t, err)

	ts := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	sum := sha256.Sum256(body)
	sigBase := http.MethodPost + "\n" + "/api/entries" + "\n" + ts + "\n" + hex.EncodeToString(sum[:])
	sig := ed25519.Sign(a.priv, []byte(sigBase))
	req.Header.Set("Authorization", "Signature "+base64.StdEncoding.EncodeToString(sig))
	req.Header.Set("X-Public-Key", a.pubB64)
	req.Header.Set("X-Timestamp", ts)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestThrottle_RejectsOverCap(t *testing.T) {
	st := memory.New()
	verifier := sigverify.New(st)
	handoffSvc := handoff.New(verifier, nil)
	handoffSvc.Start()
	t.Cleanup(handoffSvc.Stop)
	pairingSvc := pairing.New(st, st, handoffSvc, pairing.DefaultTokenTTL)
	entrySvc := entry.New(st, st, nil, nil, entry.DefaultDailyUploadLimit)

	srv := New(pairingSvc, entrySvc, handoffSvc, verifier, st, NewThrottle(2, time.Minute), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := newTestClient(t, ts.URL)
	for i := 0; i < 2; i++ {
		resp := client.do(http.MethodGet, "/api/pairs/status", nil, true)
		resp.Body.Close()
	}
	resp := client.do(http.MethodGet, "/api/pairs/status", nil, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
