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

// Package pairing implements the relay's initiate/join/status/delete
// state machine on top of internal/store's atomic transactions.
package pairing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relaymesh/relayd/internal/apierr"
	"github.com/relaymesh/relayd/internal/store"
)

// DefaultTokenTTL is how long a freshly minted relay token remains
// joinable when the caller doesn't override it via configuration.
const DefaultTokenTTL = 10 * time.Minute

// relayTokenBytes is the entropy budget for a minted token, at least
// 256 bits as required by spec.
const relayTokenBytes = 32

// WatchNotifier pushes a "paired" event to the initiator's open watch
// channel, implemented by internal/handoff.
type WatchNotifier interface {
	NotifyPaired(pairID string, partnerPublicKey string)
}

// Service implements initiate / join / status / deleteAccount.
type Service struct {
	store    store.PairingStore
	users    store.UserStore
	watch    WatchNotifier
	tokenTTL time.Duration
	now      func() time.Time
}

// New builds a pairing Service. tokenTTL is how long a freshly minted
// relay token stays joinable; a zero value falls back to DefaultTokenTTL.
func New(pairingStore store.PairingStore, users store.UserStore, watch WatchNotifier, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{store: pairingStore, users: users, watch: watch, tokenTTL: tokenTTL, now: time.Now}
}

// InitiateResult is the response shape of initiate.
type InitiateResult struct {
	PairID     string
	RelayToken string
}

// Initiate validates publicKey's format, mints a fresh pair and
// single-use token, and registers the initiator as the pair's sole
// member, superseding any prior pair the key belonged to.
func (s *Service) Initiate(ctx context.Context, publicKey string) (*InitiateResult, error) {
	if err := validatePublicKey(publicKey); err != nil {
		return nil, apierr.New(apierr.KindInvalidInput, "invalid public key")
	}

	token, err := newRelayToken()
	if err != nil {
		return nil, apierr.Internal(err)
	}

	pairID := uuid.NewString()
	rt := store.RelayToken{
		Token:        token,
		InitiatorKey: publicKey,
		PairID:       pairID,
		ExpiresAt:    s.now().Add(s.tokenTTL),
	}

	if err := s.store.InitiatePair(ctx, publicKey, rt); err != nil {
		return nil, apierr.Internal(err)
	}

	return &InitiateResult{PairID: pairID, RelayToken: token}, nil
}

// JoinResult is the response shape of join.
type JoinResult struct {
	PairID           string
	PartnerPublicKey string
}

// Join redeems a relay token for publicKey. Preconditions below are
// advisory fast-fails; the store's compare-and-set is the sole
// authoritative race defence.
func (s *Service) Join(ctx context.Context, publicKey, relayToken string) (*JoinResult, error) {
	if err := validatePublicKey(publicKey); err != nil {
		return nil, apierr.New(apierr.KindInvalidInput, "invalid public key")
	}

	rt, err := s.store.GetToken(ctx, relayToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierr.New(apierr.KindNotFound, "relay token not found")
		}
		return nil, apierr.Internal(err)
	}

	if rt.InitiatorKey == publicKey {
		return nil, apierr.New(apierr.KindInvalidInput, "cannot join your own relay token")
	}
	if rt.Consumed {
		return nil, apierr.New(apierr.KindGone, "relay token already consumed")
	}
	if !rt.ExpiresAt.After(s.now()) {
		return nil, apierr.New(apierr.KindGone, "relay token expired")
	}

	ok, pairID, err := s.store.JoinPair(ctx, relayToken, publicKey)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !ok {
		return nil, apierr.New(apierr.KindGone, "relay token already consumed")
	}

	if s.watch != nil {
		s.watch.NotifyPaired(pairID, publicKey)
	}

	return &JoinResult{PairID: pairID, PartnerPublicKey: rt.InitiatorKey}, nil
}

// StatusResult is the response shape of status.
type StatusResult struct {
	Paired           bool
	PartnerPublicKey string
}

// Status reports whether the caller currently has a partner.
func (s *Service) Status(ctx context.Context, publicKey string) (*StatusResult, error) {
	partner, err := s.users.PartnerOf(ctx, publicKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &StatusResult{Paired: false}, nil
		}
		return nil, apierr.Internal(err)
	}
	return &StatusResult{Paired: true, PartnerPublicKey: partner.PublicKey}, nil
}

// DeleteAccount erases publicKey and its entries.
func (s *Service) DeleteAccount(ctx context.Context, publicKey string) error {
	if err := s.users.DeleteAccount(ctx, publicKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.New(apierr.KindNotFound, "account not found")
		}
		return apierr.Internal(err)
	}
	return nil
}

// validatePublicKey checks the key decodes to exactly an Ed25519
// public key's byte length; the relay treats the key as opaque beyond
// that length check.
func validatePublicKey(publicKey string) error {
	raw, err := base64.RawURLEncoding.DecodeString(publicKey)
	if err != nil {
		return err
	}
	if len(raw) != ed25519.PublicKeySize {
		return errors.New("wrong public key length")
	}
	return nil
}

func newRelayToken() (string, error) {
	buf := make([]byte, relayTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
