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

// Package entry implements upload / fetchUndelivered / ack for opaque
// store-and-forward blobs, plus the asynchronous notify fan-out to the
// push collaborator.
package entry

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"

	"github.com/relaymesh/relayd/internal/apierr"
	"github.com/relaymesh/relayd/internal/logger"
	"github.com/relaymesh/relayd/internal/metrics"
	"github.com/relaymesh/relayd/internal/store"
)

// DefaultDailyUploadLimit is the ceiling on blobs a single user may
// upload per calendar day when the caller doesn't override it via
// configuration.
const DefaultDailyUploadLimit = 2

// DefaultSince is used by fetchUndelivered when the caller omits since.
const DefaultSince = "1970-01-01"

var dayIDPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Notifier fires the asynchronous "partner has mail" event; upload
// latency is never coupled to its completion.
type Notifier interface {
	Notify(ctx context.Context, recipientPublicKey, pairID string)
}

// Service implements the entry lifecycle.
type Service struct {
	store            store.EntryStore
	users            store.UserStore
	notify           Notifier
	log              logger.Logger
	dailyUploadLimit int
}

// New builds an entry Service. dailyUploadLimit caps how many blobs a
// single user may upload per calendar day; a value <= 0 falls back to
// DefaultDailyUploadLimit.
func New(entryStore store.EntryStore, users store.UserStore, notify Notifier, log logger.Logger, dailyUploadLimit int) *Service {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if dailyUploadLimit <= 0 {
		dailyUploadLimit = DefaultDailyUploadLimit
	}
	return &Service{store: entryStore, users: users, notify: notify, log: log, dailyUploadLimit: dailyUploadLimit}
}

// UploadResult is the response shape of upload.
type UploadResult struct {
	ID     string
	Status string
}

// Upload validates dayID and the per-day rate limit, stores the
// decoded payload, and fires a detached notify for the caller's
// partner. The notify never blocks or fails the response.
func (s *Service) Upload(ctx context.Context, authorKey, pairID, dayID, payloadB64 string) (*UploadResult, error) {
	if !dayIDPattern.MatchString(dayID) {
		return nil, apierr.New(apierr.KindInvalidInput, "dayId must match YYYY-MM-DD")
	}

	count, err := s.store.CountByAuthorAndDay(ctx, authorKey, dayID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if count >= s.dailyUploadLimit {
		metrics.EntriesRateLimited.Inc()
		return nil, apierr.New(apierr.KindRateLimited, "daily upload limit reached")
	}

	payload, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, apierr.New(apierr.KindInvalidInput, "payload must be base64")
	}

	id, err := s.store.InsertEntry(ctx, store.Entry{
		AuthorKey: authorKey,
		PairID:    pairID,
		DayID:     dayID,
		Payload:   payload,
	})
	if err != nil {
		return nil, apierr.Internal(err)
	}
	metrics.EntriesUploaded.Inc()

	s.fireNotify(pairID, authorKey)

	return &UploadResult{ID: id, Status: "stored"}, nil
}

// fireNotify resolves the caller's partner and dispatches the push
// event on a detached goroutine; errors are logged, never surfaced.
func (s *Service) fireNotify(pairID, authorKey string) {
	if s.notify == nil {
		return
	}

	go func() {
		ctx := context.Background()
		partner, err := s.users.PartnerOf(ctx, authorKey)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.log.Error("resolve partner for notify failed", logger.Error(err))
			}
			return
		}
		s.notify.Notify(ctx, partner.PublicKey, pairID)
	}()
}

// FetchedEntry is the wire shape of one returned undelivered entry.
type FetchedEntry struct {
	ID      string
	DayID   string
	Payload string // base64
}

// FetchUndelivered returns the caller's partner's undelivered entries
// since the given dayId, marking them fetched. If the caller has no
// partner yet, it returns an empty slice rather than an error.
func (s *Service) FetchUndelivered(ctx context.Context, callerKey, pairID, since string) ([]FetchedEntry, error) {
	if since == "" {
		since = DefaultSince
	}

	partner, err := s.users.PartnerOf(ctx, callerKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []FetchedEntry{}, nil
		}
		return nil, apierr.Internal(err)
	}

	entries, err := s.store.FetchUndelivered(ctx, pairID, partner.PublicKey, since)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	metrics.EntriesFetched.Add(float64(len(entries)))

	out := make([]FetchedEntry, len(entries))
	for i, e := range entries {
		out[i] = FetchedEntry{
			ID:      e.ID,
			DayID:   e.DayID,
			Payload: base64.StdEncoding.EncodeToString(e.Payload),
		}
	}
	return out, nil
}

// Ack deletes entryIds that belong to the caller's partner within the
// caller's pair. A cross-pair or self-authored id silently deletes
// nothing rather than erroring.
func (s *Service) Ack(ctx context.Context, callerKey, pairID string, entryIDs []string) (int, error) {
	if len(entryIDs) == 0 {
		return 0, apierr.New(apierr.KindInvalidInput, "entryIds must be a non-empty array")
	}

	partner, err := s.users.PartnerOf(ctx, callerKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, apierr.New(apierr.KindInvalidInput, "no partner to ack against")
		}
		return 0, apierr.Internal(err)
	}

	deleted, err := s.store.AckEntries(ctx, pairID, partner.PublicKey, entryIDs)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	metrics.EntriesAcked.Add(float64(deleted))

	return deleted, nil
}
