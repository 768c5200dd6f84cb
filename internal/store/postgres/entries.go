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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relaymesh/relayd/internal/store"
)

// CountByAuthorAndDay supports the per-day upload rate limit.
func (s *Store) CountByAuthorAndDay(ctx context.Context, authorKey, dayID string) (int, error) {
	query := `SELECT COUNT(*) FROM entries WHERE author_key = $1 AND day_id = $2`

	var count int
	if err := s.pool.QueryRow(ctx, query, authorKey, dayID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// InsertEntry stores a new entry under a generated id.
func (s *Store) InsertEntry(ctx context.Context, e store.Entry) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO entries (id, author_key, pair_id, day_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.pool.Exec(ctx, query, id, e.AuthorKey, e.PairID, e.DayID, e.Payload, time.Now()); err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}

	return id, nil
}

// FetchUndelivered returns pairID's entries authored by partnerKey
// with dayID >= since and no ackedAt, marking fetchedAt where unset.
func (s *Store) FetchUndelivered(ctx context.Context, pairID, partnerKey, since string) ([]store.Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin fetch undelivered: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, author_key, pair_id, day_id, payload, created_at, fetched_at, acked_at
		FROM entries
		WHERE pair_id = $1 AND author_key = $2 AND day_id >= $3 AND acked_at IS NULL
		ORDER BY day_id ASC
	`

	rows, err := tx.Query(ctx, query, pairID, partnerKey, since)
	if err != nil {
		return nil, fmt.Errorf("select undelivered: %w", err)
	}

	var entries []store.Entry
	var unfetched []string
	for rows.Next() {
		var e store.Entry
		if err := rows.Scan(&e.ID, &e.AuthorKey, &e.PairID, &e.DayID, &e.Payload, &e.CreatedAt, &e.FetchedAt, &e.AckedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.FetchedAt == nil {
			unfetched = append(unfetched, e.ID)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate undelivered: %w", err)
	}

	if len(unfetched) > 0 {
		now := time.Now()
		if _, err := tx.Exec(ctx, `UPDATE entries SET fetched_at = $1 WHERE id = ANY($2)`, now, unfetched); err != nil {
			return nil, fmt.Errorf("mark fetched: %w", err)
		}
		for i := range entries {
			if entries[i].FetchedAt == nil {
				entries[i].FetchedAt = &now
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit fetch undelivered: %w", err)
	}

	return entries, nil
}

// AckEntries deletes entries matching ids scoped to pairID and
// authorKey, so a caller can only ack entries it received.
func (s *Store) AckEntries(ctx context.Context, pairID, partnerKey string, ids []string) (int, error) {
	query := `
		DELETE FROM entries
		WHERE id = ANY($1) AND pair_id = $2 AND author_key = $3
	`

	result, err := s.pool.Exec(ctx, query, ids, pairID, partnerKey)
	if err != nil {
		return 0, fmt.Errorf("ack entries: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// DeleteOrphanedBefore removes unacked entries older than cutoff.
func (s *Store) DeleteOrphanedBefore(ctx context.Context, cutoff string) (int64, error) {
	query := `DELETE FROM entries WHERE day_id < $1 AND acked_at IS NULL`

	result, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned entries: %w", err)
	}

	return result.RowsAffected(), nil
}
