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

	"github.com/jackc/pgx/v5"

	"github.com/relaymesh/relayd/internal/store"
)

// InitiatePair inserts a new pair, upserts the initiator with re-pair
// semantics (prior pair membership and push subscription are
// overwritten), and inserts the fresh relay token, all in one
// transaction.
func (s *Store) InitiatePair(ctx context.Context, initiatorKey string, token store.RelayToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin initiate pair: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO pairs (id) VALUES ($1)`, token.PairID); err != nil {
		return fmt.Errorf("insert pair: %w", err)
	}

	upsert := `
		INSERT INTO users (public_key, pair_id, push_endpoint, push_p256dh, push_auth)
		VALUES ($1, $2, NULL, NULL, NULL)
		ON CONFLICT (public_key) DO UPDATE SET
			pair_id = EXCLUDED.pair_id,
			push_endpoint = NULL,
			push_p256dh = NULL,
			push_auth = NULL
	`
	if _, err := tx.Exec(ctx, upsert, initiatorKey, token.PairID); err != nil {
		return fmt.Errorf("upsert initiator: %w", err)
	}

	insertToken := `
		INSERT INTO relay_tokens (token, initiator_key, pair_id, expires_at, consumed)
		VALUES ($1, $2, $3, $4, false)
	`
	if _, err := tx.Exec(ctx, insertToken, token.Token, initiatorKey, token.PairID, token.ExpiresAt); err != nil {
		return fmt.Errorf("insert relay token: %w", err)
	}

	return tx.Commit(ctx)
}

// GetToken returns store.ErrNotFound if the token row does not exist.
func (s *Store) GetToken(ctx context.Context, token string) (*store.RelayToken, error) {
	query := `
		SELECT token, initiator_key, pair_id, expires_at, consumed
		FROM relay_tokens
		WHERE token = $1
	`

	var rt store.RelayToken
	err := s.pool.QueryRow(ctx, query, token).Scan(&rt.Token, &rt.InitiatorKey, &rt.PairID, &rt.ExpiresAt, &rt.Consumed)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	return &rt, nil
}

// JoinPair redeems token via compare-and-set, the sole authoritative
// race defence against two followers redeeming the same token
// concurrently, then upserts the follower with re-pair semantics.
func (s *Store) JoinPair(ctx context.Context, token string, followerKey string) (bool, string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, "", fmt.Errorf("begin join pair: %w", err)
	}
	defer tx.Rollback(ctx)

	var pairID string
	cas := `
		UPDATE relay_tokens SET consumed = true
		WHERE token = $1 AND NOT consumed
		RETURNING pair_id
	`
	err = tx.QueryRow(ctx, cas, token).Scan(&pairID)
	if err == pgx.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("consume token: %w", err)
	}

	upsert := `
		INSERT INTO users (public_key, pair_id, push_endpoint, push_p256dh, push_auth)
		VALUES ($1, $2, NULL, NULL, NULL)
		ON CONFLICT (public_key) DO UPDATE SET
			pair_id = EXCLUDED.pair_id,
			push_endpoint = NULL,
			push_p256dh = NULL,
			push_auth = NULL
	`
	if _, err := tx.Exec(ctx, upsert, followerKey, pairID); err != nil {
		return false, "", fmt.Errorf("upsert follower: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, "", fmt.Errorf("commit join pair: %w", err)
	}

	return true, pairID, nil
}
