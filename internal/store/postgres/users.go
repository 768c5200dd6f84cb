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

// GetUser returns store.ErrNotFound if publicKey is not enrolled.
func (s *Store) GetUser(ctx context.Context, publicKey string) (*store.User, error) {
	query := `
		SELECT public_key, pair_id, push_endpoint, push_p256dh, push_auth
		FROM users
		WHERE public_key = $1
	`

	var u store.User
	var endpoint, p256dh, auth *string

	err := s.pool.QueryRow(ctx, query, publicKey).Scan(&u.PublicKey, &u.PairID, &endpoint, &p256dh, &auth)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if endpoint != nil {
		u.Push = store.PushSubscription{Endpoint: *endpoint, P256DH: deref(p256dh), Auth: deref(auth)}
	}

	return &u, nil
}

// PartnerOf returns store.ErrNotFound if the pair has only one member.
func (s *Store) PartnerOf(ctx context.Context, publicKey string) (*store.User, error) {
	query := `
		SELECT public_key, pair_id, push_endpoint, push_p256dh, push_auth
		FROM users
		WHERE pair_id = (SELECT pair_id FROM users WHERE public_key = $1)
		  AND public_key != $1
	`

	var u store.User
	var endpoint, p256dh, auth *string

	err := s.pool.QueryRow(ctx, query, publicKey).Scan(&u.PublicKey, &u.PairID, &endpoint, &p256dh, &auth)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get partner: %w", err)
	}

	if endpoint != nil {
		u.Push = store.PushSubscription{Endpoint: *endpoint, P256DH: deref(p256dh), Auth: deref(auth)}
	}

	return &u, nil
}

// SetPushSubscription upserts a user's push triple.
func (s *Store) SetPushSubscription(ctx context.Context, publicKey string, sub store.PushSubscription) error {
	query := `
		UPDATE users SET push_endpoint = $1, push_p256dh = $2, push_auth = $3
		WHERE public_key = $4
	`

	result, err := s.pool.Exec(ctx, query, sub.Endpoint, sub.P256DH, sub.Auth, publicKey)
	if err != nil {
		return fmt.Errorf("set push subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearPushSubscription nulls a user's push triple.
func (s *Store) ClearPushSubscription(ctx context.Context, publicKey string) error {
	query := `
		UPDATE users SET push_endpoint = NULL, push_p256dh = NULL, push_auth = NULL
		WHERE public_key = $1
	`

	_, err := s.pool.Exec(ctx, query, publicKey)
	if err != nil {
		return fmt.Errorf("clear push subscription: %w", err)
	}
	return nil
}

// DeleteAccount removes a user's entries, then the user row.
func (s *Store) DeleteAccount(ctx context.Context, publicKey string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete account: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM entries WHERE author_key = $1`, publicKey); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM users WHERE public_key = $1`, publicKey)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return tx.Commit(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
