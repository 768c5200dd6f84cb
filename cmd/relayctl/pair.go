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

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relayd/internal/store"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Inspect pairing state for a public key",
}

var pairStatusCmd = &cobra.Command{
	Use:   "status <publicKey>",
	Short: "Show whether a public key is enrolled and paired",
	Args:  cobra.ExactArgs(1),
	RunE:  runPairStatus,
}

func init() {
	rootCmd.AddCommand(pairCmd)
	pairCmd.AddCommand(pairStatusCmd)
}

func runPairStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openConfiguredStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	publicKey := args[0]
	user, err := st.GetUser(ctx, publicKey)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Printf("%s is not enrolled\n", publicKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	fmt.Printf("publicKey: %s\npairId:    %s\n", user.PublicKey, user.PairID)

	partner, err := st.PartnerOf(ctx, publicKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Println("partner:   (unpaired)")
	case err != nil:
		return fmt.Errorf("get partner: %w", err)
	default:
		fmt.Printf("partner:   %s\n", partner.PublicKey)
	}

	return nil
}
