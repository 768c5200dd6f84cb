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
	"fmt"

	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Maintain the relay_tokens table",
}

var tokensSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete consumed or expired relay tokens",
	Long: `sweep deletes every relay token that is consumed or past its
expiry, useful for shrinking the table out-of-band on a cron. relayd
itself never deletes token rows.`,
	RunE: runTokensSweep,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensSweepCmd)
}

func runTokensSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openConfiguredStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}

	fmt.Printf("removed %d consumed or expired token(s)\n", removed)
	return nil
}
