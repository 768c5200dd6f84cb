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

var sweepBeforeDayID string

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Inspect and maintain stored entries",
}

var entriesSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete unacked entries older than a day cutoff",
	Long: `sweep removes entries with dayId strictly before --before that
were never acked. relayd itself never runs this automatically.`,
	RunE: runEntriesSweep,
}

func init() {
	rootCmd.AddCommand(entriesCmd)
	entriesCmd.AddCommand(entriesSweepCmd)

	entriesSweepCmd.Flags().StringVar(&sweepBeforeDayID, "before", "", "delete unacked entries with dayId strictly before this cutoff (required)")
	_ = entriesSweepCmd.MarkFlagRequired("before")
}

func runEntriesSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openConfiguredStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.DeleteOrphanedBefore(ctx, sweepBeforeDayID)
	if err != nil {
		return fmt.Errorf("delete orphaned entries: %w", err)
	}

	fmt.Printf("removed %d orphaned entr(y/ies) before %s\n", removed, sweepBeforeDayID)
	return nil
}
