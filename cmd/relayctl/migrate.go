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
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relayd/internal/config"
)

var (
	migrationsDir string
	migrateBinary string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `migrate shells out to an external migration runner pointed at the
configured store's DSN and the given migrations directory.

relayd itself never runs DDL; it only requires the schema to already
exist (see the entries/pairs/tokens tables in the project's schema
docs). This command is a thin wrapper so operators don't need to
hand-build a DSN from the YAML config.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "directory of versioned SQL migration files")
	migrateCmd.Flags().StringVar(&migrateBinary, "bin", "migrate", "migration runner executable to invoke (must be on PATH)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver != "postgres" {
		return fmt.Errorf("migrate only applies to the postgres driver, configured driver is %q", cfg.Store.Driver)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Store.User, cfg.Store.Password, cfg.Store.Host, cfg.Store.Port, cfg.Store.Database, cfg.Store.SSLMode)

	migrateArgs := []string{"-database", dsn, "-path", migrationsDir, "up"}
	run := exec.Command(migrateBinary, migrateArgs...)
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr

	if err := run.Run(); err != nil {
		return fmt.Errorf("run %s: %w", migrateBinary, err)
	}
	return nil
}
