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
	"context"
	"fmt"

	"github.com/relaymesh/relayd/internal/config"
	"github.com/relaymesh/relayd/internal/store"
	"github.com/relaymesh/relayd/internal/store/memory"
	"github.com/relaymesh/relayd/internal/store/postgres"
)

// openConfiguredStore loads the relayd config from configDir and opens
// the store it names, mirroring cmd/relayd's own driver selection.
func openConfiguredStore(ctx context.Context) (store.Store, error) {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	switch cfg.Store.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.NewStore(ctx, &postgres.Config{
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
			User:     cfg.Store.User,
			Password: cfg.Store.Password,
			Database: cfg.Store.Database,
			SSLMode:  cfg.Store.SSLMode,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
