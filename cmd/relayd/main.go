// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaymesh/relayd/internal/api"
	"github.com/relaymesh/relayd/internal/config"
	"github.com/relaymesh/relayd/internal/entry"
	"github.com/relaymesh/relayd/internal/handoff"
	"github.com/relaymesh/relayd/internal/logger"
	"github.com/relaymesh/relayd/internal/metrics"
	"github.com/relaymesh/relayd/internal/pairing"
	"github.com/relaymesh/relayd/internal/push"
	"github.com/relaymesh/relayd/internal/sigverify"
	"github.com/relaymesh/relayd/internal/store"
	"github.com/relaymesh/relayd/internal/store/memory"
	"github.com/relaymesh/relayd/internal/store/postgres"
	"github.com/relaymesh/relayd/pkg/health"
)

func main() {
	configDir := flag.String("config-dir", "config", "directory holding environment-named YAML config files")
	flag.Parse()

	cfg, err := config.Load(config.LoaderOptions{ConfigDir: *configDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(os.Stdout, logger.ParseLevel(cfg.Logging.Level))
	log.Info("starting relayd", logger.String("environment", cfg.Environment), logger.String("store_driver", cfg.Store.Driver))

	st, err := openStore(cfg.Store)
	if err != nil {
		log.Fatal("failed to open store", logger.Error(err))
	}
	defer st.Close()

	verifier := sigverify.New(st)
	handoffSvc := handoff.New(verifier, log)
	handoffSvc.Start()
	defer handoffSvc.Stop()

	pairingSvc := pairing.New(st, st, handoffSvc, cfg.Pairing.TokenTTL)
	pushNotifier := push.New(st, nil, log) // no real push transport wired; see DESIGN.md
	entrySvc := entry.New(st, st, pushNotifier, log, cfg.Entry.DailyUploadLimit)

	throttle := api.NewThrottle(cfg.Throttle.Requests, cfg.Throttle.Window)
	apiServer := api.New(pairingSvc, entrySvc, handoffSvc, verifier, st, throttle, log)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("front door listening", logger.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("front door server error", logger.Error(err))
		}
	}()

	var healthSrv *health.Server
	if cfg.Health.Enabled {
		healthSrv, err = health.StartHealthServer(cfg.Health.Addr, st, log)
		if err != nil {
			log.Warn("health server failed to start", logger.Error(err))
		}
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Info("metrics listening", logger.String("addr", cfg.Metrics.Addr), logger.String("path", cfg.Metrics.Path))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", logger.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warn("front door shutdown error", logger.Error(err))
	}
	if healthSrv != nil {
		if err := healthSrv.Stop(ctx); err != nil {
			log.Warn("health server shutdown error", logger.Error(err))
		}
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown error", logger.Error(err))
		}
	}
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.NewStore(context.Background(), &postgres.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
			SSLMode:  cfg.SSLMode,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

