// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package daemon assembles the control plane: configuration, record
// store, telemetry, the controller and the HTTP server, with graceful
// shutdown and runtime config reload.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/tombee/logprobe/internal/config"
	"github.com/tombee/logprobe/internal/control"
	"github.com/tombee/logprobe/internal/daemon/api"
	"github.com/tombee/logprobe/internal/daemon/auth"
	"github.com/tombee/logprobe/internal/log"
	"github.com/tombee/logprobe/internal/store"
	"github.com/tombee/logprobe/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Daemon is a fully wired control-plane instance.
type Daemon struct {
	cfg        *config.Config
	configPath string

	logger   *slog.Logger
	levelVar *slog.LevelVar
	dynamic  *config.Dynamic

	store    *store.Store
	provider *telemetry.Provider
	server   *http.Server
}

// New assembles a daemon from configuration. configPath may be empty;
// when set, the file is watched and the dynamic settings (log level,
// liveness windows) are applied on change.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	levelVar := &slog.LevelVar{}
	logger := log.New(&log.Config{
		Level:    cfg.Log.Level,
		Format:   log.Format(cfg.Log.Format),
		LevelVar: levelVar,
	})

	provider, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	dynamic := config.NewDynamic(cfg.Liveness)
	ctrl := control.New(st, dynamic, provider.Metrics(), log.WithComponent(logger, "control"))

	issuer := auth.NewTokenIssuer(cfg.Auth.OperatorSecret, cfg.Auth.TokenTTL)
	handler := api.NewRouter(api.Config{
		Controller:     ctrl,
		Operator:       auth.NewOperator(cfg.Auth.OperatorSecret, issuer, log.WithComponent(logger, "auth")),
		TokenIssuer:    issuer,
		RateLimiter:    auth.NewRateLimiter(cfg.Limits),
		MetricsHandler: provider.MetricsHandler(),
		Logger:         log.WithComponent(logger, "api"),
	})

	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		levelVar:   levelVar,
		dynamic:    dynamic,
		store:      st,
		provider:   provider,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	listener, err := d.listen()
	if err != nil {
		return err
	}

	var watcher *config.Watcher
	if d.configPath != "" {
		watcher, err = config.Watch(d.configPath, log.WithComponent(d.logger, "config"), d.applyReload)
		if err != nil {
			d.logger.Warn("config watch unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon listening", "addr", listener.Addr().String())
		if err := d.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		d.close()
		return err
	case <-ctx.Done():
	}

	d.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("graceful shutdown incomplete", "error", err)
	}
	<-errCh

	d.close()
	return nil
}

func (d *Daemon) listen() (net.Listener, error) {
	if socket := d.cfg.Listen.SocketPath; socket != "" {
		// A stale socket from a previous run blocks the bind.
		if _, err := os.Stat(socket); err == nil {
			if err := os.Remove(socket); err != nil {
				return nil, fmt.Errorf("removing stale socket: %w", err)
			}
		}
		return net.Listen("unix", socket)
	}
	return net.Listen("tcp", d.cfg.Listen.TCPAddr)
}

// applyReload applies the dynamic subset of a freshly loaded config.
func (d *Daemon) applyReload(cfg *config.Config) {
	d.dynamic.Apply(cfg.Liveness)
	d.levelVar.Set(log.ParseLevel(cfg.Log.Level))
	d.logger.Info("dynamic config applied",
		"log_level", cfg.Log.Level,
		"self_report_window", cfg.Liveness.SelfReport.String(),
		"fanout_window", cfg.Liveness.Fanout.String())
}

func (d *Daemon) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.provider.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("telemetry shutdown failed", "error", err)
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("store close failed", "error", err)
	}
}
