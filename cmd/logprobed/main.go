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

// Command logprobed runs the logprobe control-plane daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tombee/logprobe/internal/config"
	"github.com/tombee/logprobe/internal/daemon"
	"github.com/tombee/logprobe/internal/log"
)

// Set via ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file (YAML)")
		listenAddr  = flag.String("listen", "", "TCP listen address (overrides config)")
		socketPath  = flag.String("socket", "", "Unix socket path (overrides config)")
		storePath   = flag.String("store", "", "SQLite database path (overrides config)")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("logprobed %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}

	// Bootstrap logger for startup errors; the daemon builds its own
	// from the loaded config.
	slog.SetDefault(log.New(log.FromEnv()))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *listenAddr != "" {
		cfg.Listen.TCPAddr = *listenAddr
	}
	if *socketPath != "" {
		cfg.Listen.SocketPath = *socketPath
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	d, err := daemon.New(cfg, *configPath)
	if err != nil {
		slog.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting logprobed", "version", version)
	if err := d.Run(ctx); err != nil {
		slog.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
}
