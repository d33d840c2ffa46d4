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

// Package commands implements the logprobe operator CLI.
package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information, set from main via SetVersion.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersion records build-time version information.
func SetVersion(v, c, b string) {
	version, commit, buildDate = v, c, b
}

// NewRootCommand creates the logprobe root command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "logprobe",
		Short: "Operator CLI for the logprobe control plane",
		Long: `logprobe manages remote log-injection directives: create trace sets,
attach directives, register probes and inspect the change log of a
running logprobed daemon.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Accept snake_case flag spellings for muscle-memory parity with
	// the config file keys.
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.PersistentFlags().String("server", defaultServer,
		"Daemon base URL (env: LOGPROBE_SERVER)")
	root.PersistentFlags().String("token", "",
		"Bearer token (env: LOGPROBE_TOKEN; falls back to the keyring)")
	root.PersistentFlags().Bool("json", false, "Output JSON instead of tables")

	root.AddCommand(newLoginCommand())
	root.AddCommand(newLogoutCommand())
	root.AddCommand(newTraceSetCommand())
	root.AddCommand(newDirectiveCommand())
	root.AddCommand(newProbeCommand())
	root.AddCommand(newVersionCommand())

	return root
}
