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

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/tombee/logprobe/pkg/client"
)

const (
	defaultServer = "http://127.0.0.1:7762"

	// keyringService namespaces stored tokens in the OS keyring.
	keyringService = "logprobe"
)

// CLI style colors using lipgloss
var (
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleBold  = lipgloss.NewStyle().Bold(true)
)

const (
	symbolOK    = "✓"
	symbolWarn  = "⚠"
	symbolError = "✗"
)

func renderOK(msg string) string {
	return styleOK.Render(symbolOK) + " " + msg
}

func renderWarn(msg string) string {
	return styleWarn.Render(symbolWarn) + " " + msg
}

// serverURL resolves the daemon base URL: flag, then environment, then
// the default.
func serverURL(cmd *cobra.Command) string {
	if cmd.Flags().Changed("server") {
		server, _ := cmd.Flags().GetString("server")
		return server
	}
	if v := os.Getenv("LOGPROBE_SERVER"); v != "" {
		return v
	}
	server, _ := cmd.Flags().GetString("server")
	return server
}

// resolveToken resolves the bearer token: flag, then environment, then
// the keyring entry written by `logprobe login`.
func resolveToken(cmd *cobra.Command, server string) string {
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		return token
	}
	if v := os.Getenv("LOGPROBE_TOKEN"); v != "" {
		return v
	}
	if token, err := keyring.Get(keyringService, server); err == nil {
		return token
	}
	return ""
}

// newClient builds an API client from the persistent flags.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	server := serverURL(cmd)
	return client.New(server, resolveToken(cmd, server))
}

// jsonOutput reports whether --json was requested.
func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatAge renders a timestamp as a short relative age like "3m" or
// "2h", for table output.
func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
