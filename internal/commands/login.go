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
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/tombee/logprobe/pkg/client"
)

func newLoginCommand() *cobra.Command {
	var scope string
	var print bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange the operator secret for a token and store it",
		Long: `login prompts for the operator secret, exchanges it for a scoped
token and stores the token in the OS keyring, keyed by server URL.
Subsequent commands pick the token up automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if scope != "read" && scope != "write" {
				return fmt.Errorf("scope must be read or write, got %q", scope)
			}

			secret, err := promptSecret(cmd)
			if err != nil {
				return err
			}

			server := serverURL(cmd)
			c, err := client.New(server, secret)
			if err != nil {
				return err
			}

			subject := "operator"
			if u, err := user.Current(); err == nil && u.Username != "" {
				subject = u.Username
			}

			token, err := c.IssueToken(cmd.Context(), subject, scope)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			if print {
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}

			if err := keyring.Set(keyringService, server, token); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderWarn("keyring unavailable; printing token instead"))
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOK(fmt.Sprintf("logged in to %s (%s scope)", server, scope)))
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "write", "Token scope: read or write")
	cmd.Flags().BoolVar(&print, "print", false, "Print the token instead of storing it")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token for the current server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := serverURL(cmd)
			if err := keyring.Delete(keyringService, server); err != nil {
				return fmt.Errorf("no stored token for %s", server)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOK("logged out of "+server))
			return nil
		},
	}
}

// promptSecret reads the operator secret, from the terminal when stdin
// is a TTY, otherwise from piped stdin.
func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), "Operator secret: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var secret string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &secret); err != nil {
		return "", fmt.Errorf("reading secret from stdin: %w", err)
	}
	return strings.TrimSpace(secret), nil
}
