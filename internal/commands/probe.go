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
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Manage probes",
	}
	cmd.AddCommand(newProbeRegisterCommand())
	cmd.AddCommand(newProbeListCommand())
	return cmd
}

func newProbeRegisterCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "register <traceset>",
		Short: "Register a probe and print its bearer key",
		Long: `register creates a probe in the trace set's fleet and prints the
probe key. The key is shown exactly once; the daemon stores only a
hash of it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			info, err := c.RegisterProbe(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderOK("registered probe "+info.ID))
			fmt.Fprintln(out, renderWarn("store this key now; it cannot be recovered"))
			fmt.Fprintln(out, styleBold.Render(info.Key))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Free-form probe description")
	return cmd
}

func newProbeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <traceset>",
		Short: "List a trace set's probe fleet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			probes, err := c.ListProbes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, probes)
			}
			if len(probes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), styleMuted.Render("no probes registered"))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tLAST HEARTBEAT\tDESCRIPTION")
			for _, p := range probes {
				status := styleOK.Render(symbolOK + " alive")
				switch {
				case p.Closed:
					status = styleMuted.Render("closed")
				case !p.Alive:
					status = styleError.Render(symbolError + " stale")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.ID, status, formatAge(p.LastHeartbeat), p.Description)
			}
			return w.Flush()
		},
	}
}
