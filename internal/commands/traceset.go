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

	"github.com/tombee/logprobe/internal/model"
)

func newTraceSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "traceset",
		Aliases: []string{"ts"},
		Short:   "Manage trace sets",
	}
	cmd.AddCommand(newTraceSetCreateCommand())
	cmd.AddCommand(newTraceSetGetCommand())
	cmd.AddCommand(newTraceSetLogCommand())
	cmd.AddCommand(newTraceSetFailuresCommand())
	return cmd
}

func newTraceSetCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <key>",
		Short: "Create a trace set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			ts, err := c.CreateTraceSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, ts)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOK(fmt.Sprintf("created trace set %s (%s)", ts.Key, ts.ID)))
			return nil
		},
	}
}

func newTraceSetGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show a trace set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			ts, err := c.GetTraceSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, ts)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", styleMuted.Render("Key:"), styleBold.Render(ts.Key))
			fmt.Fprintf(out, "%s %s\n", styleMuted.Render("ID:"), ts.ID)
			fmt.Fprintf(out, "%s %s\n", styleMuted.Render("Created:"), ts.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newTraceSetLogCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log <key>",
		Short: "Show a trace set's change log with delivery status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			entries, err := c.ChangeLog(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), styleMuted.Render("no changes recorded"))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tTYPE\tTARGET\tDELIVERIES")
			for _, e := range entries {
				target := ""
				switch {
				case e.DirectiveID != nil:
					target = *e.DirectiveID
				case e.ProbeID != nil:
					target = *e.ProbeID
				}
				var success, failed, pending int
				for _, rec := range e.Deliveries {
					switch {
					case !rec.State.Terminal():
						pending++
					case rec.State == model.DeliverySuccess:
						success++
					default:
						failed++
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					formatAge(e.CreatedAt), e.Type, target,
					deliverySummary(success, failed, pending))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show (0 = all)")
	return cmd
}

func deliverySummary(success, failed, pending int) string {
	if success+failed+pending == 0 {
		return styleMuted.Render("none")
	}
	s := fmt.Sprintf("%s %d", styleOK.Render(symbolOK), success)
	if failed > 0 {
		s += fmt.Sprintf("  %s %d", styleError.Render(symbolError), failed)
	}
	if pending > 0 {
		s += fmt.Sprintf("  %s %d", styleWarn.Render(symbolWarn), pending)
	}
	return s
}

func newTraceSetFailuresCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "failures <key>",
		Short: "List failures reported by the trace set's probes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			failures, err := c.ListFailures(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, failures)
			}
			if len(failures) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderOK("no failures reported"))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LAST SEEN\tDIRECTIVE\tMESSAGE")
			for _, f := range failures {
				directive := styleMuted.Render("-")
				if f.DirectiveID != nil {
					directive = *f.DirectiveID
					if f.DirectiveVersion != nil {
						directive = fmt.Sprintf("%s@v%d", directive, *f.DirectiveVersion)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", formatAge(f.UpdatedAt), directive, f.Message)
			}
			return w.Flush()
		},
	}
}
