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

func newDirectiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "directive",
		Aliases: []string{"d"},
		Short:   "Manage log directives",
	}
	cmd.AddCommand(newDirectiveCreateCommand())
	cmd.AddCommand(newDirectiveListCommand())
	cmd.AddCommand(newDirectiveUpdateCommand())
	cmd.AddCommand(newDirectiveDeleteCommand())
	return cmd
}

func newDirectiveCreateCommand() *cobra.Command {
	var module, function, statement string

	cmd := &cobra.Command{
		Use:   "create <traceset>",
		Short: "Add a directive to a trace set",
		Example: `  logprobe directive create acme \
    --module billing/invoice --function Charge \
    --statement "charging {amount} for {customer}"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			d, err := c.CreateDirective(cmd.Context(), args[0], module, function, statement)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, d)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOK(fmt.Sprintf("created directive %s on %s.%s", d.ID, d.Module, d.Function)))
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module path the directive targets")
	cmd.Flags().StringVar(&function, "function", "", "Function the directive targets")
	cmd.Flags().StringVar(&statement, "statement", "", "Log statement template")
	cmd.MarkFlagRequired("module")
	cmd.MarkFlagRequired("function")
	cmd.MarkFlagRequired("statement")
	return cmd
}

func newDirectiveListCommand() *cobra.Command {
	var moduleGlob string

	cmd := &cobra.Command{
		Use:   "list <traceset>",
		Short: "List the desired set of active directives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			directives, err := c.ListDirectives(cmd.Context(), args[0], moduleGlob)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, directives)
			}
			if len(directives) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), styleMuted.Render("no active directives"))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODULE\tFUNCTION\tVERSION\tSTATEMENT")
			for _, d := range directives {
				fmt.Fprintf(w, "%s\t%s\t%s\tv%d\t%s\n",
					d.ID, d.Module, d.Function, d.Version, d.Statement)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&moduleGlob, "module", "", "Filter by module glob, e.g. billing/**")
	return cmd
}

func newDirectiveUpdateCommand() *cobra.Command {
	var statement string
	var active bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a directive's statement or active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var statementArg *string
			var activeArg *bool
			if cmd.Flags().Changed("statement") {
				statementArg = &statement
			}
			if cmd.Flags().Changed("active") {
				activeArg = &active
			}
			if statementArg == nil && activeArg == nil {
				return fmt.Errorf("nothing to update: pass --statement and/or --active")
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			d, err := c.UpdateDirective(cmd.Context(), args[0], statementArg, activeArg)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, d)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOK(fmt.Sprintf("updated directive %s (now v%d)", d.ID, d.Version)))
			return nil
		},
	}

	cmd.Flags().StringVar(&statement, "statement", "", "New log statement template")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the directive is active")
	return cmd
}

func newDirectiveDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			d, err := c.DeleteDirective(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, d)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOK("deleted directive "+d.ID))
			return nil
		},
	}
}
