// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command topoctl is a client for topovisord.  It uses subcommands.
//
// The flags are
//
//	-a <address>	- the server URL, default is http://127.0.0.1:8080
//	-u <user:pass>	- user name & password for basic auth
//
// Subcommands are
//
//	status          - show the topology (the default when not in the UI)
//	json            - print the structured report
//	processes       - list the managed processes, trouble first
//	log             - print the server's background task log (--clear empties it)
//	health          - check that the server is up
//	hash [<pass>]   - print a bcrypt hash for the server's auth_hash
//	ui              - live view (the default)
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/gdamore/topovisor/render"
	"github.com/gdamore/topovisor/rest"
	"github.com/gdamore/topovisor/topoctl/util"
)

var addr string = "http://127.0.0.1:8080"
var auth string = ""
var timeout time.Duration = 10 * time.Second

func newClient() (*rest.Client, error) {
	client := rest.NewClient(nil, addr)
	if auth != "" {
		user, pass, ok := util.SplitAuth(auth)
		if !ok {
			return nil, fmt.Errorf("bad user:pass supplied")
		}
		client.SetAuth(user, pass)
	}
	return client, nil
}

func withClient(fn func(ctx context.Context, c *rest.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		c, e := newClient()
		if e != nil {
			return e
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return fn(ctx, c)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the process topology",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *rest.Client) error {
			doc, e := c.Report(ctx)
			if e != nil {
				return e
			}
			fmt.Println(render.Terminal(doc.Snapshot(), lipgloss.DefaultRenderer()))
			return nil
		}),
	}
}

func jsonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "json",
		Short: "Print the structured report",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *rest.Client) error {
			doc, e := c.Report(ctx)
			if e != nil {
				return e
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}),
	}
}

func processesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processes",
		Short: "List the managed processes",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *rest.Client) error {
			doc, e := c.Report(ctx)
			if e != nil {
				return e
			}
			procs := doc.Architecture.ManagedProcesses
			util.SortProcesses(procs)
			for _, p := range procs {
				fmt.Printf("%-20s %-8s %-10s %s\n",
					p.Name, p.Status, p.State, p.Details)
			}
			return nil
		}),
	}
}

func logCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the background task log",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *rest.Client) error {
			if clear {
				return c.ClearLog(ctx)
			}
			info, e := c.Log(ctx, nil)
			if e != nil {
				return e
			}
			for _, r := range info.Records {
				fmt.Printf("%s %s\n", r.Time.Format(time.StampMilli), r.Text)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "clear the log instead of printing it")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *rest.Client) error {
			h, e := c.Health(ctx)
			if e != nil {
				return e
			}
			fmt.Printf("%s: %s\n", h.Service, h.Status)
			return nil
		}),
	}
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [password]",
		Short: "Print a bcrypt hash suitable for auth_hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pass string
			if len(args) == 1 {
				pass = args[0]
			} else {
				line, e := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if e != nil && line == "" {
					return fmt.Errorf("read password: %w", e)
				}
				pass = strings.TrimRight(line, "\r\n")
			}
			b, e := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
			if e != nil {
				return e
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func uiCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Show a live view of the topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, e := newClient()
			if e != nil {
				return e
			}
			return doUI(c, addr, interval)
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", 2*time.Second, "refresh interval")
	return cmd
}

func rootCmd() *cobra.Command {
	ui := uiCmd()
	root := &cobra.Command{
		Use:           "topoctl",
		Short:         "Inspect the process topology reported by topovisord",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          ui.RunE,
	}
	root.Flags().AddFlagSet(ui.Flags())
	root.PersistentFlags().StringVarP(&addr, "address", "a", addr, "topovisord address")
	root.PersistentFlags().StringVarP(&auth, "user", "u", auth, "user:pass authentication")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", timeout, "request timeout")
	root.AddCommand(statusCmd(), jsonCmd(), processesCmd(), logCmd(),
		healthCmd(), hashCmd(), ui)
	return root
}

func main() {
	if e := rootCmd().Execute(); e != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", e)
		os.Exit(1)
	}
}
