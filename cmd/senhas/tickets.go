package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrica-cultura/senhas/internal/backend"
	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/pkg/state"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

// openPanel opens the backend and a context of its own on it. With the
// Redis bridge enabled, running servers see the change immediately.
func openPanel(ctx context.Context, c *cli) (*state.Manager, func(), error) {
	b, err := backend.Open(ctx, c.cfg, backend.WithLogger(c.logger))
	if err != nil {
		return nil, nil, err
	}
	m, err := state.New(ctx, b.Store, b.Hub.Open(c.cfg.Bus.Channel),
		state.WithLogger(c.logger.With("component", "state", "context", "cli")),
		state.WithRecorder(b.Metrics),
	)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return m, func() {
		m.Close()
		b.Close()
	}, nil
}

func parseType(arg string) (ticket.Type, error) {
	t, err := ticket.ParseType(arg)
	if err != nil {
		return "", errors.New("E140").WithDetail("Got " + arg + "; ticket types are common and priority.")
	}
	return t, nil
}

func stateCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the counters and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := openPanel(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer done()
			return printState(cmd.OutOrStdout(), m.Config(), m.Tickets(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printState(w io.Writer, cfg ticket.Config, s ticket.State, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"config": cfg, "tickets": s})
	}
	for _, t := range ticket.Types {
		min, max := cfg.Bounds(t)
		fmt.Fprintf(w, "%-9s %4d  [%d..%d]\n", t, s.Get(t), min, max)
	}
	fmt.Fprintf(w, "updated   %s\n", time.UnixMilli(s.LastUpdate).Format(time.RFC3339))
	fmt.Fprintf(w, "alert     %d\n", cfg.SelectedSound)
	if logo := cfg.Logo(); logo != "" {
		if len(logo) > 60 {
			logo = logo[:57] + "..."
		}
		fmt.Fprintf(w, "logo      %s\n", logo)
	}
	return nil
}

func adjustCmd(c *cli, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:       name + " <common|priority>",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(ticket.Common), string(ticket.Priority)},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			dir, err := state.ParseDirection(name)
			if err != nil {
				return err
			}

			m, done, err := openPanel(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer done()

			before := m.Tickets().Get(t)
			s, changed, err := m.Adjust(cmd.Context(), t, dir)
			if err != nil {
				return errors.FromError(err, "E101")
			}
			out := cmd.OutOrStdout()
			if !changed {
				min, max := m.Config().Bounds(t)
				info(out, "%s stays at %d (bounds %d..%d)", t, before, min, max)
				return nil
			}
			success(out, "%s: %d → %d", t, before, s.Get(t))
			return nil
		},
	}
}

func resetCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset [common|priority]",
		Short: "Reset one counter to its minimum, or both to the defaults",
		Long: `Reset counters.

With a ticket type, that counter goes back to its configured minimum.
Without one, both counters go back to their defaults after
confirmation.

Examples:
  senhas reset priority
  senhas reset --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var t ticket.Type
			if len(args) == 1 {
				var err error
				if t, err = parseType(args[0]); err != nil {
					return err
				}
			}

			m, done, err := openPanel(ctx, c)
			if err != nil {
				return err
			}
			defer done()

			if t != "" {
				s, err := m.ResetToMin(ctx, t)
				if err != nil {
					return errors.FromError(err, "E101")
				}
				success(out, "%s reset to %d", t, s.Get(t))
				return nil
			}

			confirmer := state.Confirmed(true)
			if !yes {
				confirmer = promptConfirmer(cmd.InOrStdin(), out)
			}
			_, reset, err := m.ResetAll(ctx, confirmer)
			if err != nil {
				return errors.FromError(err, "E101")
			}
			if !reset {
				info(out, "nothing changed")
				return nil
			}
			success(out, "all counters reset")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// promptConfirmer asks on out and reads a yes/no answer from in.
func promptConfirmer(in io.Reader, out io.Writer) state.Confirmer {
	return state.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(out, "%s [s/N] ", prompt)
		line, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "sim", "y", "yes":
			return true
		}
		return false
	})
}
