// Command senhas runs the ticket panel and manages its counters from the
// shell.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the state shared by every command.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "senhas",
		Short: "Ticket panel for the common and priority queues",
		Long: `senhas serves the ticket panel: the operator's command view, the
settings view and the transmission view shown on the public display.

Every open view is a context of its own. Counter and settings changes
are persisted and broadcast so all contexts stay in sync, and the
transmission view highlights and announces each new ticket.

Configuration is read from senhas.json in the working directory or
any parent, or from --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "init":
				return nil
			}
			return c.load(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to senhas.json")

	rootCmd.AddCommand(
		serveCmd(c),
		stateCmd(c),
		adjustCmd(c, "next", "Call the next ticket of a queue"),
		adjustCmd(c, "prev", "Go back one ticket in a queue"),
		resetCmd(c),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// load reads the configuration and installs the default logger.
func (c *cli) load(logOut io.Writer) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	c.cfg = cfg
	c.logger = logger
	return nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
