package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		driver string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a senhas.json with the defaults",
		Long: `Write a senhas.json with the default settings to dir (default: the
working directory).

Examples:
  senhas init
  senhas init /srv/painel --driver=redis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := runInit(dir, driver, force)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created %s", path)
			info(cmd.OutOrStdout(), "Start the panel with: senhas serve")
			return nil
		},
	}

	cmd.Flags().StringVarP(&driver, "driver", "d", config.DefaultDriver, "Storage driver (memory, sqlite, mysql, redis)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing senhas.json")

	return cmd
}

func runInit(dir, driver string, force bool) (string, error) {
	if !force && config.Exists(dir) {
		return "", errors.New("E180").
			WithDetail("senhas.json already exists in " + dir).
			WithSuggestion("Use --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New("E180").Wrap(err)
	}

	cfg := config.New()
	cfg.Storage.Driver = driver
	if driver != config.DriverSQLite {
		cfg.Storage.DSN = ""
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return "", err
	}
	return path, nil
}
