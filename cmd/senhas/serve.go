package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fabrica-cultura/senhas/internal/backend"
	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/internal/metrics"
	"github.com/fabrica-cultura/senhas/pkg/server"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the panel server",
		Long: `Start the panel server.

Open the printed URL for the settings view, add #/command for the
operator and copy the transmission link to the public display.

Examples:
  senhas serve
  senhas serve --port=9000
  senhas serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				c.cfg.Server.Port = port
			}
			if host != "" {
				c.cfg.Server.Host = host
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, c, cmd)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from senhas.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from senhas.json)")

	return cmd
}

func runServe(ctx context.Context, c *cli, cmd *cobra.Command) error {
	cfg := c.cfg
	m := metrics.New(metrics.WithConstLabels(prometheus.Labels{"panel": cfg.Name}))

	b, err := backend.Open(ctx, cfg, backend.WithLogger(c.logger), backend.WithMetrics(m))
	if err != nil {
		return err
	}
	defer b.Close()

	srv, err := server.New(ctx, b.Store, b.Hub, serverConfig(cfg),
		server.WithLogger(c.logger.With("component", "server")),
		server.WithMetrics(b.Metrics),
		server.WithLogos(b.Logos),
		server.WithDiskLogos(b.DiskLogos),
	)
	if err != nil {
		return errors.New("E181").Wrap(err)
	}

	out := cmd.OutOrStdout()
	success(out, "Panel ready at %s", cfg.URL())
	info(out, "storage: %s, logos: %s", cfg.Storage.Driver, cfg.Logo.Backend)
	if cfg.Bus.Bridge {
		info(out, "bus bridged over redis at %s", cfg.Storage.Redis.Addr)
	}

	if err := srv.Run(ctx); err != nil {
		return errors.New("E181").Wrap(err)
	}
	return nil
}

// serverConfig maps senhas.json onto the server settings.
func serverConfig(cfg *config.Config) *server.Config {
	return &server.Config{
		Address:         cfg.Address(),
		Channel:         cfg.Bus.Channel,
		PublicURL:       cfg.Server.PublicURL,
		Metrics:         cfg.Server.Metrics,
		LogoMaxBytes:    cfg.Logo.MaxBytes,
		Dwell:           cfg.Dwell(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}
}
