package commands

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bookcatalog/internal/app"
	"bookcatalog/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			if cfg.Search.Enabled {
				if err := container.Search().EnsureIndex(ctx); err != nil {
					log.WithError(err).Warn("could not ensure search index")
				}
				container.Search().StartProbing(ctx, cfg.Search.ProbeInterval)
			}

			server := web.NewServer(
				container.Authors,
				container.Books,
				container.Reviews,
				container.Sales,
				container.Stats,
				container.Search(),
				web.WithDBCheck(container.DB().PingContext),
			)
			if err := server.Run(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
