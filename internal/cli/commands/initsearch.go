package commands

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bookcatalog/internal/app"
)

func newInitSearchCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-search",
		Short: "Create the search index and load every book into it",
		Long: "Creates the search index mapping if it does not exist and bulk-indexes " +
			"all books. With --force the index is dropped and rebuilt first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Search.Enabled {
				return errors.New("search is disabled in the configuration")
			}

			ctx := cmd.Context()
			container, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			svc := container.Search()
			if !svc.Available() {
				return errors.New("search index is not reachable")
			}

			if force {
				if err := svc.DropIndex(ctx); err != nil {
					return err
				}
				log.Info("dropped existing search index")
			}
			if err := svc.EnsureIndex(ctx); err != nil {
				return err
			}

			n, err := container.Books.ReindexAll(ctx)
			if err != nil {
				return err
			}
			log.WithField("count", n).Info("indexed books")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "drop and rebuild the index")
	return cmd
}
