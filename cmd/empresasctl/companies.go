package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/gartstein/empresas/internal/empresas/config"
	"github.com/gartstein/empresas/internal/empresas/controller"
	"github.com/gartstein/empresas/internal/empresas/db"
	"github.com/gartstein/empresas/internal/empresas/events"
	"github.com/gartstein/empresas/internal/empresas/importer"
	"github.com/gartstein/empresas/internal/empresas/loader"
	"github.com/gartstein/empresas/internal/empresas/schema"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file.xlsx|file.csv]",
	Short: "Replace every company record with the rows of a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, err := importer.Parse(args[0], f)
		if err != nil {
			return err
		}
		prompt := fmt.Sprintf("Se eliminarán TODOS los registros y se cargarán %d nuevos. ¿Continuar?", len(rows))
		if err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt); err != nil {
			return err
		}

		cfg, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()
		svc, closeEvents := companyService(cfg, repo)
		defer closeEvents()

		res, err := svc.ReplaceAll(cmd.Context(), rows, actor())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d, inserted %d (%s columns)\n",
			res.Deleted, res.Inserted, res.Convention)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every company record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "¿Eliminar TODOS los registros?"); err != nil {
			return err
		}

		cfg, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()
		svc, closeEvents := companyService(cfg, repo)
		defer closeEvents()

		n, err := svc.ClearAll(cmd.Context(), actor())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, clearCmd)
}

// companyService wires the same service the web server uses. Audit events
// go to kafka when brokers are configured.
func companyService(cfg *config.Config, repo *db.Repository) (*controller.CompanyService, func()) {
	resolver := schema.NewResolver()
	l := loader.NewLoader(repo, resolver, logger)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		if err == nil {
			return controller.NewCompanyService(repo, l, resolver, producer, cfg.Table, logger), producer.Close
		}
		fmt.Fprintln(os.Stderr, "warning: audit events disabled:", err)
	}
	producer := events.NewNopProducer(logger)
	return controller.NewCompanyService(repo, l, resolver, producer, cfg.Table, logger), func() {}
}

func actor() string {
	if u, err := user.Current(); err == nil {
		return "cli:" + u.Username
	}
	return "cli"
}
