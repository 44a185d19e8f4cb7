package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gartstein/empresas/internal/empresas/config"
	"github.com/gartstein/empresas/internal/empresas/events"
	"github.com/spf13/cobra"
)

var auditGroup string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print import and clear events as they are published",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if len(cfg.KafkaBrokers) == 0 {
			return fmt.Errorf("no kafka brokers configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer := events.NewConsumer(cfg.KafkaBrokers, auditGroup, cfg.Topic, logger)
		defer consumer.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		consumer.RegisterHandler(func(_ context.Context, event events.Event) error {
			return enc.Encode(event)
		})
		return consumer.Run(ctx)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditGroup, "group", "empresasctl-audit", "Kafka consumer group")
	rootCmd.AddCommand(auditCmd)
}
