// empresasctl is the operator CLI: it provisions admin accounts, runs
// imports and clears from a terminal, and tails the audit topic.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gartstein/empresas/internal/empresas/config"
	"github.com/gartstein/empresas/internal/empresas/db"
	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const connectRetries = 3

var (
	configPath string
	assumeYes  bool
	verbose    bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "empresasctl",
	Short:         "Manage the empresas directory from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openRepository loads the config and connects to its database.
func openRepository(ctx context.Context) (*config.Config, *db.Repository, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	repo, err := db.Connect(ctx, cfg.Database(), connectRetries, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, repo, nil
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but an explicit yes refuses.
func confirm(in io.Reader, out io.Writer, prompt string) error {
	if assumeYes {
		return nil
	}
	fmt.Fprintf(out, "%s [s/N]: ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sí", "y", "yes":
		return nil
	}
	return e.ErrConfirmationRequired
}
