package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/empresas/internal/empresas/auth"
	"github.com/gartstein/empresas/internal/empresas/db"
	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	userPassword string
	notAdmin     bool
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin [email]",
	Short: "Create a login, flagged as admin unless --staff is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		id, err := createUser(cmd.Context(), repo, args[0], userPassword, !notAdmin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", args[0], id)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVarP(&userPassword, "password", "p", "", "Password for the new user")
	createAdminCmd.Flags().BoolVar(&notAdmin, "staff", false, "Create the user without the admin flag")
	_ = createAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createAdminCmd)
}

// createUser stores the credentials and the profile in one transaction.
func createUser(ctx context.Context, repo *db.Repository, email, password string, isAdmin bool) (uuid.UUID, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return uuid.Nil, fmt.Errorf("%w: email and password are required", e.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	var id uuid.UUID
	err = repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		if id, err = tx.CreateUser(ctx, email, hash); err != nil {
			return err
		}
		return tx.UpsertProfile(ctx, models.Profile{ID: id, IsAdmin: isAdmin})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
