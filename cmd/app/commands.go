package main

import (
	"context"
	"fmt"

	"RestaurantAPI/internal/config"
	"RestaurantAPI/internal/db"
	"RestaurantAPI/internal/middleware"
	"RestaurantAPI/internal/model"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [session-id]",
		Short: "Create the order for a paid checkout session if it is missing",
		Long: `Looks the checkout session up at the payment provider and, when it is paid
and no order exists for it yet, creates the order. Safe to run repeatedly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := buildApplication(ctx, cfg, newLogger(cfg.LogLevel))
			if err != nil {
				return err
			}
			defer app.Close()

			o, err := app.recon.Reconcile(ctx, args[0])
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s (%s) total %.2f\n", o.ID, o.Status, o.Total)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID int64
		email  string
		role   string
		hours  int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id is required")
			}
			if role != model.RoleCustomer && role != model.RoleAdmin {
				return fmt.Errorf("--role must be %s or %s", model.RoleCustomer, model.RoleAdmin)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			middleware.SetSecret(cfg.JWTSecret)
			t, err := middleware.GenerateToken(userID, email, role, hours)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "user id placed in the token")
	cmd.Flags().StringVar(&email, "email", "", "email placed in the token")
	cmd.Flags().StringVar(&role, "role", model.RoleCustomer, "customer or admin")
	cmd.Flags().IntVar(&hours, "hours", 24, "token lifetime in hours")
	return cmd
}
