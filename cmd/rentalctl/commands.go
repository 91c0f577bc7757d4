package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/poofware/rental-service/internal/app"
	"github.com/poofware/rental-service/internal/config"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/models"
	"github.com/poofware/rental-service/internal/repositories"
	"github.com/poofware/rental-service/internal/services"
	"github.com/poofware/rental-service/migrations"
	"github.com/spf13/cobra"
)

// openApp loads config and connects. Callers must Close the result.
func openApp() (*app.App, error) {
	cfg := config.LoadConfig()
	return app.NewApp(cfg)
}

func newPaymentService(a *app.App) *services.PaymentService {
	tenantRepo := repositories.NewTenantRepository(a.DB)
	return services.NewPaymentService(
		a.Config,
		tenantRepo,
		repositories.NewLeaseRepository(a.DB),
		repositories.NewPaymentRepository(a.DB),
		services.NewStripeCheckoutGateway(a.Config.StripeSecretKey),
		services.NewNotificationService(a.Config),
	)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the rental schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := migrations.All()
			if err != nil {
				return err
			}
			for _, m := range all {
				if _, err := a.DB.Exec(cmd.Context(), m.SQL); err != nil {
					return fmt.Errorf("apply %s: %w", m.Name, err)
				}
				fmt.Printf("applied %s\n", m.Name)
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo tenant and units (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return app.SeedAllTestData(cmd.Context(),
				repositories.NewTenantRepository(a.DB),
				repositories.NewUnitRepository(a.DB),
			)
		},
	}
}

func sweepCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Settle payments left pending after a lost webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := newPaymentService(a).SweepStalePending(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("checked=%d succeeded=%d failed=%d errors=%d\n", res.Checked, res.Succeeded, res.Failed, res.Errors)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", constants.StalePaymentSweepJobTimeout, "Overall time limit")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [session_id]",
		Short: "Show Stripe's current status for a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			operator := models.Principal{Role: models.RoleAdmin}
			resp, err := newPaymentService(a).VerifyPayment(cmd.Context(), operator, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
}
