package main

import (
	"context"
	"net/http"
	"time"

	"github.com/poofware/rental-service/internal/app"
	"github.com/poofware/rental-service/internal/config"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/controllers"
	"github.com/poofware/rental-service/internal/repositories"
	"github.com/poofware/rental-service/internal/services"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize rental-service:", err)
	}
	defer application.Close()

	// Repositories
	tenantRepo := repositories.NewTenantRepository(application.DB)
	unitRepo := repositories.NewUnitRepository(application.DB)
	leaseRepo := repositories.NewLeaseRepository(application.DB)
	paymentRepo := repositories.NewPaymentRepository(application.DB)

	if cfg.LDFlag_SeedDbWithTestData {
		if err := app.SeedAllTestData(context.Background(), tenantRepo, unitRepo); err != nil {
			utils.Logger.Fatal("Failed to seed test data:", err)
		}
	}

	// Services
	gateway := services.NewStripeCheckoutGateway(cfg.StripeSecretKey)
	notificationService := services.NewNotificationService(cfg)
	leaseService := services.NewLeaseService(tenantRepo, leaseRepo)
	paymentService := services.NewPaymentService(cfg, tenantRepo, leaseRepo, paymentRepo, gateway, notificationService)

	// Controllers
	healthController := controllers.NewHealthController(application.DB)
	leaseController := controllers.NewLeaseController(leaseService)
	paymentController := controllers.NewPaymentController(paymentService)
	stripeWebhookController := controllers.NewStripeWebhookController(paymentService)

	router := newRouter(cfg.RSAPublicKey, cfg.TokenIssuer, routeHandlers{
		health:  healthController,
		lease:   leaseController,
		payment: paymentController,
		webhook: stripeWebhookController,
	})

	if cfg.LDFlag_StalePaymentSweep {
		c := cron.New(cron.WithLocation(time.UTC))
		_, err = c.AddFunc(constants.StalePaymentSweepCronSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.StalePaymentSweepJobTimeout)
			defer cancel()
			utils.Logger.Info("Starting stale payment sweep cron job...")
			res, err := paymentService.SweepStalePending(ctx)
			if err != nil {
				utils.Logger.WithError(err).Error("Stale payment sweep failed")
				return
			}
			utils.Logger.Infof("Stale payment sweep: checked=%d succeeded=%d failed=%d errors=%d",
				res.Checked, res.Succeeded, res.Failed, res.Errors)
		})
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to schedule stale payment sweep cron")
		}
		c.Start()
		defer c.Stop()
		utils.Logger.Info("Scheduled stale payment sweep")
	}

	allowedOrigins := []string{cfg.AppUrl, cfg.FrontendUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   []string{"Authorization", "Content-Type", "ngrok-skip-browser-warning"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("rental-service failed to start:", err)
	}
}
