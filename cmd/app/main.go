package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"RestaurantAPI/external/midtrans"
	"RestaurantAPI/external/resend"
	"RestaurantAPI/external/stripe"
	"RestaurantAPI/internal/cache"
	"RestaurantAPI/internal/cart"
	"RestaurantAPI/internal/config"
	"RestaurantAPI/internal/db"
	"RestaurantAPI/internal/middleware"
	"RestaurantAPI/internal/publisher"
	"RestaurantAPI/internal/repository"
	"RestaurantAPI/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "app",
		Short:         "Restaurant ordering API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, json or toml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) *log.Logger {
	l := log.New("restaurant")
	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(log.DEBUG)
	case "warn":
		l.SetLevel(log.WARN)
	case "error":
		l.SetLevel(log.ERROR)
	case "off":
		l.SetLevel(log.OFF)
	default:
		l.SetLevel(log.INFO)
	}
	return l
}

// application holds every wired dependency for one process.
type application struct {
	cfg    *config.Config
	logger *log.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client

	orders   *repository.OrderRepository
	outbox   *repository.OutboxRepository
	checkout *services.CheckoutService
	recon    *services.ReconciliationService
	orderSvc *services.OrderService
	menuSvc  *services.MenuService
}

func (a *application) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.pool.Close()
}

func buildApplication(ctx context.Context, cfg *config.Config, logger *log.Logger) (*application, error) {
	// ======================
	// INFRA
	// ======================
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, logger: logger, pool: pool}

	var menuCache cache.MenuCache
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			if cfg.PaymentProvider == config.ProviderMidtrans {
				app.Close()
				return nil, fmt.Errorf("redis is required for midtrans sessions: %w", err)
			}
			logger.Warnj(log.JSON{"event": "redis_unavailable", "addr": cfg.RedisAddr, "error": err.Error()})
			app.redis.Close()
			app.redis = nil
		} else {
			menuCache = cache.NewRedisMenuCache(app.redis)
		}
	}

	// ======================
	// EXTERNALS
	// ======================
	var gateway services.PaymentGateway
	switch cfg.PaymentProvider {
	case config.ProviderMidtrans:
		if app.redis == nil {
			app.Close()
			return nil, errors.New("midtrans provider needs redis_addr")
		}
		gateway = midtrans.NewGateway(cfg.MidtransServerKey, cfg.MidtransProduction, cache.NewSessionMirror(app.redis))
	default:
		gateway = stripe.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}

	// ======================
	// REPOSITORIES
	// ======================
	app.orders = repository.NewOrderRepository(pool)
	app.outbox = repository.NewOutboxRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	menuRepo := repository.NewMenuRepository(pool)

	// ======================
	// SERVICES
	// ======================
	pricing := cart.NewPricingRules(cfg.TaxRate, cfg.DeliveryFee, cfg.FreeDeliveryThreshold)
	app.menuSvc = services.NewMenuService(menuRepo, menuCache, logger)
	app.checkout = services.NewCheckoutService(userRepo, app.menuSvc, gateway, pricing, cfg.PublicBaseURL, cfg.Currency, logger)
	app.recon = services.NewReconciliationService(app.orders, userRepo, gateway, logger)
	if cfg.ResendAPIKey != "" {
		mailer, err := resend.NewMailer(cfg.ResendAPIKey, cfg.MailFrom)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.recon.Notifier = mailer
	}
	app.orderSvc = services.NewOrderService(app.orders, userRepo, logger)

	return app, nil
}

func newServer(app *application) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger = app.logger
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	api := e.Group("/restaurant")

	// ======================
	// ROUTES (ONLY REGISTRATION)
	// ======================
	registerMenuRoutes(api, app.menuSvc)
	registerCheckoutRoutes(api, app.checkout, app.recon)
	registerPaymentRoutes(api, app.recon, app.cfg.PaymentProvider)
	registerOrderRoutes(api, app.orderSvc)
	registerAdminOrderRoutes(api, app.orderSvc, app.recon)

	return e
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the order event publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			middleware.SetSecret(cfg.JWTSecret)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if brokers := cfg.Brokers(); len(brokers) > 0 {
				poller := publisher.NewOutboxPoller(app.outbox, logger, brokers...)
				defer poller.Close()
				go poller.Run(ctx)
			} else {
				logger.Info("kafka_brokers not set; order events stay in the outbox")
			}

			e := newServer(app)
			for _, r := range e.Routes() {
				logger.Debugf("%s %s", r.Method, r.Path)
			}

			go func() {
				if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("server stopped: %v", err)
					stop()
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}
