package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-proxypay/app/controller"
	"github.com/vibast-solutions/ms-go-proxypay/app/gateway"
	"github.com/vibast-solutions/ms-go-proxypay/app/proxy"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
	"github.com/vibast-solutions/ms-go-proxypay/app/service"
	"github.com/vibast-solutions/ms-go-proxypay/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payment creation, gateway webhooks, and reporting.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	paymentController := controller.NewPaymentController(
		services.payments,
		services.settlement,
		services.wallet,
		services.rollup,
	)

	e := setupHTTPServer(paymentController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(paymentController *controller.PaymentController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", paymentController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	payments := e.Group("/payments")
	payments.POST("/purchase", paymentController.CreatePurchase)
	payments.POST("/deposit", paymentController.CreateDeposit)
	payments.GET("", paymentController.ListPayments)
	payments.GET("/:order_id", paymentController.GetPayment)
	payments.POST("/:order_id/cancel", paymentController.CancelPayment)

	e.GET("/wallets/:user_id", paymentController.GetWallet)

	e.POST("/webhooks/cryptomus", paymentController.HandleGatewayWebhook)

	admin := e.Group("/admin")
	admin.GET("/revenue", paymentController.RevenueRollup)

	return e
}

type serviceContainer struct {
	payments   *service.PaymentService
	settlement *service.SettlementService
	wallet     *service.WalletService
	rollup     *service.RollupService
}

func mustCreateServices() (*config.Config, *serviceContainer, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	txRunner := repository.NewTxRunner(db, cfg.Settlement.TxMaxAttempts)
	paymentRepo := repository.NewPaymentRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)
	callbackRepo := repository.NewWebhookCallbackRepository(db)

	cryptomusGateway := gateway.NewCryptomus(gateway.CryptomusConfig{
		MerchantID:    cfg.Cryptomus.MerchantID,
		PaymentAPIKey: cfg.Cryptomus.PaymentAPIKey,
		BaseURL:       cfg.Cryptomus.BaseURL,
		AllowedIPs:    cfg.Cryptomus.AllowedIPs,
		HTTPTimeout:   cfg.Cryptomus.HTTPTimeout,
	})

	evomiClient := proxy.NewEvomiClient(proxy.EvomiConfig{
		BaseURL:     cfg.Evomi.BaseURL,
		APIKey:      cfg.Evomi.APIKey,
		HTTPTimeout: cfg.Evomi.HTTPTimeout,
	})

	walletService := service.NewWalletService(walletRepo, ledgerRepo)
	provisionService := service.NewProvisionService(grantRepo, evomiClient, cfg.Settlement.PlanDurationDays)

	paymentService := service.NewPaymentService(paymentRepo, cryptomusGateway, service.PaymentURLs{
		SuccessURL: cfg.Cryptomus.SuccessURL,
		ReturnURL:  cfg.Cryptomus.ReturnURL,
		WebhookURL: cfg.App.PublicURL + "/webhooks/cryptomus",
	}, txRunner)

	settlementService := service.NewSettlementService(
		paymentRepo,
		ledgerRepo,
		eventRepo,
		callbackRepo,
		walletService,
		provisionService,
		cryptomusGateway,
		txRunner,
	)

	rollupService := service.NewRollupService(paymentRepo)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &serviceContainer{
		payments:   paymentService,
		settlement: settlementService,
		wallet:     walletService,
		rollup:     rollupService,
	}, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	return nil
}
