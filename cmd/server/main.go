package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appfiscal "github.com/mnpay/backend/internal/application/fiscal"
	apppayment "github.com/mnpay/backend/internal/application/payment"
	"github.com/mnpay/backend/internal/domain/payment"
	"github.com/mnpay/backend/internal/infrastructure/cache"
	"github.com/mnpay/backend/internal/infrastructure/config"
	"github.com/mnpay/backend/internal/infrastructure/ebarimt"
	"github.com/mnpay/backend/internal/infrastructure/logger"
	"github.com/mnpay/backend/internal/infrastructure/notify"
	"github.com/mnpay/backend/internal/infrastructure/persistence"
	"github.com/mnpay/backend/internal/infrastructure/qpay"
	"github.com/mnpay/backend/internal/infrastructure/scheduler"
	"github.com/mnpay/backend/internal/interfaces/http/handler"
	"github.com/mnpay/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting payment backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Reference cache: Redis when configured, process-local otherwise
	var refCache cache.ReferenceCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
		refCache = cache.NewRedisReferenceCache(redisClient, "")
		log.Info("Redis reference cache enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		refCache = cache.NewInMemoryReferenceCache()
	}

	// Upstream clients
	posClient, err := ebarimt.NewPosAPIClient(&ebarimt.PosAPIConfig{
		BaseURL:        cfg.PosAPI.BaseURL,
		APIKey:         cfg.PosAPI.APIKey,
		BasicAuthUser:  cfg.PosAPI.BasicAuthUser,
		BasicAuthPass:  cfg.PosAPI.BasicAuthPass,
		Timeout:        cfg.PosAPI.Timeout,
		ReceiptTimeout: cfg.PosAPI.ReceiptTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to build PosAPI client", zap.Error(err))
	}

	tpiClient, err := ebarimt.NewTPIClient(&ebarimt.TPIConfig{
		BaseURL:     cfg.TPI.BaseURL,
		AuthURL:     cfg.TPI.AuthURL,
		Username:    cfg.TPI.Username,
		Password:    cfg.TPI.Password,
		ClientID:    cfg.TPI.ClientID,
		TokenLeeway: cfg.TPI.TokenLeeway,
		Timeout:     cfg.TPI.Timeout,
	}, cache.NewInMemoryTokenCache(), log)
	if err != nil {
		log.Fatal("Failed to build TPI client", zap.Error(err))
	}

	qpayClient, err := qpay.NewClient(&qpay.Config{
		BaseURL:       cfg.QPay.BaseURL,
		Username:      cfg.QPay.Username,
		Password:      cfg.QPay.Password,
		InvoiceCode:   cfg.QPay.InvoiceCode,
		CallbackURL:   cfg.QPay.CallbackURL,
		PublicBaseURL: cfg.App.PublicBaseURL,
		TokenBuffer:   cfg.QPay.TokenBuffer,
		Timeout:       cfg.QPay.Timeout,
		MaxRetries:    cfg.QPay.MaxRetries,
		RetryDelay:    cfg.QPay.RetryDelay,
	}, cache.NewInMemoryTokenCache(), log)
	if err != nil {
		log.Fatal("Failed to build QPay client", zap.Error(err))
	}

	// Optional receipt email notifications
	var emailSender *notify.EmailSender
	if cfg.Receipt.EmailEnabled {
		emailSender, err = notify.NewEmailSender(&notify.EmailConfig{
			Enabled:  true,
			Host:     cfg.Notify.Host,
			Port:     cfg.Notify.Port,
			Username: cfg.Notify.Username,
			Password: cfg.Notify.Password,
			From:     cfg.Notify.From,
		}, log)
		if err != nil {
			log.Fatal("Failed to build email sender", zap.Error(err))
		}
	}

	// Repositories
	invoiceRepo := persistence.NewPaymentInvoiceRepository(db.DB)
	transactionRepo := persistence.NewPaymentTransactionRepository(db.DB)
	markRepo := persistence.NewPaymentRequestMarkRepository(db.DB)
	receiptRepo := persistence.NewFiscalReceiptRepository(db.DB)

	// Application services
	paymentService := apppayment.NewPaymentService(apppayment.PaymentServiceConfig{
		Invoices:     invoiceRepo,
		Transactions: transactionRepo,
		Gateway:      qpayClient,
		Taxes:        specialTaxConfig(&cfg.Receipt),
		Logger:       log,
	})
	reconcileService := apppayment.NewReconcileService(apppayment.ReconcileServiceConfig{
		Invoices: invoiceRepo,
		Gateway:  qpayClient,
		Marker:   markRepo,
		Logger:   log,
	})
	scrubService := apppayment.NewScrubService(apppayment.ScrubServiceConfig{
		Invoices:  invoiceRepo,
		Retention: cfg.Jobs.ScrubRetention,
		Batch:     cfg.Jobs.ScrubBatch,
		Logger:    log,
	})

	receiptServiceCfg := appfiscal.ReceiptServiceConfig{
		Gateway:  posClient,
		Registry: tpiClient,
		RefCache: refCache,
		Email:    emailSender,
		RenderQR: cfg.Receipt.QREnabled,
		Defaults: appfiscal.BranchDefaults{
			BranchNo:     cfg.PosAPI.BranchNo,
			PosNo:        cfg.PosAPI.PosNo,
			DistrictCode: cfg.PosAPI.DistrictCode,
		},
		Logger: log,
	}
	if cfg.Receipt.PersistEnabled {
		receiptServiceCfg.Receipts = receiptRepo
	}
	receiptService := appfiscal.NewReceiptService(receiptServiceCfg)

	// Background jobs
	runner := scheduler.NewRunner(log)
	if cfg.Jobs.PollEnabled {
		err := runner.Register(&scheduler.Job{
			Name:     "reconcile-pending",
			Interval: cfg.Jobs.PollInterval,
			Timeout:  cfg.Jobs.PollInterval,
			Run: func(ctx context.Context) error {
				_, err := reconcileService.PollPending(ctx, cfg.Jobs.PollBatch)
				return err
			},
		})
		if err != nil {
			log.Fatal("Failed to register reconcile job", zap.Error(err))
		}
	}
	if cfg.Jobs.ScrubEnabled {
		err := runner.Register(&scheduler.Job{
			Name:       "scrub-personal-data",
			Interval:   cfg.Jobs.ScrubInterval,
			Timeout:    time.Hour,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := scrubService.Run(ctx)
				return err
			},
		})
		if err != nil {
			log.Fatal("Failed to register scrub job", zap.Error(err))
		}
	}
	if err := runner.Start(context.Background()); err != nil {
		log.Fatal("Failed to start job runner", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := runner.Stop(stopCtx); err != nil {
			log.Error("Error stopping job runner", zap.Error(err))
		}
	}()

	// HTTP surface
	engine := router.New(cfg, log, router.Handlers{
		System:   handler.NewSystemHandler(db),
		Payment:  handler.NewPaymentHandler(paymentService, reconcileService),
		Callback: handler.NewCallbackHandler(reconcileService),
		Receipt:  handler.NewReceiptHandler(receiptService),
		Ebarimt:  handler.NewEbarimtHandler(receiptService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// specialTaxConfig converts the configured rates into the domain tax
// configuration used by the payment service
func specialTaxConfig(cfg *config.ReceiptConfig) *payment.SpecialTaxConfig {
	rates := make(map[string]decimal.Decimal, len(cfg.SpecialTaxRates))
	for name, rate := range cfg.SpecialTaxRates {
		rates[name] = decimal.NewFromFloat(rate)
	}
	return &payment.SpecialTaxConfig{
		Rates:       rates,
		DefaultType: cfg.SpecialTaxDefault,
		CityTaxRate: decimal.NewFromFloat(cfg.CityTaxRate),
	}
}
