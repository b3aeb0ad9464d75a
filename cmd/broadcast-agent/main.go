package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/promoimperio/broadcast_backend/appctx"
	"github.com/promoimperio/broadcast_backend/assets"
	"github.com/promoimperio/broadcast_backend/broadcast"
	"github.com/promoimperio/broadcast_backend/catalog"
	"github.com/promoimperio/broadcast_backend/config"
	"github.com/promoimperio/broadcast_backend/ledger"
	"github.com/promoimperio/broadcast_backend/messaging"
	"github.com/promoimperio/broadcast_backend/models"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadAppConfig()
	if err != nil {
		logger.WithFields(logrus.Fields{"module": "main"}).Error("invalid configuration: " + err.Error())
		os.Exit(1)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// The messaging client failing to come up is the one unrecoverable
	// startup error: without it there is nothing to schedule.
	client, err := messaging.NewWppClient(cfg.WppBaseURL, cfg.WppSession, cfg.WppToken)
	if err != nil {
		logger.WithFields(logrus.Fields{"module": "main"}).Error("failed to init messaging client: " + err.Error())
		os.Exit(1)
	}

	if cfg.ListGroups {
		listGroups(sigCtx, client)
		return
	}

	products := loadProducts(sigCtx, cfg, logger)
	store := buildLedger(cfg, logger)
	resolver := buildResolver(sigCtx, cfg, logger)

	config.ConnectRedisWithRetry()

	dispatcher := &broadcast.Dispatcher{
		Ledger:       store,
		Resolver:     resolver,
		Client:       client,
		Destinations: cfg.Destinations,
		Pause:        cfg.SendPause,
		Simulate:     cfg.Simulate,
		Logger:       logger,
		Locker:       config.GetRedisLock(),
	}
	scheduler := &broadcast.Scheduler{
		Dispatcher: dispatcher,
		Products:   products,
		Slots:      cfg.SlotTimes,
		Logger:     logger,
		OnOutcome: func(ctx context.Context, index int, outcome broadcast.SlotOutcome) {
			broadcast.PublishSlotReport(ctx, logger, index, outcome)
		},
	}

	go client.RunStateWatcher(sigCtx, logger, 30*time.Second)
	go scheduler.Run(sigCtx)

	r := buildRouter(cfg, client, scheduler)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"module": "main"}).Error(err)
		}
	}
}

func buildRouter(cfg *config.AppConfig, client messaging.Client, scheduler *broadcast.Scheduler) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(appctx.Set(c.Request.Context(), appctx.ContextKeyCorrelationId, cid))
		c.Next()
	})
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	admin := r.Group("/api/broadcast", broadcast.AdminAuthMiddleware(cfg.AdminTokenHash))
	admin.GET("/groups", broadcast.ListGroupsHandler(client))
	admin.POST("/slots/:index/trigger", broadcast.TriggerSlotHandler(scheduler))

	// Push endpoint for remote slot triggers (Cloud Scheduler -> Pub/Sub).
	r.POST("/pubsub/slot-trigger", broadcast.PubSubPushHandler(scheduler))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func loadProducts(ctx context.Context, cfg *config.AppConfig, logger *logrus.Logger) []models.Product {
	var (
		loader catalog.Loader
		err    error
	)
	if cfg.SpreadsheetId != "" {
		loader, err = catalog.NewSheetsCatalog(ctx, cfg.SpreadsheetId, cfg.SheetRange)
		if err != nil {
			config.LogError(logger, "main", "loadProducts", "init sheets catalog", nil, err)
			return nil
		}
	} else {
		loader = &catalog.ExcelCatalog{Path: cfg.WorkbookPath, Sheet: cfg.WorkbookSheet}
	}

	products, err := loader.LoadProducts(ctx)
	if err != nil {
		config.LogError(logger, "main", "loadProducts", "load catalog", nil, err)
		return nil
	}
	if len(products) == 0 {
		logger.WithFields(logrus.Fields{"module": "main"}).Warn("no products found in catalog")
	}
	return products
}

func buildLedger(cfg *config.AppConfig, logger *logrus.Logger) ledger.Store {
	if cfg.LedgerBackend == "db" {
		config.ConnectDatabaseWithRetry()
		store, err := ledger.NewDBStore(config.GetDB())
		if err != nil {
			logger.WithFields(logrus.Fields{"module": "main"}).Error("failed to init db ledger: " + err.Error())
			os.Exit(1)
		}
		return store
	}
	return &ledger.FileStore{Path: cfg.LedgerPath, Logger: logger}
}

func buildResolver(ctx context.Context, cfg *config.AppConfig, logger *logrus.Logger) *assets.Resolver {
	var remote assets.RemoteStore
	if cfg.DriveFolderId != "" {
		store, err := assets.NewDriveStore(ctx, cfg.DriveFolderId)
		if err != nil {
			config.LogError(logger, "main", "buildResolver", "init drive store", nil, err)
		} else {
			remote = store
		}
	} else if cfg.GCSBucket != "" {
		store, err := assets.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			config.LogError(logger, "main", "buildResolver", "init gcs store", nil, err)
		} else {
			remote = store
		}
	}
	return &assets.Resolver{Remote: remote, LocalDir: cfg.LocalImageDir, Logger: logger}
}

func listGroups(ctx context.Context, client *messaging.WppClient) {
	groups, err := client.ListGroups(ctx)
	if err != nil {
		fmt.Println("failed to list groups:", err)
		os.Exit(1)
	}
	fmt.Println("\nAVAILABLE GROUPS:")
	for _, g := range groups {
		fmt.Printf("name: %s\nid:   %s\n------------------------------\n", g.Name, g.ID)
	}
}
