package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/service/search"
	"github.com/Skotchmaster/storefront/internal/session"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx := logging.IntoContext(context.Background(), logger)

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("database migrate: %v", err)
	}
	r := &repo.GormRepo{DB: gdb}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis init: %v", err)
	}
	store := session.NewRedisStore(rdb, cfg.SessionTTL)

	prod := mykafka.NewProducer(cfg.KafkaBrokers)

	catalog := &service.CatalogService{Repo: r}
	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		if err != nil {
			logger.Warn("search_disabled", "error", err)
		} else {
			s := &search.Searcher{ES: client, Index: cfg.ESIndex}
			if err := reindex(ctx, r, s); err != nil {
				logger.Warn("search_reindex_failed", "error", err)
			}
			catalog.Searcher = s
		}
	}

	var payments service.PaymentGenerator
	gen, err := payment.NewGenerator(payment.Merchant{
		Key:  cfg.PixKey,
		Name: cfg.PixBeneficiaryName,
		City: cfg.PixBeneficiaryCity,
	})
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		logger.Warn("pix_unavailable", "reason", "PIX_KEY not set")
	case err != nil:
		logger.Warn("pix_unavailable", "error", err)
	default:
		payments = gen
	}

	var notifier service.Notifier
	if cfg.SMTPHost != "" {
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			logger.Warn("mail_disabled", "error", err)
		} else if m, err := notify.NewMailer(sender, cfg.MailFrom); err != nil {
			logger.Warn("mail_disabled", "error", err)
		} else {
			notifier = m
		}
	}

	authSvc := &service.AuthService{Repo: r, JWTSecret: cfg.JWTSecret, AccessTTL: cfg.AccessTTL}
	checkout := service.NewCheckoutService(r, catalog, store, payments, notifier, prod)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CSRFSecure
	csrfCfg.SkipPrefixes = []string{"/api/v1/payments/"}

	httpserver.Register(e, &httpserver.Deps{
		DB:    gdb,
		Redis: rdb,
		Auth:  &auth.Middleware{JWTSecret: cfg.JWTSecret},
		Session: sessionmw.Config{
			Store:      store,
			CookieName: cfg.SessionCookie,
			CartSlot:   cfg.CartSlot,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.CSRFSecure,
		},
		CSRF:            csrfCfg,
		AuthHandler:     &handlers.AuthHTTP{Svc: authSvc, SecureCookies: cfg.CSRFSecure},
		CatalogHandler:  &handlers.CatalogHTTP{Svc: catalog},
		CartHandler:     &handlers.CartHTTP{Catalog: catalog, Producer: prod},
		CheckoutHandler: &handlers.CheckoutHTTP{Svc: checkout, Auth: authSvc, Catalog: catalog},
		OrderHandler:    &handlers.OrderHTTP{Svc: &service.OrderService{Repo: r, Producer: prod}},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting_down")

	go func() {
		<-quit
		log.Println("force exit")
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis_close_error", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}

func reindex(ctx context.Context, r *repo.GormRepo, s *search.Searcher) error {
	products, err := r.AllAvailable(ctx)
	if err != nil {
		return err
	}
	return s.IndexProducts(ctx, products)
}
