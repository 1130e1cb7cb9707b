package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notify"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/service"
	"github.com/iliyamo/hotel-reservation/internal/utils"
	"github.com/iliyamo/hotel-reservation/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		log.WithError(err).Fatal("migrate database")
	}
	cancel()

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	seedAdmin(ctx, log, users, cfg)

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	var bg sync.WaitGroup
	notifier := buildNotifier(ctx, &bg, cfg, log)

	bookings := service.NewBookingService(store, notifier, service.BookingOptions{
		Currency:      cfg.Booking.Currency,
		PaymentWindow: cfg.Booking.PaymentWindow,
		NotifyTimeout: cfg.Booking.NotifyTimeout,
		Log:           log,
	})
	payments := service.NewPaymentService(store, buildGateways(cfg.Gateway, log), notifier, service.PaymentOptions{
		DefaultGateway: model.Gateway(cfg.Gateway.Default),
		GatewayTimeout: cfg.Gateway.Timeout,
		NotifyTimeout:  cfg.Booking.NotifyTimeout,
		Log:            log,
	})
	availability := service.NewAvailabilityService(store)
	catalog := service.NewCatalogService(store)
	coupons := service.NewCouponService(store, nil)
	inventory := service.NewInventoryService(store, nil, log)

	bg.Add(1)
	go func() {
		defer bg.Done()
		worker.NewExpiryWorker(bookings, cfg.Booking.ExpiryInterval, cfg.Booking.ExpiryBatch, log).Start(ctx)
	}()

	e := router.New(router.Handlers{
		Health: handler.Health(db),
		Auth: handler.NewAuthHandler(handler.AuthSettings{
			JWTSecret:  cfg.JWTSecret,
			AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
			BcryptCost: cfg.BcryptCost,
		}, users, tokens, log),
		Catalog:   handler.NewCatalogHandler(catalog, availability, log),
		Bookings:  handler.NewBookingHandler(bookings, log),
		Payments:  handler.NewPaymentHandler(payments, log),
		Coupons:   handler.NewCouponHandler(coupons, log),
		Inventory: handler.NewInventoryHandler(inventory, log),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Redis:     rdb,
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	bg.Wait()
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	log.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func seedAdmin(ctx context.Context, log logrus.FieldLogger, users *repository.UserRepo, cfg config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		log.WithError(err).Fatal("hash admin password")
	}
	created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, hash)
	if err != nil {
		log.WithError(err).Fatal("seed admin")
	}
	if created {
		log.WithField("email", cfg.AdminEmail).Info("admin account created")
	}
}

func buildGateways(cfg config.GatewayConfig, log logrus.FieldLogger) []gateway.Gateway {
	client := gateway.NewHTTPClient(cfg.Timeout)
	var gws []gateway.Gateway
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		gws = append(gws, gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, client))
	}
	if cfg.PluralClientID != "" && cfg.PluralClientSecret != "" {
		gws = append(gws, gateway.NewPlural(cfg.PluralClientID, cfg.PluralClientSecret, cfg.PluralCallbackURL, cfg.PluralBaseURL, client))
	}
	if len(gws) == 0 {
		log.Warn("no payment gateway configured; order creation will be rejected")
	}
	return gws
}

// buildNotifier routes notices through RabbitMQ when AMQP_URL is set, with
// an in-process consumer feeding the mailer.  Without a broker the mailer
// is called from a goroutine.
func buildNotifier(ctx context.Context, bg *sync.WaitGroup, cfg config.Config, log logrus.FieldLogger) notify.Notifier {
	var mailer notify.Notifier = notify.Nop{}
	if cfg.Mail.Host != "" {
		mailer = notify.NewMailer(notify.MailerConfig{
			Host:       cfg.Mail.Host,
			Port:       cfg.Mail.Port,
			User:       cfg.Mail.User,
			Password:   cfg.Mail.Password,
			From:       cfg.Mail.From,
			AdminEmail: cfg.Mail.AdminEmail,
			SkipVerify: cfg.Mail.SkipVerify,
		})
	} else {
		log.Warn("SMTP_HOST not set; notifications are discarded")
	}

	if cfg.AMQP.URL == "" {
		return notify.NewAsync(mailer, cfg.Booking.NotifyTimeout, log)
	}
	consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, mailer, log.WithField("component", "notice-consumer"))
	bg.Add(1)
	go func() {
		defer bg.Done()
		consumer.Run(ctx)
	}()
	return queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
}
