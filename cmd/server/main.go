package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/clock"
	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/router"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		logger.WithError(err).Fatal("migrate schema")
	}

	rdb := config.NewRedisClient(logger)
	cache := middleware.NewSeatMapCache(config.LoadCacheConfig(), rdb, logger)
	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, logger)

	holds := repository.NewSeatHoldRepo(db)
	seatRepo := repository.NewSeatRepo(logger, db, holds)
	orderRepo := repository.NewOrderRepo(logger, db, holds)
	eventRepo := repository.NewEventRepo(logger, db, holds)
	userRepo := repository.NewUserRepo(db)

	publisher := service.NewRabbitPublisher(logger, cfg.RabbitURL, cfg.OrdersQueue)
	defer publisher.Close()

	ledger := service.NewLedger(logger, seatRepo,
		service.WithHoldTTL(cfg.HoldTTL),
		service.WithLedgerCache(cache),
	)
	layout := service.NewLayoutGenerator(logger, seatRepo, cache)
	committer := service.NewOrderCommitter(logger, orderRepo,
		service.WithPublisher(publisher),
		service.WithHoldCheck(cfg.HoldTTL > 0),
	)
	sessions := service.NewSessionManager(logger, ledger, committer)
	admin := service.NewEventAdmin(logger, eventRepo, orderRepo, layout, cache)

	if cfg.SeedDemo {
		if err := service.SeedDemo(ctx, logger, eventRepo, layout, userRepo, cfg.BcryptCost); err != nil {
			logger.WithError(err).Fatal("seed demo data")
		}
	}

	if cfg.HoldTTL > 0 {
		sweeper := service.NewHoldSweeper(logger, seatRepo, cache, clock.NewSystem(), cfg.HoldSweepInterval)
		go sweeper.Run(ctx)
	}
	if cfg.RunConsumer {
		consumer := queue.NewConsumer(logger, cfg.RabbitURL, cfg.OrdersQueue, cfg.BookingLogPath)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("order consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger, http.StatusInternalServerError))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.AccessTTLMin))
	router.RegisterPublic(e, handler.NewEventHandler(admin, ledger, layout), cache)
	router.RegisterCustomer(e,
		handler.NewSessionHandler(sessions, admin, layout),
		handler.NewOrderHandler(committer),
		cfg.JWTSecret, limiter,
	)
	router.RegisterAdmin(e, handler.NewAdminHandler(admin, layout, ledger), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	// Release every cart still held by an open session.
	sessions.Shutdown(shutdownCtx)
	if rdb != nil {
		_ = rdb.Close()
	}
}
