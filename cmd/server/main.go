package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/config"
	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/handler"
	"github.com/iliyamo/parking-lot/internal/logging"
	"github.com/iliyamo/parking-lot/internal/middleware"
	"github.com/iliyamo/parking-lot/internal/queue"
	"github.com/iliyamo/parking-lot/internal/repository"
	"github.com/iliyamo/parking-lot/internal/router"
	"github.com/iliyamo/parking-lot/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(cfg.DB); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
		log.Info("migrations applied")
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	// Redis is optional; without it the limiter and cache pass through.
	var rdb *redis.Client
	if rdb = config.NewRedisClient(cfg.Redis); rdb == nil {
		log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		pub := queue.NewPublisher(cfg.Events.URL, log)
		defer pub.Close()
		events = pub
	}

	var wg sync.WaitGroup
	if cfg.Events.ConsumerEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.StartSessionConsumer(ctx, cfg.Events.URL, cfg.Events.LogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("session consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	parking := service.NewParkingService(
		db,
		repository.NewLotRepo(db),
		repository.NewSlotRepo(db),
		repository.NewSessionRepo(db),
		users,
		events,
		log,
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics(router.MetricsPath))

	router.RegisterRoutes(e, db)
	router.RegisterParking(e, handler.NewParkingHandler(parking, log), cfg.RateLimit, rdb, log)
	router.RegisterUsers(e, handler.NewUserHandler(users, cfg.BcryptCost, log), cfg, rdb, log)

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DB.Driver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	wg.Wait()
}
