package main

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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	httpadp "chama-approvals/internal/adapter/http"
	"chama-approvals/internal/adapter/middleware"
	"chama-approvals/internal/adapter/notifier"
	"chama-approvals/internal/adapter/repository/mysql"
	"chama-approvals/internal/config"
	"chama-approvals/internal/infrastructure/cache"
	"chama-approvals/internal/infrastructure/db"
	"chama-approvals/internal/infrastructure/logging"
	"chama-approvals/internal/scheduler"
	ucApproval "chama-approvals/internal/usecase/approval"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// persistence
	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), db.Options{LogLevel: db.ParseLogLevel(cfg.GormLogLevel)})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if err := mysql.AutoMigrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("database handle")
	}
	defer sqlDB.Close()

	// finalization fan-out: always log, publish to redis when it is on
	notifiers := notifier.Multi{notifier.NewLogger()}
	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("open redis")
		}
		defer rdb.Close()
		notifiers = append(notifiers, notifier.NewRedisPublisher(rdb, cfg.FinalizationChannel))
	}

	uc := ucApproval.NewUsecase(
		mysql.NewRequestRepository(gdb),
		mysql.NewGormUoW(gdb),
		mysql.NewDirectory(gdb, cfg.DefaultRequiredApprovals),
		notifiers,
	)

	if cfg.ApprovalMaxAge > 0 {
		sched, err := scheduler.New(uc, cfg.ApprovalExpirySchedule, cfg.ApprovalMaxAge)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler")
		}
		sched.Start()
		defer sched.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.RequestLogger())

	api := e.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))
	if rdb != nil {
		api.Use(middleware.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL()))
	} else {
		log.Warn().Msg("redis disabled: POST routes are not idempotent")
	}
	httpadp.RegisterRoutes(e, api, httpadp.NewHandler(sqlDB), httpadp.NewApprovalHandler(uc))

	addr := ":" + cfg.AppPort
	go func() {
		log.Info().Str("addr", addr).Str("db", cfg.DBDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
