package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crm-backend/internal/config"
	"github.com/iliyamo/crm-backend/internal/database"
	"github.com/iliyamo/crm-backend/internal/handler"
	"github.com/iliyamo/crm-backend/internal/logging"
	"github.com/iliyamo/crm-backend/internal/metrics"
	"github.com/iliyamo/crm-backend/internal/middleware"
	"github.com/iliyamo/crm-backend/internal/queue"
	"github.com/iliyamo/crm-backend/internal/repository"
	"github.com/iliyamo/crm-backend/internal/router"
	"github.com/iliyamo/crm-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
	}
	go database.Monitor(ctx, db, cfg.DB.ReconnectInterval, log)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable: response cache disabled, rate limiting is per process")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	leads := repository.NewLeadRepo(db)
	notes := repository.NewNoteRepo(db)
	activity := repository.NewActivityRepo(db)
	stats := repository.NewDashboardRepo(db)

	var pub service.EventPublisher
	if cfg.Events.Enabled {
		pub = queue.NewPublisher(cfg.Events.RabbitMQURL)
		go queue.NewActivityConsumer(cfg.Events.RabbitMQURL, cfg.Events.LogDir, log).Run(ctx)
	}
	auditor := service.NewAuditor(activity, pub, m, log)

	authSvc := service.NewAuthService(users, sessions, cfg.Auth)
	h := router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Leads:     handler.NewLeadHandler(service.NewLeadService(leads), service.NewTransferService(leads, m)),
		Notes:     handler.NewNoteHandler(service.NewNoteService(leads, notes)),
		Tags:      handler.NewTagHandler(service.NewTagService(leads)),
		Users:     handler.NewUserHandler(service.NewUserService(users, sessions, activity, cfg.Auth.BcryptCost)),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(stats, activity)),
	}

	e := router.New(cfg.IsDevelopment())
	e.Use(middleware.RequestID())
	e.Use(middleware.Metrics(m))
	e.Use(middleware.Logging(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	router.Register(e, h, router.Options{
		Auth:      authSvc,
		Audit:     auditor,
		RateLimit: middleware.NewRateLimiter(cfg.RateLimit, rdb, m, log).Middleware(),
		Cache:     middleware.NewResponseCache(cfg.Cache, rdb),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	auditor.Wait()
}
