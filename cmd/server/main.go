package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aggregationcache "biohive/internal/aggregation/cache"
	aggregationconfig "biohive/internal/aggregation/config"
	aggregationhandler "biohive/internal/aggregation/handler"
	aggregationjob "biohive/internal/aggregation/job"
	"biohive/internal/aggregation/publisher"
	aggregationservice "biohive/internal/aggregation/service"
	aggregationstore "biohive/internal/aggregation/store"
	ledgerhandler "biohive/internal/ledger/handler"
	ledgerservice "biohive/internal/ledger/service"
	ledgerstore "biohive/internal/ledger/store"
	"biohive/internal/platform/config"
	"biohive/internal/platform/httpserver"
	"biohive/internal/platform/logger"
	"biohive/internal/platform/metrics"
	platformredis "biohive/internal/platform/redis"
	registrystore "biohive/internal/registry/store"
	reportconfig "biohive/internal/report/config"
	reporthandler "biohive/internal/report/handler"
	reportservice "biohive/internal/report/service"
	reportstore "biohive/internal/report/store"
	"biohive/internal/token"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()
	ctx := context.Background()

	var (
		db      *sql.DB
		reports reportstore.Store
		entries ledgerstore.Store
		nodes   registrystore.Store
		signals aggregationstore.Store
		runner  reportservice.TxRunner
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err.Error())
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err.Error())
			os.Exit(1)
		}
		reports = reportstore.NewPostgres(db)
		entries = ledgerstore.NewPostgres(db)
		nodes = registrystore.NewPostgres(db)
		signals = aggregationstore.NewPostgres(db)
		runner = reportservice.NewPostgresTxRunner(db, reportservice.TxStores{
			Reports: reports,
			Ledger:  entries,
			Nodes:   nodes,
		})
		log.Info("using postgres store")
	} else {
		reports = reportstore.NewInMemory()
		entries = ledgerstore.NewInMemory()
		nodes = registrystore.NewInMemory()
		signals = aggregationstore.NewInMemory()
		runner = reportservice.NewMemoryTxRunner(reportservice.TxStores{
			Reports: reports,
			Ledger:  entries,
			Nodes:   nodes,
		})
		log.Info("using in-memory store")
	}
	if err := registrystore.SeedDefaults(ctx, nodes); err != nil {
		log.Error("seed nodes", "error", err.Error())
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, signal cache disabled", "error", err.Error())
	}

	var signalPublisher aggregationservice.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.SignalTopic, log, m)
		if err != nil {
			log.Error("create signal publisher", "error", err.Error())
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		signalPublisher = kafkaPublisher
		log.Info("signal feed enabled", "topic", cfg.Kafka.SignalTopic)
	}

	tokens := token.NewJWTService(cfg.JWTSigningKey, "biohive")
	reportSvc := reportservice.New(reportconfig.DefaultConfig(), reports, nodes, runner, log, m)
	ledgerSvc := ledgerservice.New(entries, reports, log, m)
	signalCache := aggregationcache.New(redisClient, cfg.Redis.SignalTTL, log)
	aggregationSvc := aggregationservice.New(aggregationconfig.DefaultConfig(),
		reports, signals, signalCache, signalPublisher, log, m)

	router := chi.NewRouter()
	reporthandler.New(reportSvc, log, m, tokens).Register(router)
	ledgerhandler.New(ledgerSvc, log, m).Register(router)
	aggregationhandler.New(aggregationSvc, log, m).Register(router)
	router.Get("/health", healthHandler(db, redisClient))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	jobCtx, stopJob := context.WithCancel(ctx)
	jobDone := make(chan struct{})
	if cfg.AggregationInterval > 0 {
		job := aggregationjob.NewRunner(aggregationSvc, cfg.AggregationInterval, log)
		go func() {
			defer close(jobDone)
			job.Run(jobCtx)
		}()
	} else {
		close(jobDone)
	}

	go func() {
		log.Info("starting biohive server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	stopJob()
	<-jobDone

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
