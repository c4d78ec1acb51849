package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/config"
	"github.com/ariefcatur/club-portal/internal/httpx"
	kafkax "github.com/ariefcatur/club-portal/internal/kafka"
	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/messages"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/postgres"
	"github.com/ariefcatur/club-portal/internal/redisx"
	"github.com/ariefcatur/club-portal/internal/report"
	"github.com/ariefcatur/club-portal/internal/strains"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(ctx, cfg.PostgresDSN); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	// Services
	memberSvc := members.NewService(members.NewRepo(db))
	strainRepo := strains.NewRepo(db)
	orderRepo := &orders.Repo{DB: db}
	orderSvc := orders.NewService(orderRepo, cfg.RestockOnCancel)

	api := &httpx.API{
		Auth: &auth.Middleware{Verifier: auth.NewVerifier(cfg.JWTSecret), Profiles: memberSvc},
		Orders: &httpx.OrdersHandler{
			Orders:   orderSvc,
			Producer: prod,
			Idem:     redisx.Idempotency{RDB: rdb},
			Status:   redisx.StatusCache{RDB: rdb},
			Service:  cfg.ServiceName,
		},
		Members:  &httpx.MembersHandler{Members: memberSvc, Orders: orderSvc},
		Strains:  &httpx.StrainsHandler{Strains: strains.NewService(strainRepo)},
		Messages: &httpx.MessagesHandler{Messages: messages.NewService(messages.NewRepo(db))},
		Reports: &httpx.ReportsHandler{Reports: &report.Service{
			Strains:  strainRepo,
			Orders:   orderRepo,
			LowStock: decimal.NewFromFloat(cfg.LowStockGrams),
		}},
	}
	router := httpx.NewRouter(log, httpx.RouterConfig{AllowedOrigins: cfg.AllowedOrigins, Metrics: cfg.MetricsEnabled})
	api.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // no new events; flush the inbox
	prod.WaitClosed() // writer closed
	cancel()
}
