package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/club-portal/internal/config"
	kafkax "github.com/ariefcatur/club-portal/internal/kafka"
	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/messages"
	"github.com/ariefcatur/club-portal/internal/metrics"
	"github.com/ariefcatur/club-portal/internal/notify"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/postgres"
	"github.com/ariefcatur/club-portal/internal/redisx"
	"github.com/ariefcatur/club-portal/internal/strains"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"-notifier")
	if cfg.NotifierSenderID == "" {
		log.Error("notifier.sender_id (NOTIFIER_SENDER_ID) is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Dedup:    redisx.Dedup{RDB: rdb, Consumer: "notifier"},
		Messages: messages.NewService(messages.NewRepo(db)),
		Strains:  strains.NewRepo(db),
		SenderID: cfg.NotifierSenderID,
		Log:      log,
	}
	handle := func(ctx context.Context, m kafkago.Message) error {
		err := svc.HandleStatusChanged(ctx, m)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.EventsConsumed.WithLabelValues(outcome).Inc()
		return err
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderStatusChanged, cfg.NotifierWorkers, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("consumer started", "group", cfg.NotifierGroup, "topic", orders.TopicOrderStatusChanged, "workers", cfg.NotifierWorkers)
		return cons.Start(gctx, handle)
	})
	if cfg.MetricsEnabled {
		srv := &http.Server{Addr: cfg.NotifierMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("notifier exit", "err", err)
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
