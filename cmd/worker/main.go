package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/config"
	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-core.git/internal/kafka"
	"github.com/ariefcatur/go-commerce-core.git/internal/orders"
	"github.com/ariefcatur/go-commerce-core.git/internal/postgres"
	"github.com/ariefcatur/go-commerce-core.git/internal/redisx"
	"github.com/ariefcatur/go-commerce-core.git/internal/reservation"
	"github.com/joho/godotenv"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Notifier
	notifier := events.NewKafkaNotifier(cfg.KafkaBrokers, 1024,
		events.TopicStockUpdated,
		events.TopicReservationUpdated,
		events.TopicOrderStatus,
	)
	notifier.Start(ctx)

	ledger := &inventory.PgxLedger{DB: db}
	resStore := &reservation.PgxStore{DB: db}
	orderStore := &orders.PgxStore{DB: db}

	serviceName := cfg.ServiceName + "-worker"

	orderSvc := &orders.Service{
		Store:    orderStore,
		Ledger:   ledger,
		Notifier: notifier,
		Service:  serviceName,
	}
	payments := &orders.PaymentHandler{
		Service: orderSvc,
		Store:   orderStore,
		Dedup:   &redisx.EventDedup{Client: rdb, Service: serviceName},
	}

	// Sweep reservation expired
	sweeper := &reservation.Sweeper{
		Store:    resStore,
		Notifier: notifier,
		Service:  serviceName,
		Interval: cfg.SweepInterval,
		Batch:    cfg.SweepBatch,
	}
	go sweeper.Run(ctx)

	// Auto-confirm order delivered yang lewat window
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n, err := orderSvc.AutoConfirmDelivered(ctx, cfg.AutoConfirmAfter, cfg.SweepBatch); err != nil {
					log.Printf("auto-confirm: %v", err)
				} else if n > 0 {
					log.Printf("auto-confirm: completed %d order", n)
				}
			}
		}
	}()

	// Consumer payment result
	group := getenv("PAYMENTS_GROUP", "payments-worker")
	workers := mustAtoi(os.Getenv("PAYMENTS_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicPaymentResult, workers)

	go func() {
		log.Printf("payments consumer started: group=%s topic=%s workers=%d", group, events.TopicPaymentResult, workers)
		if err := cons.Start(ctx, payments.HandleMessage); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down worker...")
	notifier.Close()
	cancel()
	notifier.WaitClosed()
}
