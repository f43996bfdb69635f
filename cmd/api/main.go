package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-commerce-core.git/internal/config"
	"github.com/ariefcatur/go-commerce-core.git/internal/delivery"
	"github.com/ariefcatur/go-commerce-core.git/internal/events"
	"github.com/ariefcatur/go-commerce-core.git/internal/httpx"
	"github.com/ariefcatur/go-commerce-core.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-core.git/internal/orders"
	"github.com/ariefcatur/go-commerce-core.git/internal/postgres"
	"github.com/ariefcatur/go-commerce-core.git/internal/redisx"
	"github.com/ariefcatur/go-commerce-core.git/internal/reservation"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Notifier (kafka, satu producer per topic)
	notifier := events.NewKafkaNotifier(cfg.KafkaBrokers, 1024,
		events.TopicStockUpdated,
		events.TopicReservationUpdated,
		events.TopicOrderStatus,
	)
	notifier.Start(ctx)

	// Stores
	ledger := &inventory.PgxLedger{DB: db}
	resStore := &reservation.PgxStore{DB: db}
	orderStore := &orders.PgxStore{DB: db}
	delivStore := &delivery.PgxStore{DB: db}

	// Services
	resMgr := &reservation.Manager{
		Store:      resStore,
		Notifier:   notifier,
		Service:    cfg.ServiceName,
		DefaultTTL: cfg.ReservationTTL,
	}
	calc := &inventory.Calculator{Ledger: ledger, Holds: resStore}
	orderSvc := &orders.Service{
		Store:    orderStore,
		Ledger:   ledger,
		Notifier: notifier,
		Service:  cfg.ServiceName,
	}
	assembler := &orders.Assembler{
		Orders:       orderStore,
		Prices:       orderStore,
		Ledger:       ledger,
		Reservations: resMgr,
		Notifier:     notifier,
		Service:      cfg.ServiceName,
	}
	payments := &orders.PaymentHandler{
		Service: orderSvc,
		Store:   orderStore,
		Dedup:   &redisx.EventDedup{Client: rdb, Service: cfg.ServiceName},
	}
	delivMachine := &delivery.Machine{Store: delivStore, Orders: orderSvc}

	// Router & handler
	router := httpx.NewRouter()
	h := &httpx.Handler{
		Reservations: resMgr,
		Availability: calc,
		Assembler:    assembler,
		Orders:       orderSvc,
		OrderStore:   orderStore,
		Payments:     payments,
		Delivery:     delivMachine,
		Redis:        rdb,
	}
	h.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	notifier.Close() // tutup inbox -> flush & close writer
	cancel()         // stop producer loop
	notifier.WaitClosed()
}
