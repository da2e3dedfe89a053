package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mhardiyanto/go-stock-orders/internal/config"
	"github.com/mhardiyanto/go-stock-orders/internal/httpx"
	"github.com/mhardiyanto/go-stock-orders/internal/inventory"
	kafkax "github.com/mhardiyanto/go-stock-orders/internal/kafka"
	"github.com/mhardiyanto/go-stock-orders/internal/lockx"
	"github.com/mhardiyanto/go-stock-orders/internal/logx"
	"github.com/mhardiyanto/go-stock-orders/internal/orders"
	"github.com/mhardiyanto/go-stock-orders/internal/postgres"
	"github.com/mhardiyanto/go-stock-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	pStatus.Start(ctx)

	// Inventory: catalog + ledger over the product store, one lock per product
	productStore := &inventory.PGStore{DB: db}
	locks := lockx.NewTable(cfg.LockWaitTimeout)
	catalog := inventory.NewCatalog(productStore, log)
	ledger := inventory.NewLedger(productStore, locks, log)

	// Orders: reservation coordinator + assembler
	reserver := orders.NewReserver(ledger, cfg.CompensateRetries, log)
	publisher := &orders.KafkaPublisher{Created: pCreated, Status: pStatus, Service: cfg.ServiceName}
	orderSvc := orders.NewService(catalog, reserver, &orders.PGStore{DB: db}, publisher, cfg.LookupRetries, log)

	// HTTP
	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Service: orderSvc, Redis: rdb}).Register(router)
	(&httpx.InventoryHandler{Catalog: catalog, Ledger: ledger}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close() // close inbox -> flush & close writer
	pStatus.Close()
	cancel() // stop producer loops
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}
