package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/cart"
	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/ariefcatur/telava-pos/internal/checkout"
	"github.com/ariefcatur/telava-pos/internal/config"
	"github.com/ariefcatur/telava-pos/internal/httpx"
	kafkax "github.com/ariefcatur/telava-pos/internal/kafka"
	"github.com/ariefcatur/telava-pos/internal/notify"
	"github.com/ariefcatur/telava-pos/internal/printer"
	"github.com/ariefcatur/telava-pos/internal/redisx"
	"github.com/ariefcatur/telava-pos/internal/sales"
	"github.com/ariefcatur/telava-pos/internal/session"
	"github.com/ariefcatur/telava-pos/internal/stock"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session & backend
	store, err := session.Open(cfg.SessionFile)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	client := backend.New(backend.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		RPS:     cfg.BackendRPS,
		Tokens:  store,
	})

	hub := notify.NewHub(httpx.AllowOrigin(cfg.CORSOrigins))
	ledger := cart.New()

	// Receipt cache: Redis when reachable, process memory otherwise
	var receipts checkout.ReceiptCache = checkout.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		pctx, pcancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			log.Printf("redis %s unreachable, receipts kept in memory: %v", cfg.RedisAddr, err)
		} else {
			receipts = &redisx.ReceiptCache{RDB: rdb}
		}
		pcancel()
	}

	// Kafka producer for sale events
	var prod *kafkax.Producer
	events := &sales.Emitter{Service: cfg.ServiceName}
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSales, 1024)
		prod.Start(ctx)
		events.Producer = prod
	}

	adapter := printer.NewAdapter(&printer.NetworkDriver{
		Addrs:       cfg.PrinterAddrs,
		DialTimeout: cfg.PrinterDialTimeout,
	}, hub)

	h := &httpx.TerminalHandler{
		Backend: client,
		Session: store,
		Shelf:   &catalog.Shelf{},
		Cart:    ledger,
		Checkout: checkout.New(checkout.Config{
			Backend:   client,
			Cart:      ledger,
			Receipts:  receipts,
			Notices:   hub,
			Events:    events,
			Seller:    func() string { return store.SellerName(cfg.SellerName) },
			ReturnURL: cfg.PaymentReturnURL,
		}),
		Stock:   &stock.Intake{Backend: client, Notices: hub},
		Printer: adapter,
		Hub:     hub,
		Seller:  cfg.SellerName,
		// create and receipt run back to back, each bounded by BackendTimeout
		Timeout: 2*cfg.BackendTimeout + 5*time.Second,
	}
	router := httpx.NewRouter(cfg.CORSOrigins)
	h.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("terminal listening at %s (backend %s)", cfg.HTTPAddr, cfg.BackendURL)
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
	adapter.Disconnect()
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	cancel()
}
