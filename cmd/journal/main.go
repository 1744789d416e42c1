package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/telava-pos/internal/config"
	"github.com/ariefcatur/telava-pos/internal/journal"
	kafkax "github.com/ariefcatur/telava-pos/internal/kafka"
	"github.com/ariefcatur/telava-pos/internal/postgres"
	"github.com/ariefcatur/telava-pos/internal/redisx"
	"github.com/ariefcatur/telava-pos/internal/sales"
	"github.com/joho/godotenv"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	repo := &journal.Repo{DB: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &journal.Service{
		Repo:  repo,
		Dedup: &redisx.Dedup{RDB: rdb, Service: cfg.ServiceName + "-journal"},
	}

	// Consumer
	group := getenv("JOURNAL_GROUP", "pos-journal")
	workers := mustAtoi(os.Getenv("JOURNAL_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, sales.TopicSales, workers)

	go func() {
		log.Printf("journal consumer started: group=%s topic=%s workers=%d", group, sales.TopicSales, workers)
		if err := cons.Start(ctx, svc.HandleSaleEvent); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
