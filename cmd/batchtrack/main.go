package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batchtrack/config"
	"batchtrack/engine"
	"batchtrack/listcache"
	"batchtrack/messaging"
	"batchtrack/metrics"
	"batchtrack/store"
	"batchtrack/www"

	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "batchtrack.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	config.LoadDotEnv(".env")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.ApplyEnv()
	if *port > 0 {
		cfg.Web.Port = *port
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("batchtrack: database open (%s)", cfg.Database.Driver)

	// Redis list cache (optional)
	var cache engine.RowCache
	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("batchtrack: redis not available (%v), running without cache", err)
		} else {
			log.Printf("batchtrack: redis connected (%s)", cfg.Redis.Address)
			cache = listcache.NewRedisCache(redisClient, cfg.Redis.TTL, log.Printf)
		}
		cancel()
		defer redisClient.Close()
	}

	// Event outbox (optional)
	var outbox engine.EventQueue
	var msgClient *messaging.Client
	if cfg.MessagingEnabled() {
		outbox = messaging.NewEnqueuer(db, cfg.Messaging.EventsTopic, cfg.Messaging.StationID)
		msgClient = messaging.NewClient(&cfg.Messaging)
		defer msgClient.Close()
		if err := msgClient.Connect(); err != nil {
			log.Printf("messaging connect: %v (events stay queued in the outbox)", err)
		}
	}

	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Metrics:    metrics.New(),
		Cache:      cache,
		Outbox:     outbox,
		LogFunc:    log.Printf,
		Debug:      *debug,
	})
	if err := eng.Start(); err != nil {
		log.Fatalf("start engine: %v", err)
	}
	defer eng.Stop()

	if msgClient != nil {
		drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
		drainer.Start()
		defer drainer.Stop()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: www.NewRouter(eng)}

	go func() {
		log.Printf("batchtrack listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
