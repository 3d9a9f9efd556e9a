package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/namanaggarwal76/YouMatter/internal/api"
	"github.com/namanaggarwal76/YouMatter/internal/auth"
	"github.com/namanaggarwal76/YouMatter/internal/catalog"
	"github.com/namanaggarwal76/YouMatter/internal/coach"
	"github.com/namanaggarwal76/YouMatter/internal/config"
	"github.com/namanaggarwal76/YouMatter/internal/domain"
	"github.com/namanaggarwal76/YouMatter/internal/outbox"
	persistence "github.com/namanaggarwal76/YouMatter/internal/persistence/postgres"
	httptransport "github.com/namanaggarwal76/YouMatter/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	cat := catalog.NewInMemory()
	service := domain.NewService(repo, cat, cat,
		domain.RewardConfig{DailyLoginCoins: cfg.DailyLoginCoins, DailyLoginXP: cfg.DailyLoginXP},
		domain.WithLocation(cfg.Location()),
	)

	var coachSvc *coach.Service
	if cfg.GeminiAPIKey != "" {
		generator, err := coach.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("failed to initialise wellness coach: %v", err)
		}
		coachSvc = coach.NewService(generator)
	} else {
		log.Println("GEMINI_API_KEY not set; wellness coach routes disabled")
	}

	handler := api.NewHandler(service, cat, cat, coachSvc)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("gamification-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}
