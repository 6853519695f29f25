package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podforge/podforge/internal/agents"
	"github.com/podforge/podforge/internal/api"
	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/job"
	"github.com/podforge/podforge/internal/planner"
	"github.com/podforge/podforge/internal/provider"
	"github.com/podforge/podforge/internal/queue"
	"github.com/podforge/podforge/internal/store"
	"github.com/podforge/podforge/internal/worker"
)

func main() {
	log.Println("Starting PodForge API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Open provider backends
	settings := provider.Settings{
		OpenAIKey:         cfg.OpenAIKey,
		OpenRouterKey:     cfg.OpenRouterKey,
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		GeminiKey:         cfg.GeminiKey,
		ElevenLabsKey:     cfg.ElevenLabsKey,
		TextModel:         cfg.TextModel,
		SpeechModel:       cfg.SpeechModel,
	}
	text, err := provider.OpenText(cfg.TextProvider, settings)
	if err != nil {
		log.Fatalf("Failed to open text provider: %v", err)
	}
	speech, err := provider.OpenSpeech(cfg.SpeechProvider, settings)
	if err != nil {
		log.Fatalf("Failed to open speech provider: %v", err)
	}
	log.Printf("Providers: text=%s speech=%s", cfg.TextProvider, cfg.SpeechProvider)

	usage := provider.NewUsage()
	gateway := provider.NewGateway(text, speech, usage, provider.Options{
		MaxAttempts: cfg.ProviderMaxAttempts,
	})

	// Generation pipeline
	estimator := estimate.New(cfg.WordsPerMinute, cfg.SegmentPauseSec)
	coordinator := agents.New(gateway, estimator)
	plan := planner.New(gateway, estimator, coordinator, planner.Options{
		Tolerance:          cfg.DurationTolerance,
		MaxIterations:      cfg.FitMaxIterations,
		CoordinationStrict: cfg.CoordinationStrict,
	})
	manager := job.NewManager(plan, gateway, audio.NewMP3Concat(), estimator, job.Options{
		SynthConcurrency: cfg.SynthConcurrency,
	})

	// Connect to the episode archive when configured
	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer st.Close()
		manager.SetArchiver(st)
		log.Println("Connected to database, episode archive enabled")
	}

	// Connect to the Redis queue when configured; otherwise jobs start
	// in-process at submission
	var q *queue.Queue
	if cfg.RedisURL != "" {
		q, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		log.Println("Connected to Redis queue")
	}

	// Create API handler
	handler := api.NewHandler(manager, q, st, usage)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled (requires the queue)
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled && q != nil {
		log.Println("Worker enabled, starting background processing...")
		w := worker.New(q, manager)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
