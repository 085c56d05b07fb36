package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/SYNOVA-LABS/ADA/internal/api"
	"github.com/SYNOVA-LABS/ADA/internal/api/handlers"
	"github.com/SYNOVA-LABS/ADA/internal/api/ws"
	"github.com/SYNOVA-LABS/ADA/internal/config"
	"github.com/SYNOVA-LABS/ADA/internal/index"
	"github.com/SYNOVA-LABS/ADA/internal/ingest"
	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/observability"
	"github.com/SYNOVA-LABS/ADA/internal/queue"
	"github.com/SYNOVA-LABS/ADA/internal/recognize"
	"github.com/SYNOVA-LABS/ADA/internal/storage"
	"github.com/SYNOVA-LABS/ADA/internal/vision"
)

func main() {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting ADA recognition engine",
		"port", cfg.Server.Port,
		"source", cfg.Source.URL,
		"backend", cfg.Storage.Backend,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	// Identity store
	store, err := openStore(cfg)
	if err != nil {
		slog.Error("open identity store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// A failed load is survivable: the engine runs with an empty index
	// and treats everyone as unknown until the store heals.
	identities, err := store.LoadAll(context.Background())
	if err != nil {
		slog.Error("LOADING IDENTITIES FAILED, starting with an empty index; everyone will be unknown", "error", err)
		identities = nil
	}
	observability.KnownIdentities.Set(float64(len(identities)))
	slog.Info("identities loaded", "count", len(identities))

	// Image store
	checks := map[string]handlers.HealthCheck{}
	var images storage.ImageStore
	switch cfg.Storage.ImageStore {
	case "minio":
		minioStore, err := storage.NewMinIOImageStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		checks["minio"] = minioStore.Ping
		images = minioStore
	default:
		localStore, err := storage.NewLocalImageStore(cfg.Storage.ImageDir)
		if err != nil {
			slog.Error("open image directory", "error", err)
			os.Exit(1)
		}
		images = localStore
	}

	writer := storage.NewAsyncImageWriter(images, 0)

	// Vector index over the loaded identities
	finder, err := buildIndex(cfg, identities)
	if err != nil {
		slog.Error("build identity index", "error", err)
		os.Exit(1)
	}

	// Face encoder (detection + embedding models)
	encoder, err := vision.NewEncoder(cfg.Vision, nil)
	if err != nil {
		slog.Error("init face encoder", "error", err)
		os.Exit(1)
	}
	defer encoder.Close()

	if encoder.Dim() != cfg.Recognition.DescriptorDim {
		slog.Error("descriptor_dim does not match the embedding model",
			"configured", cfg.Recognition.DescriptorDim,
			"model", encoder.Dim(),
		)
		os.Exit(1)
	}

	// Optional NATS event publishing
	var publisher *queue.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = queue.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		if err := publisher.EnsureStreams(context.Background()); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		checks["nats"] = func(context.Context) error { return publisher.Ping() }
	}

	var events recognize.EventPublisher
	if publisher != nil {
		events = publisher
	}

	var prompt recognize.MetadataPrompt
	if cfg.Recognition.Prompt == "console" {
		prompt = recognize.NewConsolePrompt(os.Stdin, os.Stdout)
	}

	matcher := recognize.NewMatcher(finder, float32(cfg.Recognition.Threshold))
	enroller := recognize.NewEnroller(store, writer, finder, prompt, cfg.Recognition.Cooldown)
	recorder := recognize.NewRecorder(store, cfg.Recognition.SightingDebounce, events)
	tracker := vision.NewIoUTracker(cfg.Tracking.MinIoU, cfg.Tracking.MaxAge)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Video source and recognition loop
	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()

	source := ingest.StartFFmpegSource(loopCtx, cfg.Source.URL, cfg.Source.FPS, cfg.Source.Width)

	loop := recognize.NewLoop(recognize.LoopConfig{
		Source:      source,
		Encoder:     encoder,
		Matcher:     matcher,
		Enroller:    enroller,
		Tracker:     tracker,
		Sinks:       []recognize.Sink{recorder, hub},
		SampleEvery: cfg.Recognition.SampleEvery,
	})

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(loopCtx)
	}()

	// HTTP API
	router := api.NewRouter(api.RouterConfig{
		APIKey: cfg.Server.APIKey,
		Store:  store,
		Images: images,
		Hub:    hub,
		Checks: checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Run until a signal arrives or the video source ends
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("signal received, shutting down", "signal", sig.String())
		loopCancel()
		select {
		case <-loopDone:
		case <-time.After(5 * time.Second):
			slog.Warn("recognition loop did not stop in time")
		}
	case err := <-loopDone:
		switch {
		case errors.Is(err, ingest.ErrSourceExhausted):
			slog.Info("video stream ended, shutting down")
		case err != nil && !errors.Is(err, context.Canceled):
			slog.Error("recognition loop failed", "error", err)
		}
	}

	// Flush queued face crops before the server goes away
	writer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("engine stopped")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	dim := cfg.Recognition.DescriptorDim
	switch cfg.Storage.Backend {
	case "postgres":
		return storage.NewPostgresStore(cfg.Database, dim)
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.SQLitePath, dim)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildIndex(cfg *config.Config, identities []models.Identity) (index.NearestFinder, error) {
	dim := cfg.Recognition.DescriptorDim
	switch cfg.Recognition.Index {
	case "hnsw":
		return index.NewHNSW(dim, identities)
	case "flat":
		return index.NewFlat(dim, identities)
	default:
		return nil, fmt.Errorf("unknown index kind %q", cfg.Recognition.Index)
	}
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
