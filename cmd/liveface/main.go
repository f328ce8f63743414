package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/liveface/internal/api"
	"github.com/saturnino-fabrica-de-software/liveface/internal/config"
	"github.com/saturnino-fabrica-de-software/liveface/internal/face"
	"github.com/saturnino-fabrica-de-software/liveface/internal/gallery"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model"
	"github.com/saturnino-fabrica-de-software/liveface/internal/worker"
	"github.com/saturnino-fabrica-de-software/liveface/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting liveface",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("gallery_backend", cfg.GalleryBackend),
		slog.String("model_stack", cfg.ModelStack),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gallery storage
	store, err := gallery.NewStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open gallery store: %w", err)
	}
	defer func() { _ = store.Close() }()

	db, err := gallery.Open(ctx, store, cfg.MaxFaces, logger)
	if err != nil {
		return err
	}

	// Recognition worker behind its supervisor. The model stack loads
	// lazily on the worker goroutine, on the first task.
	executor := worker.NewRecognitionWorker(db, func() (model.Stack, error) {
		return face.NewModelStack(cfg)
	}, cfg.NumMatches, logger)
	supervisor := worker.NewSupervisor(executor, cfg.QueueCapacity, logger)

	go supervisor.Run(ctx)

	// Event stream
	hub := ws.NewHub()
	go hub.Run()

	// Result pump: worker output feeds the event stream and keeps the
	// latest recognition available for register requests.
	pump := newResultPump(hub, logger)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		pump.Run(supervisor.Results())
	}()

	fatalChan := make(chan worker.Fatal, 1)
	go func() {
		for fatal := range supervisor.Errors() {
			hub.Broadcast(ws.EventWorkerFailed, fatal)
			fatalChan <- fatal
		}
	}()

	// Periodic gallery backup
	go func() {
		ticker := time.NewTicker(cfg.BackupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := supervisor.TrySubmit(worker.BackupFaceDatabase{}); err != nil {
					logger.Warn("periodic backup skipped", "error", err)
				}
			}
		}
	}()

	// Control plane
	router := api.NewRouter(logger, &api.Dependencies{
		Tasks:        supervisor,
		Recognitions: pump,
		Hub:          hub,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case fatal := <-fatalChan:
		logger.Error("worker failed", slog.String("message", fatal.Message))
	}

	// Stop the worker first, then drain the result pump. TrySubmit so a
	// worker that already died fatally cannot block shutdown.
	if err := supervisor.TrySubmit(worker.Shutdown{}); err != nil {
		logger.Warn("shutdown sentinel not enqueued", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-pumpDone:
	case <-shutdownCtx.Done():
		logger.Warn("result pump did not drain in time")
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}

// resultPump consumes the ordered worker output, broadcasts every result
// on the event stream and remembers the most recent recognition.
type resultPump struct {
	hub    *ws.Hub
	logger *slog.Logger

	mu     sync.RWMutex
	latest *worker.RecognitionResult
}

func newResultPump(hub *ws.Hub, logger *slog.Logger) *resultPump {
	return &resultPump{hub: hub, logger: logger}
}

func (p *resultPump) Run(results <-chan worker.Result) {
	for result := range results {
		switch r := result.(type) {
		case *worker.RecognitionResult:
			p.mu.Lock()
			p.latest = r
			p.mu.Unlock()

			p.hub.Broadcast(ws.EventFacesRecognized, r)
			p.logger.Debug("frame recognized", "faces", len(r.Faces))

		case *worker.RegistrationResult:
			p.hub.Broadcast(ws.EventFacesRegistered, r)
			p.logger.Info("faces registered", "count", len(r.Persons))

		case *worker.UnregistrationResult:
			p.hub.Broadcast(ws.EventFacesUnregistered, r)
			p.logger.Info("faces unregistered", "count", len(r.Persons))
		}
	}
}

func (p *resultPump) LatestRecognition() *worker.RecognitionResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}
