package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"billing_monitor/internal/config"
	"billing_monitor/internal/drive"
	"billing_monitor/internal/httpapi"
	"billing_monitor/internal/ingest"
	"billing_monitor/internal/insight"
	"billing_monitor/internal/llm"
	"billing_monitor/internal/store"
	"billing_monitor/internal/watch"
)

// App wires the billing components together.
type App struct {
	cfg     config.Config
	store   *store.Store
	service *ingest.Service
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	source := buildSource(ctx, cfg)
	analyzer := insight.NewAnalyzer(buildGenerator(ctx, cfg))
	service := ingest.New(cfg, st, source, analyzer)
	watcher := watch.New(cfg, service)

	mux := http.NewServeMux()
	router := httpapi.NewRouter(cfg, st, service)
	router.Register(mux)
	return &App{cfg: cfg, store: st, service: service, watcher: watcher, mux: mux}, nil
}

// buildSource prefers Google Drive when credentials and a folder are
// configured, falling back to the local uploads directory.
func buildSource(ctx context.Context, cfg config.Config) drive.Source {
	if cfg.DriveFolderID != "" {
		if _, err := os.Stat(cfg.DriveCredentialsFile); err == nil {
			g, err := drive.NewGoogleDrive(ctx, cfg.DriveCredentialsFile)
			if err == nil {
				log.Printf("source: google drive folder %s", cfg.DriveFolderID)
				return g
			}
			log.Printf("source: drive init failed: %v (using local %s)", err, cfg.UploadsDir)
		} else {
			log.Printf("source: credentials file %s missing (using local %s)", cfg.DriveCredentialsFile, cfg.UploadsDir)
		}
	}
	return drive.LocalDir{Dir: cfg.UploadsDir}
}

func buildGenerator(ctx context.Context, cfg config.Config) llm.TextGenerator {
	if cfg.GeminiAPIKey == "" {
		log.Println("llm: no api key, using deterministic fallbacks")
		return llm.Disabled{}
	}
	g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, time.Duration(cfg.LLMTimeoutSec)*time.Second)
	if err != nil {
		log.Printf("llm: init failed: %v (using deterministic fallbacks)", err)
		return llm.Disabled{}
	}
	log.Printf("llm: model %s", cfg.GeminiModel)
	return g
}

// Run starts the watcher and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: ":" + a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Close() error { return a.store.Close() }

func (a *App) Service() *ingest.Service { return a.service }
func (a *App) Store() *store.Store     { return a.store }
func (a *App) Mux() *http.ServeMux     { return a.mux }
