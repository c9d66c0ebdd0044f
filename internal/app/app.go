package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/classweek-backend/internal/http"
	"github.com/yungbote/classweek-backend/internal/observability"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/temporalx/progresssync"
	"github.com/yungbote/classweek-backend/internal/temporalx/temporalworker"
)

// Role selects which outer surfaces an App wires.
type Role int

const (
	// RoleAPI serves HTTP.
	RoleAPI Role = iota
	// RoleWorker runs the Temporal worker.
	RoleWorker
	// RoleTool is a one-shot command: store and services only.
	RoleTool
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    *Store
	Clients  *Clients
	Services Services
	Server   *http.Server

	shutdownOTel func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE after .env files are loaded.
func NewLogger() (*logger.Logger, error) {
	boot := logger.Nop()
	LoadEnvFiles(boot)
	mode := os.Getenv("LOG_MODE")
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger, role Role) (*App, error) {
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}

	a := &App{Log: log, Cfg: cfg}
	a.shutdownOTel = observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(cfg.ServiceName))

	store, err := openStore(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	clients, err := wireClients(log, cfg, clientNeeds{
		bucket:   role == RoleAPI,
		senders:  role != RoleTool,
		temporal: role == RoleWorker,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Services = wireServices(log, cfg, store.Repos, clients)
	if role == RoleAPI {
		a.Server = wireServer(log, cfg, a.Store, a.Services)
	}
	return a, nil
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized for serving")
	}
	return a.Server.Run(ctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
}

// RunWorker starts the Temporal worker and blocks until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil || a.Clients == nil || a.Clients.Temporal == nil {
		return fmt.Errorf("temporal client is not configured")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Clients.TemporalConfig, &progresssync.Activities{
		Log:           a.Log,
		Users:         a.Store.Repos.Users,
		Notifications: a.Services.Notifications,
	})
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if err := a.Services.drain(a.drainTimeout()); err != nil {
		a.Log.Warn("Notification queue did not drain", "error", err)
	}
	a.Clients.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Store.Close(ctx); err != nil {
		a.Log.Warn("Store close failed", "error", err)
	}
	if a.shutdownOTel != nil {
		_ = a.shutdownOTel(ctx)
	}
	a.Log.Sync()
}

func (a *App) drainTimeout() time.Duration {
	if a.Cfg.ShutdownTimeout > 0 {
		return a.Cfg.ShutdownTimeout
	}
	return 15 * time.Second
}
