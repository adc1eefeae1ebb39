package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcg-hq/followers/internal/config"
	"github.com/tcg-hq/followers/internal/followsrv"
	"github.com/tcg-hq/followers/internal/logger"
	"github.com/tcg-hq/followers/internal/storage"
	"github.com/tcg-hq/followers/pkg/publishers"
)

const shutdownTimeout = 5 * time.Second

// Server wires storage, event publishers and the follow routes into an HTTP server.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	fanout *publishers.Fanout
	engine *gin.Engine
	log    logger.Logger
}

// NewServer builds the reference endpoint runtime from config.
func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	store, err := storage.NewStore(cfg.StorageType, cfg.StoragePath(), storage.Options{})
	if err != nil {
		return nil, fmt.Errorf("open follow store: %w", err)
	}

	fanout, err := loadPublishers(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := followsrv.NewHandler(store, fanout, log)

	return &Server{
		cfg:    cfg,
		store:  store,
		fanout: fanout,
		engine: followsrv.NewEngine(handler, cfg.PluginID, log),
		log:    log,
	}, nil
}

// loadPublishers builds the enabled publishers. No file means no events.
func loadPublishers(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured; follow events disabled", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	log.InfoObj("publishers registry loaded", "publishers", enabled)
	return publishers.NewFanout(pubClients), nil
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains connections and releases resources.
func (s *Server) Run(ctx context.Context) error {
	if s == nil || s.engine == nil {
		return fmt.Errorf("server is not initialized")
	}
	defer s.close()

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("follow endpoint listening", "server_state", map[string]any{
			"addr":             s.cfg.ListenAddr,
			"plugin_id":        s.cfg.PluginID,
			"storage_type":     s.cfg.StorageType,
			"publishers_count": s.fanout.Size(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.InfoObj("follow endpoint shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) close() {
	if err := s.fanout.Close(); err != nil {
		s.log.WarnObj("close publishers failed", "error", err.Error())
	}
	if err := s.store.Close(); err != nil {
		s.log.WarnObj("close follow store failed", "error", err.Error())
	}
}
