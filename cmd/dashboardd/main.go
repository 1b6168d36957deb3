package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/YuCheng1122/threat-graph/config"
	"github.com/YuCheng1122/threat-graph/internal/authz"
	"github.com/YuCheng1122/threat-graph/internal/groups"
	"github.com/YuCheng1122/threat-graph/internal/intake"
	"github.com/YuCheng1122/threat-graph/internal/logger"
	"github.com/YuCheng1122/threat-graph/internal/metrics"
	"github.com/YuCheng1122/threat-graph/internal/server"
	"github.com/YuCheng1122/threat-graph/internal/service"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/internal/store/memory"
	"github.com/YuCheng1122/threat-graph/internal/store/redisstore"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("threatgraph.yml"); err == nil {
		return "threatgraph.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "threatgraph.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "threatgraph.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.ThreatGraph.Server.Addr == "" {
		cfg.ThreatGraph.Server.Addr = ":8080"
	}
	if cfg.ThreatGraph.Server.ReadTimeout <= 0 {
		cfg.ThreatGraph.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.ThreatGraph.Server.WriteTimeout <= 0 {
		cfg.ThreatGraph.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.ThreatGraph.Server.ShutdownTimeout <= 0 {
		cfg.ThreatGraph.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.ThreatGraph.Store.Mode == "" {
		cfg.ThreatGraph.Store.Mode = "memory"
	}
	if cfg.ThreatGraph.Store.Redis.Addr == "" {
		cfg.ThreatGraph.Store.Redis.Addr = "127.0.0.1:6379"
	}

	if cfg.ThreatGraph.Intake.Redis.Addr == "" {
		cfg.ThreatGraph.Intake.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.ThreatGraph.Intake.Redis.Key == "" {
		cfg.ThreatGraph.Intake.Redis.Key = "wazuh_records"
	}
	if cfg.ThreatGraph.Intake.Redis.BlockTimeout == 0 {
		cfg.ThreatGraph.Intake.Redis.BlockTimeout = 5 * time.Second
	}

	if cfg.ThreatGraph.Authz.CacheSize <= 0 {
		cfg.ThreatGraph.Authz.CacheSize = 1024
	}
	if cfg.ThreatGraph.Authz.CacheTTL <= 0 {
		cfg.ThreatGraph.Authz.CacheTTL = 30 * time.Second
	}

	if cfg.ThreatGraph.Logging.Level == "" {
		cfg.ThreatGraph.Logging.Level = "info"
	}
}

// headerPrincipal trusts identity headers set by the upstream auth
// proxy. Token validation happens there, not here.
func headerPrincipal(r *http.Request) (models.Principal, error) {
	id, err := strconv.Atoi(r.Header.Get("X-User-ID"))
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{
		ID:       id,
		Username: r.Header.Get("X-Username"),
		Role:     r.Header.Get("X-User-Role"),
		Disabled: r.Header.Get("X-User-Disabled") == "true",
	}, nil
}

func main() {
	configArg := ""
	if len(os.Args) > 1 {
		configArg = os.Args[1]
	}

	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.ThreatGraph.Logging.Enabled, cfg.ThreatGraph.Logging.Level, cfg.ThreatGraph.Logging.File, cfg.ThreatGraph.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("ThreatGraph dashboard starting")
	logger.Infof("Config loaded from: %s", configPath)

	var gw store.Gateway
	switch cfg.ThreatGraph.Store.Mode {
	case "memory":
		gw = memory.New()
		logger.Infof("Store mode: memory")
	case "redis":
		st, err := redisstore.New(redisstore.Config{
			Addr:      cfg.ThreatGraph.Store.Redis.Addr,
			Password:  cfg.ThreatGraph.Store.Redis.Password,
			DB:        cfg.ThreatGraph.Store.Redis.DB,
			KeyPrefix: cfg.ThreatGraph.Store.Redis.KeyPrefix,
		})
		if err != nil {
			logger.Errorf("Failed to create Redis store: %v", err)
			log.Fatalf("Failed to create Redis store: %v", err)
		}
		gw = st
		logger.Infof("Store mode: redis (%s)", cfg.ThreatGraph.Store.Redis.Addr)
	default:
		log.Fatalf("Unknown store mode: %s", cfg.ThreatGraph.Store.Mode)
	}

	dir := groups.NewMemoryDirectory()
	for userID, names := range cfg.ThreatGraph.Authz.Assignments {
		for _, name := range names {
			dir.Assign(userID, name)
		}
	}

	resolver := authz.NewResolver(dir, authz.Config{
		CacheSize: cfg.ThreatGraph.Authz.CacheSize,
		CacheTTL:  cfg.ThreatGraph.Authz.CacheTTL,
	})

	m := metrics.NewMetrics()
	svc := service.NewDashboard(gw, resolver, m)
	srv := server.NewServer(svc, headerPrincipal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumer *intake.Consumer
	if cfg.ThreatGraph.Intake.Enabled {
		consumer, err = intake.NewConsumer(intake.Config{
			Addr:         cfg.ThreatGraph.Intake.Redis.Addr,
			Password:     cfg.ThreatGraph.Intake.Redis.Password,
			DB:           cfg.ThreatGraph.Intake.Redis.DB,
			Key:          cfg.ThreatGraph.Intake.Redis.Key,
			BlockTimeout: cfg.ThreatGraph.Intake.Redis.BlockTimeout,
		}, gw, m)
		if err != nil {
			logger.Errorf("Failed to create intake consumer: %v", err)
			log.Fatalf("Failed to create intake consumer: %v", err)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Errorf("Intake consumer error: %v", err)
			}
		}()
		logger.Infof("Intake consumer listening on %s (key %s)", cfg.ThreatGraph.Intake.Redis.Addr, cfg.ThreatGraph.Intake.Redis.Key)
	}

	httpServer := &http.Server{
		Addr:         cfg.ThreatGraph.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ThreatGraph.Server.ReadTimeout,
		WriteTimeout: cfg.ThreatGraph.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("HTTP API listening on %s", cfg.ThreatGraph.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ThreatGraph.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error shutting down HTTP server: %v", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Error closing intake consumer: %v", err)
		}
	}

	logger.Infof("ThreatGraph dashboard stopped")
}
