// Command mlserver runs the real-time ML inference server: the Model
// Lifecycle Manager, Prediction Pipeline, and Feature Store Client wired
// behind an HTTP front end, grounded on the teacher's
// cmd/cryptorun/main.go cobra-root-command shape.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sawpanic/mlserve/internal/config"
	"github.com/sawpanic/mlserve/internal/featurestore"
	"github.com/sawpanic/mlserve/internal/httpapi"
	"github.com/sawpanic/mlserve/internal/logging"
	"github.com/sawpanic/mlserve/internal/modelmanager"
	"github.com/sawpanic/mlserve/internal/pipeline"
	"github.com/sawpanic/mlserve/internal/poller"
	"github.com/sawpanic/mlserve/internal/predictioncache"
	"github.com/sawpanic/mlserve/internal/registryclient"
	"github.com/sawpanic/mlserve/internal/telemetry"
)

const (
	appName = "mlserver"
	version = "v1.0.0"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Real-time ML inference server",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inference server (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var reloadTarget string
	var reloadAddr string
	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Trigger POST /models/reload against a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReload(reloadAddr, reloadTarget)
		},
	}
	reloadCmd.Flags().StringVar(&reloadTarget, "name", "", "model name to reload (default: all tracked models)")
	reloadCmd.Flags().StringVar(&reloadAddr, "addr", "http://127.0.0.1:8080", "base URL of the running instance")

	rootCmd.AddCommand(serveCmd, reloadCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info().Str("listen_addr", cfg.ListenAddr).Msg("starting mlserver")

	registry := registryclient.NewHTTPClient(registryclient.HTTPClientConfig{
		BaseURL:        cfg.Registry.BaseURL,
		Timeout:        cfg.Registry.Timeout,
		RequestsPerSec: cfg.Registry.RequestsPerSec,
		Burst:          cfg.Registry.Burst,
	})

	metrics := telemetry.NewMetricsRegistry(prometheus.DefaultRegisterer)
	predictionCache := predictioncache.New(cfg.PredictionCacheCapacity, cfg.PredictionCacheTTL())

	manager := modelmanager.New(registry, cfg.ModelDrainWindow(),
		modelmanager.WithRecorder(metrics),
		modelmanager.WithCacheInvalidator(predictionCache))
	defer manager.Close()

	tier1 := buildTier1(*cfg)
	tier2, err := buildTier2(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feature store configuration error: %v\n", err)
		os.Exit(1)
	}
	features := featurestore.New(tier1, tier2, featurestore.WithRecorder(metrics))

	pl := pipeline.New(manager, features, predictionCache, metrics, runtimeBatchWorkers())

	trackedNames := trackedModelNames(cfg.PreloadModels)
	pollerInstance := poller.New(registry, manager, trackedNames, cfg.PollerInterval(), cfg.PollerJitterFraction, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Preload(ctx, cfg.PreloadModels, cfg.WarmupDeadline()); err != nil {
		log.Warn().Err(err).Msg("preload did not fully complete before warmup deadline")
	}

	go pollerInstance.Run(ctx)

	handlers := httpapi.NewHandlers(pl, manager, pollerInstance, registry, trackedNames)
	serverCfg := httpapi.ServerConfig{
		ListenAddr:           cfg.ListenAddr,
		RequestTimeout:       cfg.RequestTimeout(),
		RequestQueueCapacity: cfg.RequestQueueCapacity,
		ReadTimeout:          10 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          60 * time.Second,
	}
	server := httpapi.NewServer(serverCfg, handlers, telemetry.Handler(), log)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "failed to bind listening port: %v\n", err)
		os.Exit(1)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancel() // stop the poller

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}
	return nil
}

func runReload(baseURL, name string) error {
	body := fmt.Sprintf(`{"name":%q}`, name)
	if name == "" {
		body = `{}`
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(strings.TrimRight(baseURL, "/")+"/models/reload", "application/json", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("reload request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("reload request returned status %d", resp.StatusCode)
	}
	fmt.Println("reload accepted")
	return nil
}

func buildTier1(cfg config.Config) featurestore.Tier1 {
	if cfg.Redis.Addr != "" {
		return featurestore.NewRedisTier1(cfg.Redis.Addr, cfg.FeatureCacheTTL())
	}
	return featurestore.NewMemoryTier1(cfg.FeatureCacheCapacity, cfg.FeatureCacheTTL())
}

func buildTier2(cfg config.Config) (featurestore.Tier2, error) {
	if !cfg.Postgres.Enabled {
		return nil, nil
	}
	return featurestore.NewPostgresTier2(cfg.Postgres.DSN, cfg.Postgres.QueryTimeout)
}

// trackedModelNames strips the ":version|alias" suffix from each preload
// entry to get the set of names the poller reconciles on every tick.
func trackedModelNames(entries []string) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if i := strings.LastIndex(e, ":"); i >= 0 {
			names = append(names, e[:i])
		} else {
			names = append(names, e)
		}
	}
	return names
}

func runtimeBatchWorkers() int {
	return 8
}
