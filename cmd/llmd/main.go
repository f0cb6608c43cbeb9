package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llmd/internal/config"
	"llmd/internal/httpapi"
	"llmd/internal/manager"
	"llmd/internal/registry"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "llmd:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	defaultAddr := ":5000"
	if v := os.Getenv("LLMD_ADDR"); v != "" {
		defaultAddr = v
	}
	root := &cobra.Command{
		Use:           "llmd",
		Short:         "HTTP server exposing a local text-generation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd)
		},
	}
	f := root.Flags()
	f.String("addr", defaultAddr, "HTTP listen address, e.g. :5000")
	f.String("config", "", "Path to a config file (.yaml/.json/.toml)")
	f.String("models", "", "Path to the model registry file (.yaml/.json/.toml)")
	f.String("default-model", "", "Model id used when a request omits one")
	f.String("log-level", "info", "Log level: debug|info|warn|error")
	f.Bool("cors-enabled", false, "Enable CORS for all routes")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	return root
}

// mergeConfig overlays changed flags on top of the optional config file.
func mergeConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	f := cmd.Flags()
	if v, _ := f.GetString("addr"); f.Changed("addr") || cfg.Addr == "" {
		cfg.Addr = v
	}
	if v, _ := f.GetString("models"); f.Changed("models") || cfg.ModelsFile == "" {
		cfg.ModelsFile = v
	}
	if v, _ := f.GetString("default-model"); f.Changed("default-model") || cfg.DefaultModel == "" {
		cfg.DefaultModel = v
	}
	if v, _ := f.GetString("log-level"); f.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = v
	}
	if v, _ := f.GetBool("cors-enabled"); f.Changed("cors-enabled") {
		cfg.CORSEnabled = v
	}
	if v, _ := f.GetStringSlice("cors-origins"); f.Changed("cors-origins") || len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = v
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func runServer(cmd *cobra.Command) error {
	cfg, err := mergeConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.ModelsFile == "" {
		return fmt.Errorf("--models (or models_file in the config) is required")
	}
	logger := newLogger(cfg.LogLevel)

	models, err := registry.Load(cfg.ModelsFile)
	if err != nil {
		return fmt.Errorf("load model registry: %w", err)
	}

	mgr := manager.New(manager.Config{
		Registry:      models,
		DefaultModel:  cfg.DefaultModel,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitMs) * time.Millisecond,
		DrainTimeout:  time.Duration(cfg.DrainTimeoutMs) * time.Millisecond,
		FramePacing:   time.Duration(cfg.FramePacingMs) * time.Millisecond,
		Logger:        logger.With().Str("component", "manager").Logger(),
	})

	httpapi.SetLogger(logger.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if cfg.CORSEnabled {
		methods := cfg.CORSMethods
		if len(methods) == 0 {
			methods = []string{"GET", "POST", "OPTIONS"}
		}
		headers := cfg.CORSHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type", "X-Log-Level"}
		}
		httpapi.SetCORSOptions(true, cfg.CORSOrigins, methods, headers)
	}

	baseCtx, stopBase := context.WithCancel(context.Background())
	defer stopBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("models", cfg.ModelsFile).Int("count", len(models)).Msg("llmd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	mgr.Release()
	return nil
}
