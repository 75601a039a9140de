package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/config"
	"github.com/marmos91/dittohttp/pkg/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `DittoHTTP - minimal concurrent HTTP/1.1 server

Usage:
  dittohttp init [--force] [--config PATH]
  dittohttp start [--config PATH] [--directory DIR] [--address HOST:PORT] [--log-level LEVEL]
  dittohttp version

Run 'dittohttp <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "start":
		runStart(os.Args[2:])
	case "version":
		fmt.Printf("dittohttp %s\n", version)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	configPath := fs.String("config", "", "Where to write the configuration (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			log.Fatalf("Failed to initialize configuration: %v", err)
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
}

// rateLimited is implemented by adapters whose accept rate can change at runtime.
type rateLimited interface {
	SetRateLimit(requestsPerSecond float64, burst int)
}

// reloader applies hot-reloadable settings to the running adapters.
type reloader struct {
	mu            sync.Mutex
	adapters      []adapter.Adapter
	levelOverride bool
}

func (r *reloader) setAdapters(adapters []adapter.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = adapters
}

func (r *reloader) apply(cfg *config.Config) {
	if !r.levelOverride {
		logger.SetLevel(cfg.Logging.Level)
		logger.Info("Log level set to: %s", cfg.Logging.Level)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit := cfg.Adapters.HTTP.RateLimit
	for _, a := range r.adapters {
		if rl, ok := a.(rateLimited); ok {
			rl.SetRateLimit(limit.RequestsPerSecond, limit.Burst)
			logger.Info("%s rate limit set to %.2f req/s (burst %d)", a.Protocol(), limit.RequestsPerSecond, limit.Burst)
		}
	}
}

// loadConfig watches the configuration file when one exists, so the log
// level and rate limit can be changed without a restart.
func loadConfig(configPath string, r *reloader) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return config.Watch(path, r.apply)
	}
	return config.Load(configPath)
}

func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the configuration file (default: "+config.GetDefaultConfigPath()+")")
	directory := fs.String("directory", "", "Serve /files from this directory (filesystem store)")
	address := fs.String("address", "", "Listen address for the HTTP adapter (host:port)")
	logLevel := fs.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	_ = fs.Parse(args)

	r := &reloader{levelOverride: *logLevel != ""}

	cfg, err := loadConfig(*configPath, r)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *directory != "" {
		cfg.Store.Type = "filesystem"
		if cfg.Store.Filesystem == nil {
			cfg.Store.Filesystem = make(map[string]any)
		}
		cfg.Store.Filesystem["path"] = *directory
	}
	if *address != "" {
		cfg.Adapters.HTTP.Enabled = true
		cfg.Adapters.HTTP.Address = *address
	}
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("DittoHTTP - minimal concurrent HTTP/1.1 server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("File store: %s", cfg.Store.Type)

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	store, err := config.CreateFileStore(ctx, &cfg.Store, m.StoreMetrics)
	if err != nil {
		log.Fatalf("Failed to create file store: %v", err)
	}

	adapters, err := config.CreateAdapters(cfg, m.HTTPMetrics)
	if err != nil {
		_ = store.Close()
		log.Fatalf("Failed to create adapters: %v", err)
	}

	srv := server.New(store, cfg.Server.ShutdownTimeout)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			_ = store.Close()
			log.Fatalf("Failed to register %s adapter: %v", a.Protocol(), err)
		}
	}
	r.setAdapters(adapters)

	// Log server configuration
	h := cfg.Adapters.HTTP
	logger.Info("HTTP adapter configuration:")
	logger.Info("  Address: %s", h.Address)
	logger.Info("  Workers: %d (queue %d)", h.Workers, h.QueueSize)
	logger.Info("  Read timeout: %v", h.Timeouts.Read)
	logger.Info("  Write timeout: %v", h.Timeouts.Write)
	logger.Info("  Shutdown timeout: %v", h.ShutdownTimeout)
	if h.RateLimit.RequestsPerSecond > 0 {
		logger.Info("  Rate limit: %.2f req/s (burst %d)", h.RateLimit.RequestsPerSecond, h.RateLimit.Burst)
	} else {
		logger.Info("  Rate limit: unlimited")
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", h.Address)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil && err != context.Canceled {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
