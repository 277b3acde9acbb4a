package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/pkg/syslog"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/engine"
)

var (
	configFile     = flag.String("config", "", "Path to a YAML config file")
	envFile        = flag.String("env", ".env", "Path to a .env file")
	serviceVersion = "1.0.0"
)

func main() {
	flag.Parse()

	opts := loadOptions{configFile: *configFile, envFile: *envFile}
	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(engine.ServiceName, serviceVersion)
	lg.SetLevel(logger.ParseLevel(cfg.GetDefault("log.level", "info")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := cfg.Get("log.file"); path != "" {
		sink, err := syslog.Open(path, engine.ServiceName)
		if err != nil {
			lg.Fatalf("Failed to open log file: %v", err)
		}
		defer sink.Close()
		go sink.Run(ctx, lg.Subscribe())
	}

	res, err := openResources(ctx, cfg, lg)
	if err != nil {
		lg.Fatalf("Failed to initialize: %v", err)
	}
	defer res.Close()

	eng := engine.NewEngine(cfg, engine.Dependencies{
		Store:  res.store,
		Redis:  res.redisClient(),
		Logger: lg,
	})
	if err := eng.Start(ctx); err != nil {
		res.Close()
		lg.Fatalf("Failed to start engine: %v", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			reloadConfig(cfg, opts, lg)
		case <-ctx.Done():
			lg.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := eng.Stop(shutdownCtx); err != nil {
				lg.Errorf("Error during shutdown: %v", err)
			}
			cancel()
			return
		}
	}
}
