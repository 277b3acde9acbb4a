package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/telehostca/chatbot-backend/pkg/config"
	"github.com/telehostca/chatbot-backend/pkg/database"
	"github.com/telehostca/chatbot-backend/pkg/encryption"
	"github.com/telehostca/chatbot-backend/pkg/keyring"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	tenantconfig "github.com/telehostca/chatbot-backend/services/schemamap/internal/config"
)

// envPrefix namespaces the environment overrides: SCHEMAMAP_SERVER_PORT sets server.port.
const envPrefix = "SCHEMAMAP_"

type loadOptions struct {
	configFile string
	envFile    string
}

// loadConfig layers the .env file, the YAML file and the process environment,
// later sources winning.
func loadConfig(opts loadOptions) (*config.Config, error) {
	cfg := config.New()
	if opts.envFile != "" {
		if err := cfg.LoadEnvFile(opts.envFile); err != nil {
			return nil, err
		}
	}
	if opts.configFile != "" {
		if err := cfg.LoadYAML(opts.configFile); err != nil {
			return nil, err
		}
	}
	cfg.LoadEnv(envPrefix)
	return cfg, nil
}

// reloadConfig applies a SIGHUP. Only the log level is picked up live; changed
// restart keys are reported.
func reloadConfig(cfg *config.Config, opts loadOptions, lg *logger.Logger) {
	before := cfg.GetAll()
	fresh, err := loadConfig(opts)
	if err != nil {
		lg.Warnf("Configuration reload failed: %v", err)
		return
	}
	cfg.Update(fresh.GetAll())
	lg.SetLevel(logger.ParseLevel(cfg.GetDefault("log.level", "info")))

	if cfg.RequiresRestart(before) {
		lg.Warn("Configuration reloaded; some changes take effect only after a restart")
		return
	}
	lg.Info("Configuration reloaded")
}

// resources are the platform connections main owns and closes on exit.
type resources struct {
	store tenantconfig.Store
	pg    *database.PostgreSQL
	redis *database.Redis
}

func (r *resources) redisClient() redis.UniversalClient {
	if r.redis == nil {
		return nil
	}
	return r.redis.Client()
}

func (r *resources) Close() {
	if r.store != nil {
		_ = r.store.Close()
		r.store = nil
	}
	if r.pg != nil {
		r.pg.Close()
		r.pg = nil
	}
	if r.redis != nil {
		r.redis.Close()
		r.redis = nil
	}
}

func openResources(ctx context.Context, cfg *config.Config, lg *logger.Logger) (*resources, error) {
	km := keyring.NewManager(
		cfg.GetDefault("keyring.path", keyring.DefaultPath()),
		cfg.Get("keyring.master_password"),
		cfg.GetDefault("keyring.backend", keyring.BackendAuto),
	)
	if km.UsesFile() {
		lg.Info("System keyring unavailable, using file keyring")
	}
	sealer := encryption.NewTenantSealer(km)

	res := &resources{}
	switch driver := cfg.GetDefault("store.driver", "postgres"); driver {
	case "sqlite":
		path := cfg.GetDefault("store.path", "schemamap.db")
		store, err := tenantconfig.OpenSQLite(path, sealer)
		if err != nil {
			return nil, err
		}
		store.SetLogger(lg)
		res.store = store
		lg.Infof("Using sqlite store at %s", path)
	case "postgres":
		pg, err := database.New(ctx, database.FromConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to platform database: %w", err)
		}
		res.pg = pg
		store := tenantconfig.NewPostgresStore(pg, sealer)
		store.SetLogger(lg)
		res.store = store
	default:
		return nil, fmt.Errorf("unknown store.driver %q (want postgres or sqlite)", driver)
	}

	if cfg.GetBool("redis.enabled", false) {
		rdb, err := database.NewRedis(ctx, database.RedisFromConfig(cfg))
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		res.redis = rdb
	}
	return res, nil
}
