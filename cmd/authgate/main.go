package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/marcogenualdo/authgate/internal/auth"
	"github.com/marcogenualdo/authgate/internal/cache"
	"github.com/marcogenualdo/authgate/internal/config"
	"github.com/marcogenualdo/authgate/internal/server"
	"github.com/marcogenualdo/authgate/internal/session"
	"github.com/marcogenualdo/authgate/internal/store"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "/etc/authgate/config.yaml", "path to configuration file")
	configPathShort := flag.String("c", "/etc/authgate/config.yaml", "path to configuration file (short)")
	showVersion := flag.Bool("version", false, "show version and exit")
	showHelp := flag.Bool("help", false, "show help and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("authgate v%s\n", version)
		os.Exit(0)
	}

	if *showHelp {
		fmt.Println("authgate - OIDC-authenticated web backend")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// Secrets may live in a .env file next to the binary; the environment
	// wins over the config file either way.
	godotenv.Load()

	cfgPath := *configPath
	if *configPathShort != "/etc/authgate/config.yaml" {
		cfgPath = *configPathShort
	}

	if err := run(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("starting authgate", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to open database pool: %w", err)
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("database connected", "max_conns", cfg.Database.MaxConns)

	cacheInstance, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	logger.Info("cache initialized", "type", cfg.Cache.Type)

	provider, err := auth.NewProvider(ctx, cfg.OIDC, cfg.Server.BaseURL+"/post-login")
	if err != nil {
		return fmt.Errorf("failed to set up OIDC provider: %w", err)
	}
	logger.Info("oidc provider discovered", "issuer", cfg.OIDC.Issuer)

	flow := auth.NewFlow(provider, st, cfg.Server.CookieName, cfg.Server.SessionTTL)
	resolver := session.NewResolver(st, cacheInstance, cfg.Server.CookieName, cfg.Cache.TTL, logger)

	sweeper := store.NewSweeper(st, cfg.Sweep.Interval, cfg.Sweep.LoginTTL, logger)
	go sweeper.Run(ctx)
	logger.Info("sweeper started",
		"interval", cfg.Sweep.Interval,
		"login_ttl", cfg.Sweep.LoginTTL,
	)

	srv := server.New(*cfg, logger, flow, resolver, st, cacheInstance)
	return srv.Start()
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
