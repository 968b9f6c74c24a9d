package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chatboat/chatboat/pkg/datastore"
	"github.com/chatboat/chatboat/pkg/logging"
	"github.com/chatboat/chatboat/pkg/server"
)

func main() {
	defaults := server.DefaultConfig()

	configPath := flag.String("config", "", "YAML config file (flags override it)")
	listenAddr := flag.String("listen", defaults.ListenAddr, "TCP bind address")
	wsAddr := flag.String("ws", defaults.WSAddr, "HTTP bind address for the /ws websocket listener (empty to disable)")
	metricsAddr := flag.String("metrics", defaults.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	dbPath := flag.String("db", defaults.DBPath, "SQLite user database path")
	outboxSize := flag.Int("outbox", defaults.OutboxSize, "per-session outbound queue capacity")
	grace := flag.Duration("grace", defaults.ShutdownGrace, "shutdown grace period")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := server.LoadConfig(*configPath)
		if err != nil {
			slog.Error("load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Explicitly set flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = *listenAddr
		case "ws":
			cfg.WSAddr = *wsAddr
		case "metrics":
			cfg.MetricsAddr = *metricsAddr
		case "db":
			cfg.DBPath = *dbPath
		case "outbox":
			cfg.OutboxSize = *outboxSize
		case "grace":
			cfg.ShutdownGrace = *grace
		}
	})

	users, err := datastore.OpenSQL(cfg.DBPath)
	if err != nil {
		slog.Error("open user database", "err", err)
		os.Exit(1)
	}

	srv := server.New(cfg, server.Dependencies{Users: users})
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
