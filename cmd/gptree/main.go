package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adntgv/gptree/internal/app"
	"github.com/adntgv/gptree/pkg/config"
	"github.com/adntgv/gptree/pkg/logger"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	// Config path: flag wins over env
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Flags win over env/config for addr and db path
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
		if host, port, err := net.SplitHostPort(addrVal); err == nil {
			cfg.Server.Address = host
			if p, perr := strconv.Atoi(port); perr == nil {
				cfg.Server.Port = p
			}
		}
	}
	if setFlags["db"] {
		cfg.Storage.DBPath = dbVal
	}

	logger.InitWithLevel(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, addr, version, commit, buildDate)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	var srcs []string
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if cfgPath != "" {
		if _, err := config.Load(cfgPath); err == nil {
			srcs = append(srcs, "config")
		}
	}
	a.PrintBanner(strings.Join(srcs, ", "))

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("shutdown_complete")
}
