package main

import (
	"context"

	"chatd/internal/app"
	"chatd/pkg/config"
	"chatd/pkg/logger"
	"chatd/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	logger.Init()

	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, _, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		shutdown.Abort("failed to load config", err, "", 0)
	}

	// flags win over env/config when explicitly set
	addr := addrVal
	if !setFlags["addr"] {
		addr = cfg.Addr()
	}
	dbPath := dbVal
	if !setFlags["db"] {
		if p := cfg.Storage.DBPath; p != "" {
			dbPath = p
		}
	}

	source := "flags"
	switch {
	case setFlags["config"]:
		source = "config"
	case envUsed:
		source = "env"
	}
	eff := config.EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}

	if cfg.Logging.Level != "" {
		logger.InitWithLevel(cfg.Logging.Level)
	}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, dbPath, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, dbPath, 0)
	}
	logger.Info("server_stopped")
}
