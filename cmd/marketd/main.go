package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nftmarket/config"
	"nftmarket/native/market"
	"nftmarket/native/registry"
	"nftmarket/native/token"
	"nftmarket/observability/logging"
	"nftmarket/rpc"
	"nftmarket/state"
	"nftmarket/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "Run with an in-memory state backend (no persistence)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NFTMARKET_ENV"))
	logger := logging.Setup("marketd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open database", slog.String("dir", cfg.DataDir), slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := seedRoles(manager, cfg); err != nil {
		logger.Error("failed to seed capability roles", slog.Any("error", err))
		os.Exit(1)
	}

	assetEngine := registry.NewEngine()
	assetEngine.SetState(manager)

	tokenEngine := token.NewEngine()
	tokenEngine.SetState(manager)

	vault := cfg.Vault()
	marketEngine := market.NewEngine()
	marketEngine.SetState(manager)
	marketEngine.SetOwnership(assetEngine)
	marketEngine.SetTokenLedger(tokenEngine.Custodian(vault))
	marketEngine.SetVault(vault)
	marketEngine.SetAuctionDuration(cfg.AuctionDuration)

	server := rpc.NewServer(marketEngine, assetEngine, tokenEngine, logger)
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting JSON-RPC server", slog.String("addr", cfg.RPCAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

func seedRoles(manager *state.Manager, cfg *config.Config) error {
	for _, addr := range cfg.MinterAddresses() {
		if err := manager.GrantRole(registry.RoleMinter, addr[:]); err != nil {
			return err
		}
	}
	for _, addr := range cfg.TokenAdminAddresses() {
		if err := manager.GrantRole(token.RoleTokenAdmin, addr[:]); err != nil {
			return err
		}
	}
	return nil
}
