package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"smartsession/internal/app"
	"smartsession/internal/devrelay"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := devrelay.DefaultConfig()
	var (
		addr     string
		budget   string
		gasPrice uint64
		level    string
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run the in-memory development relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := app.NewLogger(os.Stderr, level)
			if err != nil {
				return err
			}
			log.SetDefault(logger)

			b, err := uint256.FromDecimal(budget)
			if err != nil {
				return fmt.Errorf("--budget: %w", err)
			}
			cfg.Budget = b
			cfg.GasPrice = uint256.NewInt(gasPrice)
			cfg.Logger = logger
			if cfg.APIKey == "" {
				cfg.APIKey = os.Getenv(app.EnvPrefix + "API_KEY")
			}
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, devrelay.New(cfg).Handler(), logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.Uint64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "chain the relay serves")
	f.StringVar(&budget, "budget", cfg.Budget.Dec(), "sponsorship budget per gas tank, in wei")
	f.Uint64Var(&gasPrice, "gas-price", cfg.GasPrice.Uint64(), "gas price charged to gas tanks, in wei")
	f.IntVar(&cfg.PendingPolls, "pending-polls", cfg.PendingPolls, "receipt lookups answered PENDING before success")
	f.DurationVar(&cfg.QuoteTTL, "quote-ttl", cfg.QuoteTTL, "how long a quote stays executable")
	f.DurationVar(&cfg.PermissionTTL, "permission-ttl", cfg.PermissionTTL, "validity window of granted permissions")
	f.StringVar(&cfg.APIKey, "api-key", "", "require this X-API-Key (default $SMARTSESSION_API_KEY)")
	f.StringVar(&level, "log-level", "info", "trace, debug, info, warn, error or crit")
	return cmd
}

func serve(ctx context.Context, addr string, h http.Handler, logger log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("Relay listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Relay stopped")
	return nil
}
