package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/configloader"
	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/internal/app"
	"github.com/YaganovValera/finam-trade-client/internal/config"
	"github.com/YaganovValera/finam-trade-client/pkg/finam"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "events-collector",
		Short:         "Finam Trade API events collector",
		SilenceUsage: true,
	}
	bindConfigFlag(root.PersistentFlags(), &cfgFile)

	root.AddCommand(
		newRunCmd(&cfgFile),
		newSecuritiesCmd(&cfgFile),
		newPortfolioCmd(&cfgFile),
		newTailCmd(&cfgFile),
	)
	return root
}

// bindConfigFlag добавляет --config; путь можно задать и через FINAM_COLLECTOR_CONFIG.
func bindConfigFlag(fs *pflag.FlagSet, p *string) {
	fs.StringVar(p, "config", os.Getenv(config.EnvPrefix+"_CONFIG"), "path to config file (YAML)")
}

func newRunCmd(cfgFile *string) *cobra.Command {
	var printConfig bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream orders, trades, order books and portfolios to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{Level: cfg.Logging.Level, DevMode: cfg.Logging.DevMode})
			if err != nil {
				return err
			}
			defer log.Sync()
			if printConfig || cfg.Logging.DevMode {
				configloader.PrintConfig(cmd.OutOrStdout(), cfg)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("events-collector starting",
				zap.String("service", cfg.ServiceName), zap.String("version", cfg.ServiceVersion))
			if err := app.Run(ctx, cfg, log); err != nil {
				log.Error("events-collector failed", zap.Error(err))
				return err
			}
			log.Info("events-collector stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "print loaded configuration without secrets")
	return cmd
}

func newSecuritiesCmd(cfgFile *string) *cobra.Command {
	var board, code string
	cmd := &cobra.Command{
		Use:   "securities",
		Short: "Print instruments available in Trade API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), *cfgFile, func(ctx context.Context, c *finam.DefaultClient) error {
				list, err := c.GetSecurities(ctx, board, code)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringVar(&board, "board", "", "board filter, e.g. TQBR")
	cmd.Flags().StringVar(&code, "code", "", "security code filter, e.g. SBER")
	return cmd
}

func newPortfolioCmd(cfgFile *string) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Print client portfolio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd.Context(), *cfgFile, func(ctx context.Context, c *finam.DefaultClient) error {
				p, err := c.GetPortfolio(ctx, clientID, tradeapi.PortfolioContent{
					IncludeCurrencies: true,
					IncludeMoney:      true,
					IncludePositions:  true,
					IncludeMaxBuySell: true,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "trade account id")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

// withClient открывает унарного клиента на время одной команды.
func withClient(ctx context.Context, cfgFile string, fn func(context.Context, *finam.DefaultClient) error) error {
	cfg, err := config.LoadFinam(cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: "warn"})
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := finam.NewDefaultClient(*cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = c.Stop() }()
	return fn(ctx, c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
