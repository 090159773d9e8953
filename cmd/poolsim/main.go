package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DaggerToothCaster/v3-core/lib/config"
	"github.com/DaggerToothCaster/v3-core/lib/journal"
	"github.com/DaggerToothCaster/v3-core/lib/journal/postgres"
	"github.com/DaggerToothCaster/v3-core/lib/pool"
	"github.com/DaggerToothCaster/v3-core/lib/scenario"
	"github.com/DaggerToothCaster/v3-core/lib/token"
	ui "github.com/holiman/uint256"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "Concentrated liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a transaction trace against a pool",
		RunE:  runScenario,
	}

	runCmd.Flags().String("scenario", "", "transaction trace JSON path")
	runCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the event journal")
	runCmd.Flags().String("token0", "TOKEN0", "token0 symbol")
	runCmd.Flags().String("token1", "TOKEN1", "token1 symbol")
	runCmd.Flags().Int("fee", 3000, "pool fee in pips")
	runCmd.Flags().Int("tick-spacing", 60, "tick spacing")
	runCmd.Flags().Int("batch-size", 256, "events per journal batch")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}

	txs, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token0 := token.NewMemLedger(cfg.Token0)
	token1 := token.NewMemLedger(cfg.Token1)
	fundAccounts(token0, token1, txs)

	p, err := pool.New("pool", token0, token1, cfg.Fee, cfg.TickSpacing, logger)
	if err != nil {
		return err
	}

	sinks := journal.Multi{journal.NewJsonlStorage(cfg.Out)}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	runner := scenario.NewRunner(p, sinks, logger)
	if cfg.BatchSize > 0 {
		runner.BatchSize = cfg.BatchSize
	}

	logger.Info("scenario start",
		zap.String("scenario", cfg.Scenario),
		zap.Int("transactions", len(txs)),
		zap.String("token0", cfg.Token0),
		zap.String("token1", cfg.Token1),
		zap.Int("fee", cfg.Fee),
		zap.Int("tick_spacing", cfg.TickSpacing),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	if err := runner.Run(ctx, txs); err != nil {
		return err
	}

	finalPrice := "uninitialized"
	if p.Slot0.SqrtPriceX96 != nil {
		finalPrice = p.Slot0.SqrtPriceX96.Dec()
	}
	logger.Info("scenario done",
		zap.String("sqrtPriceX96", finalPrice),
		zap.Int("tick", p.Slot0.Tick),
		zap.String("liquidity", p.Liquidity.Dec()),
	)
	return nil
}

// fundAccounts gives every account named in the trace a balance large enough
// that settlement never fails for lack of funds.
func fundAccounts(token0, token1 *token.MemLedger, txs []scenario.Transaction) {
	funds := new(ui.Int).Lsh(ui.NewInt(1), 160)
	seen := map[string]bool{scenario.DefaultAccount: false}
	for _, tx := range txs {
		if tx.Owner != "" {
			seen[tx.Owner] = false
		}
		if tx.Recipient != "" {
			seen[tx.Recipient] = false
		}
	}
	for account := range seen {
		token0.Mint(account, funds.Clone())
		token1.Mint(account, funds.Clone())
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
