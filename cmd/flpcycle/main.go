// Command flpcycle previews one indexer cycle for a single ticker and project
// without writing anything, printing the per-wallet delegated amounts as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/screwyprof/atlas/distribution"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/flp/config"
	"github.com/screwyprof/atlas/indexer"
	"github.com/screwyprof/atlas/pkg/logger"
)

// Previewer computes positions of a snapshot without persisting them
type Previewer interface {
	Preview(ctx context.Context, symbol, project, txID string) ([]flp.Position, []indexer.WalletSkipped, error)
}

// Row is one delegated amount of the preview
type Row struct {
	Wallet          string `json:"wallet"`
	EOA             string `json:"eoa"`
	Factor          uint32 `json:"factor"`
	DelegatedAmount string `json:"delegatedAmount"`
}

func main() {
	_ = godotenv.Load()

	cmd := newRootCmd(func(concurrency int) (Previewer, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return newPreviewer(cfg, concurrency)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(build func(concurrency int) (Previewer, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "flpcycle <ticker> <project> [oracle-tx]",
		Short:        "Preview the delegated amounts of one oracle snapshot for a project",
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}
			concurrency, err := cmd.Flags().GetInt("concurrency")
			if err != nil {
				return fmt.Errorf("failed to get concurrency flag: %w", err)
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log := logger.New(cmd.ErrOrStderr(), logger.Config{LogLevel: level.String(), LogHumanFriendly: true})

			ticker, project := args[0], args[1]
			if p, ok := flp.LookupProject(project); ok {
				project = p.PID
			}
			var txID string
			if len(args) == 3 {
				txID = args[2]
			}

			previewer, err := build(concurrency)
			if err != nil {
				log.Error("Failed to set up preview", slog.Any("error", err))
				return err
			}

			positions, skipped, err := previewer.Preview(cmd.Context(), ticker, project, txID)
			if err != nil {
				log.Error("Preview failed", slog.Any("error", err))
				return err
			}
			for _, s := range skipped {
				log.Warn("Wallet skipped", slog.String("wallet", s.Wallet.String()), slog.Any("error", s.Err))
			}

			rows := toRows(positions)
			log.Info("Preview completed",
				slog.String("ticker", ticker),
				slog.String("project", project),
				slog.Int("positions", len(rows)),
				slog.Int("skipped", len(skipped)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "log at debug level")
	cmd.Flags().Int("concurrency", indexer.DefaultConcurrency, "number of wallets resolved in parallel")

	return cmd
}

func toRows(positions []flp.Position) []Row {
	rows := make([]Row, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, Row{
			Wallet:          p.Wallet.String(),
			EOA:             p.EOA,
			Factor:          p.Factor,
			DelegatedAmount: p.Amount.String(),
		})
	}
	return rows
}

// newPreviewer builds an indexer over the live ledger. Preview never writes, so no store is attached.
func newPreviewer(cfg config.Ledger, concurrency int) (Previewer, error) {
	calc, err := distribution.NewCalculator(cfg.MaxFactor)
	if err != nil {
		return nil, err
	}

	registry := cfg.Tickers()
	tickers := make([]flp.Ticker, 0, len(registry))
	for _, symbol := range registry.Symbols() {
		tickers = append(tickers, registry[symbol])
	}

	gateway := cfg.Client()
	return indexer.NewService(cfg.Resolver(gateway), cfg.Fetcher(gateway), nil, calc, tickers,
		indexer.WithConcurrency(concurrency))
}
