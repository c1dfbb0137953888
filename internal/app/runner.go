// internal/app/runner.go
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/balance"
	"github.com/vatanpay/remit/internal/config"
	"github.com/vatanpay/remit/internal/history"
	"github.com/vatanpay/remit/internal/horizon"
	"github.com/vatanpay/remit/internal/logger"
	"github.com/vatanpay/remit/internal/metrics"
	"github.com/vatanpay/remit/internal/quote"
	"github.com/vatanpay/remit/internal/remit"
	"github.com/vatanpay/remit/internal/signing"
	"github.com/vatanpay/remit/internal/store"
	"github.com/vatanpay/remit/internal/store/postgres"
	"github.com/vatanpay/remit/internal/submit"
	"github.com/vatanpay/remit/internal/trust"
	"github.com/vatanpay/remit/internal/txbuild"
)

// Runner wires the configuration into the remittance services and
// dispatches one command per invocation.
type Runner struct {
	logger     *logger.Logger
	config     *config.Config
	horizon    *horizon.Client
	service    *remit.Service
	history    *history.Fetcher
	signer     *signing.LocalSigner
	store      store.Store
	metrics    *metrics.Collector
	shutdownCh chan os.Signal
}

func NewRunner(log *logger.Logger) *Runner {
	return &Runner{
		logger:     log,
		shutdownCh: make(chan os.Signal, 1),
	}
}

// Initialize loads configuration and connects the services.
func (r *Runner) Initialize(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.config = cfg

	if cfg.SignerSeed == "" {
		return fmt.Errorf("REMIT_SIGNER_SEED is not set")
	}
	signer, err := signing.NewLocalSigner(cfg.SignerSeed)
	if err != nil {
		return fmt.Errorf("failed to load signer: %w", err)
	}
	r.signer = signer

	client, err := horizon.NewClient(cfg.HorizonURL, r.logger.Logger)
	if err != nil {
		return err
	}
	r.horizon = client

	quoter, err := quote.NewQuoter(client, r.logger.Logger)
	if err != nil {
		return err
	}
	builder, err := txbuild.NewBuilder(cfg.NetworkPassphrase, r.logger.Logger)
	if err != nil {
		return err
	}
	submitter, err := submit.NewSubmitter(client, r.logger.Logger)
	if err != nil {
		return err
	}
	ensurer, err := trust.NewEnsurer(client, builder, submitter, cfg.SwapTimeout(), r.logger.Logger)
	if err != nil {
		return err
	}

	r.service, err = remit.NewService(client, quoter, ensurer, builder, submitter, remit.Policies{
		Send:            remit.Policy{Slippage: percentToFraction(cfg.Send.SlippagePercent), Timeout: cfg.SendTimeout()},
		Swap:            remit.Policy{Slippage: percentToFraction(cfg.Swap.SlippagePercent), Timeout: cfg.SwapTimeout()},
		Deposit:         remit.Policy{Slippage: percentToFraction(cfg.Deposit.SlippagePercent), Timeout: cfg.DepositTimeout()},
		PlatformFeeRate: percentToFraction(cfg.PlatformFeePct),
		FiatPerToken:    decimal.NewFromFloat(cfg.FiatPerToken),
		TokenPerXLM:     decimal.NewFromFloat(cfg.TokenPerXLM),
	}, r.logger.Logger)
	if err != nil {
		return err
	}

	r.history, err = history.NewFetcher(client, cfg.HistoryPageSize, r.logger.Logger)
	if err != nil {
		return err
	}

	r.metrics = metrics.NewCollector()

	if cfg.PostgresURL != "" {
		transferStore, err := postgres.NewStore(cfg.PostgresURL, r.logger.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect transfer store: %w", err)
		}
		if err := transferStore.RunMigrations(); err != nil {
			return fmt.Errorf("failed to migrate transfer store: %w", err)
		}
		r.store = transferStore
	}

	r.logger.WithAccount(signer.Address()).Info("Connected",
		zap.String("horizon", cfg.HorizonURL))
	return nil
}

// Run dispatches the command named by args.
func (r *Runner) Run(ctx context.Context, args []string) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("Signal received: " + sig.String())
		cancel()
	}()

	if len(args) == 0 {
		return fmt.Errorf("usage: remit <balance|quote|send|swap|deposit|history|transfers|watch> [args]")
	}

	sess := remit.Session{Account: r.signer.Address(), Signer: r.signer}

	switch args[0] {
	case "balance":
		return r.runBalance(runCtx)
	case "watch":
		return r.runWatch(runCtx)
	case "quote":
		return r.runQuote(runCtx, args[1:])
	case "send":
		return r.runSend(runCtx, sess, args[1:])
	case "swap":
		return r.runSwap(runCtx, sess, args[1:])
	case "deposit":
		return r.runDeposit(runCtx, sess, args[1:])
	case "history":
		return r.runHistory(runCtx, args[1:])
	case "transfers":
		return r.runTransfers(runCtx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (r *Runner) Shutdown() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("Failed to close transfer store", zap.Error(err))
		}
	}
	if err := r.logger.Sync(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
	}
}

// runWatch keeps refreshing balances until interrupted.
func (r *Runner) runWatch(ctx context.Context) error {
	poller, err := balance.NewPoller(r.horizon, r.signer.Address(), r.config.BalancePollInterval(), r.logger.Logger, func(s *balance.Snapshot) {
		for a, amount := range s.Holdings {
			fmt.Printf("%-14s %s\n", a.Code, amount.StringFixed(txbuild.Decimals))
		}
		fmt.Println()
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		poller.Stop()
	}()
	poller.Start()
	return nil
}

func percentToFraction(pct float64) decimal.Decimal {
	return decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100))
}
