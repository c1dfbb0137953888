package balance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/horizon"
)

// DefaultInterval is how often balances are refreshed while a poller runs.
const DefaultInterval = 10 * time.Second

// Snapshot is the holdings of one account at one refresh. Assets the
// account holds no trustline for are simply absent.
type Snapshot struct {
	Account   string
	Holdings  map[asset.Asset]decimal.Decimal
	FetchedAt time.Time
}

// Get returns the balance for a, zero when the account does not hold it.
func (s *Snapshot) Get(a asset.Asset) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s.Holdings[a]
}

// UpdateCallback is invoked after every successful refresh.
type UpdateCallback func(snapshot *Snapshot)

// Poller periodically refreshes an account's balances. A failed refresh
// keeps the last known snapshot; it is never cleared mid-run.
type Poller struct {
	horizon  *horizon.Client
	account  string
	interval time.Duration
	logger   *zap.Logger
	callback UpdateCallback

	mu       sync.RWMutex
	snapshot *Snapshot

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPoller creates a poller for account. interval <= 0 uses
// DefaultInterval; callback may be nil.
func NewPoller(client *horizon.Client, account string, interval time.Duration, logger *zap.Logger, callback UpdateCallback) (*Poller, error) {
	if client == nil {
		return nil, fmt.Errorf("horizon client cannot be nil")
	}
	if account == "" {
		return nil, fmt.Errorf("account cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		horizon:  client,
		account:  account,
		interval: interval,
		logger:   logger.Named("balance"),
		callback: callback,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins polling and blocks until Stop is called. The first refresh
// runs immediately.
func (p *Poller) Start() {
	p.logger.Info("Starting balance poller",
		zap.String("account", p.account),
		zap.Duration("interval", p.interval))

	p.refresh()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.refresh()
		case <-p.ctx.Done():
			p.logger.Debug("Balance poller stopped")
			return
		}
	}
}

// Stop stops the poller.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Latest returns the most recent snapshot, nil before the first successful
// refresh.
func (p *Poller) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Refresh fetches the account's balances once, outside the polling loop.
// Useful right after a confirmed transfer.
func (p *Poller) Refresh(ctx context.Context) (*Snapshot, error) {
	account, err := p.horizon.Account(ctx, p.account)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}

	snapshot := &Snapshot{
		Account:   p.account,
		Holdings:  make(map[asset.Asset]decimal.Decimal, len(account.Balances)),
		FetchedAt: time.Now(),
	}
	for _, b := range account.Balances {
		var a asset.Asset
		switch b.AssetType {
		case "native":
			a = asset.Native()
		case "credit_alphanum4", "credit_alphanum12":
			a, err = asset.New(b.AssetCode, b.AssetIssuer)
			if err != nil {
				p.logger.Warn("Skipping unparseable balance line",
					zap.String("asset_code", b.AssetCode), zap.Error(err))
				continue
			}
		default:
			// Liquidity pool shares and future line types are not holdings
			// the flows can spend.
			continue
		}

		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			p.logger.Warn("Skipping unparseable balance amount",
				zap.String("balance", b.Balance), zap.Error(err))
			continue
		}
		snapshot.Holdings[a] = amount
	}

	p.mu.Lock()
	p.snapshot = snapshot
	p.mu.Unlock()

	return snapshot, nil
}

func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(p.ctx, 10*time.Second)
	defer cancel()

	snapshot, err := p.Refresh(ctx)
	if err != nil {
		// Keep showing the last known balances rather than flashing zeros.
		p.logger.Error("Balance refresh failed", zap.Error(err))
		return
	}

	if p.callback != nil {
		p.callback(snapshot)
	}
}
