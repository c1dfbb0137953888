package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/horizon"
)

// Direction of a payment relative to the viewed account.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// DefaultPageSize bounds one history fetch.
const DefaultPageSize = 20

// Record is one payment as shown to the user: direction relative to the
// account, the counterparty and the amount in the asset that reached it.
type Record struct {
	ID           string
	Hash         string
	Direction    Direction
	Counterparty string
	Asset        asset.Asset
	Amount       decimal.Decimal
	// SourceAmount is set for cross-asset payments: what the sender spent.
	SourceAmount decimal.Decimal
	SourceAsset  asset.Asset
	CreatedAt    time.Time
	PagingToken  string
}

// Fetcher reads an account's recent payment activity. Fetches are read-only
// and idempotent, so transient network faults are retried with backoff;
// client errors are not.
type Fetcher struct {
	horizon  *horizon.Client
	pageSize int
	logger   *zap.Logger
}

func NewFetcher(client *horizon.Client, pageSize int, logger *zap.Logger) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("horizon client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		horizon:  client,
		pageSize: pageSize,
		logger:   logger.Named("history"),
	}, nil
}

// Recent returns the account's latest payments, newest first. cursor is the
// paging token to continue from, empty for the first page.
func (f *Fetcher) Recent(ctx context.Context, account, cursor string) ([]Record, error) {
	var raw []horizon.PaymentRecord

	operation := func() error {
		var err error
		raw, err = f.horizon.Payments(ctx, account, cursor, f.pageSize)
		if err != nil {
			var problem *horizon.Problem
			if errors.As(err, &problem) && problem.Status >= 400 && problem.Status < 500 {
				return backoff.Permanent(err)
			}
			f.logger.Warn("History fetch failed, retrying", zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch payment history: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, p := range raw {
		record, err := f.toRecord(account, p)
		if err != nil {
			f.logger.Warn("Skipping unparseable payment record",
				zap.String("id", p.ID), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (f *Fetcher) toRecord(account string, p horizon.PaymentRecord) (Record, error) {
	a, err := asset.FromHorizon(p.AssetType, p.AssetCode, p.AssetIssuer)
	if err != nil {
		return Record{}, fmt.Errorf("asset: %w", err)
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return Record{}, fmt.Errorf("amount %q: %w", p.Amount, err)
	}
	createdAt, err := time.Parse(time.RFC3339, p.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("created_at %q: %w", p.CreatedAt, err)
	}

	record := Record{
		ID:          p.ID,
		Hash:        p.TransactionHash,
		Asset:       a,
		Amount:      amount,
		CreatedAt:   createdAt,
		PagingToken: p.PagingToken,
	}

	if p.From == account {
		record.Direction = DirectionSent
		record.Counterparty = p.To
	} else {
		record.Direction = DirectionReceived
		record.Counterparty = p.From
	}

	if p.SourceAmount != "" {
		sourceAsset, err := asset.FromHorizon(p.SourceAssetType, p.SourceAssetCode, p.SourceAssetIssuer)
		if err != nil {
			return Record{}, fmt.Errorf("source asset: %w", err)
		}
		sourceAmount, err := decimal.NewFromString(p.SourceAmount)
		if err != nil {
			return Record{}, fmt.Errorf("source amount %q: %w", p.SourceAmount, err)
		}
		record.SourceAsset = sourceAsset
		record.SourceAmount = sourceAmount
	}

	return record, nil
}
