// ==============================
// File: internal/quote/quoter.go
// ==============================
package quote

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/horizon"
)

// NoLiquidityPathError reports that the exchange has no conversion route
// between two assets for the requested amount. This is an expected,
// user-visible condition, not a system fault, and must not be retried
// automatically.
type NoLiquidityPathError struct {
	Source      asset.Asset
	Destination asset.Asset
}

func (e *NoLiquidityPathError) Error() string {
	return fmt.Sprintf("no liquidity path found for %s -> %s", e.Source.Code, e.Destination.Code)
}

// Quote is the ephemeral result of a rate lookup. It is superseded by the
// next input change; Path must be handed to the transaction builder
// unmodified or the quoted rate no longer holds.
type Quote struct {
	Source            asset.Asset
	Destination       asset.Asset
	SourceAmount      decimal.Decimal
	DestinationAmount decimal.Decimal
	// Rate is DestinationAmount / SourceAmount at the precision returned by
	// the path finder.
	Rate float64
	Path []asset.Asset
}

// Quoter looks up conversion rates on the exchange's strict-send path
// service. Safe for rapid repeated calls; debouncing and stale-result
// discarding are the caller's concern (see Guard).
type Quoter struct {
	horizon *horizon.Client
	logger  *zap.Logger
}

func NewQuoter(client *horizon.Client, logger *zap.Logger) (*Quoter, error) {
	if client == nil {
		return nil, fmt.Errorf("horizon client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Quoter{
		horizon: client,
		logger:  logger.Named("quoter"),
	}, nil
}

// Quote returns the best available conversion for sending exactly
// sourceAmount of source. A non-positive or unparseable amount is the empty
// input steady state: it returns (nil, nil), not an error. Zero candidate
// paths fail with NoLiquidityPathError.
func (q *Quoter) Quote(ctx context.Context, source, dest asset.Asset, sourceAmount string) (*Quote, error) {
	amount, err := decimal.NewFromString(sourceAmount)
	if err != nil || !amount.IsPositive() {
		return nil, nil
	}

	records, err := q.horizon.StrictSendPaths(ctx, source, amount.String(), dest)
	if err != nil {
		return nil, fmt.Errorf("path search failed: %w", err)
	}

	if len(records) == 0 {
		return nil, &NoLiquidityPathError{Source: source, Destination: dest}
	}

	// The path service already ranks by best output; take the first record.
	best := records[0]
	destAmount, err := decimal.NewFromString(best.DestinationAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination amount %q: %w", best.DestinationAmount, err)
	}

	path := make([]asset.Asset, 0, len(best.Path))
	for _, hop := range best.Path {
		hopAsset, err := asset.FromHorizon(hop.AssetType, hop.AssetCode, hop.AssetIssuer)
		if err != nil {
			return nil, fmt.Errorf("failed to parse path asset: %w", err)
		}
		path = append(path, hopAsset)
	}

	rate, _ := destAmount.Div(amount).Float64()
	q.logger.Debug("Found conversion path",
		zap.String("source", source.String()),
		zap.String("destination", dest.String()),
		zap.String("source_amount", amount.String()),
		zap.String("destination_amount", destAmount.String()),
		zap.Float64("rate", rate),
		zap.Int("hops", len(path)))

	return &Quote{
		Source:            source,
		Destination:       dest,
		SourceAmount:      amount,
		DestinationAmount: destAmount,
		Rate:              rate,
		Path:              path,
	}, nil
}
