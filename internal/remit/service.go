// ===============================
// File: internal/remit/service.go
// ===============================
package remit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/horizon"
	"github.com/vatanpay/remit/internal/quote"
	"github.com/vatanpay/remit/internal/signing"
	"github.com/vatanpay/remit/internal/submit"
	"github.com/vatanpay/remit/internal/trust"
	"github.com/vatanpay/remit/internal/txbuild"
)

// Session is the connected account context. It is created on wallet connect
// and passed explicitly to every operation; there is no ambient global
// account state and no implicit reconnection.
type Session struct {
	Account string
	Signer  signing.Signer
}

// Policy is the per-flow protection configuration. Tolerances are fixed per
// flow, not user-adjustable.
type Policy struct {
	// Slippage is the tolerated fraction between quoted and delivered
	// output, e.g. 0.02 for cross-border sends.
	Slippage decimal.Decimal
	// Timeout bounds the built envelope's validity window.
	Timeout time.Duration
}

// Policies bundles the flow policies plus the deposit peg constants.
type Policies struct {
	Send    Policy
	Swap    Policy
	Deposit Policy
	// PlatformFeeRate is display-only: settlement happens off-repo.
	PlatformFeeRate decimal.Decimal
	// FiatPerToken is the deposit peg (e.g. 3.67 AED per USDC).
	FiatPerToken decimal.Decimal
	// TokenPerXLM is the deposit market rate (e.g. 0.1 USDC per XLM).
	TokenPerXLM decimal.Decimal
}

// Receipt reports a confirmed transfer.
type Receipt struct {
	Hash string
	// SourceAmount spent and the minimum output that was guaranteed.
	SourceAmount decimal.Decimal
	MinDelivered decimal.Decimal
	Quote        *quote.Quote
}

// SendQuote is the display payload for a pending cross-border send.
type SendQuote struct {
	Quote *quote.Quote
	// Fee is the platform fee in the source asset, display-only.
	Fee decimal.Decimal
	// RecipientTrusts reports whether the recipient can hold the
	// destination asset right now.
	RecipientTrusts bool
}

// Service orchestrates the remittance flows: quote, trust, build, sign,
// submit, classify. One logical flow per user action; nothing is retried
// automatically, the user re-triggers after a failure so that a fresh quote
// is always in play.
type Service struct {
	horizon   *horizon.Client
	quoter    *quote.Quoter
	trust     *trust.Ensurer
	builder   *txbuild.Builder
	submitter *submit.Submitter
	policies  Policies
	guard     quote.Guard
	logger    *zap.Logger
}

func NewService(
	client *horizon.Client,
	quoter *quote.Quoter,
	ensurer *trust.Ensurer,
	builder *txbuild.Builder,
	submitter *submit.Submitter,
	policies Policies,
	logger *zap.Logger,
) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("horizon client cannot be nil")
	}
	if quoter == nil {
		return nil, fmt.Errorf("quoter cannot be nil")
	}
	if ensurer == nil {
		return nil, fmt.Errorf("trust ensurer cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Service{
		horizon:   client,
		quoter:    quoter,
		trust:     ensurer,
		builder:   builder,
		submitter: submitter,
		policies:  policies,
		logger:    logger.Named("remit"),
	}, nil
}

// QuoteSend looks up the current conversion for a send and preflights the
// recipient's ability to hold the destination asset. Latest request wins:
// when a newer QuoteSend began while this one was in flight, the superseded
// result is discarded and (nil, nil) is returned. An unparseable or
// non-positive amount is the empty-input steady state, also (nil, nil).
func (s *Service) QuoteSend(ctx context.Context, recipient string, source, dest asset.Asset, amount string) (*SendQuote, error) {
	token := s.guard.Begin()

	var (
		q      *quote.Quote
		trusts bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		q, err = s.quoter.Quote(gctx, source, dest, amount)
		return err
	})
	g.Go(func() error {
		account, err := s.horizon.Account(gctx, recipient)
		if err != nil {
			// An unfunded recipient shows as not trusting; quoting still
			// proceeds so the user sees the rate.
			return nil
		}
		trusts = dest.IsNative() || account.HasTrustline(dest.Code, dest.Issuer)
		return nil
	})
	if err := g.Wait(); err != nil {
		if !s.guard.Latest(token) {
			return nil, nil
		}
		return nil, err
	}

	if !s.guard.Latest(token) || q == nil {
		return nil, nil
	}

	fee := q.SourceAmount.Mul(s.policies.PlatformFeeRate).Round(2)
	return &SendQuote{Quote: q, Fee: fee, RecipientTrusts: trusts}, nil
}

// Send executes a cross-border payment: re-quote, bound the output by the
// send flow's slippage tolerance and deliver through the quoted route.
func (s *Service) Send(ctx context.Context, sess Session, recipient string, source, dest asset.Asset, amount string) (*Receipt, error) {
	q, err := s.quoter.Quote(ctx, source, dest, amount)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("send amount must be a positive decimal, got %q", amount)
	}

	return s.transfer(ctx, sess, recipient, q, s.policies.Send)
}

// Swap converts between two of the user's own assets: ensure the
// destination trustline, then a self-payment through the exchange at the
// swap flow's tolerance.
func (s *Service) Swap(ctx context.Context, sess Session, from, to asset.Asset, amount string) (*Receipt, error) {
	if from == to {
		return nil, fmt.Errorf("cannot swap %s for itself", from.String())
	}

	if err := s.trust.EnsureTrust(ctx, sess.Account, sess.Signer, to); err != nil {
		return nil, err
	}

	q, err := s.quoter.Quote(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("swap amount must be a positive decimal, got %q", amount)
	}

	return s.transfer(ctx, sess, sess.Account, q, s.policies.Swap)
}

// DepositPlan is the fixed-peg arithmetic behind a test-currency deposit:
// the fiat amount the user "pays in", the tokens they receive and the
// native balance consumed to fund the conversion.
type DepositPlan struct {
	FiatAmount  decimal.Decimal
	TokenAmount decimal.Decimal
	XLMRequired decimal.Decimal
}

// PlanDeposit computes the deposit conversion for a fiat amount.
func (s *Service) PlanDeposit(fiatAmount string) (*DepositPlan, error) {
	fiat, err := decimal.NewFromString(fiatAmount)
	if err != nil || !fiat.IsPositive() {
		return nil, fmt.Errorf("deposit amount must be a positive decimal, got %q", fiatAmount)
	}

	tokens := fiat.Div(s.policies.FiatPerToken).Floor()
	if !tokens.IsPositive() {
		return nil, fmt.Errorf("deposit of %s converts to zero tokens", fiat.String())
	}
	xlm := tokens.Div(s.policies.TokenPerXLM).Ceil()

	return &DepositPlan{FiatAmount: fiat, TokenAmount: tokens, XLMRequired: xlm}, nil
}

// Deposit simulates a bank deposit on the test network: ensure the token
// trustline, then convert the plan's native amount into the token via the
// exchange at the deposit flow's tolerance.
func (s *Service) Deposit(ctx context.Context, sess Session, token asset.Asset, fiatAmount string) (*Receipt, error) {
	plan, err := s.PlanDeposit(fiatAmount)
	if err != nil {
		return nil, err
	}

	if err := s.trust.EnsureTrust(ctx, sess.Account, sess.Signer, token); err != nil {
		return nil, err
	}

	q, err := s.quoter.Quote(ctx, asset.Native(), token, plan.XLMRequired.String())
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("deposit plan produced no convertible amount")
	}

	return s.transfer(ctx, sess, sess.Account, q, s.policies.Deposit)
}

// transfer is the shared tail of every flow: fresh account state, one
// path-constrained operation bounded by the policy, external signature,
// single submission, classification on rejection.
func (s *Service) transfer(ctx context.Context, sess Session, recipient string, q *quote.Quote, policy Policy) (*Receipt, error) {
	minDest := MinDestination(q.DestinationAmount, policy.Slippage)

	// The account state must be newer than any trustline submission above,
	// which may have advanced the sequence number.
	account, err := s.horizon.Account(ctx, sess.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to load account state: %w", err)
	}
	sequence, err := strconv.ParseInt(account.Sequence, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sequence number: %w", err)
	}

	envelope, err := s.builder.PathPayment(txbuild.PathPaymentParams{
		SourceAccount: sess.Account,
		Destination:   recipient,
		SendAsset:     q.Source,
		SendAmount:    q.SourceAmount.String(),
		DestAsset:     q.Destination,
		DestMin:       minDest.StringFixed(txbuild.Decimals),
		Route:         q.Path,
		Sequence:      sequence + 1,
		Timeout:       policy.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer: %w", err)
	}

	unsigned, err := envelope.Base64()
	if err != nil {
		return nil, err
	}

	signed, err := sess.Signer.SignTransaction(ctx, unsigned, envelope.NetworkPassphrase)
	if err != nil {
		if errors.Is(err, signing.ErrSigningRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	outcome, err := s.submitter.Submit(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", submit.Classify(nil, q.Source.Code, q.Destination.Code), err)
	}
	if !outcome.Succeeded() {
		return nil, submit.Classify(outcome.Codes, q.Source.Code, q.Destination.Code)
	}

	s.logger.Info("Transfer confirmed",
		zap.String("hash", outcome.Hash),
		zap.String("source", q.Source.String()),
		zap.String("destination", q.Destination.String()),
		zap.String("source_amount", q.SourceAmount.String()),
		zap.String("min_delivered", minDest.StringFixed(txbuild.Decimals)))

	return &Receipt{
		Hash:         outcome.Hash,
		SourceAmount: q.SourceAmount,
		MinDelivered: minDest,
		Quote:        q,
	}, nil
}

// MinDestination applies a slippage tolerance to a quoted output, truncated
// to the ledger's precision so the bound never exceeds the quote.
func MinDestination(destAmount, slippage decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(slippage)
	return destAmount.Mul(factor).Truncate(txbuild.Decimals)
}
