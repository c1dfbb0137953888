// ===============================
// File: internal/trust/ensurer.go
// ===============================
package trust

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/horizon"
	"github.com/vatanpay/remit/internal/signing"
	"github.com/vatanpay/remit/internal/submit"
	"github.com/vatanpay/remit/internal/txbuild"
)

// DefaultSettleDelay bounds the race between the trustline commit and the
// subsequent transfer's account-state read.
const DefaultSettleDelay = time.Second

// AuthorizationError reports a failed trust authorization. The overall flow
// must abort: the transfer step cannot succeed without the trustline.
type AuthorizationError struct {
	Asset asset.Asset
	Err   error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("trust authorization for %s failed: %v", e.Asset.String(), e.Err)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// Ensurer makes sure an account can hold an asset before a transfer is
// attempted. The check is re-run on every attempt; trust state is
// externally verifiable and cheap to read, so nothing is cached.
type Ensurer struct {
	horizon     *horizon.Client
	builder     *txbuild.Builder
	submitter   *submit.Submitter
	settleDelay time.Duration
	txTimeout   time.Duration
	logger      *zap.Logger
}

func NewEnsurer(client *horizon.Client, builder *txbuild.Builder, submitter *submit.Submitter, txTimeout time.Duration, logger *zap.Logger) (*Ensurer, error) {
	if client == nil {
		return nil, fmt.Errorf("horizon client cannot be nil")
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
	if txTimeout <= 0 {
		txTimeout = 300 * time.Second
	}

	return &Ensurer{
		horizon:     client,
		builder:     builder,
		submitter:   submitter,
		settleDelay: DefaultSettleDelay,
		txTimeout:   txTimeout,
		logger:      logger.Named("trust"),
	}, nil
}

// EnsureTrust verifies that account holds a trustline for a, creating one
// through the signer when absent. It is idempotent: when trust already
// exists nothing is submitted. After a successful authorization it waits a
// settle delay so that the caller's next account-state read observes the
// advanced sequence number.
func (e *Ensurer) EnsureTrust(ctx context.Context, account string, signer signing.Signer, a asset.Asset) error {
	if a.IsNative() {
		return nil
	}

	state, err := e.horizon.Account(ctx, account)
	if err != nil {
		return &AuthorizationError{Asset: a, Err: err}
	}
	if state.HasTrustline(a.Code, a.Issuer) {
		e.logger.Debug("Trustline already present",
			zap.String("account", account),
			zap.String("asset", a.String()))
		return nil
	}

	e.logger.Info("Creating trustline",
		zap.String("account", account),
		zap.String("asset", a.String()))

	sequence, err := strconv.ParseInt(state.Sequence, 10, 64)
	if err != nil {
		return &AuthorizationError{Asset: a, Err: fmt.Errorf("failed to parse sequence number: %w", err)}
	}

	envelope, err := e.builder.ChangeTrust(txbuild.ChangeTrustParams{
		Account:  account,
		Asset:    a,
		Sequence: sequence + 1,
		Timeout:  e.txTimeout,
	})
	if err != nil {
		return &AuthorizationError{Asset: a, Err: err}
	}

	unsigned, err := envelope.Base64()
	if err != nil {
		return &AuthorizationError{Asset: a, Err: err}
	}

	signed, err := signer.SignTransaction(ctx, unsigned, envelope.NetworkPassphrase)
	if err != nil {
		// A declined signature is a cancellation, not an authorization
		// failure; keep it distinguishable for the caller.
		if errors.Is(err, signing.ErrSigningRejected) {
			return err
		}
		return &AuthorizationError{Asset: a, Err: err}
	}

	outcome, err := e.submitter.Submit(ctx, signed)
	if err != nil {
		return &AuthorizationError{Asset: a, Err: err}
	}
	if !outcome.Succeeded() {
		classified := submit.Classify(outcome.Codes, a.Code, a.Code)
		return &AuthorizationError{Asset: a, Err: classified}
	}

	e.logger.Info("Trustline created",
		zap.String("account", account),
		zap.String("asset", a.String()),
		zap.String("hash", outcome.Hash))

	// Let the authorization commit before the caller re-reads account state.
	select {
	case <-time.After(e.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// SetSettleDelay overrides the post-authorization settle delay, mainly for
// tests.
func (e *Ensurer) SetSettleDelay(d time.Duration) {
	e.settleDelay = d
}
