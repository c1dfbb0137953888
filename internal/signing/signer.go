// =================================
// File: internal/signing/signer.go
// =================================
package signing

import (
	"context"
	"errors"
)

// ErrSigningRejected reports that the signing capability's owner declined to
// sign. This is a cancellation, not a failure: callers must not surface it
// through the submission failure classifier or suggest a retry.
var ErrSigningRejected = errors.New("signing rejected by wallet")

// Signer is the external signing capability. It receives an unsigned
// transaction envelope in the network's standard base64 encoding and returns
// the signed envelope in the same encoding. Implementations live outside the
// core (browser wallet bridge, hardware signer); LocalSigner covers
// development and tests.
type Signer interface {
	SignTransaction(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error)
}

// Func adapts a plain function to the Signer interface.
type Func func(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error)

func (f Func) SignTransaction(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error) {
	return f(ctx, envelopeXDR, networkPassphrase)
}
