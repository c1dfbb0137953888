// ================================
// File: internal/signing/local.go
// ================================
package signing

import (
	"context"
	"fmt"

	"github.com/stellar/go/keypair"

	"github.com/vatanpay/remit/internal/txbuild"
)

// LocalSigner signs envelopes with an in-process ed25519 keypair. It exists
// for the command-line front-end and tests; production flows inject a bridge
// to the user's wallet instead.
type LocalSigner struct {
	kp *keypair.Full
}

var _ Signer = &LocalSigner{}

// NewLocalSigner builds a signer from a secret seed ("S..." form).
func NewLocalSigner(seed string) (*LocalSigner, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secret seed: %w", err)
	}
	return &LocalSigner{kp: kp}, nil
}

// NewLocalSignerFromKeypair wraps an existing keypair, mainly for tests.
func NewLocalSignerFromKeypair(kp *keypair.Full) *LocalSigner {
	return &LocalSigner{kp: kp}
}

// Address returns the signer's account identity.
func (s *LocalSigner) Address() string {
	return s.kp.Address()
}

func (s *LocalSigner) SignTransaction(ctx context.Context, envelopeXDR, networkPassphrase string) (string, error) {
	envelope, err := txbuild.ParseBase64(envelopeXDR, networkPassphrase)
	if err != nil {
		return "", fmt.Errorf("failed to parse envelope: %w", err)
	}

	hash, err := envelope.Hash()
	if err != nil {
		return "", fmt.Errorf("failed to hash envelope: %w", err)
	}

	sig, err := s.kp.SignDecorated(hash)
	if err != nil {
		return "", fmt.Errorf("failed to sign envelope: %w", err)
	}
	if err := envelope.AttachSignature(sig); err != nil {
		return "", err
	}

	return envelope.Base64()
}
