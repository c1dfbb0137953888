// ==================================
// File: internal/txbuild/envelope.go
// ==================================
package txbuild

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go/xdr"
)

// Envelope wraps a transaction envelope together with the network
// passphrase it is bound to. The passphrase is part of the signature
// payload, so an envelope signed for one network is invalid on another.
type Envelope struct {
	XDR               *xdr.TransactionEnvelope
	NetworkPassphrase string
}

// ParseBase64 decodes a base64 envelope, typically one returned by the
// external signing capability.
func ParseBase64(encoded, networkPassphrase string) (*Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope base64: %w", err)
	}

	var envelope xdr.TransactionEnvelope
	if err := envelope.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope XDR: %w", err)
	}

	return &Envelope{
		XDR:               &envelope,
		NetworkPassphrase: networkPassphrase,
	}, nil
}

// Base64 serializes the envelope into the network's standard encoding. This
// is the form handed to the signing capability and to submission.
func (e *Envelope) Base64() (string, error) {
	if e.XDR == nil {
		return "", errors.New("transaction envelope is missing")
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, e.XDR); err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Hash computes the signature payload hash binding this envelope to its
// network.
func (e *Envelope) Hash() ([]byte, error) {
	if e.XDR == nil {
		return nil, errors.New("transaction envelope is missing")
	}
	if strings.TrimSpace(e.NetworkPassphrase) == "" {
		return nil, errors.New("empty network passphrase")
	}

	switch e.XDR.Type {
	case xdr.EnvelopeTypeEnvelopeTypeTx:
		// fall through below
	case xdr.EnvelopeTypeEnvelopeTypeTxV0:
		return nil, errors.New("v0 transaction envelopes are unsupported")
	case xdr.EnvelopeTypeEnvelopeTypeTxFeeBump:
		return nil, errors.New("fee bump transaction envelopes are unsupported")
	default:
		return nil, errors.New("invalid transaction envelope type")
	}

	payload := xdr.TransactionSignaturePayload{
		NetworkId: sha256.Sum256([]byte(e.NetworkPassphrase)),
		TaggedTransaction: xdr.TransactionSignaturePayloadTaggedTransaction{
			Type: xdr.EnvelopeTypeEnvelopeTypeTx,
			Tx:   &e.XDR.V1.Tx,
		},
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, payload); err != nil {
		return nil, fmt.Errorf("failed to marshal signature payload: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hash[:], nil
}

// HashHex returns the transaction identifier as it appears on the network.
func (e *Envelope) HashHex() (string, error) {
	hash, err := e.Hash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hash), nil
}

// AttachSignature appends a decorated signature to the envelope.
func (e *Envelope) AttachSignature(sig xdr.DecoratedSignature) error {
	if e.XDR == nil || e.XDR.V1 == nil {
		return errors.New("transaction envelope is missing")
	}
	e.XDR.V1.Signatures = append(e.XDR.V1.Signatures, sig)
	return nil
}

// Operations exposes the envelope's operations for inspection in tests and
// history rendering.
func (e *Envelope) Operations() []xdr.Operation {
	if e.XDR == nil {
		return nil
	}
	return e.XDR.Operations()
}
