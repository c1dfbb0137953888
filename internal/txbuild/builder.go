// =================================
// File: internal/txbuild/builder.go
// =================================
package txbuild

import (
	"fmt"
	"math"
	"time"

	"github.com/stellar/go/xdr"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
)

// BaseFee is the per-operation fee bid in stroops.
const BaseFee = 100

// maxRouteHops is the ledger's limit on intermediate path assets.
const maxRouteHops = 5

// Builder assembles unsigned transaction envelopes. Building is
// deterministic given its inputs plus the caller-supplied fresh sequence
// number; the builder itself performs no network calls and no retries.
type Builder struct {
	passphrase string
	baseFee    uint32
	logger     *zap.Logger
}

func NewBuilder(networkPassphrase string, logger *zap.Logger) (*Builder, error) {
	if networkPassphrase == "" {
		return nil, fmt.Errorf("network passphrase cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Builder{
		passphrase: networkPassphrase,
		baseFee:    BaseFee,
		logger:     logger.Named("txbuild"),
	}, nil
}

// PathPaymentParams describes one path-constrained transfer: send exactly
// SendAmount of SendAsset, deliver at least DestMin of DestAsset to
// Destination, traversing Route. Sequence must be freshly loaded by the
// caller, since a prior trustline submission may have advanced it.
type PathPaymentParams struct {
	SourceAccount string
	Destination   string
	SendAsset     asset.Asset
	// SendAmount and DestMin are decimal amount strings.
	SendAmount string
	DestAsset  asset.Asset
	DestMin    string
	Route      []asset.Asset
	Sequence   int64
	Timeout    time.Duration
}

// PathPayment builds an envelope containing exactly one path-payment
// strict-send operation, bounded by the flow's validity window.
func (b *Builder) PathPayment(p PathPaymentParams) (*Envelope, error) {
	var source xdr.MuxedAccount
	if err := source.SetAddress(p.SourceAccount); err != nil {
		return nil, fmt.Errorf("invalid source account: %w", err)
	}
	var destination xdr.MuxedAccount
	if err := destination.SetAddress(p.Destination); err != nil {
		return nil, fmt.Errorf("invalid destination account: %w", err)
	}
	if len(p.Route) > maxRouteHops {
		return nil, fmt.Errorf("route has %d hops, maximum is %d", len(p.Route), maxRouteHops)
	}

	sendAmount, err := ParseStroops(p.SendAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid send amount: %w", err)
	}
	destMin, err := ParseStroops(p.DestMin)
	if err != nil {
		return nil, fmt.Errorf("invalid destination minimum: %w", err)
	}

	sendAsset, err := p.SendAsset.XDR()
	if err != nil {
		return nil, err
	}
	destAsset, err := p.DestAsset.XDR()
	if err != nil {
		return nil, err
	}

	route := make([]xdr.Asset, 0, len(p.Route))
	for _, hop := range p.Route {
		hopAsset, err := hop.XDR()
		if err != nil {
			return nil, fmt.Errorf("invalid route asset %s: %w", hop.String(), err)
		}
		route = append(route, hopAsset)
	}

	op := xdr.PathPaymentStrictSendOp{
		SendAsset:   sendAsset,
		SendAmount:  sendAmount,
		Destination: destination,
		DestAsset:   destAsset,
		DestMin:     destMin,
		Path:        route,
	}
	body, err := xdr.NewOperationBody(xdr.OperationTypePathPaymentStrictSend, op)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation body: %w", err)
	}

	b.logger.Debug("Built path payment",
		zap.String("source", p.SourceAccount),
		zap.String("destination", p.Destination),
		zap.String("send", p.SendAsset.String()),
		zap.String("send_amount", p.SendAmount),
		zap.String("dest", p.DestAsset.String()),
		zap.String("dest_min", p.DestMin),
		zap.Int("hops", len(p.Route)))

	return b.assemble(source, body, p.Sequence, p.Timeout)
}

// ChangeTrustParams describes a one-shot trustline authorization for Asset
// on Account.
type ChangeTrustParams struct {
	Account  string
	Asset    asset.Asset
	Sequence int64
	Timeout  time.Duration
}

// ChangeTrust builds an envelope containing exactly one change-trust
// operation with the maximum limit.
func (b *Builder) ChangeTrust(p ChangeTrustParams) (*Envelope, error) {
	var source xdr.MuxedAccount
	if err := source.SetAddress(p.Account); err != nil {
		return nil, fmt.Errorf("invalid account: %w", err)
	}
	if p.Asset.IsNative() {
		return nil, fmt.Errorf("native asset needs no trustline")
	}

	line, err := p.Asset.XDR()
	if err != nil {
		return nil, err
	}
	op := xdr.ChangeTrustOp{
		Line: xdr.ChangeTrustAsset{
			Type:       line.Type,
			AlphaNum4:  line.AlphaNum4,
			AlphaNum12: line.AlphaNum12,
		},
		Limit: xdr.Int64(math.MaxInt64),
	}
	body, err := xdr.NewOperationBody(xdr.OperationTypeChangeTrust, op)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation body: %w", err)
	}

	b.logger.Debug("Built change trust",
		zap.String("account", p.Account),
		zap.String("asset", p.Asset.String()))

	return b.assemble(source, body, p.Sequence, p.Timeout)
}

func (b *Builder) assemble(source xdr.MuxedAccount, body xdr.OperationBody, sequence int64, timeout time.Duration) (*Envelope, error) {
	if sequence <= 0 {
		return nil, fmt.Errorf("invalid sequence number: %d", sequence)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout: %s", timeout)
	}

	txe := xdr.TransactionV1Envelope{
		Tx: xdr.Transaction{
			SourceAccount: source,
			// Single operation per envelope, so no fee multiplication.
			Fee:        xdr.Uint32(b.baseFee),
			SeqNum:     xdr.SequenceNumber(sequence),
			Cond:       NewTimeout(timeout).BuildXDR(),
			Operations: []xdr.Operation{{Body: body}},
		},
	}

	envelope, err := xdr.NewTransactionEnvelope(xdr.EnvelopeTypeEnvelopeTypeTx, txe)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction envelope: %w", err)
	}

	return &Envelope{
		XDR:               &envelope,
		NetworkPassphrase: b.passphrase,
	}, nil
}

// Preconditions bounds an envelope's validity.
type Preconditions struct {
	TimeBounds xdr.TimeBounds
}

// NewTimeout returns preconditions valid from now until now+timeout. The
// window is the replay guard for stale signed envelopes: after it closes the
// network rejects the envelope regardless of who holds it.
func NewTimeout(timeout time.Duration) Preconditions {
	return Preconditions{
		TimeBounds: xdr.TimeBounds{
			MinTime: 0,
			MaxTime: xdr.TimePoint(time.Now().Add(timeout).Unix()),
		},
	}
}

func (p Preconditions) BuildXDR() xdr.Preconditions {
	return xdr.Preconditions{
		Type:       xdr.PreconditionTypePrecondTime,
		TimeBounds: &p.TimeBounds,
	}
}
