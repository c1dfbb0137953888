// ====================================
// File: internal/remit/service_test.go
// ====================================
package remit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/horizon"
	"github.com/vatanpay/remit/internal/quote"
	"github.com/vatanpay/remit/internal/signing"
	"github.com/vatanpay/remit/internal/submit"
	"github.com/vatanpay/remit/internal/trust"
	"github.com/vatanpay/remit/internal/txbuild"
)

const testPassphrase = "Test SDF Network ; September 2015"

var (
	testIssuer = "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"
	usdcAsset  = asset.MustNew("USDC", "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5")
	tryAsset   = asset.MustNew("TRY", "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5")
)

// remitHarness is a fake network endpoint plus a fully wired Service.
type remitHarness struct {
	server      *httptest.Server
	service     *Service
	submissions atomic.Int64
	rejectCodes []string

	// trustlines maps account address to held credit asset codes.
	trustlines map[string][]string
	destAmount string
}

func newRemitHarness(t *testing.T) *remitHarness {
	t.Helper()

	h := &remitHarness{
		trustlines: map[string][]string{},
		destAmount: "7500.0000000",
	}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/accounts/"):
			id := strings.TrimPrefix(r.URL.Path, "/accounts/")
			balances := []map[string]string{
				{"asset_type": "native", "balance": "10000.0000000"},
			}
			for _, code := range h.trustlines[id] {
				balances = append(balances, map[string]string{
					"asset_type":   "credit_alphanum4",
					"asset_code":   code,
					"asset_issuer": testIssuer,
					"balance":      "0.0000000",
				})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":       id,
				"sequence": "4294967296",
				"balances": balances,
			})

		case r.Method == http.MethodGet && r.URL.Path == "/paths/strict-send":
			fmt.Fprintf(w, `{"_embedded":{"records":[{
				"source_asset_type":"credit_alphanum4","source_asset_code":"USDC","source_asset_issuer":%q,
				"source_amount":%q,
				"destination_asset_type":"credit_alphanum4","destination_asset_code":"TRY","destination_asset_issuer":%q,
				"destination_amount":%q,
				"path":[{"asset_type":"native"}]
			}]}}`, testIssuer, r.URL.Query().Get("source_amount"), testIssuer, h.destAmount)

		case r.Method == http.MethodPost && r.URL.Path == "/transactions":
			n := h.submissions.Add(1)
			if len(h.rejectCodes) > 0 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"type":   "https://stellar.org/horizon-errors/transaction_failed",
					"title":  "Transaction Failed",
					"status": 400,
					"extras": map[string]interface{}{
						"result_codes": map[string]interface{}{
							"transaction": "tx_failed",
							"operations":  h.rejectCodes,
						},
					},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"hash":   fmt.Sprintf("deadbeef%02d", n),
				"ledger": 123456,
			})

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(h.server.Close)

	logger := zap.NewNop()
	client, err := horizon.NewClient(h.server.URL, logger)
	require.NoError(t, err)
	quoter, err := quote.NewQuoter(client, logger)
	require.NoError(t, err)
	builder, err := txbuild.NewBuilder(testPassphrase, logger)
	require.NoError(t, err)
	submitter, err := submit.NewSubmitter(client, logger)
	require.NoError(t, err)
	ensurer, err := trust.NewEnsurer(client, builder, submitter, 5*time.Minute, logger)
	require.NoError(t, err)
	ensurer.SetSettleDelay(0)

	h.service, err = NewService(client, quoter, ensurer, builder, submitter, Policies{
		Send:            Policy{Slippage: decimal.RequireFromString("0.02"), Timeout: 3 * time.Minute},
		Swap:            Policy{Slippage: decimal.RequireFromString("0.1"), Timeout: 5 * time.Minute},
		Deposit:         Policy{Slippage: decimal.RequireFromString("0.1"), Timeout: 5 * time.Minute},
		PlatformFeeRate: decimal.RequireFromString("0.005"),
		FiatPerToken:    decimal.RequireFromString("3.67"),
		TokenPerXLM:     decimal.RequireFromString("0.1"),
	}, logger)
	require.NoError(t, err)

	return h
}

func testSession(t *testing.T) (Session, *keypair.Full) {
	t.Helper()
	kp := keypair.MustRandom()
	return Session{Account: kp.Address(), Signer: signing.NewLocalSignerFromKeypair(kp)}, kp
}

func TestSendDeliversThroughQuotedPath(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)
	recipient := keypair.MustRandom().Address()

	receipt, err := h.service.Send(context.Background(), sess, recipient, usdcAsset, tryAsset, "100")
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, "deadbeef01", receipt.Hash)
	assert.Equal(t, "100", receipt.SourceAmount.String())
	// 2% tolerance on a 7500 quote.
	assert.Equal(t, "7350.0000000", receipt.MinDelivered.StringFixed(7))
	assert.Equal(t, int64(1), h.submissions.Load())
}

func TestSendRejectsNonPositiveAmount(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)
	recipient := keypair.MustRandom().Address()

	for _, amount := range []string{"", "0", "-3", "abc"} {
		_, err := h.service.Send(context.Background(), sess, recipient, usdcAsset, tryAsset, amount)
		assert.Error(t, err, "amount %q", amount)
	}
	assert.Equal(t, int64(0), h.submissions.Load())
}

func TestSendClassifiesRejection(t *testing.T) {
	h := newRemitHarness(t)
	h.rejectCodes = []string{"op_under_dest_min"}
	sess, _ := testSession(t)
	recipient := keypair.MustRandom().Address()

	_, err := h.service.Send(context.Background(), sess, recipient, usdcAsset, tryAsset, "100")
	require.Error(t, err)

	var classified *submit.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, submit.RateMoved, classified.Category)
}

func TestSwapEnsuresTrustlineFirst(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)
	h.trustlines[sess.Account] = []string{"USDC"}

	receipt, err := h.service.Swap(context.Background(), sess, usdcAsset, tryAsset, "100")
	require.NoError(t, err)
	require.NotNil(t, receipt)

	// Trustline authorization plus the conversion itself.
	assert.Equal(t, int64(2), h.submissions.Load())
}

func TestSwapSkipsExistingTrustline(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)
	h.trustlines[sess.Account] = []string{"USDC", "TRY"}

	_, err := h.service.Swap(context.Background(), sess, usdcAsset, tryAsset, "100")
	require.NoError(t, err)

	assert.Equal(t, int64(1), h.submissions.Load())
}

func TestSwapRejectsIdenticalAssets(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)

	_, err := h.service.Swap(context.Background(), sess, usdcAsset, usdcAsset, "100")
	assert.Error(t, err)
	assert.Equal(t, int64(0), h.submissions.Load())
}

func TestPlanDeposit(t *testing.T) {
	h := newRemitHarness(t)

	plan, err := h.service.PlanDeposit("367")
	require.NoError(t, err)
	assert.Equal(t, "100", plan.TokenAmount.String())
	assert.Equal(t, "1000", plan.XLMRequired.String())

	// Fractional token counts round down; native funding rounds up.
	plan, err = h.service.PlanDeposit("100")
	require.NoError(t, err)
	assert.Equal(t, "27", plan.TokenAmount.String())
	assert.Equal(t, "270", plan.XLMRequired.String())

	_, err = h.service.PlanDeposit("1")
	assert.Error(t, err, "amounts below one token are unusable")

	_, err = h.service.PlanDeposit("-5")
	assert.Error(t, err)
}

func TestDepositEnsuresTrustAndConverts(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)

	receipt, err := h.service.Deposit(context.Background(), sess, usdcAsset, "367")
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, int64(2), h.submissions.Load())
}

func TestQuoteSendReportsFeeAndRecipientTrust(t *testing.T) {
	h := newRemitHarness(t)
	recipient := keypair.MustRandom().Address()
	h.trustlines[recipient] = []string{"TRY"}

	sq, err := h.service.QuoteSend(context.Background(), recipient, usdcAsset, tryAsset, "100")
	require.NoError(t, err)
	require.NotNil(t, sq)

	assert.Equal(t, "0.5", sq.Fee.String())
	assert.True(t, sq.RecipientTrusts)
	assert.Equal(t, "7500", sq.Quote.DestinationAmount.String())
}

func TestQuoteSendFlagsMissingRecipientTrust(t *testing.T) {
	h := newRemitHarness(t)
	recipient := keypair.MustRandom().Address()

	sq, err := h.service.QuoteSend(context.Background(), recipient, usdcAsset, tryAsset, "100")
	require.NoError(t, err)
	require.NotNil(t, sq)

	assert.False(t, sq.RecipientTrusts)
}

func TestQuoteSendEmptyAmountIsSteadyState(t *testing.T) {
	h := newRemitHarness(t)
	recipient := keypair.MustRandom().Address()

	sq, err := h.service.QuoteSend(context.Background(), recipient, usdcAsset, tryAsset, "")
	require.NoError(t, err)
	assert.Nil(t, sq)
}

func TestSendSigningRejectionPassesThrough(t *testing.T) {
	h := newRemitHarness(t)
	sess, _ := testSession(t)
	sess.Signer = signing.Func(func(ctx context.Context, envelopeXDR, passphrase string) (string, error) {
		return "", signing.ErrSigningRejected
	})
	recipient := keypair.MustRandom().Address()

	_, err := h.service.Send(context.Background(), sess, recipient, usdcAsset, tryAsset, "100")
	require.ErrorIs(t, err, signing.ErrSigningRejected)

	var classified *submit.ClassifiedError
	assert.False(t, errors.As(err, &classified))
	assert.Equal(t, int64(0), h.submissions.Load())
}

func TestMinDestinationTruncates(t *testing.T) {
	got := MinDestination(decimal.RequireFromString("100.0000001"), decimal.RequireFromString("0.02"))
	assert.Equal(t, "98.0000000", got.StringFixed(7))
}
