// internal/app/commands_test.go
package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/logger"
	"github.com/vatanpay/remit/internal/metrics"
	"github.com/vatanpay/remit/internal/signing"
	"github.com/vatanpay/remit/internal/store/models"
	"github.com/vatanpay/remit/internal/submit"
)

const issuerAccount = "GCGH7MHBMNIRWEU6XKZ4CUGESGWZHQJL36ZI2ZOSZAQV6PREJDNYKEYZ"

// memStore keeps transfers in a slice, standing in for postgres.
type memStore struct {
	transfers []*models.Transfer
}

func (m *memStore) SaveTransfer(_ context.Context, transfer *models.Transfer) error {
	transfer.CreatedAt = time.Now().UTC()
	m.transfers = append(m.transfers, transfer)
	return nil
}

func (m *memStore) GetTransfer(_ context.Context, hash string) (*models.Transfer, error) {
	for _, transfer := range m.transfers {
		if transfer.Hash == hash {
			return transfer, nil
		}
	}
	return nil, fmt.Errorf("transfer %s not found", hash)
}

func (m *memStore) ListTransfers(_ context.Context, account string, limit, offset int) ([]*models.Transfer, error) {
	var out []*models.Transfer
	for _, transfer := range m.transfers {
		if transfer.Account == account {
			out = append(out, transfer)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RunMigrations() error { return nil }
func (m *memStore) Close() error         { return nil }

func newTestRunner(t *testing.T, st *memStore) *Runner {
	t.Helper()
	return &Runner{
		logger:  &logger.Logger{Logger: zap.NewNop()},
		signer:  signing.NewLocalSignerFromKeypair(keypair.MustRandom()),
		store:   st,
		metrics: metrics.NewCollector(),
	}
}

func TestRecordTransferPersistsFailure(t *testing.T) {
	st := &memStore{}
	r := newTestRunner(t, st)
	usdc := asset.MustNew("USDC", issuerAccount)
	inr := asset.MustNew("INR", issuerAccount)

	flowErr := submit.Classify([]string{"op_under_dest_min"}, "USDC", "INR")
	r.recordTransfer(context.Background(), "send", time.Now(), r.signer.Address(), issuerAccount, usdc, inr, "100", nil, flowErr)

	require.Len(t, st.transfers, 1)
	saved := st.transfers[0]
	assert.Equal(t, models.StatusFailed, saved.Status)
	assert.Equal(t, string(submit.RateMoved), saved.FailureCategory)
	assert.Empty(t, saved.Hash)
	assert.Equal(t, "send", saved.Flow)
	assert.Equal(t, r.signer.Address(), saved.Account)
}

func TestRunTransfers(t *testing.T) {
	st := &memStore{}
	r := newTestRunner(t, st)
	hash := "1f8b3c2a9d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8"

	st.transfers = []*models.Transfer{
		{
			Hash:         hash,
			Account:      r.signer.Address(),
			Flow:         "send",
			SourceAsset:  "USDC:" + issuerAccount,
			DestAsset:    "INR:" + issuerAccount,
			SourceAmount: "100",
			Status:       models.StatusConfirmed,
		},
		{
			Account:      r.signer.Address(),
			Flow:         "swap",
			SourceAsset:  "XLM",
			DestAsset:    "USDC:" + issuerAccount,
			SourceAmount: "50",
			Status:       models.StatusFailed,
		},
	}

	require.NoError(t, r.runTransfers(context.Background(), nil))
	require.NoError(t, r.runTransfers(context.Background(), []string{"1"}))
	require.NoError(t, r.runTransfers(context.Background(), []string{hash}))

	require.Error(t, r.runTransfers(context.Background(), []string{"zero"}))
	require.Error(t, r.runTransfers(context.Background(), []string{"0"}))

	missing := "0000000000000000000000000000000000000000000000000000000000000000"
	require.Error(t, r.runTransfers(context.Background(), []string{missing}))
}

func TestRunTransfersWithoutStore(t *testing.T) {
	r := newTestRunner(t, nil)
	r.store = nil
	require.Error(t, r.runTransfers(context.Background(), nil))
}
