package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/horizon"
)

func newTestSubmitter(t *testing.T, handler http.HandlerFunc) *Submitter {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := horizon.NewClient(server.URL, zap.NewNop())
	require.NoError(t, err)
	submitter, err := NewSubmitter(client, zap.NewNop())
	require.NoError(t, err)
	return submitter
}

func TestSubmitSuccess(t *testing.T) {
	submitter := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "AAAAsigned", r.PostForm.Get("tx"))

		json.NewEncoder(w).Encode(horizon.TransactionSuccess{
			Hash:       "deadbeef",
			Ledger:     123,
			Successful: true,
		})
	})

	outcome, err := submitter.Submit(context.Background(), "AAAAsigned")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())
	require.Equal(t, "deadbeef", outcome.Hash)
}

func TestSubmitRejectionCarriesResultCodes(t *testing.T) {
	submitter := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(horizon.Problem{
			Title:  "Transaction Failed",
			Status: 400,
			Extras: horizon.Extras{
				ResultCodes: horizon.ResultCodes{
					Transaction: "tx_failed",
					Operations:  []string{"op_under_dest_min"},
				},
			},
		})
	})

	outcome, err := submitter.Submit(context.Background(), "AAAAsigned")
	require.NoError(t, err)
	require.False(t, outcome.Succeeded())
	require.Equal(t, []string{"op_under_dest_min"}, outcome.Codes)
}

func TestSubmitTransportFailure(t *testing.T) {
	submitter := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		json.NewEncoder(w).Encode(horizon.Problem{Title: "Timeout", Status: 504})
	})

	outcome, err := submitter.Submit(context.Background(), "AAAAsigned")
	require.Error(t, err)
	require.False(t, outcome.Succeeded())
	require.Empty(t, outcome.Codes)
}
