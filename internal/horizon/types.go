// ===============================
// File: internal/horizon/types.go
// ===============================
package horizon

import (
	"fmt"
	"strings"
)

const (
	AssetTypeNative              = "native"
	AssetTypeLiquidityPoolShares = "liquidity_pool_shares"
)

// Problem is the structured error document Horizon returns for failed
// requests, including rejected transaction submissions.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
	Extras Extras `json:"extras,omitempty"`
}

// Extras carries submission failure details.
type Extras struct {
	EnvelopeXDR string      `json:"envelope_xdr,omitempty"`
	ResultXDR   string      `json:"result_xdr,omitempty"`
	ResultCodes ResultCodes `json:"result_codes,omitempty"`
}

// ResultCodes holds the per-transaction and per-operation result codes of a
// rejected submission.
type ResultCodes struct {
	Transaction string   `json:"transaction,omitempty"`
	Operations  []string `json:"operations,omitempty"`
}

// All flattens the codes into a single list, transaction code first.
func (rc ResultCodes) All() []string {
	var codes []string
	if rc.Transaction != "" && rc.Transaction != "tx_failed" {
		codes = append(codes, rc.Transaction)
	}
	codes = append(codes, rc.Operations...)
	return codes
}

func (p *Problem) Error() string {
	if codes := p.Extras.ResultCodes.All(); len(codes) > 0 {
		return fmt.Sprintf("horizon: %s (%s)", p.Title, strings.Join(codes, ", "))
	}
	return fmt.Sprintf("horizon: %s (status %d): %s", p.Title, p.Status, p.Detail)
}

// Balance is a single trustline entry of an account.
type Balance struct {
	Balance   string `json:"balance"`
	Limit     string `json:"limit,omitempty"`
	AssetType string `json:"asset_type"`
	// AssetCode is empty when AssetType == AssetTypeNative.
	AssetCode string `json:"asset_code,omitempty"`
	// AssetIssuer is empty when AssetType == AssetTypeNative.
	AssetIssuer          string `json:"asset_issuer,omitempty"`
	IsAuthorized         bool   `json:"is_authorized,omitempty"`
	IsAuthorizedMaintain bool   `json:"is_authorized_to_maintain_liabilities,omitempty"`
}

// Account is the response of GET /accounts/{id}.
type Account struct {
	ID       string    `json:"id"`
	Sequence string    `json:"sequence"`
	Balances []Balance `json:"balances"`
}

// NativeBalance returns the native trustline balance, "0" if the account has
// none.
func (a *Account) NativeBalance() string {
	for _, b := range a.Balances {
		if b.AssetType == AssetTypeNative {
			return b.Balance
		}
	}
	return "0"
}

// HasTrustline reports whether the account holds a trustline for the given
// (code, issuer) pair.
func (a *Account) HasTrustline(code, issuer string) bool {
	for _, b := range a.Balances {
		if b.AssetType == AssetTypeNative || b.AssetType == AssetTypeLiquidityPoolShares {
			continue
		}
		if b.AssetCode == code && b.AssetIssuer == issuer {
			return true
		}
	}
	return false
}

// PathAsset is a single hop in a conversion route.
type PathAsset struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
}

// PathRecord is one candidate path of a strict-send search. Horizon ranks
// records by destination amount, best first.
type PathRecord struct {
	SourceAssetType        string      `json:"source_asset_type"`
	SourceAssetCode        string      `json:"source_asset_code,omitempty"`
	SourceAssetIssuer      string      `json:"source_asset_issuer,omitempty"`
	SourceAmount           string      `json:"source_amount"`
	DestinationAssetType   string      `json:"destination_asset_type"`
	DestinationAssetCode   string      `json:"destination_asset_code,omitempty"`
	DestinationAssetIssuer string      `json:"destination_asset_issuer,omitempty"`
	DestinationAmount      string      `json:"destination_amount"`
	Path                   []PathAsset `json:"path"`
}

// PathsPage is the response of GET /paths/strict-send.
type PathsPage struct {
	Embedded struct {
		Records []PathRecord `json:"records"`
	} `json:"_embedded"`
}

// TransactionSuccess is the response of a successful POST /transactions.
type TransactionSuccess struct {
	ID         string `json:"id"`
	Hash       string `json:"hash"`
	Ledger     int64  `json:"ledger"`
	Successful bool   `json:"successful"`
	// base64 encoded xdr.TransactionResult
	ResultXDR string `json:"result_xdr,omitempty"`
}

// PaymentRecord is one effect-bearing operation from
// GET /accounts/{id}/payments. Payment and path payment operations share
// this shape; fields not set for a given type stay empty.
type PaymentRecord struct {
	ID              string `json:"id"`
	PagingToken     string `json:"paging_token"`
	TransactionHash string `json:"transaction_hash"`
	Successful      bool   `json:"transaction_successful"`
	Type            string `json:"type"`
	CreatedAt       string `json:"created_at"`
	From            string `json:"from"`
	To              string `json:"to"`
	AssetType       string `json:"asset_type,omitempty"`
	AssetCode       string `json:"asset_code,omitempty"`
	AssetIssuer     string `json:"asset_issuer,omitempty"`
	Amount          string `json:"amount"`
	// Set for path payments only.
	SourceAssetType   string `json:"source_asset_type,omitempty"`
	SourceAssetCode   string `json:"source_asset_code,omitempty"`
	SourceAssetIssuer string `json:"source_asset_issuer,omitempty"`
	SourceAmount      string `json:"source_amount,omitempty"`
}

// PaymentsPage is the response of GET /accounts/{id}/payments.
type PaymentsPage struct {
	Embedded struct {
		Records []PaymentRecord `json:"records"`
	} `json:"_embedded"`
}
