// =============================
// File: internal/asset/asset.go
// =============================
package asset

import (
	"fmt"
	"strings"

	"github.com/stellar/go/xdr"
)

const (
	// NativeCode is the ledger's native unit.
	NativeCode = "XLM"

	// Horizon asset type discriminators.
	TypeNative          = "native"
	TypeCreditAlphanum4 = "credit_alphanum4"
	TypeCreditAlphanum12 = "credit_alphanum12"
)

// InvalidIssuerError is returned when an issuer string is not a well-formed
// account identity.
type InvalidIssuerError struct {
	Issuer string
}

func (e *InvalidIssuerError) Error() string {
	return fmt.Sprintf("invalid issuer account identity: %q", e.Issuer)
}

// Asset identifies a fungible unit on the network: either the native unit
// (empty issuer) or a (code, issuer) pair. Assets are plain values; two
// descriptors built independently for the same pair compare equal with ==.
type Asset struct {
	Code   string
	Issuer string
}

// Native returns the descriptor for the network's native unit.
func Native() Asset {
	return Asset{Code: NativeCode}
}

// New builds a descriptor for an issued asset. The code must be 1-12
// characters and the issuer a valid account identity.
func New(code, issuer string) (Asset, error) {
	if len(code) == 0 || len(code) > 12 {
		return Asset{}, fmt.Errorf("invalid asset code %q: length must be between 1 and 12", code)
	}

	var account xdr.MuxedAccount
	if err := account.SetAddress(issuer); err != nil {
		return Asset{}, &InvalidIssuerError{Issuer: issuer}
	}

	return Asset{Code: code, Issuer: issuer}, nil
}

// MustNew is New for statically known inputs; it panics on invalid ones.
func MustNew(code, issuer string) Asset {
	a, err := New(code, issuer)
	if err != nil {
		panic(err)
	}
	return a
}

// FromHorizon maps a Horizon (asset_type, asset_code, asset_issuer) triple
// into a descriptor. Horizon reports the native asset with an empty code.
func FromHorizon(assetType, code, issuer string) (Asset, error) {
	if assetType == TypeNative {
		return Native(), nil
	}
	return New(code, issuer)
}

// Parse reads the canonical "CODE-ISSUER" form, or "XLM" for the native unit.
func Parse(s string) (Asset, error) {
	if s == NativeCode {
		return Native(), nil
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("invalid asset %q: expected 'CODE-ISSUER' or %q", s, NativeCode)
	}
	return New(parts[0], parts[1])
}

func (a Asset) IsNative() bool {
	return a.Issuer == ""
}

// String returns "XLM" for the native unit and "CODE-ISSUER" otherwise.
func (a Asset) String() string {
	if a.IsNative() {
		return NativeCode
	}
	return fmt.Sprintf("%s-%s", a.Code, a.Issuer)
}

// HorizonType returns the Horizon asset type discriminator.
func (a Asset) HorizonType() string {
	switch {
	case a.IsNative():
		return TypeNative
	case len(a.Code) < 5:
		return TypeCreditAlphanum4
	default:
		return TypeCreditAlphanum12
	}
}

// QueryValue returns the "CODE:ISSUER" form used by Horizon list parameters
// such as destination_assets.
func (a Asset) QueryValue() string {
	if a.IsNative() {
		return TypeNative
	}
	return fmt.Sprintf("%s:%s", a.Code, a.Issuer)
}

// XDR converts the descriptor into its wire representation.
func (a Asset) XDR() (xdr.Asset, error) {
	if a.IsNative() {
		return xdr.Asset{Type: xdr.AssetTypeAssetTypeNative}, nil
	}

	var issuer xdr.MuxedAccount
	if err := issuer.SetAddress(a.Issuer); err != nil {
		return xdr.Asset{}, &InvalidIssuerError{Issuer: a.Issuer}
	}

	switch length := len(a.Code); {
	case length == 0:
		return xdr.Asset{}, fmt.Errorf("invalid asset code length: %d", length)
	case length < 5:
		var code [4]byte
		copy(code[:], a.Code)
		return xdr.Asset{
			Type: xdr.AssetTypeAssetTypeCreditAlphanum4,
			AlphaNum4: &xdr.AlphaNum4{
				AssetCode: code,
				Issuer:    issuer.ToAccountId(),
			},
		}, nil
	case length < 13:
		var code [12]byte
		copy(code[:], a.Code)
		return xdr.Asset{
			Type: xdr.AssetTypeAssetTypeCreditAlphanum12,
			AlphaNum12: &xdr.AlphaNum12{
				AssetCode: code,
				Issuer:    issuer.ToAccountId(),
			},
		}, nil
	default:
		return xdr.Asset{}, fmt.Errorf("invalid asset code length: %d", length)
	}
}

// MustXDR is XDR for descriptors already validated by New.
func (a Asset) MustXDR() xdr.Asset {
	x, err := a.XDR()
	if err != nil {
		panic(err)
	}
	return x
}
