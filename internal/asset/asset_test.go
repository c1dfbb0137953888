package asset

import (
	"strings"
	"testing"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
)

const (
	usdcIssuer = "GCGH7MHBMNIRWEU6XKZ4CUGESGWZHQJL36ZI2ZOSZAQV6PREJDNYKEYZ"
	inrIssuer  = "GBSVZWQQRRHZ2NF3WD3FVER2AUFQLVO5KWHXJJR3PTR5QWIW4QHNMITH"
)

func TestNew(t *testing.T) {
	a, err := New("USDC", usdcIssuer)
	require.NoError(t, err)
	require.Equal(t, "USDC", a.Code)
	require.Equal(t, usdcIssuer, a.Issuer)
	require.False(t, a.IsNative())

	_, err = New("", usdcIssuer)
	require.Error(t, err)

	_, err = New("WAYTOOLONGASSETCODE", usdcIssuer)
	require.Error(t, err)

	_, err = New("USDC", "not-an-account")
	require.Error(t, err)
	var invalidIssuer *InvalidIssuerError
	require.ErrorAs(t, err, &invalidIssuer)
	require.Equal(t, "not-an-account", invalidIssuer.Issuer)
}

func TestValueEquality(t *testing.T) {
	a, err := New("INR", inrIssuer)
	require.NoError(t, err)
	b, err := New("INR", inrIssuer)
	require.NoError(t, err)

	// Descriptors constructed independently must be interchangeable.
	require.True(t, a == b)
	require.True(t, Native() == Native())
	require.False(t, a == Native())
}

func TestParseRoundTrip(t *testing.T) {
	a := MustNew("USDC", usdcIssuer)
	parsed, err := Parse(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)

	native, err := Parse("XLM")
	require.NoError(t, err)
	require.True(t, native.IsNative())

	_, err = Parse("USDC")
	require.Error(t, err)
}

func TestFromHorizon(t *testing.T) {
	native, err := FromHorizon("native", "", "")
	require.NoError(t, err)
	require.True(t, native.IsNative())

	a, err := FromHorizon("credit_alphanum4", "INR", inrIssuer)
	require.NoError(t, err)
	require.Equal(t, MustNew("INR", inrIssuer), a)
}

func TestHorizonType(t *testing.T) {
	require.Equal(t, "native", Native().HorizonType())
	require.Equal(t, "credit_alphanum4", MustNew("USDC", usdcIssuer).HorizonType())
	require.Equal(t, "credit_alphanum12", MustNew("LONGERCODE", usdcIssuer).HorizonType())
}

func TestQueryValue(t *testing.T) {
	require.Equal(t, "native", Native().QueryValue())
	require.Equal(t, "INR:"+inrIssuer, MustNew("INR", inrIssuer).QueryValue())
}

func TestXDR(t *testing.T) {
	native, err := Native().XDR()
	require.NoError(t, err)
	require.Equal(t, xdr.AssetTypeAssetTypeNative, native.Type)

	short, err := MustNew("USDC", usdcIssuer).XDR()
	require.NoError(t, err)
	require.Equal(t, xdr.AssetTypeAssetTypeCreditAlphanum4, short.Type)
	require.Equal(t, "USDC", short.GetCode())
	require.Equal(t, usdcIssuer, short.GetIssuer())

	long, err := MustNew("LONGERCODE", usdcIssuer).XDR()
	require.NoError(t, err)
	require.Equal(t, xdr.AssetTypeAssetTypeCreditAlphanum12, long.Type)

	// Codes shorter than the XDR field are NUL-padded on the wire.
	inr, err := MustNew("INR", inrIssuer).XDR()
	require.NoError(t, err)
	require.Equal(t, xdr.AssetTypeAssetTypeCreditAlphanum4, inr.Type)
	require.Equal(t, "INR\x00", inr.GetCode())
	require.Equal(t, "INR", strings.TrimRight(inr.GetCode(), "\x00"))
}
