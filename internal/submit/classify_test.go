package submit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name  string
		codes []string
		want  Category
	}{
		{name: "rate moved", codes: []string{"op_under_dest_min"}, want: RateMoved},
		{name: "no liquidity", codes: []string{"op_too_few_offers"}, want: NoLiquidity},
		{name: "underfunded", codes: []string{"op_underfunded"}, want: InsufficientBalance},
		{name: "no trust", codes: []string{"op_no_trust"}, want: MissingDestinationTrust},
		{name: "unknown code", codes: []string{"op_malformed"}, want: GenericSubmissionError},
		{name: "tx level code only", codes: []string{"tx_bad_seq"}, want: GenericSubmissionError},
		{name: "empty", codes: nil, want: TransportError},
		{name: "empty slice", codes: []string{}, want: TransportError},
		// First match wins over later codes in the precedence order.
		{name: "rate moved beats no trust", codes: []string{"op_no_trust", "op_under_dest_min"}, want: RateMoved},
		{name: "liquidity beats underfunded", codes: []string{"op_underfunded", "op_too_few_offers"}, want: NoLiquidity},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.codes, "USDC", "INR")
			require.NotNil(t, got)
			assert.Equal(t, c.want, got.Category)
			assert.Equal(t, c.codes, got.Codes)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassifyMessagesNameAssets(t *testing.T) {
	underfunded := Classify([]string{"op_underfunded"}, "USDC", "INR")
	assert.Contains(t, underfunded.Message, "USDC")

	noTrust := Classify([]string{"op_no_trust"}, "USDC", "INR")
	assert.Contains(t, noTrust.Message, "INR")

	generic := Classify([]string{"tx_bad_seq", "op_malformed"}, "USDC", "INR")
	assert.Contains(t, generic.Message, "tx_bad_seq")
	assert.Contains(t, generic.Message, "op_malformed")
}
