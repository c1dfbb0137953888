// =================================
// File: internal/submit/classify.go
// =================================
package submit

import (
	"fmt"
	"strings"
)

// Category buckets the network's heterogeneous failure codes into the small
// set of conditions a user can act on.
type Category string

const (
	// RateMoved: the market moved past the quoted minimum before execution.
	RateMoved Category = "rate_moved"
	// NoLiquidity: the order books cannot fill this path and amount.
	NoLiquidity Category = "no_liquidity"
	// InsufficientBalance: the sender does not hold enough of the source asset.
	InsufficientBalance Category = "insufficient_balance"
	// MissingDestinationTrust: a party lacks the trustline for the destination asset.
	MissingDestinationTrust Category = "missing_destination_trust"
	// GenericSubmissionError: rejected with codes outside the known set.
	GenericSubmissionError Category = "generic_submission_error"
	// TransportError: no structured codes came back at all.
	TransportError Category = "transport_error"
)

// ClassifiedError is a submission failure mapped to a user-facing category.
type ClassifiedError struct {
	Category Category
	Message  string
	Codes    []string
}

func (e *ClassifiedError) Error() string {
	return e.Message
}

// Classify maps result codes to exactly one category. Fixed precedence,
// first match wins, deterministic and total: every input, including an empty
// one, lands in a category. The source and destination asset codes only
// feed the user-facing messages.
func Classify(codes []string, sourceAsset, destAsset string) *ClassifiedError {
	match := func(substr string) bool {
		for _, code := range codes {
			if strings.Contains(code, substr) {
				return true
			}
		}
		return false
	}

	switch {
	case match("under_dest_min"):
		return &ClassifiedError{
			Category: RateMoved,
			Message:  "the exchange rate fluctuated before execution, request a fresh quote and retry",
			Codes:    codes,
		}
	case match("too_few_offers"):
		return &ClassifiedError{
			Category: NoLiquidity,
			Message:  fmt.Sprintf("no liquidity for %s -> %s at this amount", sourceAsset, destAsset),
			Codes:    codes,
		}
	case match("underfunded"):
		return &ClassifiedError{
			Category: InsufficientBalance,
			Message:  fmt.Sprintf("insufficient %s balance", sourceAsset),
			Codes:    codes,
		}
	case match("no_trust"):
		return &ClassifiedError{
			Category: MissingDestinationTrust,
			Message:  fmt.Sprintf("the receiving account is missing a trustline for %s", destAsset),
			Codes:    codes,
		}
	case len(codes) > 0:
		return &ClassifiedError{
			Category: GenericSubmissionError,
			Message:  fmt.Sprintf("transaction failed: %s", strings.Join(codes, ", ")),
			Codes:    codes,
		}
	default:
		return &ClassifiedError{
			Category: TransportError,
			Message:  "the network did not accept the request, try again",
			Codes:    codes,
		}
	}
}
