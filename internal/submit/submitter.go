// ==================================
// File: internal/submit/submitter.go
// ==================================
package submit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/horizon"
)

// Outcome is the synchronous result of one submission attempt: either a
// transaction hash or the structured result codes the network rejected it
// with.
type Outcome struct {
	Hash  string
	Codes []string
}

func (o Outcome) Succeeded() bool {
	return o.Hash != ""
}

// Submitter pushes signed envelopes to the network. Exactly one round trip
// per call and no internal retry: resubmitting after an ambiguous failure
// risks a double spend from the user's point of view.
type Submitter struct {
	horizon *horizon.Client
	logger  *zap.Logger
}

func NewSubmitter(client *horizon.Client, logger *zap.Logger) (*Submitter, error) {
	if client == nil {
		return nil, fmt.Errorf("horizon client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Submitter{
		horizon: client,
		logger:  logger.Named("submitter"),
	}, nil
}

// Submit sends a signed base64 envelope and interprets the synchronous
// response. A rejection with result codes yields a failed Outcome and no
// error; transport-level problems yield an error.
func (s *Submitter) Submit(ctx context.Context, signedEnvelope string) (Outcome, error) {
	success, err := s.horizon.SubmitTransaction(ctx, signedEnvelope)
	if err == nil {
		s.logger.Info("Transaction confirmed", zap.String("hash", success.Hash))
		return Outcome{Hash: success.Hash}, nil
	}

	var problem *horizon.Problem
	if errors.As(err, &problem) {
		if codes := problem.Extras.ResultCodes.All(); len(codes) > 0 {
			s.logger.Warn("Transaction rejected", zap.Strings("result_codes", codes))
			return Outcome{Codes: codes}, nil
		}
	}

	return Outcome{}, fmt.Errorf("submission failed: %w", err)
}
