// internal/app/commands.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vatanpay/remit/internal/asset"
	"github.com/vatanpay/remit/internal/balance"
	"github.com/vatanpay/remit/internal/history"
	"github.com/vatanpay/remit/internal/quote"
	"github.com/vatanpay/remit/internal/remit"
	"github.com/vatanpay/remit/internal/store/models"
	"github.com/vatanpay/remit/internal/submit"
	"github.com/vatanpay/remit/internal/txbuild"
)

func (r *Runner) runBalance(ctx context.Context) error {
	poller, err := balance.NewPoller(r.horizon, r.signer.Address(), 0, r.logger.Logger, nil)
	if err != nil {
		return err
	}
	snapshot, err := poller.Refresh(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Balances for %s\n", snapshot.Account)
	for a, amount := range snapshot.Holdings {
		fmt.Printf("  %-14s %s\n", a.Code, amount.StringFixed(txbuild.Decimals))
	}
	return nil
}

// runQuote: quote <source> <dest> <amount> [recipient]
func (r *Runner) runQuote(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: remit quote <source> <dest> <amount> [recipient]")
	}
	source, err := r.config.FindAsset(args[0])
	if err != nil {
		return err
	}
	dest, err := r.config.FindAsset(args[1])
	if err != nil {
		return err
	}
	recipient := r.signer.Address()
	if len(args) > 3 {
		recipient = args[3]
	}

	started := time.Now()
	sq, err := r.service.QuoteSend(ctx, recipient, source, dest, args[2])
	r.metrics.RecordQuote(time.Since(started))
	if err != nil {
		return r.explain(err)
	}
	if sq == nil {
		return fmt.Errorf("nothing to quote for amount %q", args[2])
	}

	fmt.Printf("%s %s -> %s %s (rate %.7f)\n",
		sq.Quote.SourceAmount.String(), source.Code,
		sq.Quote.DestinationAmount.String(), dest.Code,
		sq.Quote.Rate)
	fmt.Printf("Platform fee: %s %s\n", sq.Fee.String(), source.Code)
	if !sq.RecipientTrusts {
		fmt.Printf("Warning: recipient cannot hold %s yet\n", dest.Code)
	}
	return nil
}

// runSend: send <recipient> <source> <dest> <amount>
func (r *Runner) runSend(ctx context.Context, sess remit.Session, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: remit send <recipient> <source> <dest> <amount>")
	}
	source, err := r.config.FindAsset(args[1])
	if err != nil {
		return err
	}
	dest, err := r.config.FindAsset(args[2])
	if err != nil {
		return err
	}

	log := r.logger.WithFlow("send")
	log.Info("Submitting transfer",
		zap.String("recipient", args[0]),
		zap.String("source", source.String()),
		zap.String("dest", dest.String()),
		zap.String("amount", args[3]))

	started := time.Now()
	receipt, err := r.service.Send(ctx, sess, args[0], source, dest, args[3])
	r.recordTransfer(ctx, "send", started, sess.Account, args[0], source, dest, args[3], receipt, err)
	if err != nil {
		log.Warn("Transfer failed", zap.Error(err))
		return r.explain(err)
	}
	r.printReceipt("Sent", receipt, dest.Code)
	return nil
}

// runSwap: swap <from> <to> <amount>
func (r *Runner) runSwap(ctx context.Context, sess remit.Session, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: remit swap <from> <to> <amount>")
	}
	from, err := r.config.FindAsset(args[0])
	if err != nil {
		return err
	}
	to, err := r.config.FindAsset(args[1])
	if err != nil {
		return err
	}

	log := r.logger.WithFlow("swap")
	log.Info("Submitting swap",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("amount", args[2]))

	started := time.Now()
	receipt, err := r.service.Swap(ctx, sess, from, to, args[2])
	r.recordTransfer(ctx, "swap", started, sess.Account, sess.Account, from, to, args[2], receipt, err)
	if err != nil {
		log.Warn("Swap failed", zap.Error(err))
		return r.explain(err)
	}
	r.printReceipt("Swapped", receipt, to.Code)
	return nil
}

// runDeposit: deposit <token> <fiat-amount>
func (r *Runner) runDeposit(ctx context.Context, sess remit.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: remit deposit <token> <fiat-amount>")
	}
	token, err := r.config.FindAsset(args[0])
	if err != nil {
		return err
	}

	plan, err := r.service.PlanDeposit(args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Depositing %s -> %s %s (funding with %s XLM)\n",
		plan.FiatAmount.String(), plan.TokenAmount.String(), token.Code, plan.XLMRequired.String())

	log := r.logger.WithFlow("deposit")
	log.Info("Submitting deposit",
		zap.String("token", token.String()),
		zap.String("fiat_amount", plan.FiatAmount.String()),
		zap.String("xlm_required", plan.XLMRequired.String()))

	started := time.Now()
	receipt, err := r.service.Deposit(ctx, sess, token, args[1])
	r.recordTransfer(ctx, "deposit", started, sess.Account, sess.Account, asset.Native(), token, plan.XLMRequired.String(), receipt, err)
	if err != nil {
		log.Warn("Deposit failed", zap.Error(err))
		return r.explain(err)
	}
	r.printReceipt("Deposited", receipt, token.Code)
	return nil
}

// runHistory: history [csv-path]
func (r *Runner) runHistory(ctx context.Context, args []string) error {
	records, err := r.history.Recent(ctx, r.signer.Address(), "")
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if err := history.ExportCSV(args[0], records); err != nil {
			return err
		}
		fmt.Printf("Exported %d payments to %s\n", len(records), args[0])
		return nil
	}
	if len(records) == 0 {
		fmt.Println("No payments yet")
		return nil
	}

	for _, rec := range records {
		arrow := "->"
		if rec.Direction == history.DirectionReceived {
			arrow = "<-"
		}
		fmt.Printf("%s  %s %s %s %s  (%s)\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Amount.String(), rec.Asset.Code,
			arrow, rec.Counterparty, rec.Hash)
	}
	return nil
}

// runTransfers: transfers [hash | limit]
func (r *Runner) runTransfers(ctx context.Context, args []string) error {
	if r.store == nil {
		return fmt.Errorf("transfer store is not configured, set REMIT_POSTGRES_URL")
	}

	// A 64-character argument is a transaction hash, anything else a limit.
	if len(args) > 0 && len(args[0]) == 64 {
		transfer, err := r.store.GetTransfer(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load transfer %s: %w", args[0], err)
		}
		fmt.Printf("%s  %s  %s %s -> %s (%s)\n",
			transfer.CreatedAt.Format("2006-01-02 15:04"),
			transfer.Flow,
			transfer.SourceAmount, transfer.SourceAsset,
			transfer.DestAsset, transfer.Status)
		if transfer.Status == models.StatusFailed {
			fmt.Printf("  %s: %s\n", transfer.FailureCategory, transfer.ErrorMessage)
		}
		return nil
	}

	limit := 20
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = parsed
	}

	transfers, err := r.store.ListTransfers(ctx, r.signer.Address(), limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list transfers: %w", err)
	}
	if len(transfers) == 0 {
		fmt.Println("No recorded transfers")
		return nil
	}
	for _, transfer := range transfers {
		fmt.Printf("%s  %-8s %s %s -> %s  %s  %s\n",
			transfer.CreatedAt.Format("2006-01-02 15:04"),
			transfer.Flow,
			transfer.SourceAmount, transfer.SourceAsset,
			transfer.DestAsset, transfer.Status, transfer.Hash)
	}
	return nil
}

func (r *Runner) printReceipt(verb string, receipt *remit.Receipt, destCode string) {
	fmt.Printf("%s %s %s, at least %s %s delivered\n",
		verb,
		receipt.SourceAmount.String(), receipt.Quote.Source.Code,
		receipt.MinDelivered.StringFixed(txbuild.Decimals), destCode)
	fmt.Printf("Transaction: %s\n", receipt.Hash)

	r.logger.WithTransaction(receipt.Hash).Info("Transfer confirmed",
		zap.String("source_amount", receipt.SourceAmount.String()),
		zap.String("min_delivered", receipt.MinDelivered.StringFixed(txbuild.Decimals)))
}

// recordTransfer feeds the flow outcome into metrics and, when configured,
// the transfer store. Recording failures must never mask the flow's own
// error.
func (r *Runner) recordTransfer(ctx context.Context, flow string, started time.Time, account, recipient string, source, dest asset.Asset, amount string, receipt *remit.Receipt, flowErr error) {
	elapsed := time.Since(started)
	r.metrics.RecordTransfer(flow, elapsed, flowErr)

	if r.store == nil {
		return
	}

	transfer := &models.Transfer{
		Account:       account,
		Recipient:     recipient,
		Flow:          flow,
		SourceAsset:   source.String(),
		DestAsset:     dest.String(),
		SourceAmount:  amount,
		Status:        models.StatusConfirmed,
		ExecutionTime: elapsed.Seconds(),
	}
	if receipt != nil {
		transfer.Hash = receipt.Hash
		transfer.SourceAmount = receipt.SourceAmount.String()
		transfer.MinDelivered = receipt.MinDelivered.StringFixed(txbuild.Decimals)
	}
	if flowErr != nil {
		transfer.Status = models.StatusFailed
		transfer.ErrorMessage = flowErr.Error()
		var classified *submit.ClassifiedError
		if errors.As(flowErr, &classified) {
			transfer.FailureCategory = string(classified.Category)
		}
	}

	if err := r.store.SaveTransfer(ctx, transfer); err != nil {
		r.logger.Warn("Failed to record transfer", zap.Error(err))
	}
}

// explain maps classified failures to actionable messages before handing
// the error back to main.
func (r *Runner) explain(err error) error {
	var noPath *quote.NoLiquidityPathError
	if errors.As(err, &noPath) {
		return fmt.Errorf("%w; try a smaller amount or a different currency pair", err)
	}

	var classified *submit.ClassifiedError
	if errors.As(err, &classified) {
		switch classified.Category {
		case submit.RateMoved:
			return fmt.Errorf("%w; the rate moved since the quote, request a fresh one", err)
		case submit.InsufficientBalance:
			return fmt.Errorf("%w; top up the source balance and retry", err)
		case submit.MissingDestinationTrust:
			return fmt.Errorf("%w; the recipient must add the currency first", err)
		}
	}
	return err
}
