package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/service"
)

// TransferHandler handles payments between subjects and debt repayment.
type TransferHandler struct {
	ledger *service.LedgerService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(ledger *service.LedgerService) *TransferHandler {
	return &TransferHandler{ledger: ledger}
}

// HandlePay handles /pay <amount|all> [note], replying to the receiver.
func (h *TransferHandler) HandlePay(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target := targetOf(c)
	args := stripTarget(c.Args())
	if target == nil || len(args) < 1 {
		return c.Reply("❌ Usage: reply to a subject with /pay <amount|all> [note]\nFor example: /pay 1g50s for the horse")
	}

	amount, all, err := parseAmount(args[0])
	if err != nil {
		return c.Reply(errorText(err, "pay"))
	}
	from, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "pay"))
	}
	if all {
		amount = from.Balance
	}
	if _, err := h.ledger.GetAccount(ctx, target.ID, displayName(target)); err != nil {
		return c.Reply(errorText(err, "pay"))
	}

	note := strings.Join(args[1:], " ")
	from, _, err = h.ledger.Transfer(ctx, sender.ID, target.ID, amount, note)
	if err != nil {
		return c.Reply(errorText(err, "pay"))
	}

	msg := fmt.Sprintf("💸 %s paid %s to %s.", displayName(sender), currency.Format(amount), displayName(target))
	if note != "" {
		msg += fmt.Sprintf("\n📝 %s", note)
	}
	msg += fmt.Sprintf("\n👛 Thy purse: %s", currency.Format(from.Balance))
	return c.Reply(msg)
}

// HandlePayDebt handles /paydebt <amount|all>.
func (h *TransferHandler) HandlePayDebt(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /paydebt <amount|all>")
	}
	amount, all, err := parseAmount(args[0])
	if err != nil {
		return c.Reply(errorText(err, "repay"))
	}
	if _, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender)); err != nil {
		return c.Reply(errorText(err, "repay"))
	}

	paid, acc, err := h.ledger.RepayDebt(ctx, sender.ID, amount, all)
	if err != nil {
		return c.Reply(errorText(err, "repay"))
	}
	if acc.Debt == 0 {
		return c.Reply(fmt.Sprintf("✅ Thou paidst %s and owest the crown nothing.\n👛 Thy purse: %s", currency.Format(paid), currency.Format(acc.Balance)))
	}
	return c.Reply(fmt.Sprintf("📜 Thou paidst %s. Still owing: %s.\n👛 Thy purse: %s",
		currency.Format(paid), currency.Format(acc.Debt), currency.Format(acc.Balance)))
}
