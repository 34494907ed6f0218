package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/scheduler"
	"royal-market-bot/internal/service"
)

// JobRunner runs one cycle of the daily jobs on demand.
type JobRunner interface {
	RunOnce(ctx context.Context) (*scheduler.Report, error)
}

// AdminHandler handles crown-only commands.
type AdminHandler struct {
	ledger *service.LedgerService
	jobs   JobRunner
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger *service.LedgerService, jobs JobRunner) *AdminHandler {
	return &AdminHandler{
		ledger: ledger,
		jobs:   jobs,
	}
}

// HandleTake handles /take <amount>, replying to the subject or naming
// their user id first. The seizure may push the subject into debt.
func (h *AdminHandler) HandleTake(c tele.Context) error {
	return h.adjust(c, "take", func(ctx context.Context, id, amount int64) (*model.Account, error) {
		acc, _, err := h.ledger.Take(ctx, id, amount)
		return acc, err
	})
}

// HandleGrant handles /grant <amount>.
func (h *AdminHandler) HandleGrant(c tele.Context) error {
	return h.adjust(c, "grant", func(ctx context.Context, id, amount int64) (*model.Account, error) {
		acc, _, err := h.ledger.Grant(ctx, id, amount)
		return acc, err
	})
}

// HandleSetDebt handles /setdebt <amount>. Zero clears the debt.
func (h *AdminHandler) HandleSetDebt(c tele.Context) error {
	return h.adjust(c, "setdebt", h.ledger.SetDebt)
}

func (h *AdminHandler) adjust(c tele.Context, op string, apply func(ctx context.Context, id, amount int64) (*model.Account, error)) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, targetName, amount, err := h.parseAdminArgs(c, op)
	if err != nil {
		return c.Reply(err.Error())
	}

	before, err := h.ledger.GetAccount(ctx, targetID, targetName)
	if err != nil {
		return c.Reply(errorText(err, op))
	}
	acc, err := apply(ctx, targetID, amount)
	if err != nil {
		return c.Reply(errorText(err, op))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Int64("old_balance", before.Balance).
		Int64("new_balance", acc.Balance).
		Int64("old_debt", before.Debt).
		Int64("new_debt", acc.Debt).
		Str("operation", "admin_"+op).
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ By order of the crown\n\n"+
			"👤 Subject: %s (ID: %d)\n"+
			"💰 Purse: %s → %s\n"+
			"📜 Debt: %s → %s",
		nameOr(acc.Username, targetID), targetID,
		currency.Format(before.Balance), currency.Format(acc.Balance),
		currency.Format(before.Debt), currency.Format(acc.Debt),
	))
}

// parseAdminArgs reads the target and amount. Format: [user_id] <amount>
// where the id may be omitted when replying to the subject.
func (h *AdminHandler) parseAdminArgs(c tele.Context, op string) (int64, string, int64, error) {
	usage := fmt.Errorf("❌ Usage: /%s [user_id] <amount>, or reply to the subject\nFor example: /%s 123456789 5g", op, op)
	args := stripTarget(c.Args())

	var (
		targetID   int64
		targetName string
	)
	if target := targetOf(c); target != nil {
		targetID, targetName = target.ID, displayName(target)
	} else {
		if len(args) < 2 {
			return 0, "", 0, usage
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, "", 0, fmt.Errorf("❌ The user id must be a number")
		}
		targetID = id
		args = args[1:]
	}
	if len(args) < 1 {
		return 0, "", 0, usage
	}

	// setdebt accepts zero to clear the debt.
	if op == "setdebt" && args[0] == "0" {
		return targetID, targetName, 0, nil
	}
	amount, all, err := parseAmount(args[0])
	if err != nil || all {
		return 0, "", 0, fmt.Errorf("❌ That is no proper amount. Try 15, 15g, 30s or 1g50s.")
	}
	return targetID, targetName, amount, nil
}

// HandleRunJobs handles /runjobs: interest, prison sweep, and tax now.
func (h *AdminHandler) HandleRunJobs(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	report, err := h.jobs.RunOnce(ctx)
	log.Info().
		Int64("admin_id", sender.ID).
		Str("operation", "admin_runjobs").
		Err(err).
		Msg("Admin operation executed")
	if report == nil {
		return c.Reply(errorText(err, "run the daily jobs"))
	}

	msg := fmt.Sprintf(
		"📜 Daily jobs complete\n\n"+
			"📈 Interest charged: %d debtors\n"+
			"⛓️ Imprisoned: %d",
		report.Accrued, len(report.Jailed),
	)
	if report.Tax != nil {
		msg += fmt.Sprintf("\n🏛️ Tax collected: %s", currency.Format(report.Tax.Collected))
	}
	if err != nil {
		msg += "\n⚠️ Some accounts failed; see the logs."
	}
	return c.Reply(msg)
}
