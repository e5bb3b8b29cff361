// Package bot turns classified commands into ledger operations and
// user-facing replies. Errors never leak raw to the user: every failure
// maps to a fixed Chinese message and the detail goes to the log.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/parse"
	"jizhang/internal/services"
	"jizhang/internal/stats"
)

type Router struct {
	classifier *parse.Classifier
	ledger     *services.LedgerService
	stats      *stats.Engine

	// now is swappable in tests.
	now func() time.Time
}

func NewRouter(classifier *parse.Classifier, ledger *services.LedgerService, engine *stats.Engine) *Router {
	return &Router{
		classifier: classifier,
		ledger:     ledger,
		stats:      engine,
		now:        time.Now,
	}
}

// HandleMessage classifies one inbound message and executes the resulting
// command. A nil reply means the message must be ignored without any
// response, including errors.
func (r *Router) HandleMessage(ctx context.Context, userID, text string, isGroupChannel bool) *Reply {
	cmd := r.classifier.Classify(text, isGroupChannel)

	switch c := cmd.(type) {
	case parse.NoOpCommand:
		return nil
	case parse.ExpenseCommand:
		return r.handleExpense(ctx, userID, c)
	case parse.DeleteCommand:
		return r.handleDelete(ctx, userID, c)
	case parse.QueryCommand:
		return r.handleQuery(ctx, userID, c)
	case parse.HelpCommand:
		return helpReply(c.Variant)
	case parse.StatCommand:
		return r.handleStat(ctx, userID, c)
	case parse.UnrecognizedCommand:
		return suggestFormatReply(c.Text)
	default:
		// The command set is closed; reaching this is a programming error.
		slog.ErrorContext(ctx, "Unhandled command type", "command", fmt.Sprintf("%T", cmd))
		return &Reply{Text: errBusyText}
	}
}

func (r *Router) handleExpense(ctx context.Context, userID string, c parse.ExpenseCommand) *Reply {
	id, err := r.ledger.Record(ctx, userID, c.Amount, c.Reason)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record expense",
			"user_id", userID, "amount_cents", c.Amount.Cents, "error", err)
		return &Reply{Text: "❌ 記帳失敗，請稍後再試。"}
	}

	slog.InfoContext(ctx, "Recorded expense",
		"user_id", userID, "record_id", id, "amount_cents", c.Amount.Cents)
	return recordedReply(id, c.Amount, c.Reason)
}

func (r *Router) handleDelete(ctx context.Context, userID string, c parse.DeleteCommand) *Reply {
	err := r.ledger.Delete(ctx, c.RecordID, userID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return &Reply{Text: errNotFoundText}
	case errors.Is(err, core.ErrNotOwner):
		return &Reply{Text: errNotOwnerText}
	case err != nil:
		slog.ErrorContext(ctx, "Failed to delete record",
			"user_id", userID, "record_id", c.RecordID, "error", err)
		return &Reply{Text: errBusyText}
	}

	slog.InfoContext(ctx, "Deleted record", "user_id", userID, "record_id", c.RecordID)
	return deletedReply(c.RecordID)
}

func (r *Router) handleQuery(ctx context.Context, userID string, c parse.QueryCommand) *Reply {
	records, err := r.ledger.ListRecent(ctx, userID, c.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list records",
			"user_id", userID, "limit", c.Limit, "error", err)
		return &Reply{Text: "❌ 查詢失敗，請稍後再試。"}
	}

	return recordListReply(records, c.Limit, c.Note)
}

func (r *Router) handleStat(ctx context.Context, userID string, c parse.StatCommand) *Reply {
	switch c.Op {
	case parse.StatMonthly:
		now := r.now()
		total, count, err := r.stats.MonthlyTotal(ctx, userID, now.Year(), now.Month())
		if err != nil {
			return r.statError(ctx, userID, "monthly", err)
		}
		return monthlyReply(now.Year(), now.Month(), total, count)

	case parse.StatAllTime:
		all, err := r.stats.AllTime(ctx, userID)
		if err != nil {
			return r.statError(ctx, userID, "all_time", err)
		}
		return allTimeReply(all)

	case parse.StatCurrent:
		w, err := r.stats.Current(ctx, userID)
		if err != nil {
			return r.statError(ctx, userID, "current", err)
		}
		return currentReply(w)

	case parse.StatResetConfirm:
		w, err := r.stats.Current(ctx, userID)
		if err != nil {
			return r.statError(ctx, userID, "reset_confirm", err)
		}
		return resetConfirmReply(w)

	case parse.StatResetExecute:
		snapshot, err := r.stats.ResetCurrent(ctx, userID)
		if err != nil {
			return r.statError(ctx, userID, "reset_execute", err)
		}
		slog.InfoContext(ctx, "Reset current stats window",
			"user_id", userID, "cleared_cents", snapshot.Total.Cents, "cleared_count", snapshot.Count)
		return resetDoneReply(snapshot)

	case parse.StatResetCancel:
		return resetCancelReply()

	default:
		return &Reply{Text: errBusyText}
	}
}

func (r *Router) statError(ctx context.Context, userID, op string, err error) *Reply {
	slog.ErrorContext(ctx, "Stat operation failed",
		"user_id", userID, "op", op, "error", err)
	return &Reply{Text: "❌ 查詢失敗，請稍後再試。"}
}
