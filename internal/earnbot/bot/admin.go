package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/models"
)

// rejectReason is the canned reason for button-driven rejections; the admin
// HTTP API accepts a free-form one.
const rejectReason = "Rejected by admin review"

// adminApprove handles the Approve button on an admin-channel notification
func (b *Bot) adminApprove(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	if !b.requireOwner(tg, query) {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	id := strings.TrimPrefix(query.Data, "wd_approve:")
	req, err := b.ledger.Approve(ctx, id)
	if err != nil {
		return b.answerModerationError(tg, query, err)
	}

	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{Text: "Approved"})
	b.amendAdminMessage(tg, ectx, "✅ Approved", adminPaidKeyboard(req.ID))
	b.notifyRequester(ctx, tg, req, "withdraw_approved", map[string]string{
		"rupees": req.AmountRupees.String(),
	})
	return nil
}

// adminReject handles the Reject button
func (b *Bot) adminReject(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	if !b.requireOwner(tg, query) {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	id := strings.TrimPrefix(query.Data, "wd_reject:")
	req, err := b.ledger.Reject(ctx, id, rejectReason)
	if err != nil {
		return b.answerModerationError(tg, query, err)
	}

	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{Text: "Rejected"})
	b.amendAdminMessage(tg, ectx, "❌ Rejected", gotgbot.InlineKeyboardMarkup{})
	b.notifyRequester(ctx, tg, req, "withdraw_rejected", map[string]string{
		"rupees": req.AmountRupees.String(),
		"reason": req.RejectReason,
	})
	return nil
}

// adminMarkPaid handles the Mark paid button after an approval
func (b *Bot) adminMarkPaid(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	if !b.requireOwner(tg, query) {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	id := strings.TrimPrefix(query.Data, "wd_paid:")
	req, err := b.ledger.MarkPaid(ctx, id)
	if err != nil {
		return b.answerModerationError(tg, query, err)
	}

	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{Text: "Marked paid"})
	b.amendAdminMessage(tg, ectx, "💸 Paid", gotgbot.InlineKeyboardMarkup{})
	b.notifyRequester(ctx, tg, req, "withdraw_paid", map[string]string{
		"rupees": req.AmountRupees.String(),
	})
	return nil
}

// requireOwner answers and stops non-owner presses on moderation buttons
func (b *Bot) requireOwner(tg *gotgbot.Bot, query *gotgbot.CallbackQuery) bool {
	if b.isOwner(query.From.Id) {
		return true
	}
	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
		Text:      "You are not authorized to moderate withdrawals.",
		ShowAlert: true,
	})
	return false
}

// answerModerationError reports state-machine violations to the pressing
// admin; anything else is a transient failure.
func (b *Bot) answerModerationError(tg *gotgbot.Bot, query *gotgbot.CallbackQuery, err error) error {
	var invalid *models.ErrInvalidTransition
	if errors.As(err, &invalid) {
		_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
			Text:      "Already moderated: " + invalid.Error(),
			ShowAlert: true,
		})
		return nil
	}

	b.log.Error("moderation action failed", zap.String("data", query.Data), zap.Error(err))
	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
		Text:      "Action failed, try again.",
		ShowAlert: true,
	})
	return nil
}

// amendAdminMessage appends the moderation outcome to the admin-channel
// notification and swaps its keyboard
func (b *Bot) amendAdminMessage(tg *gotgbot.Bot, ectx *ext.Context, outcome string, keyboard gotgbot.InlineKeyboardMarkup) {
	msg := ectx.EffectiveMessage
	if msg == nil {
		return
	}

	text := msg.GetText() + "\n\n" + outcome + " by " + ectx.CallbackQuery.From.FirstName
	_, _, err := msg.EditText(tg, text, &gotgbot.EditMessageTextOpts{
		ReplyMarkup: keyboard,
	})
	if err != nil {
		b.log.Warn("editing admin message failed", zap.Error(err))
	}
}

// notifyRequester tells the user what happened to their withdrawal, in
// their language
func (b *Bot) notifyRequester(ctx context.Context, tg *gotgbot.Bot, req *models.WithdrawalRequest, key string, params map[string]string) {
	chatID, err := strconv.ParseInt(req.UserID, 10, 64)
	if err != nil {
		b.log.Warn("withdrawal has non-numeric user id", zap.String("request", req.ID))
		return
	}

	lang := b.ledger.Language(ctx, req.UserID)
	if _, err := tg.SendMessage(chatID, b.t(lang, key, params), nil); err != nil {
		b.log.Warn("withdrawal outcome notification failed",
			zap.String("request", req.ID),
			zap.Error(err))
	}
}
