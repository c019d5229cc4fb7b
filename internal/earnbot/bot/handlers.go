package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/service"
	"github.com/tmatveev/earnbot/internal/earnbot/utils"
)

// start handles /start, with an optional referrer ID payload from a
// referral link.
func (b *Bot) start(tg *gotgbot.Bot, ectx *ext.Context) error {
	msg := ectx.EffectiveMessage
	user := ectx.EffectiveUser
	ctx, cancel := handlerContext()
	defer cancel()

	userID := userIDOf(user)
	lang := b.ledger.Language(ctx, userID)

	// Force-subscribe gate: the bot is usable only by members of the
	// required channel.
	if b.cfg.RequiredChannel.ID != 0 && !b.isMember(user.Id, b.cfg.RequiredChannel.ID) {
		_, err := msg.Reply(tg, b.t(lang, "join_gate", map[string]string{
			"link": b.cfg.RequiredChannel.InviteLink,
		}), nil)
		return err
	}

	var referrer string
	if args := ectx.Args(); len(args) > 1 {
		if payload := strings.TrimSpace(args[1]); utils.IsNumeric(payload) {
			referrer = payload
		}
	}

	res, err := b.ledger.Onboard(ctx, userID, referrer)
	if err != nil {
		return b.replyError(tg, msg, lang, err)
	}

	if res.ReferrerCredited {
		b.notifyReferrer(ctx, tg, res.Account.ReferredBy, user.FirstName)
	}

	text := b.t(lang, "welcome", map[string]string{
		"name":      user.FirstName,
		"balance":   res.Account.Balance.String(),
		"referrals": strconv.Itoa(res.Account.ReferralCount),
	})
	_, err = msg.Reply(tg, text, &gotgbot.SendMessageOpts{
		ReplyMarkup: mainMenuKeyboard(),
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{
			IsDisabled: true,
		},
	})
	return err
}

func (b *Bot) help(tg *gotgbot.Bot, ectx *ext.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	lang := b.ledger.Language(ctx, userIDOf(ectx.EffectiveUser))
	_, err := ectx.EffectiveMessage.Reply(tg, b.t(lang, "menu", nil), &gotgbot.SendMessageOpts{
		ReplyMarkup: mainMenuKeyboard(),
	})
	return err
}

func (b *Bot) languageMenu(tg *gotgbot.Bot, ectx *ext.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	lang := b.ledger.Language(ctx, userIDOf(ectx.EffectiveUser))
	_, err := ectx.EffectiveMessage.Reply(tg, b.t(lang, "language_prompt", nil), &gotgbot.SendMessageOpts{
		ReplyMarkup: languageKeyboard(),
	})
	return err
}

// menuCallback routes the main menu buttons
func (b *Bot) menuCallback(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	msg := ectx.EffectiveMessage
	user := ectx.EffectiveUser
	ctx, cancel := handlerContext()
	defer cancel()

	userID := userIDOf(user)
	lang := b.ledger.Language(ctx, userID)
	action := strings.TrimPrefix(query.Data, "menu:")

	switch action {
	case "balance":
		acc, err := b.ledger.Account(ctx, userID)
		if err != nil {
			return b.answerError(tg, query, lang, err)
		}
		_, _ = query.Answer(tg, nil)
		text := b.t(lang, "balance", map[string]string{
			"balance":   acc.Balance.String(),
			"rupees":    b.ledger.RupeeValue(acc.Balance).String(),
			"solved":    strconv.Itoa(acc.SolvedCount),
			"referrals": strconv.Itoa(acc.ReferralCount),
			"channels":  strconv.Itoa(acc.ChannelJoinedCount),
		})
		_, _, err = msg.EditText(tg, text, &gotgbot.EditMessageTextOpts{
			ReplyMarkup: mainMenuKeyboard(),
		})
		return err

	case "earn":
		issued, err := b.ledger.IssueShortlink(ctx, userID, b.targetURL)
		if err != nil {
			return b.answerError(tg, query, lang, err)
		}
		key := "earn_link"
		if issued.Reissued {
			key = "earn_pending"
		}
		_, _ = query.Answer(tg, nil)
		text := b.t(lang, key, map[string]string{
			"link":   issued.URL,
			"reward": issued.Reward.String(),
		})
		if issued.Reissued {
			text += "\n\n" + issued.URL
		}
		_, _, err = msg.EditText(tg, text, &gotgbot.EditMessageTextOpts{
			ReplyMarkup: checkLinkKeyboard(),
			LinkPreviewOptions: &gotgbot.LinkPreviewOptions{
				IsDisabled: true,
			},
		})
		return err

	case "bonus":
		_, _ = query.Answer(tg, nil)
		_, _, err := msg.EditText(tg, b.t(lang, "bonus_intro", nil), &gotgbot.EditMessageTextOpts{
			ReplyMarkup: bonusKeyboard(b.cfg.SponsorChannels),
		})
		return err

	case "withdraw":
		acc, err := b.ledger.Account(ctx, userID)
		if err != nil {
			return b.answerError(tg, query, lang, err)
		}
		if acc.Balance.LessThan(b.ledger.MinWithdrawPoints()) {
			_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
				Text: b.t(lang, "withdraw_min", map[string]string{
					"min":     b.ledger.MinWithdrawPoints().String(),
					"balance": acc.Balance.String(),
				}),
				ShowAlert: true,
			})
			return nil
		}
		_, _ = query.Answer(tg, nil)
		text := b.t(lang, "withdraw_method", map[string]string{
			"balance": acc.Balance.String(),
			"rupees":  b.ledger.RupeeValue(acc.Balance).String(),
		})
		_, _, err = msg.EditText(tg, text, &gotgbot.EditMessageTextOpts{
			ReplyMarkup: withdrawMethodKeyboard(),
		})
		return err

	case "referral":
		_, _ = query.Answer(tg, nil)
		link := fmt.Sprintf("https://t.me/%s?start=%s", b.Username(), userID)
		text := b.t(lang, "referral_link", map[string]string{
			"link":   link,
			"reward": b.ledger.ReferralReward().String(),
		})
		_, _, err := msg.EditText(tg, text, &gotgbot.EditMessageTextOpts{
			ReplyMarkup: mainMenuKeyboard(),
			LinkPreviewOptions: &gotgbot.LinkPreviewOptions{
				IsDisabled: true,
			},
		})
		return err

	case "lang":
		_, _ = query.Answer(tg, nil)
		_, _, err := msg.EditText(tg, b.t(lang, "language_prompt", nil), &gotgbot.EditMessageTextOpts{
			ReplyMarkup: languageKeyboard(),
		})
		return err
	}

	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
		Text:      b.t(lang, "invalid_action", nil),
		ShowAlert: true,
	})
	return nil
}

// earnCheck handles the Check button under an issued shortlink
func (b *Bot) earnCheck(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	msg := ectx.EffectiveMessage
	ctx, cancel := handlerContext()
	defer cancel()

	userID := userIDOf(ectx.EffectiveUser)
	lang := b.ledger.Language(ctx, userID)

	credited, err := b.ledger.CheckShortlink(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNoOutstandingLink) {
			_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
				Text:      b.t(lang, "link_none", nil),
				ShowAlert: true,
			})
			return nil
		}
		return b.answerError(tg, query, lang, err)
	}

	if !credited {
		_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
			Text:      b.t(lang, "link_not_done", nil),
			ShowAlert: true,
		})
		return nil
	}

	_, _ = query.Answer(tg, nil)
	text := b.t(lang, "link_done", map[string]string{
		"reward": b.ledger.ShortlinkReward().String(),
	})
	_, _, err = msg.EditText(tg, text, &gotgbot.EditMessageTextOpts{
		ReplyMarkup: mainMenuKeyboard(),
	})
	return err
}

// claimChannel handles a sponsor-channel claim button
func (b *Bot) claimChannel(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	user := ectx.EffectiveUser
	ctx, cancel := handlerContext()
	defer cancel()

	userID := userIDOf(user)
	lang := b.ledger.Language(ctx, userID)

	channelID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, "claim:"), 10, 64)
	if err != nil {
		_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
			Text:      b.t(lang, "invalid_action", nil),
			ShowAlert: true,
		})
		return nil
	}

	var known bool
	for _, ch := range b.cfg.SponsorChannels {
		if ch.ID == channelID {
			known = true
			break
		}
	}
	if !known {
		_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
			Text:      b.t(lang, "invalid_action", nil),
			ShowAlert: true,
		})
		return nil
	}

	if !b.isMember(user.Id, channelID) {
		_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
			Text:      b.t(lang, "not_member", nil),
			ShowAlert: true,
		})
		return nil
	}

	credited, err := b.ledger.ClaimChannelReward(ctx, userID, strconv.FormatInt(channelID, 10))
	if err != nil {
		return b.answerError(tg, query, lang, err)
	}

	key := "claim_dup"
	params := map[string]string(nil)
	if credited {
		key = "claim_ok"
		params = map[string]string{"reward": b.ledger.ChannelJoinReward().String()}
	}
	_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
		Text:      b.t(lang, key, params),
		ShowAlert: true,
	})
	return nil
}

// withdrawMethod remembers the chosen payout method and asks for details
func (b *Bot) withdrawMethod(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	msg := ectx.EffectiveMessage
	ctx, cancel := handlerContext()
	defer cancel()

	userID := userIDOf(ectx.EffectiveUser)
	lang := b.ledger.Language(ctx, userID)

	method := strings.TrimPrefix(query.Data, "wd_method:")
	if !models.ValidMethod(method) {
		_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
			Text:      b.t(lang, "invalid_action", nil),
			ShowAlert: true,
		})
		return nil
	}

	b.pendingDetails.Store(userID, method)
	_, _ = query.Answer(tg, nil)
	_, _, err := msg.EditText(tg, b.t(lang, "withdraw_details", map[string]string{
		"method": method,
	}), nil)
	return err
}

// textMessage consumes the payout-details message of a pending withdrawal.
// Any other plain text is ignored.
func (b *Bot) textMessage(tg *gotgbot.Bot, ectx *ext.Context) error {
	msg := ectx.EffectiveMessage
	user := ectx.EffectiveUser
	if user == nil || strings.HasPrefix(msg.GetText(), "/") {
		return nil
	}

	userID := userIDOf(user)
	pending, ok := b.pendingDetails.Load(userID)
	if !ok {
		return nil
	}
	method := pending.(string)

	ctx, cancel := handlerContext()
	defer cancel()
	lang := b.ledger.Language(ctx, userID)

	req, err := b.ledger.RequestWithdrawal(ctx, userID, method, msg.GetText())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDetails):
			// Keep waiting, the user can resend corrected details
			_, rerr := msg.Reply(tg, b.t(lang, "invalid_details", nil), nil)
			return rerr
		case errors.Is(err, service.ErrBelowMinimum), errors.Is(err, service.ErrInsufficientBalance):
			b.pendingDetails.Delete(userID)
			acc, aerr := b.ledger.Account(ctx, userID)
			balance := "0"
			if aerr == nil {
				balance = acc.Balance.String()
			}
			_, rerr := msg.Reply(tg, b.t(lang, "withdraw_min", map[string]string{
				"min":     b.ledger.MinWithdrawPoints().String(),
				"balance": balance,
			}), nil)
			return rerr
		}
		b.pendingDetails.Delete(userID)
		return b.replyError(tg, msg, lang, err)
	}

	b.pendingDetails.Delete(userID)
	_, err = msg.Reply(tg, b.t(lang, "withdraw_submitted", map[string]string{
		"points": req.AmountPoints.String(),
		"rupees": req.AmountRupees.String(),
		"method": req.Method,
	}), nil)
	return err
}

// setLanguage handles the language selection buttons
func (b *Bot) setLanguage(tg *gotgbot.Bot, ectx *ext.Context) error {
	query := ectx.CallbackQuery
	msg := ectx.EffectiveMessage
	ctx, cancel := handlerContext()
	defer cancel()

	userID := userIDOf(ectx.EffectiveUser)
	code := strings.TrimPrefix(query.Data, "lang:")

	if err := b.ledger.SetLanguage(ctx, userID, code); err != nil {
		lang := b.ledger.Language(ctx, userID)
		if errors.Is(err, service.ErrUnknownLanguage) {
			_, _ = query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
				Text:      b.t(lang, "invalid_language", nil),
				ShowAlert: true,
			})
			return nil
		}
		return b.answerError(tg, query, lang, err)
	}

	_, _ = query.Answer(tg, nil)
	_, _, err := msg.EditText(tg, b.t(code, "language_set", nil), &gotgbot.EditMessageTextOpts{
		ReplyMarkup: mainMenuKeyboard(),
	})
	return err
}

// notifyReferrer tells a referrer their reward landed. Failures only log;
// the referred user's onboarding is already done.
func (b *Bot) notifyReferrer(ctx context.Context, tg *gotgbot.Bot, referrerID, newUserName string) {
	chatID, err := strconv.ParseInt(referrerID, 10, 64)
	if err != nil {
		return
	}

	lang := b.ledger.Language(ctx, referrerID)
	text := b.t(lang, "referral_bonus", map[string]string{
		"name":   newUserName,
		"reward": b.ledger.ReferralReward().String(),
	})
	if _, err := tg.SendMessage(chatID, text, nil); err != nil {
		b.log.Warn("referral notification failed",
			zap.String("referrer", referrerID),
			zap.Error(err))
	}
}

// replyError maps a service failure to the user-facing text for message
// handlers
func (b *Bot) replyError(tg *gotgbot.Bot, msg *gotgbot.Message, lang string, err error) error {
	b.log.Error("handler failed", zap.Error(err))
	_, rerr := msg.Reply(tg, b.t(lang, "try_again", nil), nil)
	if rerr != nil {
		return rerr
	}
	return nil
}

// answerError is replyError for callback handlers
func (b *Bot) answerError(tg *gotgbot.Bot, query *gotgbot.CallbackQuery, lang string, err error) error {
	b.log.Error("callback handler failed", zap.Error(err))
	_, aerr := query.Answer(tg, &gotgbot.AnswerCallbackQueryOpts{
		Text:      b.t(lang, "try_again", nil),
		ShowAlert: true,
	})
	return aerr
}
