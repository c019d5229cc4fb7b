package bot

import (
	"fmt"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"github.com/tmatveev/earnbot/internal/earnbot/config"
	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/texts"
)

func mainMenuKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{
				{Text: "💰 Balance", CallbackData: "menu:balance"},
				{Text: "🔗 Earn", CallbackData: "menu:earn"},
			},
			{
				{Text: "📣 Bonus", CallbackData: "menu:bonus"},
				{Text: "💸 Withdraw", CallbackData: "menu:withdraw"},
			},
			{
				{Text: "🤝 Refer & Earn", CallbackData: "menu:referral"},
				{Text: "🌐 Language", CallbackData: "menu:lang"},
			},
		},
	}
}

func checkLinkKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{{Text: "✅ Check", CallbackData: "earn_check"}},
		},
	}
}

// bonusKeyboard lays out one join-link row and one claim row per sponsor
// channel
func bonusKeyboard(channels []config.ChannelConfig) gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []gotgbot.InlineKeyboardButton{
			{Text: "📣 " + ch.Title, Url: ch.InviteLink},
			{Text: "🎁 Claim", CallbackData: fmt.Sprintf("claim:%d", ch.ID)},
		})
	}
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func withdrawMethodKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{
				{Text: "📲 UPI", CallbackData: "wd_method:" + models.MethodUPI},
				{Text: "🏦 Bank", CallbackData: "wd_method:" + models.MethodBank},
				{Text: "🎟 Redeem code", CallbackData: "wd_method:" + models.MethodRedeem},
			},
		},
	}
}

func languageKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{
				{Text: "🇬🇧 English", CallbackData: "lang:" + texts.LangEN},
				{Text: "🇮🇳 हिन्दी", CallbackData: "lang:" + texts.LangHI},
			},
		},
	}
}

func adminModerationKeyboard(requestID string) gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{
				{Text: "✅ Approve", CallbackData: "wd_approve:" + requestID},
				{Text: "❌ Reject", CallbackData: "wd_reject:" + requestID},
			},
		},
	}
}

func adminPaidKeyboard(requestID string) gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{{Text: "💸 Mark paid", CallbackData: "wd_paid:" + requestID}},
		},
	}
}
