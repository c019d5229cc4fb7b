// Package bot wires the Telegram transport to the ledger service.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/config"
	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/service"
	"github.com/tmatveev/earnbot/internal/earnbot/texts"
)

const handlerTimeout = 15 * time.Second

// Bot handles Telegram updates and turns them into ledger operations
type Bot struct {
	tg         *gotgbot.Bot
	updater    *ext.Updater
	dispatcher *ext.Dispatcher
	ledger     *service.LedgerService
	catalog    *texts.Catalog
	cfg        config.BotConfig
	targetURL  string
	log        *zap.Logger

	// userID -> chosen payout method, while we wait for the details message
	pendingDetails sync.Map
}

// NewBot creates the bot and registers all handlers
func NewBot(cfg config.BotConfig, targetURL string, ledger *service.LedgerService, catalog *texts.Catalog, log *zap.Logger) (*Bot, error) {
	tg, err := gotgbot.NewBot(cfg.Token, &gotgbot.BotOpts{
		BotClient: &gotgbot.BaseBotClient{
			Client: http.Client{},
			DefaultRequestOpts: &gotgbot.RequestOpts{
				Timeout: gotgbot.DefaultTimeout,
				APIURL:  gotgbot.DefaultAPIURL,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	b := &Bot{
		tg:        tg,
		ledger:    ledger,
		catalog:   catalog,
		cfg:       cfg,
		targetURL: targetURL,
		log:       log,
	}

	b.dispatcher = ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(_ *gotgbot.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			log.Error("update handler failed",
				zap.Int64("update", ctx.Update.UpdateId),
				zap.Error(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	b.dispatcher.AddHandler(handlers.NewCommand("start", b.start))
	b.dispatcher.AddHandler(handlers.NewCommand("help", b.help))
	b.dispatcher.AddHandler(handlers.NewCommand("lang", b.languageMenu))

	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("menu:"), b.menuCallback))
	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal("earn_check"), b.earnCheck))
	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("claim:"), b.claimChannel))
	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("wd_method:"), b.withdrawMethod))
	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("lang:"), b.setLanguage))

	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("wd_approve:"), b.adminApprove))
	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("wd_reject:"), b.adminReject))
	b.dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("wd_paid:"), b.adminMarkPaid))

	b.dispatcher.AddHandler(handlers.NewMessage(message.Text, b.textMessage))

	b.updater = ext.NewUpdater(b.dispatcher, nil)
	return b, nil
}

// Start begins long polling. It returns once polling is up; updates are
// handled on the dispatcher's goroutines.
func (b *Bot) Start() error {
	err := b.updater.StartPolling(b.tg, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout:        9,
			AllowedUpdates: []string{"message", "callback_query"},
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: 10 * time.Second,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("starting polling: %w", err)
	}

	b.log.Info("bot started", zap.String("username", b.tg.User.Username))
	return nil
}

// Stop stops polling and waits for in-flight updates
func (b *Bot) Stop() error {
	return b.updater.Stop()
}

// Username returns the bot's username, used for referral links.
func (b *Bot) Username() string {
	return b.tg.User.Username
}

// handlerContext bounds a single update's store and HTTP work
func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func userIDOf(user *gotgbot.User) string {
	return strconv.FormatInt(user.Id, 10)
}

// t resolves and renders one catalog message. A render error means a
// template/params mismatch; the raw template is still delivered so the user
// is never left without a response.
func (b *Bot) t(lang, key string, params map[string]string) string {
	template := b.catalog.Resolve(key, lang)
	out, err := texts.Render(template, params)
	if err != nil {
		b.log.Error("rendering message failed",
			zap.String("key", key),
			zap.String("lang", lang),
			zap.Error(err))
	}
	return out
}

// isMember checks channel membership, treating every failure as "not a
// member" so errors never grant access.
func (b *Bot) isMember(userID int64, channelID int64) bool {
	member, err := b.tg.GetChatMember(channelID, userID, nil)
	if err != nil {
		b.log.Warn("membership check failed",
			zap.Int64("user", userID),
			zap.Int64("channel", channelID),
			zap.Error(err))
		return false
	}

	switch member.MergeChatMember().Status {
	case "creator", "administrator", "member":
		return true
	}
	return false
}

func (b *Bot) isOwner(userID int64) bool {
	for _, id := range b.cfg.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PostWithdrawal sends a new withdrawal request to the admin channel with
// moderation buttons and returns the posted message ID. Implements
// service.AdminPoster.
func (b *Bot) PostWithdrawal(_ context.Context, req models.WithdrawalRequest) (int64, error) {
	text := fmt.Sprintf(
		"💸 <b>Withdrawal request</b>\n\n"+
			"🆔 <code>%s</code>\n"+
			"👤 User: <code>%s</code>\n"+
			"💰 %s points (₹%s)\n"+
			"🏦 Method: %s\n"+
			"📋 Details: <code>%s</code>",
		req.ID, req.UserID, req.AmountPoints.String(), req.AmountRupees.String(),
		req.Method, req.Details)

	msg, err := b.tg.SendMessage(b.cfg.AdminChannelID, text, &gotgbot.SendMessageOpts{
		ParseMode:   "HTML",
		ReplyMarkup: adminModerationKeyboard(req.ID),
	})
	if err != nil {
		return 0, err
	}
	return msg.MessageId, nil
}
