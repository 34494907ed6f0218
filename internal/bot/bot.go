// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/config"
	"royal-market-bot/internal/duel"
	"royal-market-bot/internal/handler"
	"royal-market-bot/internal/scheduler"
	"royal-market-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	ledger  *service.LedgerService
	private *PrivateUsers

	// Handlers
	accountHandler  *handler.AccountHandler
	transferHandler *handler.TransferHandler
	adminHandler    *handler.AdminHandler
	rankingHandler  *handler.RankingHandler
	gameHandler     *handler.GameHandler
	shopHandler     *handler.ShopHandler
	duelHandler     *handler.DuelHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	LedgerService  *service.LedgerService
	WorkService    *service.WorkService
	ShopService    *service.ShopService
	GameService    *service.GameService
	RankingService *service.RankingService
	DuelManager    *duel.Manager
	Scheduler      *scheduler.Scheduler
}

// New creates a new Bot instance with the given dependencies. It also
// points duel, prison, and tax announcements at the bot.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram update failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		ledger:  deps.LedgerService,
		private: NewPrivateUsers(),
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.LedgerService, deps.WorkService, deps.RankingService)
	b.transferHandler = handler.NewTransferHandler(deps.LedgerService)
	b.adminHandler = handler.NewAdminHandler(deps.LedgerService, deps.Scheduler)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.gameHandler = handler.NewGameHandler(deps.GameService, deps.Config.Games.DefaultWager)
	b.shopHandler = handler.NewShopHandler(deps.ShopService, deps.LedgerService)
	b.duelHandler = handler.NewDuelHandler(deps.DuelManager, teleBot)

	herald := NewHerald(teleBot, deps.Config.Economy.AnnounceChat)
	deps.LedgerService.SetNotifier(herald)
	deps.Scheduler.SetAnnouncer(herald)
	deps.DuelManager.SetListener(b.duelHandler)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.private))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.accountHandler.HandleStart)
	b.bot.Handle("/purse", b.accountHandler.HandlePurse)
	b.bot.Handle("/me", b.accountHandler.HandleProfile)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/journal", b.accountHandler.HandleJournal)

	// Payments
	b.bot.Handle("/pay", b.transferHandler.HandlePay)
	b.bot.Handle("/paydebt", b.transferHandler.HandlePayDebt)

	// Admin handlers
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/take", b.adminHandler.HandleTake)
	adminGroup.Handle("/grant", b.adminHandler.HandleGrant)
	adminGroup.Handle("/setdebt", b.adminHandler.HandleSetDebt)
	adminGroup.Handle("/runjobs", b.adminHandler.HandleRunJobs)

	// Leaderboards
	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/debtors", b.rankingHandler.HandleDebtors)
	b.bot.Handle("/duelists", b.rankingHandler.HandleDuelists)
	b.bot.Handle("/daily_top", b.rankingHandler.HandleDailyTop)

	// Prisoners may not labour, gamble, or duel
	gated := b.bot.Group()
	gated.Use(PrisonMiddleware(b.ledger))
	gated.Handle("/labour", b.accountHandler.HandleLabour)
	gated.Handle("/work", b.accountHandler.HandleLabour)
	gated.Handle("/gamble", b.gameHandler.HandleGamble)
	gated.Handle("/slots", b.gameHandler.HandleSlots)
	gated.Handle("/coinflip", b.gameHandler.HandleCoinflip)
	gated.Handle("/duel", b.duelHandler.HandleDuel)
	b.bot.Handle("/games", b.gameHandler.HandleGames)

	// Market and sack
	b.bot.Handle("/market", b.shopHandler.HandleMarket)
	b.bot.Handle("/titles", b.shopHandler.HandleTitles)
	b.bot.Handle("/buy", b.shopHandler.HandleBuy)
	b.bot.Handle("/sack", b.shopHandler.HandleSack)
	b.bot.Handle("/use", b.shopHandler.HandleUse)
	b.bot.Handle("/equip", b.shopHandler.HandleEquip)
	b.bot.Handle("/unequip", b.shopHandler.HandleUnequip)

	// Generic callback handler for market and duel buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleStart opens the market in private chat and greets in groups.
func (b *Bot) handleStart(c tele.Context) error {
	chat := c.Chat()
	if chat != nil && chat.Type == tele.ChatPrivate {
		return b.shopHandler.HandleMarket(c)
	}
	return b.accountHandler.HandleStart(c)
}

// handleCallback routes callbacks to appropriate handlers.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	switch {
	case strings.HasPrefix(data, "shop_"):
		return b.shopHandler.HandleShopCallback(c)
	case strings.HasPrefix(data, "duel_"):
		return b.duelHandler.HandleDuelCallback(c)
	default:
		log.Debug().Str("data", data).Msg("Unrouted callback")
		return c.Respond()
	}
}

// Start polls for updates until Stop is called. Old game results are
// cleaned up until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	log.Info().Msg("Starting bot...")

	b.gameHandler.StartMessageCleaner(ctx, b.bot)
	log.Info().Dur("interval", handler.MessageDeleteInterval).Msg("Message cleaner started")

	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
