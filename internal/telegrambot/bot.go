// Package telegrambot exposes profiles, recommendations and ingestion over a
// Telegram chat.
package telegrambot

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/llm"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
)

// Message size constants.
const (
	// MaxMessageSize is the maximum size for a single Telegram message part.
	MaxMessageSize = 4000

	updateTimeoutSeconds = 60
)

// Command names.
const (
	CmdStart     = "start"
	CmdHelp      = "help"
	CmdInterests = "interests"
	CmdRecommend = "recommend"
	CmdIngest    = "ingest"
	CmdStatus    = "status"
)

// Log field names.
const (
	LogFieldUserID   = "user_id"
	LogFieldUsername = "username"
	LogFieldCommand  = "command"
)

// Profiles reads and writes interest profiles.
type Profiles interface {
	GetProfile(ctx context.Context, username string) (domain.Profile, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
}

// Recommender serves recommendations for a username.
type Recommender interface {
	Recommendations(ctx context.Context, username string) ([]domain.Recommendation, error)
}

// Ingester runs one interest-driven ingestion.
type Ingester interface {
	Ingest(ctx context.Context, interests string) (pipeline.Stats, error)
}

// Catalog reports the catalog size.
type Catalog interface {
	CountEvents(ctx context.Context) (int, error)
}

// BreakerReporter reports the search circuit state.
type BreakerReporter interface {
	BreakerState() string
}

// HealthReporter reports whether the embedding encoder admits calls.
type HealthReporter interface {
	Healthy() bool
}

// Sender delivers a message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Deps are the services the bot commands call.
type Deps struct {
	Profiles    Profiles
	Recommender Recommender
	Ingester    Ingester
	Catalog     Catalog
	LLM         llm.Client
	Search      BreakerReporter
	Encoder     HealthReporter
}

type Bot struct {
	deps     Deps
	adminIDs []int64
	api      *tgbotapi.BotAPI
	sender   Sender
	logger   *zerolog.Logger
}

// New connects to the Bot API. When adminIDs is empty every user may talk
// to the bot.
func New(token string, adminIDs []int64, deps Deps, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}

	b := newBot(api, adminIDs, deps, logger)
	b.api = api

	return b, nil
}

func newBot(sender Sender, adminIDs []int64, deps Deps, logger *zerolog.Logger) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str("component", "telegrambot").Logger()

	return &Bot{
		deps:     deps,
		adminIDs: adminIDs,
		sender:   sender,
		logger:   &l,
	}
}

// Run polls updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info().Str(LogFieldUsername, b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot stopped: %w", ctx.Err())
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil {
				continue
			}

			if !b.isAllowed(update.Message.From.ID) {
				b.logger.Warn().
					Int64(LogFieldUserID, update.Message.From.ID).
					Str(LogFieldUsername, update.Message.From.UserName).
					Msg("Unauthorized access attempt")

				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.adminIDs) == 0 || slices.Contains(b.adminIDs, userID)
}

// profileName maps a Telegram user to a profile username.
func profileName(u *tgbotapi.User) string {
	if u == nil {
		return domain.DefaultUsername
	}

	if u.UserName != "" {
		return u.UserName
	}

	return "tg_" + strconv.FormatInt(u.ID, 10)
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range htmlutils.SplitMessage(htmlutils.SanitizeHTML(text), MaxMessageSize) {
		reply := tgbotapi.NewMessage(chatID, part)
		reply.ParseMode = tgbotapi.ModeHTML
		reply.DisableWebPagePreview = true

		if _, err := b.sender.Send(reply); err != nil {
			b.logger.Error().Err(err).Msg("failed to send reply")
		}
	}
}
