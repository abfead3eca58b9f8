package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
	"github.com/lueurxax/event-scout/internal/platform/htmlutils"
	"github.com/lueurxax/event-scout/internal/process/pipeline"
)

const (
	descriptionPreviewRunes = 280

	helpText = `<b>Event Scout</b>

/interests - show your interests
/interests AI, robotics - replace your interests
/recommend - upcoming events for your interests
/ingest AI, robotics - search the web for new events now
/status - catalog and provider health`
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	b.logger.Info().Str(LogFieldCommand, msg.Command()).Int64(LogFieldUserID, msg.From.ID).Msg("Handling command")

	switch msg.Command() {
	case CmdStart, CmdHelp:
		b.reply(msg, helpText)
	case CmdInterests:
		b.handleInterests(ctx, msg)
	case CmdRecommend:
		b.handleRecommend(ctx, msg)
	case CmdIngest:
		b.handleIngest(ctx, msg)
	case CmdStatus:
		b.handleStatus(ctx, msg)
	default:
		b.reply(msg, "Unknown command. Try /help")
	}
}

func (b *Bot) handleInterests(ctx context.Context, msg *tgbotapi.Message) {
	username := profileName(msg.From)
	terms := domain.ParseInterests(msg.CommandArguments())

	if len(terms) == 0 {
		profile, err := b.deps.Profiles.GetProfile(ctx, username)
		if errors.Is(err, coreerrors.ErrProfileNotFound) {
			b.reply(msg, "No interests yet. Set them with <code>/interests AI, robotics</code>")
			return
		}

		if err != nil {
			b.replyError(msg, "load profile", err)
			return
		}

		b.reply(msg, formatInterests(profile.Interests))

		return
	}

	if err := b.deps.Profiles.SaveProfile(ctx, domain.Profile{Username: username, Interests: terms}); err != nil {
		b.replyError(msg, "save profile", err)
		return
	}

	b.reply(msg, "Saved. "+formatInterests(terms))
}

func (b *Bot) handleRecommend(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg, "Looking for events, this can take a minute...")

	recs, err := b.deps.Recommender.Recommendations(ctx, profileName(msg.From))
	if err != nil {
		b.replyError(msg, "recommend", err)
		return
	}

	b.reply(msg, formatRecommendations(recs))
}

func (b *Bot) handleIngest(ctx context.Context, msg *tgbotapi.Message) {
	interests := domain.JoinInterests(domain.ParseInterests(msg.CommandArguments()))
	if interests == "" {
		profile, err := b.deps.Profiles.GetProfile(ctx, profileName(msg.From))
		if err != nil || len(profile.Interests) == 0 {
			b.reply(msg, "Usage: <code>/ingest AI, robotics</code>")
			return
		}

		interests = profile.InterestsText()
	}

	b.reply(msg, fmt.Sprintf("Ingesting events for <i>%s</i>...", htmlutils.EscapeText(interests)))

	stats, err := b.deps.Ingester.Ingest(ctx, interests)
	if err != nil {
		b.replyError(msg, "ingest", err)
		return
	}

	b.reply(msg, formatStats(stats))
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	var sb strings.Builder

	sb.WriteString("<b>Status</b>\n")

	if b.deps.Catalog != nil {
		n, err := b.deps.Catalog.CountEvents(ctx)
		if err != nil {
			fmt.Fprintf(&sb, "Catalog: error (%s)\n", htmlutils.EscapeText(err.Error()))
		} else {
			fmt.Fprintf(&sb, "Catalog: %d events\n", n)
		}
	}

	if b.deps.Search != nil {
		fmt.Fprintf(&sb, "Search breaker: <code>%s</code>\n", b.deps.Search.BreakerState())
	}

	if b.deps.Encoder != nil {
		state := "ok"
		if !b.deps.Encoder.Healthy() {
			state = "circuit open"
		}

		fmt.Fprintf(&sb, "Embeddings: %s\n", state)
	}

	if b.deps.LLM != nil {
		sb.WriteString("LLM providers:\n")

		for _, s := range b.deps.LLM.GetProviderStatuses() {
			state := "ok"
			if !s.Available || !s.CircuitBreakerOK {
				state = "unavailable"
			}

			fmt.Fprintf(&sb, "• %s (priority %d): %s\n", s.Name, s.Priority, state)
		}
	}

	b.reply(msg, sb.String())
}

func (b *Bot) replyError(msg *tgbotapi.Message, action string, err error) {
	b.logger.Error().Err(err).Str(LogFieldCommand, action).Msg("command failed")
	b.reply(msg, fmt.Sprintf("❌ %s failed: %s", action, htmlutils.EscapeText(err.Error())))
}

func formatInterests(terms []string) string {
	return "Your interests: <b>" + htmlutils.EscapeText(domain.JoinInterests(terms)) + "</b>"
}

func formatRecommendations(recs []domain.Recommendation) string {
	if len(recs) == 0 {
		return "No matching events yet. Set interests with /interests or try /ingest."
	}

	var sb strings.Builder

	for i, r := range recs {
		if i > 0 {
			sb.WriteString("\n\n")
		}

		fmt.Fprintf(&sb, "<b>%d. %s</b>\n", i+1, htmlutils.EscapeText(r.Title))
		fmt.Fprintf(&sb, "📅 %s", htmlutils.EscapeText(displayDate(r.Date)))

		if r.Verified {
			sb.WriteString(" ✅")
		}

		if r.Description != "" {
			sb.WriteString("\n" + htmlutils.EscapeText(htmlutils.Truncate(r.Description, descriptionPreviewRunes)))
		}

		if r.Link != "" {
			fmt.Fprintf(&sb, "\n<a href=\"%s\">%s</a>", htmlutils.EscapeText(r.Link), htmlutils.EscapeText(r.Link))
		}

		fmt.Fprintf(&sb, "\n<i>%s</i>", htmlutils.EscapeText(r.Reason))
	}

	return sb.String()
}

// displayDate renders the unknown-date forms readably.
func displayDate(date string) string {
	switch {
	case date == "" || date == "TBD":
		return "date TBD"
	case strings.HasSuffix(date, "-01-00"):
		return strings.TrimSuffix(date, "-01-00") + " (date TBD)"
	case strings.HasSuffix(date, "-00"):
		return strings.TrimSuffix(date, "-00") + " (day TBD)"
	}

	return date
}

func formatStats(s pipeline.Stats) string {
	return fmt.Sprintf(
		"Done. Queries: %d, pages: %d, candidates: %d, verified: %d\nInserted: <b>%d</b>, merged: <b>%d</b>, skipped: %d",
		s.Queries, s.URLs, s.Candidates, s.Verified, s.Inserted, s.Merged, s.Skipped,
	)
}
