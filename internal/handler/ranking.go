package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"squares-bot/internal/model"
	"squares-bot/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// HandleDailyTop handles the /daily_top command.
// It shows today's biggest winners and losers across all games.
func (h *RankingHandler) HandleDailyTop(c tele.Context) error {
	ctx := context.Background()

	winners, err := h.rankingService.GetDailyWinners(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, try again later")
	}
	losers, err := h.rankingService.GetDailyLosers(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, try again later")
	}

	return c.Reply(FormatDailyTop(winners, losers))
}

// FormatDailyTop renders the winners and losers boards.
func FormatDailyTop(winners, losers []*model.DailyRank) string {
	var b strings.Builder
	b.WriteString("📊 Today's games\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")

	b.WriteString("🏆 Winners TOP 10\n")
	if len(winners) == 0 {
		b.WriteString("No data yet\n")
	}
	for i, w := range winners {
		fmt.Fprintf(&b, "%s %s: +%d\n", rankMark(i, true), atName(w.Username, w.UserID), w.NetProfit)
	}

	b.WriteString("\n━━━━━━━━━━━━━━━\n")

	b.WriteString("😢 Losers TOP 10\n")
	if len(losers) == 0 {
		b.WriteString("No data yet\n")
	}
	for i, l := range losers {
		fmt.Fprintf(&b, "%s %s: %d\n", rankMark(i, false), atName(l.Username, l.UserID), l.NetProfit)
	}

	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}
