package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"squares-bot/internal/config"
	"squares-bot/internal/game/baucua"
	"squares-bot/internal/model"
	"squares-bot/internal/pkg/fairrand"
	"squares-bot/internal/pkg/lock"
	"squares-bot/internal/service"
)

// BauCuaHandler runs Bầu Cua rounds in group chats.
type BauCuaHandler struct {
	cfg            config.BauCuaConfig
	accountService *service.AccountService
	game           *baucua.Game
	userLock       *lock.UserLock
	cleaner        *MessageCleaner
	owed           *service.CreditQueue
}

// betLockTimeout bounds how long a tap waits behind the same user's
// previous balance change.
const betLockTimeout = 5 * time.Second

// NewBauCuaHandler creates a new BauCuaHandler.
func NewBauCuaHandler(
	cfg config.BauCuaConfig,
	accountService *service.AccountService,
	game *baucua.Game,
	userLock *lock.UserLock,
	cleaner *MessageCleaner,
	owed *service.CreditQueue,
) *BauCuaHandler {
	return &BauCuaHandler{
		cfg:            cfg,
		accountService: accountService,
		game:           game,
		userLock:       userLock,
		cleaner:        cleaner,
		owed:           owed,
	}
}

func (h *BauCuaHandler) betAmount() int64 {
	if h.cfg.FixedBetAmount > 0 {
		return h.cfg.FixedBetAmount
	}
	return baucua.DefaultBetAmount
}

// HandleStart handles the /baucua command.
func (h *BauCuaHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	if chat == nil || c.Sender() == nil {
		return nil
	}

	if chat.Type == tele.ChatPrivate {
		return c.Reply("❌ Bầu Cua is played in groups")
	}

	if h.game.IsSessionActive(chat.ID) {
		return c.Reply(fmt.Sprintf("❌ A round is already running, %ds left", h.game.GetSessionTimeRemaining(chat.ID)))
	}

	duration := h.cfg.BettingDurationSeconds
	if err := h.game.StartSession(ctx, chat.ID, duration); err != nil {
		if errors.Is(err, baucua.ErrSessionExists) {
			return c.Reply("❌ A round is already running")
		}
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to start Bầu Cua session")
		return c.Reply("❌ Could not start the round, try again later")
	}

	msg := baucua.FormatPanelMessage(duration, 0, 0, h.betAmount())
	panel, err := c.Bot().Send(chat, msg, baucua.BuildBoard())
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to send Bầu Cua panel")
	} else {
		h.cleaner.Track(panel)
	}

	go h.scheduleSettle(chat.ID, duration, c.Bot())
	return nil
}

// scheduleSettle settles the round when the betting window closes.
func (h *BauCuaHandler) scheduleSettle(chatID int64, durationSecs int, bot *tele.Bot) {
	if durationSecs <= 0 {
		durationSecs = baucua.DefaultBettingDuration
	}
	time.Sleep(time.Duration(durationSecs) * time.Second)

	if !h.game.IsSessionActive(chatID) {
		return
	}
	if err := h.settle(context.Background(), chatID, bot); errors.Is(err, fairrand.ErrEntropyUnavailable) {
		_, _ = bot.Send(&tele.Chat{ID: chatID}, "❌ The dice could not be thrown. Bets are kept, use /baucua_settle to retry")
	}
}

// HandleSettle handles the /baucua_settle command.
func (h *BauCuaHandler) HandleSettle(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	if !h.game.IsSessionActive(chat.ID) {
		return c.Reply("❌ No round is running")
	}

	err := h.settle(context.Background(), chat.ID, c.Bot())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, baucua.ErrNoActiveSession):
		return c.Reply("❌ No round is running")
	case errors.Is(err, fairrand.ErrEntropyUnavailable):
		return c.Reply("❌ The dice could not be thrown. Bets are kept, try again")
	default:
		return c.Reply("❌ Settlement failed, try again later")
	}
}

// settle throws the dice, credits every winner in one transaction and posts
// the result. Credits that cannot be paid are queued and paid with the next
// round or by /admin_replay.
func (h *BauCuaHandler) settle(ctx context.Context, chatID int64, bot *tele.Bot) error {
	st, err := h.game.Settle(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to settle Bầu Cua round")
		return err
	}

	roll := baucua.FormatRoll(st.Symbols)
	credits := make([]service.Credit, 0, len(st.Players))
	for userID, pr := range st.Players {
		if user, err := h.accountService.GetUser(ctx, userID); err == nil {
			pr.Username = user.Username
		}
		if pr.Credit > 0 {
			credits = append(credits, service.Credit{
				UserID:      userID,
				Amount:      pr.Credit,
				Type:        model.TxTypeBauCuaWin,
				Description: "Bầu Cua " + roll,
			})
		}
	}

	replayed, err := h.owed.Flush(ctx, h.accountService, credits)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Interface("credits", credits).Msg("Failed to credit Bầu Cua winners")
		if bot != nil {
			_, _ = bot.Send(&tele.Chat{ID: chatID}, "❌ Winnings could not be paid yet, they are kept and paid with the next round")
		}
		return err
	}
	if replayed > 0 {
		log.Info().Int64("chat_id", chatID).Int("replayed", replayed).Msg("Paid earlier Bầu Cua winnings")
	}

	if bot != nil {
		msg, err := bot.Send(&tele.Chat{ID: chatID}, baucua.FormatSettlementMessage(st))
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send Bầu Cua result")
		} else {
			h.cleaner.Track(msg)
		}
	}

	log.Info().
		Int64("chat_id", chatID).
		Ints("roll", st.Roll[:]).
		Int("players", len(st.Players)).
		Msg("Bầu Cua round settled")
	return nil
}

// HandleCallback handles taps on the betting board.
func (h *BauCuaHandler) HandleCallback(c tele.Context) error {
	ctx := context.Background()
	callback := c.Callback()
	sender := c.Sender()
	chat := c.Chat()
	if callback == nil || sender == nil || chat == nil {
		return nil
	}

	if !h.game.IsSessionActive(chat.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ The round is over", ShowAlert: true})
	}

	symbol, err := baucua.DecodeCallback(strings.TrimPrefix(callback.Data, "\f"))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown animal"})
	}

	if _, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender)); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong", ShowAlert: true})
	}

	err = h.userLock.WithLockTimeout(ctx, sender.ID, betLockTimeout, func() error {
		return h.placeBet(ctx, c, chat.ID, sender.ID, symbol)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return c.Respond(&tele.CallbackResponse{Text: "⏳ Your last bet is still being processed", ShowAlert: true})
	}
	return err
}

// placeBet takes the stake and records the bet. The caller holds the user
// lock.
func (h *BauCuaHandler) placeBet(ctx context.Context, c tele.Context, chatID, userID int64, symbol baucua.Symbol) error {
	amount := h.betAmount()
	desc := "Bầu Cua bet " + symbol.String()

	if _, err := h.accountService.Debit(ctx, userID, amount, model.TxTypeBauCuaBet, desc); err != nil {
		if errors.Is(err, service.ErrInsufficientBalance) {
			balance, _ := h.accountService.GetBalance(ctx, userID)
			return c.Respond(&tele.CallbackResponse{
				Text:      fmt.Sprintf("❌ Not enough coins (need %d, have %d)", amount, balance),
				ShowAlert: true,
			})
		}
		return c.Respond(&tele.CallbackResponse{Text: "❌ Could not take the bet", ShowAlert: true})
	}

	if err := h.game.PlaceBet(ctx, chatID, userID, symbol, amount); err != nil {
		refund := service.Credit{UserID: userID, Amount: amount, Type: model.TxTypeBauCuaBet, Description: desc + " refund"}
		if rerr := h.accountService.CreditMany(ctx, []service.Credit{refund}); rerr != nil {
			log.Error().Err(rerr).Int64("user_id", userID).Int64("amount", amount).Msg("Failed to refund rejected bet")
			h.owed.Push(refund)
		}
		if errors.Is(err, baucua.ErrBettingEnded) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ Betting has closed", ShowAlert: true})
		}
		return c.Respond(&tele.CallbackResponse{Text: "❌ Could not place the bet", ShowAlert: true})
	}

	remaining := h.game.GetSessionTimeRemaining(chatID)
	players, total, _ := h.game.GetSessionStats(chatID)
	if callback := c.Callback(); callback != nil && callback.Message != nil {
		msg := baucua.FormatPanelMessage(remaining, players, total, amount)
		if _, err := c.Bot().Edit(callback.Message, msg, baucua.BuildBoard()); err != nil {
			log.Debug().Err(err).Msg("Failed to edit Bầu Cua panel")
		}
	}

	return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("✅ %d on %s", amount, symbol.Label())})
}

// HandleMyBets handles the /mybets command.
func (h *BauCuaHandler) HandleMyBets(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	bets, err := h.game.GetSessionBets(context.Background(), chat.ID)
	if err != nil {
		return c.Reply("❌ No round is running")
	}
	return c.Reply(baucua.FormatMyBets(bets[sender.ID]))
}
