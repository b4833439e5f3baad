package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"squares-bot/internal/config"
	"squares-bot/internal/game/payout"
	"squares-bot/internal/game/squares"
	"squares-bot/internal/model"
	"squares-bot/internal/paylink"
	"squares-bot/internal/pkg/fairrand"
	"squares-bot/internal/service"
)

var errUsage = errors.New("usage")

// squaresErrors are the pool errors a player can fix themselves.
var squaresErrors = map[error]string{
	squares.ErrPoolLocked:          "The board is locked",
	squares.ErrCellTaken:           "That square is taken",
	squares.ErrNotLocked:           "Lock the board first with /squares_lock",
	squares.ErrPoolComplete:        "All quarters are scored",
	squares.ErrInvalidCell:         "Row and column must be 0-9",
	squares.ErrNotHost:             "Only the host can do that",
	squares.ErrPoolExists:          "A pool is already running here",
	squares.ErrNoActivePool:        "No pool is running, start one with /squares",
	squares.ErrNotOwner:            "That square is not yours",
	squares.ErrSquareLimit:         "You hold the maximum number of squares",
	squares.ErrEmptyPool:           "Nobody has claimed a square yet",
	squares.ErrInvalidScore:        "Scores can't be negative",
	squares.ErrInvalidPrice:        "Price must be positive",
	service.ErrPriceTooHigh:        "That price is above the limit",
	service.ErrInsufficientBalance: "Not enough coins",
	fairrand.ErrEntropyUnavailable: "The digits could not be drawn, try again",
}

// PoolHistory reads the stored results of finished pools.
type PoolHistory interface {
	LastPool(ctx context.Context, chatID int64) ([]*model.SquaresPayout, error)
}

// SquaresHandler runs squares pools.
type SquaresHandler struct {
	cfg            config.SquaresConfig
	handles        paylink.Handles
	accountService *service.AccountService
	squares        *service.SquaresService
	history        PoolHistory
}

// NewSquaresHandler creates a new SquaresHandler.
func NewSquaresHandler(
	cfg config.SquaresConfig,
	pay config.PaylinkConfig,
	accountService *service.AccountService,
	squaresService *service.SquaresService,
	history PoolHistory,
) *SquaresHandler {
	return &SquaresHandler{
		cfg:            cfg,
		handles:        paylink.Handles{Venmo: pay.Venmo, CashApp: pay.CashApp, PayPal: pay.PayPal},
		accountService: accountService,
		squares:        squaresService,
		history:        history,
	}
}

// parseCell reads "<row> <col>".
func parseCell(args []string) (squares.Cell, error) {
	if len(args) != 2 {
		return squares.Cell{}, errUsage
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return squares.Cell{}, errUsage
	}
	col, err := strconv.Atoi(args[1])
	if err != nil {
		return squares.Cell{}, errUsage
	}
	return squares.Cell{Row: row, Col: col}, nil
}

// parseScore reads "<home> <away>". A dash between them is accepted.
func parseScore(args []string) (home, away int, err error) {
	if len(args) == 1 {
		args = strings.SplitN(args[0], "-", 2)
	}
	if len(args) != 2 {
		return 0, 0, errUsage
	}
	home, err = strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, 0, errUsage
	}
	away, err = strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return 0, 0, errUsage
	}
	return home, away, nil
}

func (h *SquaresHandler) replyBoard(c tele.Context, header string, p *squares.Pool) error {
	return c.Reply(BoardMessage(header, p), tele.ModeHTML)
}

// BoardMessage is the HTML reply for header followed by the board. The
// header is plain text.
func BoardMessage(header string, p *squares.Pool) string {
	return html.EscapeString(header) + "\n" + squares.FormatBoard(p)
}

// HandleOpen handles /squares [price].
func (h *SquaresHandler) HandleOpen(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return c.Reply("❌ Squares pools run in groups")
	}

	price := h.cfg.DefaultPrice
	if args := c.Args(); len(args) > 0 {
		v, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Reply("❌ Usage: /squares [price]\nExample: /squares 10")
		}
		price = v
	}

	p, err := h.squares.Open(context.Background(), chat.ID, sender.ID, price)
	if err != nil {
		return replyError(c, err, squaresErrors)
	}

	header := fmt.Sprintf("🏈 %s opened a squares pool, %d coins a square.\nClaim with /claim <row> <col>",
		atName(senderName(sender), sender.ID), p.Price)
	return h.replyBoard(c, header, p)
}

// HandleClaim handles /claim <row> <col>.
func (h *SquaresHandler) HandleClaim(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	cell, err := parseCell(c.Args())
	if err != nil {
		return c.Reply("❌ Usage: /claim <row> <col>\nExample: /claim 3 7")
	}

	ctx := context.Background()
	username := senderName(sender)
	if _, _, err := h.accountService.EnsureUser(ctx, sender.ID, username); err != nil {
		return replyError(c, err, nil)
	}

	p, err := h.squares.Claim(ctx, chat.ID, sender.ID, username, cell)
	if err != nil {
		return replyError(c, err, squaresErrors)
	}
	return c.Reply(fmt.Sprintf("✅ Square %s is yours (-%d). Pot: %d", cell, p.Price, p.Pot()))
}

// HandleRelease handles /release <row> <col>.
func (h *SquaresHandler) HandleRelease(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	cell, err := parseCell(c.Args())
	if err != nil {
		return c.Reply("❌ Usage: /release <row> <col>")
	}

	if err := h.squares.Release(context.Background(), chat.ID, sender.ID, cell); err != nil {
		return replyError(c, err, squaresErrors)
	}
	return c.Reply(fmt.Sprintf("↩️ Square %s released and refunded", cell))
}

// HandleBoard handles /squares_board.
func (h *SquaresHandler) HandleBoard(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	p, err := h.squares.Pools().Get(chat.ID)
	if err != nil {
		return replyError(c, err, squaresErrors)
	}

	header := "🏈 Squares"
	if n := len(p.Rounds()); p.Locked() {
		header = fmt.Sprintf("🏈 Squares, %d of 4 quarters scored", n)
	}
	return h.replyBoard(c, header, p)
}

// HandleLock handles /squares_lock.
func (h *SquaresHandler) HandleLock(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	p, err := h.squares.Lock(context.Background(), chat.ID, sender.ID)
	if err != nil {
		return replyError(c, err, squaresErrors)
	}
	return h.replyBoard(c, "🔒 Board locked, digits drawn. Host records quarters with /score <home> <away>", p)
}

// HandleScore handles /score <home> <away>.
func (h *SquaresHandler) HandleScore(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	home, away, err := parseScore(c.Args())
	if err != nil {
		return c.Reply("❌ Usage: /score <home> <away>\nExample: /score 14 10")
	}

	rs, res, err := h.squares.RecordScore(context.Background(), chat.ID, sender.ID, home, away)
	if rs != nil {
		if rerr := c.Reply(squares.FormatRoundScore(*rs)); rerr != nil {
			log.Debug().Err(rerr).Msg("Failed to send round score")
		}
	}
	if err != nil {
		if rs != nil {
			log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Squares payout failed")
			return c.Reply("❌ Payout failed. Send /score again to retry, the scores are kept")
		}
		return replyError(c, err, squaresErrors)
	}
	if res != nil {
		return c.Reply(squares.FormatResult(res))
	}
	return nil
}

// HandleCancel handles /squares_cancel.
func (h *SquaresHandler) HandleCancel(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	n, err := h.squares.Cancel(context.Background(), chat.ID, sender.ID)
	if err != nil {
		return replyError(c, err, squaresErrors)
	}
	return c.Reply(fmt.Sprintf("🛑 Pool cancelled, %d squares refunded", n))
}

// HandleLast handles /squares_last.
func (h *SquaresHandler) HandleLast(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	rows, err := h.history.LastPool(context.Background(), chat.ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to load squares history")
		return c.Reply("❌ Could not load the last pool, try again later")
	}
	return c.Reply(FormatPoolHistory(rows))
}

// FormatPoolHistory renders the stored rounds of one finished pool.
func FormatPoolHistory(rows []*model.SquaresPayout) string {
	if len(rows) == 0 {
		return "📭 No finished pool in this chat yet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏈 Last pool, %s\n", rows[0].PoolStartedAt.Format("2006-01-02 15:04"))
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, r := range rows {
		round := payout.Round(r.Round)
		switch {
		case r.IsRollover:
			fmt.Fprintf(&b, "%s %d-%d: rolled over\n", round, r.HomeScore, r.AwayScore)
		case r.Unclaimed:
			fmt.Fprintf(&b, "%s %d-%d: no winner, %d refunded\n", round, r.HomeScore, r.AwayScore, r.Coins)
		case r.WinnerID != nil:
			fmt.Fprintf(&b, "%s %d-%d: User%d won %d (%s)\n",
				round, r.HomeScore, r.AwayScore, *r.WinnerID, r.Coins, payout.FormatAmount(r.DisplayAmount))
		default:
			fmt.Fprintf(&b, "%s %d-%d: %d\n", round, r.HomeScore, r.AwayScore, r.Coins)
		}
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}

// HandlePay handles /squares_pay. It lists payment links for settling the
// sender's squares in cash with the organiser.
func (h *SquaresHandler) HandlePay(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	p, err := h.squares.Pools().Get(chat.ID)
	if err != nil {
		return replyError(c, err, squaresErrors)
	}

	msg, err := PayMessage(h.handles, p, sender.ID)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid paylink configuration")
		return c.Reply("❌ Payment handles are misconfigured")
	}
	return c.Reply(msg, tele.NoPreview)
}

// PayMessage lists a link per configured provider for the user's squares.
// Users without squares get the price of one.
func PayMessage(handles paylink.Handles, p *squares.Pool, userID int64) (string, error) {
	n := int64(len(p.SquaresOf(userID)))
	if n == 0 {
		n = 1
	}
	amount := decimal.NewFromInt(p.Price).Mul(decimal.NewFromInt(n))

	links, err := paylink.Build(handles, amount, fmt.Sprintf("Squares x%d", n))
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "No payment handles are configured", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💵 %d square(s), $%s\n", n, amount.StringFixed(2))
	for _, l := range links {
		fmt.Fprintf(&b, "• %s: %s\n", l.Provider, l.URL)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
