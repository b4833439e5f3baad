package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"squares-bot/internal/game/squares"
	"squares-bot/internal/model"
	"squares-bot/internal/pkg/lock"
	"squares-bot/internal/service"
)

var errAdminUsage = errors.New("❌ Usage: <user_id> <amount>\nExample: /admin_add 123456789 100")

// AdminHandler handles admin-only commands. Access is checked by
// AdminMiddleware.
type AdminHandler struct {
	accountService *service.AccountService
	squares        *service.SquaresService
	userLock       *lock.UserLock
	owed           *service.CreditQueue
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	accountService *service.AccountService,
	squaresService *service.SquaresService,
	userLock *lock.UserLock,
	owed *service.CreditQueue,
) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
		squares:        squaresService,
		userLock:       userLock,
		owed:           owed,
	}
}

// parseAdminArgs reads "<user_id> <amount>".
func parseAdminArgs(args []string) (targetID, amount int64, err error) {
	if len(args) < 2 {
		return 0, 0, errAdminUsage
	}
	targetID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, errors.New("❌ User ID must be a number")
	}
	amount, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		return 0, 0, errors.New("❌ Amount must be a positive whole number")
	}
	return targetID, amount, nil
}

func logAdmin(op string, adminID, targetID, amount int64) {
	log.Info().
		Int64("admin_id", adminID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", op).
		Msg("Admin operation executed")
}

// HandleAdminAdd handles /admin_add <user_id> <amount>.
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	targetID, amount, err := parseAdminArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	desc := fmt.Sprintf("Added by admin %d", sender.ID)
	var user *model.User
	err = h.userLock.WithLock(targetID, func() error {
		var err error
		user, err = h.accountService.UpdateBalance(context.Background(), targetID, amount, model.TxTypeAdminAdd, &desc)
		return err
	})
	if err != nil {
		return c.Reply("❌ Failed, the user may not exist")
	}

	logAdmin("admin_add", sender.ID, targetID, amount)
	return c.Reply(fmt.Sprintf("✅ Done\n\n👤 %s (ID: %d)\n➕ %d coins\n💰 Balance: %d",
		atName(user.Username, targetID), targetID, amount, user.Balance))
}

// HandleAdminSub handles /admin_sub <user_id> <amount>. The balance never
// goes below zero.
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	targetID, amount, err := parseAdminArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	desc := fmt.Sprintf("Removed by admin %d", sender.ID)
	var user *model.User
	err = h.userLock.WithLock(targetID, func() error {
		var err error
		user, err = h.accountService.Debit(context.Background(), targetID, amount, model.TxTypeAdminSub, desc)
		return err
	})
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		return c.Reply("❌ The user does not have that many coins")
	case err != nil:
		return c.Reply("❌ Failed, the user may not exist")
	}

	logAdmin("admin_sub", sender.ID, targetID, amount)
	return c.Reply(fmt.Sprintf("✅ Done\n\n👤 %s (ID: %d)\n➖ %d coins\n💰 Balance: %d",
		atName(user.Username, targetID), targetID, amount, user.Balance))
}

// HandleAdminCancel handles /admin_cancel. It cancels the open squares pool
// in the chat whoever hosts it and refunds every square.
func (h *AdminHandler) HandleAdminCancel(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	n, err := h.squares.ForceCancel(context.Background(), chat.ID)
	if err != nil {
		return replyError(c, err, map[error]string{
			squares.ErrNoActivePool: "No pool is running here",
			squares.ErrPoolLocked:   "The board is locked, finish scoring it",
		})
	}

	logAdmin("admin_cancel", sender.ID, chat.ID, int64(n))
	return c.Reply(fmt.Sprintf("🛑 Pool cancelled by an admin, %d squares refunded", n))
}

// HandleAdminReplay handles /admin_replay. It pays winnings that failed to
// credit when their round was settled.
func (h *AdminHandler) HandleAdminReplay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	pending := h.owed.Pending()
	if len(pending) == 0 {
		return c.Reply("✅ Nothing is owed")
	}
	var coins int64
	for _, cr := range pending {
		coins += cr.Amount
	}

	n, err := h.owed.Flush(context.Background(), h.accountService, nil)
	if err != nil {
		return c.Reply(fmt.Sprintf("❌ Could not pay %d queued credits (%d coins), they are kept", len(pending), coins))
	}

	logAdmin("admin_replay", sender.ID, 0, coins)
	return c.Reply(fmt.Sprintf("✅ Paid %d queued credits, about %d coins", n, coins))
}
