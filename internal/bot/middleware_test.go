package bot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"squares-bot/internal/config"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	replies []string
}

func (c *fakeContext) Chat() *tele.Chat   { return c.chat }
func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Text() string       { return "/test" }

func (c *fakeContext) Reply(what interface{}, opts ...interface{}) error {
	c.replies = append(c.replies, fmt.Sprint(what))
	return nil
}

func group(id int64) *tele.Chat { return &tele.Chat{ID: id, Type: tele.ChatGroup} }
func private(id int64) *tele.Chat { return &tele.Chat{ID: id, Type: tele.ChatPrivate} }

// run passes ctx through mw and reports whether the handler was reached.
func run(mw tele.MiddlewareFunc, ctx tele.Context) bool {
	called := false
	_ = mw(func(tele.Context) error {
		called = true
		return nil
	})(ctx)
	return called
}

func TestWhitelistMiddleware(t *testing.T) {
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	mw := WhitelistMiddleware(cfg)
	alice := &tele.User{ID: 1}

	assert.False(t, run(mw, &fakeContext{chat: group(-200), sender: alice}), "unknown group")
	assert.False(t, run(mw, &fakeContext{chat: private(1), sender: alice}), "private before any group message")
	assert.False(t, run(mw, &fakeContext{chat: group(-100)}), "no sender")

	assert.True(t, run(mw, &fakeContext{chat: group(-100), sender: alice}))
	assert.True(t, run(mw, &fakeContext{chat: private(1), sender: alice}), "private after group message")
	assert.False(t, run(mw, &fakeContext{chat: private(2), sender: &tele.User{ID: 2}}))
}

func TestWhitelistMiddleware_EmptyWhitelistAllowsPrivate(t *testing.T) {
	mw := WhitelistMiddleware(&config.Config{})
	assert.True(t, run(mw, &fakeContext{chat: private(5), sender: &tele.User{ID: 5}}))
}

func TestAdminMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		admins := rapid.SliceOfN(rapid.Int64Range(1, 1000), 1, 10).Draw(t, "admins")
		userID := rapid.Int64Range(1, 1000).Draw(t, "user")

		cfg := &config.Config{Admin: config.AdminConfig{IDs: admins}}
		ctx := &fakeContext{chat: group(-100), sender: &tele.User{ID: userID}}
		called := run(AdminMiddleware(cfg), ctx)

		isAdmin := false
		for _, id := range admins {
			if id == userID {
				isAdmin = true
			}
		}
		if called != isAdmin {
			t.Fatalf("user %d admins %v: handler called=%v", userID, admins, called)
		}
		if !isAdmin && len(ctx.replies) != 1 {
			t.Fatalf("non-admin got %d replies", len(ctx.replies))
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	ctx := &fakeContext{chat: group(-100), sender: &tele.User{ID: 1}}
	handler := RecoveryMiddleware()(func(tele.Context) error {
		panic("boom")
	})

	require.NotPanics(t, func() { _ = handler(ctx) })
	require.Len(t, ctx.replies, 1)
	assert.Contains(t, ctx.replies[0], "Internal error")
}

func TestCallbackData(t *testing.T) {
	assert.Equal(t, "baucua_crab", CallbackData("\fbaucua_crab"))
	assert.Equal(t, "baucua_crab", CallbackData("baucua_crab"))
}
