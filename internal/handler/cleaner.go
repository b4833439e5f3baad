package handler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// MessageDeleteInterval is how long bot game messages stay in the chat.
const MessageDeleteInterval = 30 * time.Minute

// TrackedMessage is a message to be deleted later.
type TrackedMessage struct {
	ChatID    int64
	MessageID int
	SentAt    time.Time
}

// Deleter removes a message from a chat.
type Deleter interface {
	Delete(msg tele.Editable) error
}

// MessageCleaner deletes the bot's game messages once they are old enough.
type MessageCleaner struct {
	maxAge   time.Duration
	messages []TrackedMessage
	mu       sync.Mutex
}

// NewMessageCleaner creates a cleaner for messages older than maxAge.
func NewMessageCleaner(maxAge time.Duration) *MessageCleaner {
	if maxAge <= 0 {
		maxAge = MessageDeleteInterval
	}
	return &MessageCleaner{maxAge: maxAge}
}

// Track remembers msg for deletion. Nil messages are ignored.
func (m *MessageCleaner) Track(msg *tele.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, TrackedMessage{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		SentAt:    time.Now(),
	})
}

// Pending returns the number of tracked messages.
func (m *MessageCleaner) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clean deletes every message older than maxAge at now and returns how many
// were removed from tracking. Failed deletes are dropped as well.
func (m *MessageCleaner) Clean(d Deleter, now time.Time) int {
	m.mu.Lock()
	var expired []TrackedMessage
	remaining := m.messages[:0]
	for _, msg := range m.messages {
		if now.Sub(msg.SentAt) >= m.maxAge {
			expired = append(expired, msg)
		} else {
			remaining = append(remaining, msg)
		}
	}
	m.messages = remaining
	m.mu.Unlock()

	for _, msg := range expired {
		err := d.Delete(&tele.Message{ID: msg.MessageID, Chat: &tele.Chat{ID: msg.ChatID}})
		if err != nil {
			log.Debug().Err(err).Int("msg_id", msg.MessageID).Msg("Failed to delete old message")
		}
	}
	return len(expired)
}

// Run cleans every interval until ctx is done.
func (m *MessageCleaner) Run(ctx context.Context, d Deleter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Clean(d, now)
		}
	}
}
