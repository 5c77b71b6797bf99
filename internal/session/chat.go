package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"kitabuddy/internal/companion"
	"kitabuddy/internal/gate"
	"kitabuddy/internal/model"
)

const (
	MsgEmptyChatMessage = "Sila tulis mesej dahulu."
	MsgChatOffline      = "Perlu internet untuk berbual dengan Budi."
	MsgChatFailed       = "Mesej tidak dapat dihantar. Sila cuba lagi."
	MsgEmptyInput       = "Sila isi maklumat yang diperlukan."
)

// chatKey returns the conversation key, the student id of the logged in user.
func (c *Controller) chatKey() (string, error) {
	user, err := c.activeUser()
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ChatHistory returns the recent conversation. An empty conversation is
// opened with the companion's welcome message.
func (c *Controller) ChatHistory(ctx context.Context) ([]model.ChatMessage, error) {
	key, err := c.chatKey()
	if err != nil {
		return nil, err
	}
	limit := c.deps.Options.ChatHistoryLimit
	messages, err := c.deps.Chat.RecentMessages(ctx, key, limit)
	if err != nil {
		c.logger.Warn("chat history load failed", "err", err)
		return nil, gate.Backend(gate.ErrBackend, MsgLoadFailed, err)
	}
	if len(messages) > 0 {
		return messages, nil
	}

	c.mu.Lock()
	first := !c.welcomed
	c.welcomed = true
	c.mu.Unlock()
	if !first {
		return messages, nil
	}
	welcome, err := c.deps.Chat.AppendMessage(ctx, key, newChatMessage(model.ChatRoleModel, companion.WelcomeMessage))
	if err != nil {
		c.logger.Warn("chat welcome append failed", "err", err)
		return messages, nil
	}
	return []model.ChatMessage{welcome}, nil
}

// SendChat appends the user's message, asks the companion with the prior
// history and appends its reply. Companion failures become a friendly reply.
func (c *Controller) SendChat(ctx context.Context, text string, lang model.Language) (model.ChatMessage, error) {
	key, err := c.chatKey()
	if err != nil {
		return model.ChatMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, gate.Validation(gate.ErrInvalidRequest, MsgEmptyChatMessage)
	}
	if !c.online() {
		return model.ChatMessage{}, gate.Offline(MsgChatOffline)
	}

	history, err := c.deps.Chat.RecentMessages(ctx, key, c.deps.Options.ChatHistoryLimit)
	if err != nil {
		c.logger.Warn("chat history load failed", "err", err)
		history = nil
	}
	if _, err := c.deps.Chat.AppendMessage(ctx, key, newChatMessage(model.ChatRoleUser, text)); err != nil {
		c.logger.Error("chat append failed", "err", err)
		return model.ChatMessage{}, gate.Backend(gate.ErrBackend, MsgChatFailed, err)
	}

	result := c.deps.Companion.Chat(ctx, history, text, lang)
	reply, err := c.deps.Chat.AppendMessage(ctx, key, newChatMessage(model.ChatRoleModel, result.Value))
	if err != nil {
		c.logger.Error("chat reply append failed", "err", err)
		return model.ChatMessage{}, gate.Backend(gate.ErrBackend, MsgChatFailed, err)
	}
	return reply, nil
}

// SubscribeChat streams the recent window on every change until ctx ends.
func (c *Controller) SubscribeChat(ctx context.Context) (<-chan []model.ChatMessage, error) {
	key, err := c.chatKey()
	if err != nil {
		return nil, err
	}
	if _, err := c.ChatHistory(ctx); err != nil {
		return nil, err
	}
	ch, err := c.deps.Chat.Subscribe(ctx, key, c.deps.Options.ChatHistoryLimit)
	if err != nil {
		c.logger.Warn("chat subscribe failed", "err", err)
		return nil, gate.Backend(gate.ErrBackend, MsgLoadFailed, err)
	}
	return ch, nil
}

func newChatMessage(role model.ChatRole, text string) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (c *Controller) requireUser() error {
	_, err := c.activeUser()
	return err
}

func (c *Controller) Story(ctx context.Context, topic string, lang model.Language) (companion.Result[model.Story], error) {
	if err := c.requireUser(); err != nil {
		return companion.Result[model.Story]{}, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return companion.Result[model.Story]{}, gate.Validation(gate.ErrInvalidRequest, MsgEmptyInput)
	}
	return c.deps.Companion.GenerateStory(ctx, topic, lang), nil
}

func (c *Controller) Illustration(ctx context.Context, prompt string, lang model.Language) (companion.Result[string], error) {
	if err := c.requireUser(); err != nil {
		return companion.Result[string]{}, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return companion.Result[string]{}, gate.Validation(gate.ErrInvalidRequest, MsgEmptyInput)
	}
	return c.deps.Companion.GenerateIllustration(ctx, prompt, lang), nil
}

func (c *Controller) Speech(ctx context.Context, text string, lang model.Language) (companion.Result[string], error) {
	if err := c.requireUser(); err != nil {
		return companion.Result[string]{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return companion.Result[string]{}, gate.Validation(gate.ErrInvalidRequest, MsgEmptyInput)
	}
	return c.deps.Companion.GenerateSpeech(ctx, text, lang), nil
}

func (c *Controller) AnalyzeImage(ctx context.Context, data []byte, mimeType string, lang model.Language) (companion.Result[string], error) {
	if err := c.requireUser(); err != nil {
		return companion.Result[string]{}, err
	}
	if len(data) == 0 || !strings.HasPrefix(mimeType, "image/") {
		return companion.Result[string]{}, gate.Validation(gate.ErrInvalidRequest, MsgEmptyInput)
	}
	return c.deps.Companion.AnalyzeImage(ctx, data, mimeType, lang), nil
}
