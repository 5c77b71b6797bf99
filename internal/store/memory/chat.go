package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"kitabuddy/internal/model"
)

// chatMaxLen bounds each conversation like the redis stream MAXLEN.
const chatMaxLen = 500

func (s *Store) AppendMessage(_ context.Context, sessionID string, msg model.ChatMessage) (model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.now().UnixMilli()
	}
	messages := append(s.chats[sessionID], msg)
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })
	if len(messages) > chatMaxLen {
		messages = append([]model.ChatMessage(nil), messages[len(messages)-chatMaxLen:]...)
	}
	s.chats[sessionID] = messages

	for ch, limit := range s.subscribers[sessionID] {
		publish(ch, window(messages, limit))
	}
	return msg, nil
}

func (s *Store) RecentMessages(_ context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.chats[sessionID], limit), nil
}

func (s *Store) Subscribe(ctx context.Context, sessionID string, limit int) (<-chan []model.ChatMessage, error) {
	ch := make(chan []model.ChatMessage, 1)

	s.mu.Lock()
	subs, ok := s.subscribers[sessionID]
	if !ok {
		subs = map[chan []model.ChatMessage]int{}
		s.subscribers[sessionID] = subs
	}
	subs[ch] = limit
	ch <- window(s.chats[sessionID], limit)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers[sessionID], ch)
		if len(s.subscribers[sessionID]) == 0 {
			delete(s.subscribers, sessionID)
		}
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// publish replaces any undelivered snapshot with the latest one.
func publish(ch chan []model.ChatMessage, messages []model.ChatMessage) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- messages:
	default:
	}
}

func window(messages []model.ChatMessage, limit int) []model.ChatMessage {
	start := 0
	if limit > 0 && len(messages) > limit {
		start = len(messages) - limit
	}
	out := make([]model.ChatMessage, len(messages)-start)
	copy(out, messages[start:])
	return out
}
