package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kitabuddy/internal/model"
)

const (
	keyPrefix      = "kitabuddy:"
	streamMaxLen   = 500
	readBlock      = 5 * time.Second
	retryBackoff   = time.Second
	firstStreamID  = "0-0"
	fieldID        = "id"
	fieldRole      = "role"
	fieldText      = "text"
	fieldTimestamp = "timestamp"
)

// Store keeps analytics counters in hashes and chat history in streams.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func counterKey(counterID string) string {
	return keyPrefix + "counters:" + counterID
}

func chatKey(sessionID string) string {
	return keyPrefix + "chat:" + sessionID
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Increment(ctx context.Context, counterID, key string) error {
	if err := s.client.HIncrBy(ctx, counterKey(counterID), key, 1).Err(); err != nil {
		return fmt.Errorf("increment %s/%s: %w", counterID, key, err)
	}
	return nil
}

func (s *Store) Counters(ctx context.Context, counterID string) (map[string]int64, error) {
	values, err := s.client.HGetAll(ctx, counterKey(counterID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read counters %s: %w", counterID, err)
	}
	counters := make(map[string]int64, len(values))
	for key, raw := range values {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		counters[key] = value
	}
	return counters, nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg model.ChatMessage) (model.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: chatKey(sessionID),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			fieldID:        msg.ID,
			fieldRole:      string(msg.Role),
			fieldText:      msg.Text,
			fieldTimestamp: msg.Timestamp,
		},
	}).Err()
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	return msg, nil
}

func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	messages, _, err := s.recent(ctx, sessionID, limit)
	return messages, err
}

// recent returns the window in timestamp order plus the newest stream id.
func (s *Store) recent(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, string, error) {
	if limit <= 0 {
		limit = streamMaxLen
	}
	entries, err := s.client.XRevRangeN(ctx, chatKey(sessionID), "+", "-", int64(limit)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("read chat messages: %w", err)
	}
	lastID := firstStreamID
	if len(entries) > 0 {
		lastID = entries[0].ID
	}
	messages := make([]model.ChatMessage, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		messages = append(messages, decodeMessage(entries[i]))
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })
	return messages, lastID, nil
}

// Subscribe blocks on XREAD from the newest id it has seen and republishes
// the window after every new entry.
func (s *Store) Subscribe(ctx context.Context, sessionID string, limit int) (<-chan []model.ChatMessage, error) {
	initial, lastID, err := s.recent(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	out := make(chan []model.ChatMessage, 1)
	out <- initial

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			streams, err := s.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{chatKey(sessionID), lastID},
				Block:   readBlock,
			}).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryBackoff):
				}
				continue
			}
			for _, stream := range streams {
				if n := len(stream.Messages); n > 0 {
					lastID = stream.Messages[n-1].ID
				}
			}
			window, _, err := s.recent(ctx, sessionID, limit)
			if err != nil {
				continue
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- window:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func decodeMessage(entry redis.XMessage) model.ChatMessage {
	msg := model.ChatMessage{
		ID:   stringValue(entry.Values[fieldID]),
		Role: model.ChatRole(stringValue(entry.Values[fieldRole])),
		Text: stringValue(entry.Values[fieldText]),
	}
	if msg.ID == "" {
		msg.ID = entry.ID
	}
	msg.Timestamp, _ = strconv.ParseInt(stringValue(entry.Values[fieldTimestamp]), 10, 64)
	return msg
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
