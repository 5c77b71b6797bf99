package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

var (
	_ store.Counters   = (*Store)(nil)
	_ store.ChatStream = (*Store)(nil)
)

func openTestStore(t *testing.T) *Store {
	addr := os.Getenv("KITABUDDY_TEST_REDIS")
	if addr == "" {
		t.Skip("KITABUDDY_TEST_REDIS not set")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
		return nil
	}
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func TestCountersIncrement(t *testing.T) {
	s := openTestStore(t)
	if s == nil {
		return
	}
	ctx := context.Background()
	counterID := "test-" + uuid.NewString()
	t.Cleanup(func() { s.client.Del(context.Background(), counterKey(counterID)) })

	for i := 0; i < 3; i++ {
		if err := s.Increment(ctx, counterID, "sos"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	counters, err := s.Counters(ctx, counterID)
	if err != nil || counters["sos"] != 3 {
		t.Fatalf("expected 3, got %v %v", counters, err)
	}
}

func TestChatSubscribe(t *testing.T) {
	s := openTestStore(t)
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sessionID := "test-" + uuid.NewString()
	t.Cleanup(func() { s.client.Del(context.Background(), chatKey(sessionID)) })

	updates, err := s.Subscribe(ctx, sessionID, 2)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if initial := <-updates; len(initial) != 0 {
		t.Fatalf("expected empty initial window")
	}

	for i, text := range []string{"a", "b", "c"} {
		msg := model.ChatMessage{Role: model.ChatRoleUser, Text: text, Timestamp: int64(i + 1)}
		if _, err := s.AppendMessage(ctx, sessionID, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	deadline := time.After(8 * time.Second)
	for {
		select {
		case window := <-updates:
			if len(window) == 2 && window[1].Text == "c" {
				if window[0].Text != "b" {
					t.Fatalf("expected ordered window, got %+v", window)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for chat update")
		}
	}
}
