package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

var _ store.Backend = (*Store)(nil)
var _ store.ChatStream = (*Store)(nil)

func TestUpsertFeatureMerges(t *testing.T) {
	ctx := context.Background()
	s := New()
	status := model.StatusComingSoon
	message := "Soon!"
	if err := s.UpsertFeature(ctx, "5", model.FeaturePatch{Status: &status, Message: &message}); err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	title := "Permainan Baru"
	if err := s.UpsertFeature(ctx, "5", model.FeaturePatch{Title: &title}); err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	features, _ := s.Features(ctx)
	got := features["5"]
	if got.Title != title || got.Status != status || got.Message != message {
		t.Fatalf("expected merged setting, got %+v", got)
	}
}

func TestUsersAndReports(t *testing.T) {
	ctx := context.Background()
	s := New()
	user, err := s.AddUser(ctx, model.User{StudentID: "S1", Name: "Ali", Role: "student"})
	if err != nil || user.DocID == "" {
		t.Fatalf("add user: %v", err)
	}
	if _, err := s.AddUser(ctx, model.User{StudentID: "S1"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.UserByStudentID(ctx, "S2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.UpdateUserRole(ctx, user.DocID, "admin"); err != nil {
		t.Fatalf("update role: %v", err)
	}
	found, _ := s.UserByStudentID(ctx, "S1")
	if found.Role != "admin" {
		t.Fatalf("expected role updated, got %s", found.Role)
	}
	if err := s.DeleteUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.AddReport(ctx, model.Report{Student: "A", Status: model.ReportNew, CreatedAt: older}); err != nil {
		t.Fatalf("add report: %v", err)
	}
	newer, _ := s.AddReport(ctx, model.Report{Student: "B", Status: model.ReportNew, CreatedAt: older.Add(time.Hour)})
	reports, _ := s.ListReports(ctx)
	if len(reports) != 2 || reports[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", reports)
	}
	if err := s.UpdateReportStatus(ctx, newer.ID, model.ReportResolved); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := s.DeleteReport(ctx, newer.ID); err != nil {
		t.Fatalf("delete report: %v", err)
	}
}

func TestCountersIncrement(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 3; i++ {
		_ = s.Increment(ctx, model.FeatureUsageCounter, "sos")
	}
	counters, _ := s.Counters(ctx, model.FeatureUsageCounter)
	if counters["sos"] != 3 {
		t.Fatalf("expected 3, got %d", counters["sos"])
	}
}

func TestChatWindowAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()

	updates, err := s.Subscribe(ctx, "session-1", 2)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if initial := <-updates; len(initial) != 0 {
		t.Fatalf("expected empty initial window, got %d", len(initial))
	}

	for i, text := range []string{"a", "b", "c"} {
		if _, err := s.AppendMessage(ctx, "session-1", model.ChatMessage{Role: model.ChatRoleUser, Text: text, Timestamp: int64(i + 1)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	latest := <-updates
	if len(latest) != 2 || latest[0].Text != "b" || latest[1].Text != "c" {
		t.Fatalf("expected last two messages, got %+v", latest)
	}

	recent, _ := s.RecentMessages(ctx, "session-1", 50)
	if len(recent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(recent))
	}

	cancel()
	for range updates {
	}
}

func TestChatHistoryCapped(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < chatMaxLen+20; i++ {
		msg := model.ChatMessage{Role: model.ChatRoleUser, Text: "m", Timestamp: int64(i + 1)}
		if _, err := s.AppendMessage(ctx, "session-1", msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	all, _ := s.RecentMessages(ctx, "session-1", chatMaxLen*2)
	if len(all) != chatMaxLen {
		t.Fatalf("expected %d messages kept, got %d", chatMaxLen, len(all))
	}
	if all[0].Timestamp != 21 || all[len(all)-1].Timestamp != int64(chatMaxLen+20) {
		t.Fatalf("expected oldest messages dropped, got first=%d last=%d", all[0].Timestamp, all[len(all)-1].Timestamp)
	}
}
