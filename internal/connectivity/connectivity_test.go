package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMonitorNotifiesTransitions(t *testing.T) {
	m := NewMonitor(true, discardLogger())
	updates, cancel := m.Subscribe()
	defer cancel()

	if m.Set(true) {
		t.Fatalf("expected no change when already online")
	}
	if !m.Set(false) {
		t.Fatalf("expected change to offline")
	}
	if got := <-updates; got {
		t.Fatalf("expected offline notification")
	}
	m.Set(true)
	if got := <-updates; !got {
		t.Fatalf("expected online notification")
	}
	if !m.Online() {
		t.Fatalf("expected online")
	}
}

func TestMonitorProbe(t *testing.T) {
	m := NewMonitor(true, discardLogger())
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("down") })

	if err := m.Probe(context.Background(), ok, down); err == nil {
		t.Fatalf("expected probe error")
	}
	if m.Online() {
		t.Fatalf("expected offline after failed probe")
	}
	if err := m.Probe(context.Background(), ok, nil); err != nil {
		t.Fatalf("expected probe success, got %v", err)
	}
	if !m.Online() {
		t.Fatalf("expected online after successful probe")
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	m := NewMonitor(false, discardLogger())
	updates, cancel := m.Subscribe()
	cancel()
	cancel()
	if _, open := <-updates; open {
		t.Fatalf("expected closed channel")
	}
	m.Set(true)
}
