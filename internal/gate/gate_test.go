package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"kitabuddy/internal/catalog"
	"kitabuddy/internal/model"
)

func TestShouldBlock(t *testing.T) {
	cases := []struct {
		view     model.View
		mode     bool
		bypassed bool
		expect   bool
	}{
		{model.ViewAdmin, true, false, false},
		{model.ViewMenu, true, false, true},
		{model.ViewMenu, true, true, false},
		{model.ViewLanding, true, false, true},
		{model.ViewMenu, false, false, false},
	}
	for _, tc := range cases {
		if got := ShouldBlock(tc.view, tc.mode, tc.bypassed); got != tc.expect {
			t.Fatalf("ShouldBlock(%s, %v, %v) = %v, expected %v", tc.view, tc.mode, tc.bypassed, got, tc.expect)
		}
	}
}

func TestMaintenanceBypass(t *testing.T) {
	g := NewMaintenanceGate(DefaultCodes().MaintenanceBypass)
	g.OpenDialog()
	if err := g.Bypass("40013"); !IsCode(err, ErrInvalidPin) {
		t.Fatalf("expected invalid_pin without leading zero, got %v", err)
	}
	if g.Bypassed() || !g.DialogOpen() || g.Err() != MsgInvalidBypassPin {
		t.Fatalf("expected blocked state retained")
	}
	if err := g.Bypass("040013"); err != nil {
		t.Fatalf("expected bypass, got %v", err)
	}
	if !g.Bypassed() || g.DialogOpen() || g.Err() != "" {
		t.Fatalf("expected bypassed with dialog closed")
	}
	g.Reset()
	if g.Bypassed() {
		t.Fatalf("expected reset to clear bypass")
	}
}

func TestAdminUnlockWrongTwice(t *testing.T) {
	g := NewAdminUnlockGate(DefaultCodes().AdminUnlock)
	for i := 0; i < 2; i++ {
		err := g.Unlock("0000")
		gateErr, ok := As(err)
		if !ok || gateErr.Kind != KindAuth || gateErr.Message != MsgInvalidAdminPin {
			t.Fatalf("attempt %d: expected auth error, got %v", i, err)
		}
		if g.Unlocked() {
			t.Fatalf("attempt %d: expected locked", i)
		}
	}
	if err := g.Unlock("21412141"); err != nil || !g.Unlocked() || g.Err() != "" {
		t.Fatalf("expected unlock, got %v", err)
	}
	g.Reset()
	if g.Unlocked() {
		t.Fatalf("expected reset to lock")
	}
}

func TestAdminUnlockWrongPinKeepsUnlocked(t *testing.T) {
	g := NewAdminUnlockGate(DefaultCodes().AdminUnlock)
	if err := g.Unlock("21412141"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := g.Unlock("0000"); !IsCode(err, ErrInvalidPin) {
		t.Fatalf("expected invalid pin, got %v", err)
	}
	if !g.Unlocked() || g.Err() != MsgInvalidAdminPin {
		t.Fatalf("expected console still unlocked with error, got unlocked=%v err=%q", g.Unlocked(), g.Err())
	}
}

func TestCodesValidate(t *testing.T) {
	if err := DefaultCodes().Validate(); err != nil {
		t.Fatalf("expected default codes valid, got %v", err)
	}
	if err := (Codes{AdminUnlock: "1", MaintenanceBypass: "1", Publish: "2"}).Validate(); err == nil {
		t.Fatalf("expected duplicate codes to fail")
	}
	if err := (Codes{AdminUnlock: "1", Publish: "2"}).Validate(); err == nil {
		t.Fatalf("expected empty code to fail")
	}
	if Code("").Matches("") {
		t.Fatalf("expected empty code never to match")
	}
}

func TestFeatureGateResolve(t *testing.T) {
	g := NewFeatureGate(catalog.Default(), true)
	settings := model.FeatureSettings{
		"5":    {Status: model.StatusComingSoon, Message: "Soon!"},
		"3":    {Status: model.StatusMaintenance},
		"4":    {Status: model.StatusComingSoon, Title: "Lagu Baru"},
		"sos":  {Status: model.StatusActive},
		"chat": {Status: model.StatusComingSoon},
	}

	out, err := g.Resolve("5", true, settings)
	if err != nil || out.Kind != OutcomeBlocked || out.Modal.Message != "Soon!" || out.Modal.Title != "Permainan" {
		t.Fatalf("unexpected outcome for 5: %+v %v", out, err)
	}
	out, _ = g.Resolve("4", true, settings)
	if out.Modal == nil || out.Modal.Title != "Lagu Baru" || out.Modal.Message != MsgComingSoon {
		t.Fatalf("unexpected coming soon modal: %+v", out.Modal)
	}
	out, _ = g.Resolve("3", true, settings)
	if out.Kind != OutcomeBlocked || out.Modal.Title != TitleMaintenance || out.Modal.Message != MsgMaintenance {
		t.Fatalf("unexpected maintenance outcome: %+v", out)
	}
	out, _ = g.Resolve("sos", true, settings)
	if out.Kind != OutcomeAction || out.Action == nil || out.Action.Kind != catalog.ActionOpenLink {
		t.Fatalf("expected sos action, got %+v", out)
	}
	out, _ = g.Resolve("1", true, settings)
	if out.Kind != OutcomeNavigate || out.FeatureID != "1" {
		t.Fatalf("expected navigate for unset feature, got %+v", out)
	}
	out, _ = g.Resolve("chat", false, settings)
	if out.Kind != OutcomeBlocked || out.Modal.Title != TitleNoConnection {
		t.Fatalf("expected offline block before status, got %+v", out)
	}
	out, _ = g.Resolve("1", false, settings)
	if out.Kind != OutcomeNavigate {
		t.Fatalf("expected offline-capable feature to navigate, got %+v", out)
	}
	if _, err := g.Resolve("missing", true, settings); !IsCode(err, ErrUnknownFeature) {
		t.Fatalf("expected unknown_feature, got %v", err)
	}
}

func TestFeatureGateWithoutConnectivity(t *testing.T) {
	g := NewFeatureGate(catalog.Default(), false)
	settings := model.FeatureSettings{"chat": {Status: model.StatusMaintenance}}
	out, _ := g.Resolve("chat", false, settings)
	if out.Kind != OutcomeBlocked || out.Modal.Title != TitleMaintenance {
		t.Fatalf("expected status gating when connectivity untracked, got %+v", out)
	}
	out, _ = g.Resolve("sos", false, nil)
	if out.Kind != OutcomeAction {
		t.Fatalf("expected action when connectivity untracked, got %+v", out)
	}
}

func TestFeatureGateUnsetNeverBlocks(t *testing.T) {
	c := catalog.Default()
	g := NewFeatureGate(c, true)
	for _, item := range c.Items() {
		out, err := g.Resolve(item.ID, true, model.FeatureSettings{})
		if err != nil {
			t.Fatalf("resolve %s: %v", item.ID, err)
		}
		if out.Kind == OutcomeBlocked {
			t.Fatalf("expected %s not blocked without settings", item.ID)
		}
	}
}

type countingIncrementer struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (c *countingIncrementer) Increment(_ context.Context, counterID, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[counterID+"/"+key]++
	return c.err
}

func TestUsageTrackerSwallowsErrors(t *testing.T) {
	counters := &countingIncrementer{err: errors.New("store down")}
	tracker := NewUsageTracker(counters, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tracker.Record("sos")
	tracker.Wait()
	if counters.calls[model.FeatureUsageCounter+"/sos"] != 1 {
		t.Fatalf("expected one increment, got %v", counters.calls)
	}

	disabled := NewUsageTracker(counters, false, nil)
	disabled.Record("sos")
	disabled.Wait()
	if counters.calls[model.FeatureUsageCounter+"/sos"] != 1 {
		t.Fatalf("expected disabled tracker to skip increment")
	}
}

type recordingWriter struct {
	writes     int
	settings   model.FeatureSettings
	upsertErr  error
	refreshErr error
	refreshes  int
}

func (w *recordingWriter) UpsertFeature(_ context.Context, featureID string, patch model.FeaturePatch) error {
	if w.upsertErr != nil {
		return w.upsertErr
	}
	w.writes++
	if w.settings == nil {
		w.settings = model.FeatureSettings{}
	}
	w.settings[featureID] = w.settings[featureID].Merge(patch)
	return nil
}

func (w *recordingWriter) RefreshFeatures(context.Context) error {
	w.refreshes++
	return w.refreshErr
}

func TestPublishWrongPinThenCorrect(t *testing.T) {
	ctx := context.Background()
	w := &recordingWriter{}
	g := NewPublishGate(DefaultCodes().Publish)

	form, err := g.BeginEdit("1", "Definisi Buli", model.FeatureSetting{})
	if err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if form.Title != "Definisi Buli" || form.Status != model.StatusActive {
		t.Fatalf("unexpected form defaults %+v", form)
	}
	form.Title = "New Title"
	if _, err := g.Submit(form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if g.State() != PublishStaged || w.writes != 0 {
		t.Fatalf("expected staged with no writes")
	}

	if err := g.Verify(ctx, "0000", true, w); !IsCode(err, ErrInvalidPin) {
		t.Fatalf("expected invalid_pin, got %v", err)
	}
	if w.writes != 0 || g.Pending() == nil || g.State() != PublishVerifying || g.Err() != MsgInvalidPublishPin {
		t.Fatalf("expected pending retained in verifying after wrong pin")
	}

	if err := g.Verify(ctx, "090713040013", true, w); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if w.writes != 1 || w.refreshes != 1 || w.settings["1"].Title != "New Title" {
		t.Fatalf("expected exactly one write and refresh, got writes=%d refreshes=%d", w.writes, w.refreshes)
	}
	if g.Pending() != nil || g.State() != PublishIdle {
		t.Fatalf("expected gate cleared after publish")
	}
	if err := g.Verify(ctx, "090713040013", true, w); !IsCode(err, ErrNoPendingUpdate) {
		t.Fatalf("expected no_pending_update on replay, got %v", err)
	}
	if w.writes != 1 {
		t.Fatalf("expected no second write, got %d", w.writes)
	}
}

func TestPublishCancelLeavesStoreUntouched(t *testing.T) {
	w := &recordingWriter{}
	g := NewPublishGate(DefaultCodes().Publish)
	form, _ := g.BeginEdit("5", "Permainan", model.FeatureSetting{})
	if _, err := g.Submit(form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	g.Cancel()
	if g.Pending() != nil || g.State() != PublishIdle {
		t.Fatalf("expected cancel to discard pending")
	}
	if err := g.Verify(context.Background(), "090713040013", true, w); !IsCode(err, ErrNoPendingUpdate) {
		t.Fatalf("expected no_pending_update after cancel, got %v", err)
	}
	if w.writes != 0 {
		t.Fatalf("expected no writes after cancel")
	}
}

func TestPublishFailuresKeepOrClearPending(t *testing.T) {
	ctx := context.Background()
	g := NewPublishGate(DefaultCodes().Publish)
	form, _ := g.BeginEdit("2", "Video Kesedaran", model.FeatureSetting{Status: model.StatusMaintenance, Message: "x"})
	if form.Status != model.StatusMaintenance || form.Message != "x" {
		t.Fatalf("unexpected defaults %+v", form)
	}
	if _, err := g.Submit(form); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := g.Verify(ctx, "090713040013", false, &recordingWriter{}); err == nil {
		t.Fatalf("expected offline error")
	}
	failing := &recordingWriter{upsertErr: errors.New("write failed")}
	err := g.Verify(ctx, "090713040013", true, failing)
	if gateErr, ok := As(err); !ok || gateErr.Kind != KindBackend {
		t.Fatalf("expected backend error, got %v", err)
	}
	if g.Pending() == nil {
		t.Fatalf("expected pending retained after failed write")
	}

	stale := &recordingWriter{refreshErr: errors.New("read failed")}
	if err := g.Verify(ctx, "090713040013", true, stale); !IsCode(err, ErrRefreshFailed) {
		t.Fatalf("expected refresh_failed, got %v", err)
	}
	if stale.writes != 1 || g.Pending() != nil {
		t.Fatalf("expected write applied once and pending cleared")
	}
}

func TestPublishRejectsInvalidTransitions(t *testing.T) {
	g := NewPublishGate(DefaultCodes().Publish)
	if _, err := g.Submit(EditForm{FeatureID: "1", Status: model.StatusActive}); err == nil {
		t.Fatalf("expected submit without edit to fail")
	}
	form, _ := g.BeginEdit("1", "Definisi Buli", model.FeatureSetting{})
	form.Status = "Broken"
	if _, err := g.Submit(form); err == nil {
		t.Fatalf("expected invalid status to fail")
	}
	form.Status = model.StatusActive
	form.FeatureID = "2"
	if _, err := g.Submit(form); err == nil {
		t.Fatalf("expected mismatched feature to fail")
	}
	form.FeatureID = "1"
	if _, err := g.Submit(form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := g.BeginEdit("2", "Video Kesedaran", model.FeatureSetting{}); err == nil {
		t.Fatalf("expected edit while staged to fail")
	}
}
