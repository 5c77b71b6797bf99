package companion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"kitabuddy/internal/model"
)

type stubCompanion struct {
	reply string
	err   error
}

func (s stubCompanion) Chat(context.Context, []model.ChatMessage, string, model.Language) (string, error) {
	return s.reply, s.err
}

func (s stubCompanion) GenerateStory(context.Context, string, model.Language) (model.Story, error) {
	return model.Story{Title: s.reply}, s.err
}

func (s stubCompanion) GenerateIllustration(context.Context, string) (string, error) {
	return s.reply, s.err
}

func (s stubCompanion) GenerateSpeech(context.Context, string) (string, error) {
	return s.reply, s.err
}

func (s stubCompanion) AnalyzeImage(context.Context, []byte, string, model.Language) (string, error) {
	return s.reply, s.err
}

func newGuarded(inner Companion) *Guarded {
	return NewGuarded(inner, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGuardedChatFallbacks(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		inner    Companion
		expect   string
		fallback bool
	}{
		"reply":   {stubCompanion{reply: "Hai!"}, "Hai!", false},
		"empty":   {stubCompanion{reply: "  "}, FallbackChatEmpty, true},
		"failure": {stubCompanion{err: errors.New("quota")}, FallbackChatFailed, true},
		"unset":   {nil, FallbackChatFailed, true},
	}
	for name, tc := range cases {
		result := newGuarded(tc.inner).Chat(ctx, nil, "hello", model.LanguageMalay)
		if result.Value != tc.expect || result.Fallback != tc.fallback {
			t.Fatalf("%s: expected %q fallback=%v, got %+v", name, tc.expect, tc.fallback, result)
		}
	}
}

func TestGuardedMediaFallbacksPerLanguage(t *testing.T) {
	ctx := context.Background()
	g := newGuarded(stubCompanion{err: errors.New("down")})

	story := g.GenerateStory(ctx, "kawan baru", model.LanguageEnglish)
	if !story.Fallback || story.Message != "Oops! My magic pen broke. Try again?" {
		t.Fatalf("unexpected story fallback %+v", story)
	}
	image := g.GenerateIllustration(ctx, "two friends", model.LanguageMalay)
	if !image.Fallback || image.Value != "" || image.Message == "" {
		t.Fatalf("unexpected illustration fallback %+v", image)
	}
	speech := g.GenerateSpeech(ctx, "hai", model.LanguageMalay)
	if !speech.Fallback {
		t.Fatalf("expected speech fallback")
	}
	analysis := g.AnalyzeImage(ctx, []byte{1}, "image/png", model.LanguageEnglish)
	if !analysis.Fallback || !strings.HasPrefix(analysis.Value, "Oops!") {
		t.Fatalf("unexpected analysis fallback %+v", analysis)
	}

	empty := newGuarded(stubCompanion{}).AnalyzeImage(ctx, []byte{1}, "image/png", model.LanguageMalay)
	if empty.Value != "Maaf, saya tidak pasti." {
		t.Fatalf("unexpected empty analysis %+v", empty)
	}
}

func TestToContentsStartsWithUserTurn(t *testing.T) {
	history := []model.ChatMessage{
		{Role: model.ChatRoleModel, Text: WelcomeMessage},
		{Role: model.ChatRoleUser, Text: "Saya dibuli"},
		{Role: model.ChatRoleModel, Text: "Beritahu guru ya"},
	}
	contents := toContents(history)
	if len(contents) != 2 || contents[0].Role != "user" || contents[1].Role != "model" {
		t.Fatalf("unexpected history %+v", contents)
	}
}

func TestPromptsPerLanguage(t *testing.T) {
	if !strings.Contains(storyPrompt("buli", model.LanguageMalay), "Tulis cerita") {
		t.Fatalf("expected Malay story prompt")
	}
	if !strings.Contains(storyPrompt("bullying", model.LanguageEnglish), "Write a short") {
		t.Fatalf("expected English story prompt")
	}
	if !strings.Contains(systemPrompt(model.LanguageMalay), "Budi") {
		t.Fatalf("expected system prompt to name Budi")
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
