package companion

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"kitabuddy/internal/model"
)

// ErrNotConfigured is returned by the unconfigured companion.
var ErrNotConfigured = errors.New("companion not configured")

const (
	WelcomeMessage     = "Hai! Saya Budi. Rakan siber anda di sini. Ada apa-apa yang awak nak kongsikan? Saya sedia mendengar. 🤗"
	FallbackChatEmpty  = "Maaf, Budi kurang faham. Boleh ulang?"
	FallbackChatFailed = "Alamak, talian terganggu sekejap. Cuba lagi ya!"
)

var (
	fallbackStory = map[model.Language]string{
		model.LanguageMalay:   "Alamak! Pen ajaib saya rosak. Cuba lagi?",
		model.LanguageEnglish: "Oops! My magic pen broke. Try again?",
	}
	fallbackIllustration = map[model.Language]string{
		model.LanguageMalay:   "Tiada gambar lagi",
		model.LanguageEnglish: "No picture yet",
	}
	fallbackSpeech = map[model.Language]string{
		model.LanguageMalay:   "Maaf, suara tidak dapat dimainkan sekarang.",
		model.LanguageEnglish: "Sorry, the voice is not available right now.",
	}
	fallbackAnalyzeEmpty = map[model.Language]string{
		model.LanguageMalay:   "Maaf, saya tidak pasti.",
		model.LanguageEnglish: "Sorry, I'm not sure.",
	}
	fallbackAnalyzeFailed = map[model.Language]string{
		model.LanguageMalay:   "Alamak! Saya tak nampak dengan jelas. Cuba gambar lain?",
		model.LanguageEnglish: "Oops! I couldn't see that clearly. Try another picture?",
	}
)

// Companion is the generative backend. Implementations return raw errors;
// Guarded turns them into friendly text.
type Companion interface {
	Chat(ctx context.Context, history []model.ChatMessage, message string, lang model.Language) (string, error)
	GenerateStory(ctx context.Context, topic string, lang model.Language) (model.Story, error)
	// GenerateIllustration returns a data URL.
	GenerateIllustration(ctx context.Context, prompt string) (string, error)
	// GenerateSpeech returns base64 encoded audio.
	GenerateSpeech(ctx context.Context, text string) (string, error)
	AnalyzeImage(ctx context.Context, data []byte, mimeType string, lang model.Language) (string, error)
}

// Result carries either a generated value or the friendly message shown in
// its place.
type Result[T any] struct {
	Value    T      `json:"value"`
	Fallback bool   `json:"fallback"`
	Message  string `json:"message,omitempty"`
}

func ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func fallback[T any](message string) Result[T] {
	return Result[T]{Fallback: true, Message: message}
}

// Guarded never returns an error to callers.
type Guarded struct {
	inner  Companion
	logger *slog.Logger
}

func NewGuarded(inner Companion, logger *slog.Logger) *Guarded {
	if inner == nil {
		inner = Unconfigured{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{inner: inner, logger: logger}
}

// Chat always yields text to show as the companion's reply.
func (g *Guarded) Chat(ctx context.Context, history []model.ChatMessage, message string, lang model.Language) Result[string] {
	reply, err := g.inner.Chat(ctx, history, message, lang)
	if err != nil {
		g.logger.Warn("companion chat failed", "err", err)
		return Result[string]{Value: FallbackChatFailed, Fallback: true, Message: FallbackChatFailed}
	}
	if strings.TrimSpace(reply) == "" {
		return Result[string]{Value: FallbackChatEmpty, Fallback: true, Message: FallbackChatEmpty}
	}
	return ok(reply)
}

func (g *Guarded) GenerateStory(ctx context.Context, topic string, lang model.Language) Result[model.Story] {
	story, err := g.inner.GenerateStory(ctx, topic, lang)
	if err != nil {
		g.logger.Warn("companion story failed", "topic", topic, "err", err)
		return fallback[model.Story](fallbackStory[lang])
	}
	return ok(story)
}

func (g *Guarded) GenerateIllustration(ctx context.Context, prompt string, lang model.Language) Result[string] {
	image, err := g.inner.GenerateIllustration(ctx, prompt)
	if err != nil || image == "" {
		g.logger.Warn("companion illustration failed", "err", err)
		return fallback[string](fallbackIllustration[lang])
	}
	return ok(image)
}

func (g *Guarded) GenerateSpeech(ctx context.Context, text string, lang model.Language) Result[string] {
	audio, err := g.inner.GenerateSpeech(ctx, text)
	if err != nil || audio == "" {
		g.logger.Warn("companion speech failed", "err", err)
		return fallback[string](fallbackSpeech[lang])
	}
	return ok(audio)
}

func (g *Guarded) AnalyzeImage(ctx context.Context, data []byte, mimeType string, lang model.Language) Result[string] {
	text, err := g.inner.AnalyzeImage(ctx, data, mimeType, lang)
	if err != nil {
		g.logger.Warn("companion image analysis failed", "mime_type", mimeType, "err", err)
		msg := fallbackAnalyzeFailed[lang]
		return Result[string]{Value: msg, Fallback: true, Message: msg}
	}
	if strings.TrimSpace(text) == "" {
		msg := fallbackAnalyzeEmpty[lang]
		return Result[string]{Value: msg, Fallback: true, Message: msg}
	}
	return ok(text)
}

// Unconfigured is used when no API key is set.
type Unconfigured struct{}

func (Unconfigured) Chat(context.Context, []model.ChatMessage, string, model.Language) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) GenerateStory(context.Context, string, model.Language) (model.Story, error) {
	return model.Story{}, ErrNotConfigured
}

func (Unconfigured) GenerateIllustration(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) GenerateSpeech(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) AnalyzeImage(context.Context, []byte, string, model.Language) (string, error) {
	return "", ErrNotConfigured
}
