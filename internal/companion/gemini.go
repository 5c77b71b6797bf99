package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/genai"

	"kitabuddy/internal/model"
)

type Options struct {
	APIKey      string
	ChatModel   string
	ImageModel  string
	SpeechModel string
	Voice       string
}

// Gemini talks to the Gemini API. Text generation (chat, story, vision) uses
// the generative-ai-go client; Imagen and TTS use the genai client.
type Gemini struct {
	opts  Options
	text  *gemini.Client
	media *genai.Client
}

func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	text, err := gemini.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini text client: %w", err)
	}
	media, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		_ = text.Close()
		return nil, fmt.Errorf("gemini media client: %w", err)
	}
	return &Gemini{opts: opts, text: text, media: media}, nil
}

func (g *Gemini) Close() error {
	return g.text.Close()
}

func (g *Gemini) Chat(ctx context.Context, history []model.ChatMessage, message string, lang model.Language) (string, error) {
	m := g.text.GenerativeModel(g.opts.ChatModel)
	m.SystemInstruction = &gemini.Content{Parts: []gemini.Part{gemini.Text(systemPrompt(lang))}}

	cs := m.StartChat()
	cs.History = toContents(history)
	resp, err := cs.SendMessage(ctx, gemini.Text(message))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// toContents converts the stored conversation into chat history. The leading
// welcome message is dropped since history must open with a user turn.
func toContents(history []model.ChatMessage) []*gemini.Content {
	contents := make([]*gemini.Content, 0, len(history))
	for _, msg := range history {
		if len(contents) == 0 && msg.Role != model.ChatRoleUser {
			continue
		}
		role := "user"
		if msg.Role == model.ChatRoleModel {
			role = "model"
		}
		contents = append(contents, &gemini.Content{Role: role, Parts: []gemini.Part{gemini.Text(msg.Text)}})
	}
	return contents
}

var storySchema = &gemini.Schema{
	Type: gemini.TypeObject,
	Properties: map[string]*gemini.Schema{
		"title":        {Type: gemini.TypeString},
		"content":      {Type: gemini.TypeString},
		"moral":        {Type: gemini.TypeString},
		"visualPrompt": {Type: gemini.TypeString},
	},
	Required: []string{"title", "content", "moral", "visualPrompt"},
}

func (g *Gemini) GenerateStory(ctx context.Context, topic string, lang model.Language) (model.Story, error) {
	m := g.text.GenerativeModel(g.opts.ChatModel)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = storySchema

	resp, err := m.GenerateContent(ctx, gemini.Text(storyPrompt(topic, lang)))
	if err != nil {
		return model.Story{}, err
	}
	raw := responseText(resp)
	if raw == "" {
		return model.Story{}, errors.New("no story generated")
	}
	var story model.Story
	if err := json.Unmarshal([]byte(raw), &story); err != nil {
		return model.Story{}, fmt.Errorf("decode story: %w", err)
	}
	return story, nil
}

func (g *Gemini) AnalyzeImage(ctx context.Context, data []byte, mimeType string, lang model.Language) (string, error) {
	m := g.text.GenerativeModel(g.opts.ChatModel)
	resp, err := m.GenerateContent(ctx,
		gemini.Blob{MIMEType: mimeType, Data: data},
		gemini.Text(analyzePrompt(lang)),
	)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func responseText(resp *gemini.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(gemini.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	return b.String()
}
