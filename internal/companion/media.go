package companion

import (
	"context"
	"encoding/base64"
	"errors"

	"google.golang.org/genai"
)

func (g *Gemini) GenerateIllustration(ctx context.Context, prompt string) (string, error) {
	resp, err := g.media.Models.GenerateImages(ctx, g.opts.ImageModel, prompt+illustrationStyle, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
		AspectRatio:    "16:9",
	})
	if err != nil {
		return "", err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return "", errors.New("no image generated")
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resp.GeneratedImages[0].Image.ImageBytes), nil
}

func (g *Gemini) GenerateSpeech(ctx context.Context, text string) (string, error) {
	resp, err := g.media.Models.GenerateContent(ctx, g.opts.SpeechModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.opts.Voice},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no audio generated")
	}
	inline := resp.Candidates[0].Content.Parts[0].InlineData
	if inline == nil || len(inline.Data) == 0 {
		return "", errors.New("no audio generated")
	}
	return base64.StdEncoding.EncodeToString(inline.Data), nil
}
