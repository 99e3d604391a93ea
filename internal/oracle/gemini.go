package oracle

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/face-roster/internal/photo"
)

// GeminiModel is the vision model used for emotion detection.
const GeminiModel = "gemini-2.5-flash"

// GeminiEmotion detects faces and emotions with a Gemini vision model.
type GeminiEmotion struct {
	client *genai.Client
	usageTracker
}

var _ FaceDetector = (*GeminiEmotion)(nil)

func NewGeminiEmotion(ctx context.Context, apiKey string, pricing ModelPricing) (*GeminiEmotion, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmotion{
		client:       client,
		usageTracker: usageTracker{pricing: pricing},
	}, nil
}

func (p *GeminiEmotion) Name() string {
	return GeminiModel
}

// DetectFaces implements FaceDetector.
func (p *GeminiEmotion) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	resized, err := photo.Resize(imageData, emotionImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: emotionPrompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxParseRetries {
		result, err := p.client.Models.GenerateContent(ctx, GeminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		if result.UsageMetadata != nil {
			p.track(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		faces, err := parseEmotionResponse(content)
		if err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: parseFeedback(err)}},
				},
			)
			continue
		}

		return faces, nil
	}

	return nil, fmt.Errorf("failed to parse emotion JSON after %d attempts: %w (last response: %s)", maxParseRetries, lastError, lastResponse)
}
