package oracle

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kozaktomas/face-roster/internal/photo"
)

// OpenAIModel is the vision model used for emotion detection.
const OpenAIModel = openai.ChatModelGPT4_1Mini

// OpenAIEmotion detects faces and emotions with an OpenAI vision model.
type OpenAIEmotion struct {
	client *openai.Client
	usageTracker
}

var _ FaceDetector = (*OpenAIEmotion)(nil)

func NewOpenAIEmotion(apiKey string, pricing ModelPricing) *OpenAIEmotion {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmotion{
		client:       &client,
		usageTracker: usageTracker{pricing: pricing},
	}
}

func (p *OpenAIEmotion) Name() string {
	return OpenAIModel
}

// DetectFaces implements FaceDetector.
func (p *OpenAIEmotion) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	resized, err := photo.Resize(imageData, emotionImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(emotionPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxParseRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    OpenAIModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(500),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
			p.track(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		content := resp.Choices[0].Message.Content
		lastResponse = content

		faces, err := parseEmotionResponse(content)
		if err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(parseFeedback(err)),
						},
					},
				},
			)
			continue
		}

		return faces, nil
	}

	return nil, fmt.Errorf("failed to parse emotion JSON after %d attempts: %w (last response: %s)", maxParseRetries, lastError, lastResponse)
}
