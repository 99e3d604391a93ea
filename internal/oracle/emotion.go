package oracle

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed prompts/emotion.txt
var emotionPrompt string

// emotionImageSize bounds the longest side of images sent to vision models.
const emotionImageSize = 800

const maxParseRetries = 3

// ModelPricing holds input/output prices per 1M tokens.
type ModelPricing struct {
	Input  float64
	Output float64
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// usageTracker accumulates usage across concurrent requests.
type usageTracker struct {
	mu      sync.Mutex
	usage   Usage
	pricing ModelPricing
}

func (u *usageTracker) track(inputTokens, outputTokens int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.InputTokens += int(inputTokens)
	u.usage.OutputTokens += int(outputTokens)
	u.usage.TotalCost += float64(inputTokens) / 1_000_000 * u.pricing.Input
	u.usage.TotalCost += float64(outputTokens) / 1_000_000 * u.pricing.Output
}

// GetUsage returns a snapshot of the accumulated usage.
func (u *usageTracker) GetUsage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

type emotionResponse struct {
	Faces []Face `json:"faces"`
}

var labelCaser = cases.Upper(language.Und)

// parseEmotionResponse decodes a model answer and normalizes labels to upper case.
func parseEmotionResponse(content string) ([]Face, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var resp emotionResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &resp); err != nil {
		return nil, err
	}

	for i := range resp.Faces {
		for j := range resp.Faces[i].Emotions {
			e := &resp.Faces[i].Emotions[j]
			e.Type = labelCaser.String(strings.TrimSpace(e.Type))
			if e.Confidence < 0 || e.Confidence > 100 {
				return nil, fmt.Errorf("confidence %v for %s out of range 0-100", e.Confidence, e.Type)
			}
		}
	}
	return resp.Faces, nil
}

func parseFeedback(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and answer again in the requested shape.", err)
}
