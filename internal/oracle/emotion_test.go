package oracle

import (
	"testing"
)

func TestParseEmotionResponse(t *testing.T) {
	content := "```json\n" + `{"faces": [{"emotions": [{"type": "happy", "confidence": 91.5}, {"type": " Calm ", "confidence": 8}]}, {"emotions": []}]}` + "\n```"

	faces, err := parseEmotionResponse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if faces[0].Emotions[0].Type != "HAPPY" {
		t.Errorf("expected label to be upper-cased, got %q", faces[0].Emotions[0].Type)
	}
	if faces[0].Emotions[1].Type != "CALM" {
		t.Errorf("expected label to be trimmed and upper-cased, got %q", faces[0].Emotions[1].Type)
	}
	if DominantEmotion(faces) != "HAPPY" {
		t.Errorf("expected HAPPY, got %s", DominantEmotion(faces))
	}
}

func TestParseEmotionResponse_NoFaces(t *testing.T) {
	faces, err := parseEmotionResponse(`{"faces": []}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if DominantEmotion(faces) != UnknownEmotion {
		t.Errorf("expected %s, got %s", UnknownEmotion, DominantEmotion(faces))
	}
}

func TestParseEmotionResponse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "I see a happy person"},
		{"confidence too high", `{"faces": [{"emotions": [{"type": "HAPPY", "confidence": 180}]}]}`},
		{"negative confidence", `{"faces": [{"emotions": [{"type": "SAD", "confidence": -1}]}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseEmotionResponse(tc.content); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestUsageTracker(t *testing.T) {
	u := usageTracker{pricing: ModelPricing{Input: 0.40, Output: 1.60}}

	u.track(1_000_000, 500_000)
	u.track(1_000_000, 500_000)

	got := u.GetUsage()
	if got.InputTokens != 2_000_000 || got.OutputTokens != 1_000_000 {
		t.Errorf("unexpected token counts: %+v", got)
	}
	want := 2*0.40 + 1*1.60
	if got.TotalCost < want-1e-9 || got.TotalCost > want+1e-9 {
		t.Errorf("expected cost %v, got %v", want, got.TotalCost)
	}
}
