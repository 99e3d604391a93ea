// Package mock provides a scriptable oracle.Oracle for testing.
package mock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-roster/internal/oracle"
)

// Pair is a comparison recorded by MockOracle.
type Pair struct {
	A, B []byte
}

// MockOracle is a mock implementation of oracle.Oracle.
// Two photos match when MatchFunc says so, or by default when their bytes are equal.
type MockOracle struct {
	mu sync.Mutex

	// EmotionFaces is returned by DetectFaces for every image unless FacesByImage has an entry.
	EmotionFaces []oracle.Face
	FacesByImage map[string][]oracle.Face
	MatchFunc    func(a, b []byte) bool

	// Error injection
	EmotionError error
	MatchesError error
	// MatchesErrorAfter fails Matches once this many calls have succeeded (0 disables).
	MatchesErrorAfter int

	EmotionCalls []Pair
	MatchCalls   []Pair
}

var _ oracle.Oracle = (*MockOracle)(nil)

// NewMockOracle creates a mock oracle matching identical photos.
func NewMockOracle() *MockOracle {
	return &MockOracle{FacesByImage: make(map[string][]oracle.Face)}
}

// SetEmotion makes every image report a single face with one emotion.
func (m *MockOracle) SetEmotion(label string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmotionFaces = []oracle.Face{{Emotions: []oracle.EmotionScore{{Type: label, Confidence: confidence}}}}
}

// SetFacesFor overrides detected faces for a specific image.
func (m *MockOracle) SetFacesFor(image []byte, faces []oracle.Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FacesByImage[string(image)] = faces
}

// DetectFaces implements oracle.FaceDetector.
func (m *MockOracle) DetectFaces(ctx context.Context, image []byte) ([]oracle.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmotionCalls = append(m.EmotionCalls, Pair{A: image})
	if m.EmotionError != nil {
		return nil, m.EmotionError
	}
	if faces, ok := m.FacesByImage[string(image)]; ok {
		return faces, nil
	}
	return m.EmotionFaces, nil
}

// Emotion implements oracle.Oracle using the same selection policy as real backends.
func (m *MockOracle) Emotion(ctx context.Context, image []byte) (string, error) {
	faces, err := m.DetectFaces(ctx, image)
	if err != nil {
		return "", wrap(err)
	}
	return oracle.DominantEmotion(faces), nil
}

// Matches implements oracle.Oracle.
func (m *MockOracle) Matches(ctx context.Context, a, b []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchCalls = append(m.MatchCalls, Pair{A: a, B: b})
	if m.MatchesError != nil && (m.MatchesErrorAfter == 0 || len(m.MatchCalls) > m.MatchesErrorAfter) {
		return false, wrap(m.MatchesError)
	}
	if m.MatchFunc != nil {
		return m.MatchFunc(a, b), nil
	}
	return bytes.Equal(a, b), nil
}

// MatchCount returns the number of Matches calls so far.
func (m *MockOracle) MatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.MatchCalls)
}

// EmotionCount returns the number of emotion detections so far.
func (m *MockOracle) EmotionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.EmotionCalls)
}

// wrap attaches oracle.ErrOracle the way the real backends do.
func wrap(err error) error {
	if errors.Is(err, oracle.ErrOracle) {
		return err
	}
	return fmt.Errorf("mock oracle: %w: %w", oracle.ErrOracle, err)
}
