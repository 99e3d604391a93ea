// Package oracle adapts external face recognition services to the two questions the
// identification flow asks: do two photos show the same person, and what emotion does a photo show.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// UnknownEmotion is reported when no face is detected.
const UnknownEmotion = "UNKNOWN"

// DefaultSimilarityThreshold is the minimum similarity (0-100) for two faces to match.
const DefaultSimilarityThreshold = 70

// ErrOracle marks failures of the recognition service or malformed responses from it.
var ErrOracle = errors.New("face oracle failure")

// Oracle is the stable interface the identification flow depends on.
type Oracle interface {
	// Emotion returns the dominant emotion label of the first detected face,
	// or UnknownEmotion when the photo contains no face.
	Emotion(ctx context.Context, image []byte) (string, error)
	// Matches reports whether at least one face pair between the two photos
	// reaches the similarity threshold.
	Matches(ctx context.Context, a, b []byte) (bool, error)
}

// FaceDetector detects faces with their emotion scores, in the order the service returns them.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}

// FaceComparer decides whether two photos show the same person.
type FaceComparer interface {
	Matches(ctx context.Context, a, b []byte) (bool, error)
}

// Face is a single detected face.
type Face struct {
	Emotions []EmotionScore `json:"emotions"`
}

// EmotionScore is one emotion label with its confidence (0-100).
type EmotionScore struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// DominantEmotion picks the emotion with the strictly highest confidence on the first face.
// Only the first face is considered even when several are present. On equal confidence the
// label seen first wins. Labels with zero confidence are never selected.
func DominantEmotion(faces []Face) string {
	if len(faces) == 0 {
		return UnknownEmotion
	}

	emotion := UnknownEmotion
	var best float64
	for _, e := range faces[0].Emotions {
		if e.Confidence > best {
			best = e.Confidence
			emotion = e.Type
		}
	}
	return emotion
}

// detectEmotion runs a detector and applies the DominantEmotion policy.
func detectEmotion(ctx context.Context, d FaceDetector, image []byte) (string, error) {
	faces, err := d.DetectFaces(ctx, image)
	if err != nil {
		return "", asOracleError("detect faces", err)
	}
	return DominantEmotion(faces), nil
}

// asOracleError wraps err with ErrOracle unless it already carries it.
func asOracleError(op string, err error) error {
	if errors.Is(err, ErrOracle) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrOracle, err)
}

// Split combines a comparer and a detector from different services into one Oracle.
type Split struct {
	Comparer FaceComparer
	Detector FaceDetector
}

var _ Oracle = (*Split)(nil)

// Emotion implements Oracle.
func (s *Split) Emotion(ctx context.Context, image []byte) (string, error) {
	return detectEmotion(ctx, s.Detector, image)
}

// Matches implements Oracle.
func (s *Split) Matches(ctx context.Context, a, b []byte) (bool, error) {
	ok, err := s.Comparer.Matches(ctx, a, b)
	if err != nil {
		return false, asOracleError("compare faces", err)
	}
	return ok, nil
}
