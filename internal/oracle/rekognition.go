package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionAPI is the subset of the Rekognition client used by the oracle.
type RekognitionAPI interface {
	CompareFaces(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Rekognition implements Oracle on top of Amazon Rekognition.
type Rekognition struct {
	client    RekognitionAPI
	threshold float32
}

var (
	_ Oracle       = (*Rekognition)(nil)
	_ FaceDetector = (*Rekognition)(nil)
)

// NewRekognition creates a Rekognition oracle. A non-positive threshold selects DefaultSimilarityThreshold.
func NewRekognition(client RekognitionAPI, threshold float64) *Rekognition {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Rekognition{client: client, threshold: float32(threshold)}
}

// NewRekognitionFromConfig builds the client from an AWS config.
func NewRekognitionFromConfig(cfg aws.Config, threshold float64) *Rekognition {
	return NewRekognition(rekognition.NewFromConfig(cfg), threshold)
}

// Matches compares the largest face of a against every face in b.
func (r *Rekognition) Matches(ctx context.Context, a, b []byte) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("compare faces: %w: rekognition client not configured", ErrOracle)
	}
	out, err := r.client.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: a},
		TargetImage:         &types.Image{Bytes: b},
		SimilarityThreshold: aws.Float32(r.threshold),
	})
	if err != nil {
		return false, asOracleError("compare faces", err)
	}
	if out == nil {
		return false, fmt.Errorf("compare faces: %w: empty response", ErrOracle)
	}

	for _, m := range out.FaceMatches {
		// The service already filters by threshold; matches without a score are trusted.
		if m.Similarity == nil || aws.ToFloat32(m.Similarity) >= r.threshold {
			return true, nil
		}
	}
	return false, nil
}

// DetectFaces returns every detected face with its emotions in service order.
func (r *Rekognition) DetectFaces(ctx context.Context, image []byte) ([]Face, error) {
	if r.client == nil {
		return nil, errors.New("rekognition client not configured")
	}
	out, err := r.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition: %w", err)
	}
	if out == nil {
		return nil, errors.New("rekognition: empty response")
	}

	faces := make([]Face, 0, len(out.FaceDetails))
	for _, fd := range out.FaceDetails {
		face := Face{Emotions: make([]EmotionScore, 0, len(fd.Emotions))}
		for _, e := range fd.Emotions {
			face.Emotions = append(face.Emotions, EmotionScore{
				Type:       string(e.Type),
				Confidence: float64(aws.ToFloat32(e.Confidence)),
			})
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// Emotion implements Oracle.
func (r *Rekognition) Emotion(ctx context.Context, image []byte) (string, error) {
	return detectEmotion(ctx, r, image)
}
