package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"

	"github.com/kozaktomas/face-roster/internal/photo"
)

const defaultFaceServerURL = "http://localhost:8000"

// FaceServer compares faces using embeddings from a self-hosted face embedding server.
type FaceServer struct {
	baseURL   string
	threshold float64
	client    *http.Client

	// The submitted photo is compared against every stored photo, so its
	// embeddings are remembered between consecutive calls.
	mu       sync.Mutex
	lastKey  string
	lastFace []faceEmbedding
}

var _ FaceComparer = (*FaceServer)(nil)

// NewFaceServer creates a face server comparer. A non-positive threshold selects DefaultSimilarityThreshold.
func NewFaceServer(baseURL string, threshold float64) *FaceServer {
	if baseURL == "" {
		baseURL = defaultFaceServerURL
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &FaceServer{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		threshold: threshold,
		client:    &http.Client{},
	}
}

type faceEmbedding struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceEmbedding `json:"faces"`
	Model      string          `json:"model"`
}

// Matches reports whether the first face of a reaches the threshold against any face of b.
func (s *FaceServer) Matches(ctx context.Context, a, b []byte) (bool, error) {
	source, err := s.sourceFaces(ctx, a)
	if err != nil {
		return false, err
	}
	if len(source) == 0 {
		return false, nil
	}

	target, err := s.computeFaces(ctx, b)
	if err != nil {
		return false, err
	}

	for _, t := range target {
		if Similarity(source[0].Embedding, t.Embedding) >= s.threshold {
			return true, nil
		}
	}
	return false, nil
}

func (s *FaceServer) sourceFaces(ctx context.Context, image []byte) ([]faceEmbedding, error) {
	key := photo.Fingerprint(image)

	s.mu.Lock()
	if s.lastKey == key {
		faces := s.lastFace
		s.mu.Unlock()
		return faces, nil
	}
	s.mu.Unlock()

	faces, err := s.computeFaces(ctx, image)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastKey, s.lastFace = key, faces
	s.mu.Unlock()
	return faces, nil
}

// computeFaces posts the image to /embed/face and returns the detected faces.
func (s *FaceServer) computeFaces(ctx context.Context, image []byte) ([]faceEmbedding, error) {
	body, err := s.postMultipartImage(ctx, "/embed/face", image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOracle, err)
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrOracle, err)
	}
	return resp.Faces, nil
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (s *FaceServer) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", photo.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Similarity converts the cosine similarity of two embeddings to the 0-100 scale.
// Invalid input (length mismatch, empty or zero vectors) has similarity 0.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [0, 1]; opposite vectors are simply not similar.
	cos = min(max(cos, 0), 1)
	return cos * 100
}
