package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestResize_Downscales(t *testing.T) {
	data := createTestPNG(t, 400, 200)

	out, err := Resize(data, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected JPEG output: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResize_SmallImageReencoded(t *testing.T) {
	data := createTestPNG(t, 20, 30)

	out, err := Resize(data, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if DetectMIMEType(out) != "image/jpeg" {
		t.Errorf("expected JPEG output, got %s", DetectMIMEType(out))
	}
}

func TestResize_InvalidImage(t *testing.T) {
	if _, err := Resize([]byte("definitely not an image"), 100); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
		{"unknown", []byte("plaintext"), "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIMEType(tc.data); got != tc.want {
				t.Errorf("DetectMIMEType() = %s; want %s", got, tc.want)
			}
		})
	}
}
