package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-roster/internal/database/memory"
	oraclemock "github.com/kozaktomas/face-roster/internal/oracle/mock"
	"github.com/kozaktomas/face-roster/internal/recognition"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestCollectPhotos(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.jpg"), "b")
	writeFile(t, filepath.Join(dir, "a.PNG"), "a")
	writeFile(t, filepath.Join(dir, "notes.txt"), "skip")
	writeFile(t, filepath.Join(dir, "class", "c.jpeg"), "c")

	files, err := collectPhotos(dir)
	if err != nil {
		t.Fatalf("collectPhotos: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "class", "c.jpeg"),
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s; want %s", i, files[i], want[i])
		}
	}
}

func TestCollectPhotos_MissingDirectory(t *testing.T) {
	if _, err := collectPhotos(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestIdentifyFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.jpg")
	again := filepath.Join(dir, "again.jpg")
	empty := filepath.Join(dir, "empty.jpg")
	writeFile(t, first, "face-1")
	writeFile(t, again, "face-1")
	writeFile(t, empty, "")

	o := oraclemock.NewMockOracle()
	o.SetEmotion("HAPPY", 90)
	svc := recognition.NewService(memory.NewStore(), o, 10, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	created := identifyFile(ctx, svc, first)
	if created.Status != recognition.StatusCreated || created.UUID == "" {
		t.Fatalf("expected created item with uuid, got %+v", created)
	}
	if created.Emotion != "HAPPY" {
		t.Errorf("expected emotion HAPPY, got %s", created.Emotion)
	}

	matched := identifyFile(ctx, svc, again)
	if matched.Status != recognition.StatusMatched || matched.UUID != created.UUID {
		t.Errorf("expected match on %s, got %+v", created.UUID, matched)
	}

	failed := identifyFile(ctx, svc, empty)
	if failed.Status != "failed" || !strings.HasPrefix(failed.Error, recognition.KindDecode) {
		t.Errorf("expected decode failure, got %+v", failed)
	}

	missing := identifyFile(ctx, svc, filepath.Join(dir, "missing.jpg"))
	if missing.Status != "failed" || missing.Error == "" {
		t.Errorf("expected read failure, got %+v", missing)
	}
}

func TestSummarizeBatch(t *testing.T) {
	items := []BatchItem{
		{Status: recognition.StatusCreated},
		{Status: recognition.StatusMatched},
		{Status: recognition.StatusMatched},
		{Status: "failed"},
	}

	result := summarizeBatch(items, 1500*time.Millisecond)

	if result.Created != 1 || result.Matched != 2 || result.Failed != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if result.DurationMs != 1500 {
		t.Errorf("expected 1500ms, got %d", result.DurationMs)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 7*time.Minute, "2h7m"},
	}

	for _, tc := range tests {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%v) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	ada, lovelace := "Ada", "Lovelace"

	tests := []struct {
		name        string
		first, last *string
		want        string
	}{
		{"unregistered", nil, nil, "(unregistered)"},
		{"full name", &ada, &lovelace, "Ada Lovelace"},
		{"first only", &ada, nil, "Ada"},
		{"last only", nil, &lovelace, "Lovelace"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := displayName(tc.first, tc.last); got != tc.want {
				t.Errorf("displayName() = %q; want %q", got, tc.want)
			}
		})
	}
}
