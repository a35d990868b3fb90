package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipscribe/domain/distribution"
	"clipscribe/domain/transcript"
)

// mockUploader implements Uploader for testing
type mockUploader struct {
	paths     []string
	mimeTypes []string
	err       error
}

func (m *mockUploader) Upload(ctx context.Context, filePath, mimeType string) (*distribution.UploadResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.paths = append(m.paths, filePath)
	m.mimeTypes = append(m.mimeTypes, mimeType)
	return &distribution.UploadResult{FileID: "id", ShareableURL: "https://drive.google.com/file/d/id/view"}, nil
}

// mockPruner implements Pruner for testing
type mockPruner struct {
	keep int
}

func (m *mockPruner) KeepNewest(ctx context.Context, keep int) (*distribution.PruneResult, error) {
	m.keep = keep
	return &distribution.PruneResult{DeletedFiles: []distribution.DeletedFile{{Name: "transcript_old.txt", Size: 1}}}, nil
}

var fixedNow = time.UnixMilli(1700000000000)

func sample() *transcript.Result {
	return &transcript.Result{
		Text:     "Hello world. Goodbye world.",
		Language: "en",
		Duration: 4,
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "Hello world."},
			{Start: 2, End: 4, Text: "Goodbye world."},
		},
	}
}

func TestService_Render(t *testing.T) {
	svc := NewService(t.TempDir(), WithClock(func() time.Time { return fixedNow }))

	rendered, err := svc.Render(sample(), transcript.FormatSRT, "goodbye")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rendered.FileName != "transcript_en_1700000000000.srt" {
		t.Errorf("FileName = %q", rendered.FileName)
	}
	if rendered.MimeType != "application/x-subrip" {
		t.Errorf("MimeType = %q", rendered.MimeType)
	}
	if want := "1\n00:00:02,000 --> 00:00:04,000\nGoodbye world.\n"; string(rendered.Data) != want {
		t.Errorf("Data = %q, want %q", rendered.Data, want)
	}

	if _, err := svc.Render(nil, transcript.FormatText, ""); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("expected ErrNoTranscript, got %v", err)
	}
}

func TestService_Export_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	out := &bytes.Buffer{}
	svc := NewService(dir, WithOutput(out), WithClock(func() time.Time { return fixedNow }))

	result, err := svc.Export(context.Background(), Input{Transcript: sample(), Format: transcript.FormatVTT})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("expected export file: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT\n\n") {
		t.Errorf("unexpected VTT contents: %q", data)
	}
	if result.ShareableURL != "" {
		t.Error("no upload was requested")
	}
	if !strings.Contains(out.String(), "Saved: ") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestService_Export_Upload(t *testing.T) {
	uploader := &mockUploader{}
	pruner := &mockPruner{}
	svc := NewService(t.TempDir(), WithUploader(uploader), WithPruner(pruner, 10))

	result, err := svc.Export(context.Background(), Input{Transcript: sample(), Format: transcript.FormatText, Upload: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(uploader.paths) != 1 || uploader.paths[0] != result.Path || uploader.mimeTypes[0] != "text/plain" {
		t.Errorf("unexpected upload: %v %v", uploader.paths, uploader.mimeTypes)
	}
	if result.ShareableURL == "" {
		t.Error("expected shareable URL")
	}
	if pruner.keep != 10 || len(result.Pruned) != 1 {
		t.Errorf("expected pruning to keep 10, got keep=%d pruned=%v", pruner.keep, result.Pruned)
	}
}

func TestService_Export_UploadErrors(t *testing.T) {
	if _, err := NewService(t.TempDir()).Export(context.Background(), Input{Transcript: sample(), Format: transcript.FormatText, Upload: true}); !errors.Is(err, distribution.ErrFolderNotConfigured) {
		t.Errorf("expected ErrFolderNotConfigured, got %v", err)
	}

	svc := NewService(t.TempDir(), WithUploader(&mockUploader{err: errors.New("403")}))
	result, err := svc.Export(context.Background(), Input{Transcript: sample(), Format: transcript.FormatText, Upload: true})
	if err == nil || !strings.Contains(err.Error(), "upload failed") {
		t.Errorf("expected upload failure, got %v", err)
	}
	if result == nil || result.Path == "" {
		t.Error("local file should still be reported when upload fails")
	}
}

func TestLoadResult(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "result.json")
	if err := os.WriteFile(jsonPath, []byte(`{"text":"","language":"fr","duration":3,"translated":false,"segments":[{"start":1,"end":3,"text":" monde "},{"start":0,"end":1,"text":"bonjour"}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadResult(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Language != "fr" || r.Text != "bonjour monde" || r.Segments[0].Text != "bonjour" {
		t.Errorf("unexpected result: %+v", r)
	}

	srtPath := filepath.Join(dir, "sub.srt")
	if err := os.WriteFile(srtPath, []byte(transcript.RenderSRT(sample().Segments)), 0644); err != nil {
		t.Fatal(err)
	}
	r, err = LoadResult(srtPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Segments) != 2 || r.Duration != 4 || r.Text != "Hello world. Goodbye world." {
		t.Errorf("unexpected SRT result: %+v", r)
	}

	if _, err := LoadResult(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
