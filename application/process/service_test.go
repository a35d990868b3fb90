package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"clipscribe/domain/media"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/source"
	"clipscribe/domain/transcript"
	"clipscribe/infrastructure/artifact"
)

// --- Mock implementations for testing ---

// mockFetcher implements media.Fetcher, writing a file like yt-dlp would
type mockFetcher struct {
	mu         sync.Mutex
	calls      int
	ext        string
	shouldFail bool
	failError  error
	// leavePartial writes a .part file before failing
	leavePartial bool
}

func (m *mockFetcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.leavePartial {
		_ = os.WriteFile(req.DestPrefix+".webm.part", []byte("partial"), 0644)
	}
	if m.shouldFail {
		return "", m.failError
	}

	ext := m.ext
	if ext == "" {
		ext = ".webm"
	}
	path := req.DestPrefix + ext
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// mockExtractor implements media.AudioExtractor
type mockExtractor struct {
	shouldFail   bool
	failError    error
	leaveOutput  bool
	removesInput bool
}

func (m *mockExtractor) Extract(ctx context.Context, inputPath, outputPath string) error {
	if m.leaveOutput || !m.shouldFail {
		if err := os.WriteFile(outputPath, []byte("mp3 audio"), 0644); err != nil {
			return err
		}
	}
	if m.shouldFail {
		return m.failError
	}
	if m.removesInput {
		return os.Remove(inputPath)
	}
	return nil
}

// mockEngine implements media.Engine
type mockEngine struct {
	verifyErr     error
	transcribeErr error
	result        *transcript.Result
	verifyCalls   int
	gotTranslate  bool
}

func (m *mockEngine) Verify(ctx context.Context) error {
	m.verifyCalls++
	return m.verifyErr
}

func (m *mockEngine) Transcribe(ctx context.Context, audioPath string, translate bool) (*transcript.Result, error) {
	m.gotTranslate = translate
	if m.transcribeErr != nil {
		return nil, m.transcribeErr
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	if m.result != nil {
		r := *m.result
		r.Segments = append([]transcript.Segment(nil), m.result.Segments...)
		return &r, nil
	}
	return &transcript.Result{
		Text:     "hola mundo",
		Language: "es",
		Duration: 3.5,
		Segments: []transcript.Segment{
			{Start: 0, End: 1.5, Text: "hola"},
			{Start: 1.5, End: 3.5, Text: "mundo"},
		},
	}, nil
}

// concurrentEngine is a stateless media.Engine for parallel runs
type concurrentEngine struct{}

func (concurrentEngine) Verify(ctx context.Context) error { return nil }

func (concurrentEngine) Transcribe(ctx context.Context, audioPath string, translate bool) (*transcript.Result, error) {
	return &transcript.Result{Text: "ok", Language: "en", Segments: []transcript.Segment{{Start: 0, End: 1, Text: "ok"}}}, nil
}

func newTestService(t *testing.T, f media.Fetcher, x media.AudioExtractor, e media.Engine) (*Service, string, *bytes.Buffer) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "work")
	out := &bytes.Buffer{}
	store := artifact.NewStore(dir)
	return NewService(f, x, e, store, WithOutput(out)), dir, out
}

func assertNoArtifacts(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) > 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected no artifacts, found %v", names)
	}
}

const youtubeURL = "https://www.youtube.com/watch?v=abc123"

func TestService_Run_Success(t *testing.T) {
	engine := &mockEngine{}
	svc, dir, out := newTestService(t, &mockFetcher{}, &mockExtractor{removesInput: true}, engine)

	result, err := svc.Run(context.Background(), Input{URL: youtubeURL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.JobID == "" {
		t.Error("expected job ID")
	}
	if result.Platform != source.PlatformYouTube {
		t.Errorf("Platform = %q, want youtube", result.Platform)
	}
	if result.Transcript.Text != "hola mundo" || result.Transcript.Translated {
		t.Errorf("unexpected transcript: %+v", result.Transcript)
	}
	if engine.verifyCalls != 1 {
		t.Errorf("Verify called %d times, want 1", engine.verifyCalls)
	}
	for _, step := range []string{"[1/5]", "[3/5] Fetching media", "[5/5] Transcribing..."} {
		if !strings.Contains(out.String(), step) {
			t.Errorf("output missing %q:\n%s", step, out.String())
		}
	}
	assertNoArtifacts(t, dir)
}

func TestService_Run_TranslateFlagFollowsRequest(t *testing.T) {
	engine := &mockEngine{}
	svc, dir, out := newTestService(t, &mockFetcher{ext: ".mp4"}, &mockExtractor{}, engine)

	for i := 0; i < 2; i++ {
		result, err := svc.Run(context.Background(), Input{URL: "https://www.tiktok.com/@a/video/1", Translate: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Transcript.Translated {
			t.Error("expected translated=true")
		}
		if result.Transcript.Language != "es" {
			t.Errorf("Language = %q, want source language es", result.Transcript.Language)
		}
		if result.Transcript.Text == "" {
			t.Error("expected non-empty text")
		}
	}
	if !engine.gotTranslate {
		t.Error("engine should run in translate mode")
	}
	if !strings.Contains(out.String(), "translating to English") {
		t.Errorf("output should mention translation:\n%s", out.String())
	}
	assertNoArtifacts(t, dir)
}

func TestService_Run_InvalidInputTouchesNothing(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"not a url", "not-a-url"},
		{"empty", ""},
		{"unsupported platform", "https://vimeo.com/12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{}
			engine := &mockEngine{}
			svc, dir, _ := newTestService(t, fetcher, &mockExtractor{}, engine)

			_, err := svc.Run(context.Background(), Input{URL: tt.url})
			if got := pipeline.KindOf(err); got != pipeline.KindInvalidInput {
				t.Fatalf("KindOf() = %q, want invalid_input (err=%v)", got, err)
			}
			if fetcher.calls != 0 || engine.verifyCalls != 0 {
				t.Error("no stage should run after invalid input")
			}
			if _, statErr := os.Stat(dir); !errors.Is(statErr, os.ErrNotExist) {
				t.Error("temp directory should not be created for invalid input")
			}
		})
	}
}

func TestService_Run_FailuresLeaveNoArtifacts(t *testing.T) {
	tests := []struct {
		name      string
		fetcher   *mockFetcher
		extractor *mockExtractor
		engine    *mockEngine
		wantKind  pipeline.Kind
		wantStage pipeline.Stage
	}{
		{
			name:      "engine dependency missing",
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{},
			engine:    &mockEngine{verifyErr: pipeline.Errorf(pipeline.KindEngineDependencyMissing, "faster-whisper is not installed")},
			wantKind:  pipeline.KindEngineDependencyMissing,
			wantStage: pipeline.StageValidated,
		},
		{
			name:      "engine verify unclassified",
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{},
			engine:    &mockEngine{verifyErr: errors.New("boom")},
			wantKind:  pipeline.KindEngineMissing,
			wantStage: pipeline.StageValidated,
		},
		{
			name:      "engine verify timed out",
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{},
			engine:    &mockEngine{verifyErr: pipeline.Errorf(pipeline.KindInternalFailure, "timed out importing faster-whisper")},
			wantKind:  pipeline.KindInternalFailure,
			wantStage: pipeline.StageValidated,
		},
		{
			name:      "downloader missing",
			fetcher:   &mockFetcher{shouldFail: true, failError: pipeline.Errorf(pipeline.KindToolMissing, "yt-dlp is not installed")},
			extractor: &mockExtractor{},
			engine:    &mockEngine{},
			wantKind:  pipeline.KindToolMissing,
			wantStage: pipeline.StageValidated,
		},
		{
			name:      "download fails leaving partial file",
			fetcher:   &mockFetcher{leavePartial: true, shouldFail: true, failError: errors.New("exit status 1")},
			extractor: &mockExtractor{},
			engine:    &mockEngine{},
			wantKind:  pipeline.KindDownloadFailed,
			wantStage: pipeline.StageValidated,
		},
		{
			name:      "extraction fails leaving output",
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{shouldFail: true, leaveOutput: true, failError: errors.New("exit status 1")},
			engine:    &mockEngine{},
			wantKind:  pipeline.KindExtractionFailed,
			wantStage: pipeline.StageFetched,
		},
		{
			name:      "transcription fails",
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{},
			engine:    &mockEngine{transcribeErr: errors.New("exit status 1")},
			wantKind:  pipeline.KindTranscriptionFailed,
			wantStage: pipeline.StageExtracted,
		},
		{
			name:      "engine returns invalid segments",
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{},
			engine: &mockEngine{result: &transcript.Result{
				Text:     "x",
				Segments: []transcript.Segment{{Start: 2, End: 1, Text: "x"}},
			}},
			wantKind:  pipeline.KindTranscriptionFailed,
			wantStage: pipeline.StageExtracted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, dir, _ := newTestService(t, tt.fetcher, tt.extractor, tt.engine)

			result, err := svc.Run(context.Background(), Input{URL: youtubeURL})
			if result != nil {
				t.Error("no partial result should be returned")
			}

			var pe *pipeline.Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected *pipeline.Error, got %T: %v", err, err)
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", pe.Kind, tt.wantKind)
			}
			if pe.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", pe.Stage, tt.wantStage)
			}
			if strings.Contains(pe.Error(), "exit status") {
				t.Errorf("raw process text leaked: %q", pe.Error())
			}
			assertNoArtifacts(t, dir)
		})
	}
}

func TestService_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, dir, _ := newTestService(t, &mockFetcher{shouldFail: true, failError: context.Canceled}, &mockExtractor{}, &mockEngine{})

	_, err := svc.Run(ctx, Input{URL: youtubeURL})
	if got := pipeline.KindOf(err); got != pipeline.KindInternalFailure {
		t.Errorf("KindOf() = %q, want internal_failure", got)
	}
	assertNoArtifacts(t, dir)
}

func TestService_Run_ConcurrentJobsDoNotCollide(t *testing.T) {
	svc, dir, _ := newTestService(t, &mockFetcher{}, &mockExtractor{removesInput: true}, concurrentEngine{})

	const n = 8
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Run(context.Background(), Input{URL: "https://www.instagram.com/reel/xyz/"})
			errs[i] = err
			if res != nil {
				ids[i] = res.JobID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("job %d failed: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Errorf("duplicate job ID %s", ids[i])
		}
		seen[ids[i]] = true
	}
	assertNoArtifacts(t, dir)
}
