package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clipscribe/application/export"
	"clipscribe/application/process"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/source"
	"clipscribe/domain/transcript"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockTranscriber implements Transcriber for testing
type mockTranscriber struct {
	result      *process.Result
	err         error
	gotInput    process.Input
	gotDeadline bool
	ctxErr      error
}

func (m *mockTranscriber) Run(ctx context.Context, input process.Input) (*process.Result, error) {
	m.gotInput = input
	_, m.gotDeadline = ctx.Deadline()
	m.ctxErr = ctx.Err()
	return m.result, m.err
}

func successResult() *process.Result {
	return &process.Result{
		JobID:    "job-1",
		Platform: source.PlatformYouTube,
		Transcript: &transcript.Result{
			Text:       "hello",
			Language:   "en",
			Duration:   1.5,
			Translated: false,
			Segments:   []transcript.Segment{{Start: 0, End: 1.5, Text: "hello"}},
		},
	}
}

func newTestRouter(tr Transcriber, opts ...HandlerOption) *gin.Engine {
	renderer := export.NewService("", export.WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))
	return NewRouter(NewHandler(tr, renderer, opts...), []string{"http://localhost:5173"})
}

func doJSON(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doJSON(newTestRouter(&mockTranscriber{}), http.MethodGet, "/api/health", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestTranscribe_Success(t *testing.T) {
	tr := &mockTranscriber{result: successResult()}
	w := doJSON(newTestRouter(tr), http.MethodPost, "/api/transcribe",
		`{"url": " https://www.youtube.com/watch?v=abc123 ", "translate": true}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp TranscribeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.JobID != "job-1" || resp.Platform != source.PlatformYouTube || resp.Text != "hello" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Segments) != 1 {
		t.Errorf("expected 1 segment, got %d", len(resp.Segments))
	}
	if tr.gotInput.URL != "https://www.youtube.com/watch?v=abc123" || !tr.gotInput.Translate {
		t.Errorf("unexpected input: %+v", tr.gotInput)
	}
	if tr.gotDeadline {
		t.Error("no deadline expected without a job timeout")
	}
}

func TestTranscribe_JobTimeout(t *testing.T) {
	tr := &mockTranscriber{result: successResult()}
	doJSON(newTestRouter(tr, WithJobTimeout(time.Minute)), http.MethodPost, "/api/transcribe", `{"url": "https://youtu.be/x"}`, nil)

	if !tr.gotDeadline {
		t.Error("expected a deadline when a job timeout is configured")
	}
}

func TestTranscribe_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantKind   string
		wantError  string
	}{
		{
			name:       "missing url",
			body:       `{"translate": true}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
			wantError:  "Video URL is required",
		},
		{
			name:       "malformed body",
			body:       `{"url": `,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "invalid input from pipeline",
			body:       `{"url": "not-a-url"}`,
			err:        pipeline.Errorf(pipeline.KindInvalidInput, "invalid URL format"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
			wantError:  "invalid URL format",
		},
		{
			name:       "tool missing",
			body:       `{"url": "https://youtu.be/x"}`,
			err:        pipeline.Errorf(pipeline.KindToolMissing, "yt-dlp is not installed"),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "tool_missing",
		},
		{
			name:       "engine dependency missing",
			body:       `{"url": "https://youtu.be/x"}`,
			err:        pipeline.Errorf(pipeline.KindEngineDependencyMissing, "pip install faster-whisper"),
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "engine_dependency_missing",
		},
		{
			name:       "download failed",
			body:       `{"url": "https://youtu.be/x"}`,
			err:        pipeline.Errorf(pipeline.KindDownloadFailed, "Failed to download video"),
			wantStatus: http.StatusBadGateway,
			wantKind:   "download_failed",
		},
		{
			name:       "unclassified",
			body:       `{"url": "https://youtu.be/x"}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal_failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(newTestRouter(&mockTranscriber{err: tt.err}), http.MethodPost, "/api/transcribe", tt.body, nil)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.Success || resp.Kind != tt.wantKind {
				t.Errorf("unexpected response: %+v", resp)
			}
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestExport(t *testing.T) {
	body, _ := json.Marshal(ExportRequest{
		Format: "srt",
		Transcript: &transcript.Result{
			Language: "es",
			Segments: []transcript.Segment{{Start: 0, End: 1.25, Text: "hola"}},
		},
	})

	w := doJSON(newTestRouter(&mockTranscriber{}), http.MethodPost, "/api/export", string(body), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="transcript_es_1700000000000.srt"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/x-subrip") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if want := "1\n00:00:00,000 --> 00:00:01,250\nhola\n"; w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestExport_BadRequests(t *testing.T) {
	router := newTestRouter(&mockTranscriber{})

	for _, body := range []string{
		`{"format": "srt"}`,
		`{"format": "docx", "transcript": {"segments": []}}`,
		`not json`,
	} {
		w := doJSON(router, http.MethodPost, "/api/export", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	router := newTestRouter(&mockTranscriber{})

	w := doJSON(router, http.MethodGet, "/api/health", "", map[string]string{"Origin": "http://localhost:5173"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}

	w = doJSON(router, http.MethodGet, "/api/health", "", map[string]string{"Origin": "https://evil.example.com"})
	if w.Code != http.StatusForbidden {
		t.Errorf("disallowed origin status = %d, want 403", w.Code)
	}

	w = doJSON(router, http.MethodOptions, "/api/transcribe", "", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": "POST",
	})
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("request without origin status = %d, want 200", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(pipeline.KindExtractionFailed); got != http.StatusInternalServerError {
		t.Errorf("StatusFor(extraction_failed) = %d", got)
	}
	if got := StatusFor(pipeline.KindEngineMissing); got != http.StatusServiceUnavailable {
		t.Errorf("StatusFor(engine_missing) = %d", got)
	}
}

