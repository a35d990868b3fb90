//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"clipscribe/application/export"
	"clipscribe/application/process"
	"clipscribe/domain/media"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/transcript"
	"clipscribe/infrastructure/artifact"
	"clipscribe/infrastructure/httpapi"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
)

// transcribeContext holds test state for transcription scenarios
type transcribeContext struct {
	tempDir string
	workDir string

	fetcher   *transcribeMockFetcher
	extractor *transcribeMockExtractor
	engine    *transcribeMockEngine

	result   *process.Result
	err      error
	response *httptest.ResponseRecorder
	body     map[string]any
}

// SharedTranscribeContext is reset before each scenario via Before hook
var SharedTranscribeContext *transcribeContext

// --- Mock implementations ---

// transcribeMockFetcher writes a media file like yt-dlp would, leaving a
// partial file behind when it fails
type transcribeMockFetcher struct {
	calls int
	err   error
}

func (m *transcribeMockFetcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	m.calls++
	if m.err != nil {
		_ = os.WriteFile(req.DestPrefix+".webm.part", []byte("partial"), 0644)
		return "", m.err
	}
	path := req.DestPrefix + ".webm"
	return path, os.WriteFile(path, []byte("media"), 0644)
}

type transcribeMockExtractor struct {
	err error
}

func (m *transcribeMockExtractor) Extract(ctx context.Context, inputPath, outputPath string) error {
	if err := os.WriteFile(outputPath, []byte("mp3"), 0644); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	return os.Remove(inputPath)
}

type transcribeMockEngine struct {
	verifyErr     error
	transcribeErr error
	result        transcript.Result
	gotTranslate  bool
}

func (m *transcribeMockEngine) Verify(ctx context.Context) error {
	return m.verifyErr
}

func (m *transcribeMockEngine) Transcribe(ctx context.Context, audioPath string, translate bool) (*transcript.Result, error) {
	m.gotTranslate = translate
	if m.transcribeErr != nil {
		return nil, m.transcribeErr
	}
	r := m.result
	r.Segments = append([]transcript.Segment(nil), m.result.Segments...)
	r.Normalize()
	return &r, nil
}

func InitializeTranscribeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "transcribe-test-*")
		if err != nil {
			return c, err
		}
		SharedTranscribeContext = &transcribeContext{
			tempDir:   tempDir,
			workDir:   filepath.Join(tempDir, "work"),
			fetcher:   &transcribeMockFetcher{},
			extractor: &transcribeMockExtractor{},
			engine:    &transcribeMockEngine{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedTranscribeContext != nil && SharedTranscribeContext.tempDir != "" {
			os.RemoveAll(SharedTranscribeContext.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a clean working directory$`, aCleanWorkingDirectory)
	ctx.Step(`^the engine returns language "([^"]*)" with segments:$`, theEngineReturnsLanguageWithSegments)
	ctx.Step(`^the (engine check|engine dependency|downloader|audio extractor|transcription) fails$`, theStageFails)
	ctx.Step(`^I transcribe "([^"]*)"$`, iTranscribe)
	ctx.Step(`^I transcribe "([^"]*)" with translation$`, iTranscribeWithTranslation)
	ctx.Step(`^I POST "([^"]*)" to the transcribe endpoint from origin "([^"]*)"$`, iPOSTToTheTranscribeEndpoint)
	ctx.Step(`^the job should succeed$`, theJobShouldSucceed)
	ctx.Step(`^the job should fail with kind "([^"]*)"$`, theJobShouldFailWithKind)
	ctx.Step(`^the error message should contain "([^"]*)"$`, theErrorMessageShouldContain)
	ctx.Step(`^the platform should be "([^"]*)"$`, thePlatformShouldBe)
	ctx.Step(`^the transcript text should be "([^"]*)"$`, theTranscriptTextShouldBe)
	ctx.Step(`^the transcript should be marked as translated$`, theTranscriptShouldBeMarkedAsTranslated)
	ctx.Step(`^the transcript should not be marked as translated$`, theTranscriptShouldNotBeMarkedAsTranslated)
	ctx.Step(`^the engine should have been asked to translate$`, theEngineShouldHaveBeenAskedToTranslate)
	ctx.Step(`^the downloader should not have been called$`, theDownloaderShouldNotHaveBeenCalled)
	ctx.Step(`^no temporary artifacts should remain$`, noTemporaryArtifactsShouldRemain)
	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, theResponseFieldShouldBe)
}

func getTranscribeContext() *transcribeContext {
	return SharedTranscribeContext
}

func (c *transcribeContext) service() *process.Service {
	store := artifact.NewStore(c.workDir)
	return process.NewService(c.fetcher, c.extractor, c.engine, store, process.WithOutput(&bytes.Buffer{}))
}

func aCleanWorkingDirectory() error {
	c := getTranscribeContext()
	if _, err := os.Stat(c.workDir); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("expected %s not to exist yet", c.workDir)
	}
	return nil
}

func theEngineReturnsLanguageWithSegments(language string, table *godog.Table) error {
	c := getTranscribeContext()
	segments, err := segmentsFromTable(table)
	if err != nil {
		return err
	}
	c.engine.result = transcript.Result{Language: language, Segments: segments}
	return nil
}

// segmentsFromTable reads a start | end | text table
func segmentsFromTable(table *godog.Table) ([]transcript.Segment, error) {
	var segments []transcript.Segment
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		start, err := strconv.ParseFloat(row.Cells[0].Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad start %q: %w", row.Cells[0].Value, err)
		}
		end, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad end %q: %w", row.Cells[1].Value, err)
		}
		segments = append(segments, transcript.Segment{Start: start, End: end, Text: row.Cells[2].Value})
	}
	return segments, nil
}

func theStageFails(stage string) error {
	c := getTranscribeContext()
	cause := errors.New("exit status 1")
	switch stage {
	case "engine check":
		c.engine.verifyErr = pipeline.Wrap(pipeline.KindEngineMissing, cause, "python3 is not installed")
	case "engine dependency":
		c.engine.verifyErr = pipeline.Wrap(pipeline.KindEngineDependencyMissing, cause, "faster-whisper is not installed")
	case "downloader":
		c.fetcher.err = pipeline.Wrap(pipeline.KindDownloadFailed, cause, "Failed to download video: HTTP Error 404")
	case "audio extractor":
		c.extractor.err = pipeline.Wrap(pipeline.KindExtractionFailed, cause, "Failed to extract audio: invalid data")
	case "transcription":
		c.engine.transcribeErr = pipeline.Wrap(pipeline.KindTranscriptionFailed, cause, "Transcription error: CUDA out of memory")
	}
	return nil
}

func iTranscribe(url string) error {
	c := getTranscribeContext()
	c.result, c.err = c.service().Run(context.Background(), process.Input{URL: url})
	return nil
}

func iTranscribeWithTranslation(url string) error {
	c := getTranscribeContext()
	c.result, c.err = c.service().Run(context.Background(), process.Input{URL: url, Translate: true})
	return nil
}

func iPOSTToTheTranscribeEndpoint(url, origin string) error {
	c := getTranscribeContext()
	gin.SetMode(gin.TestMode)

	handler := httpapi.NewHandler(c.service(), export.NewService(filepath.Join(c.tempDir, "out")))
	router := httpapi.NewRouter(handler, []string{"http://localhost:5173"})

	payload, err := json.Marshal(httpapi.TranscribeRequest{URL: url})
	if err != nil {
		return err
	}
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", origin)

	c.response = httptest.NewRecorder()
	router.ServeHTTP(c.response, req)

	c.body = map[string]any{}
	if err := json.Unmarshal(c.response.Body.Bytes(), &c.body); err != nil {
		return fmt.Errorf("response is not JSON: %q", c.response.Body.String())
	}
	return nil
}

func theJobShouldSucceed() error {
	c := getTranscribeContext()
	if c.err != nil {
		return fmt.Errorf("expected success, got: %v", c.err)
	}
	if c.result == nil || c.result.JobID == "" {
		return fmt.Errorf("expected a result with a job ID")
	}
	return nil
}

func theJobShouldFailWithKind(kind string) error {
	c := getTranscribeContext()
	if c.err == nil {
		return fmt.Errorf("expected failure of kind %s, got success", kind)
	}
	if got := pipeline.KindOf(c.err); string(got) != kind {
		return fmt.Errorf("expected kind %s, got %s (%v)", kind, got, c.err)
	}
	return nil
}

func theErrorMessageShouldContain(expected string) error {
	c := getTranscribeContext()
	if c.err == nil || !strings.Contains(c.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %v", expected, c.err)
	}
	return nil
}

func thePlatformShouldBe(expected string) error {
	c := getTranscribeContext()
	if c.result == nil || string(c.result.Platform) != expected {
		return fmt.Errorf("expected platform %q, got %+v", expected, c.result)
	}
	return nil
}

func theTranscriptTextShouldBe(expected string) error {
	c := getTranscribeContext()
	if c.result.Transcript.Text != expected {
		return fmt.Errorf("expected text %q, got %q", expected, c.result.Transcript.Text)
	}
	return nil
}

func theTranscriptShouldBeMarkedAsTranslated() error {
	if !getTranscribeContext().result.Transcript.Translated {
		return fmt.Errorf("expected transcript to be marked as translated")
	}
	return nil
}

func theTranscriptShouldNotBeMarkedAsTranslated() error {
	if getTranscribeContext().result.Transcript.Translated {
		return fmt.Errorf("expected transcript not to be marked as translated")
	}
	return nil
}

func theEngineShouldHaveBeenAskedToTranslate() error {
	if !getTranscribeContext().engine.gotTranslate {
		return fmt.Errorf("engine was not asked to translate")
	}
	return nil
}

func theDownloaderShouldNotHaveBeenCalled() error {
	if calls := getTranscribeContext().fetcher.calls; calls != 0 {
		return fmt.Errorf("expected no downloads, got %d", calls)
	}
	return nil
}

func noTemporaryArtifactsShouldRemain() error {
	c := getTranscribeContext()
	entries, err := os.ReadDir(c.workDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return fmt.Errorf("expected no artifacts, found %v", names)
	}
	return nil
}

func theResponseStatusShouldBe(status int) error {
	c := getTranscribeContext()
	if c.response.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, c.response.Code, c.response.Body.String())
	}
	return nil
}

func theResponseFieldShouldBe(field, expected string) error {
	c := getTranscribeContext()
	value, ok := c.body[field]
	if !ok {
		return fmt.Errorf("response has no field %q: %v", field, c.body)
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}
