package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"clipscribe/domain/media"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/source"
	"clipscribe/domain/transcript"
	"clipscribe/infrastructure/filesystem"
)

// totalSteps is the number of numbered progress steps per Job
const totalSteps = 5

// FileSizer provides file size information
type FileSizer interface {
	Size(path string) int64
}

// Service orchestrates the complete transcription workflow
type Service struct {
	fetcher   media.Fetcher
	extractor media.AudioExtractor
	engine    media.Engine
	store     media.ArtifactStore
	fileSizer FileSizer
	output    io.Writer
	logger    *log.Logger
}

// ServiceOption is a functional option for configuring Service
type ServiceOption func(*Service)

// WithOutput sets where numbered progress steps are written
func WithOutput(w io.Writer) ServiceOption {
	return func(s *Service) {
		if w != nil {
			s.output = w
		}
	}
}

// WithLogger sets the operational logger
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileSizer sets a custom file sizer (for testing)
func WithFileSizer(fs FileSizer) ServiceOption {
	return func(s *Service) {
		s.fileSizer = fs
	}
}

// NewService creates a new process service
func NewService(
	fetcher media.Fetcher,
	extractor media.AudioExtractor,
	engine media.Engine,
	store media.ArtifactStore,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		fetcher:   fetcher,
		extractor: extractor,
		engine:    engine,
		store:     store,
		fileSizer: filesystem.NewChecker(),
		output:    io.Discard,
		logger:    log.New(io.Discard, "", 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Input contains the parameters of one transcription request
type Input struct {
	URL       string
	Translate bool
}

// Result contains the outcome of a successful Job
type Result struct {
	JobID      string
	Platform   source.Platform
	Transcript *transcript.Result
	Elapsed    time.Duration
}

// Run executes one Job. Every failure is returned as a *pipeline.Error and
// no temporary artifact outlives the call.
func (s *Service) Run(ctx context.Context, input Input) (*Result, error) {
	job := pipeline.NewJob(input.URL, input.Translate)

	result, err := s.run(ctx, job)
	if err != nil {
		if ctx.Err() != nil && pipeline.KindOf(err) == pipeline.KindInternalFailure {
			err = pipeline.Wrap(pipeline.KindInternalFailure, err, "processing was cancelled or timed out")
		}
		failure := job.Fail(err)
		s.logger.Printf("job %s failed at %s: kind=%s: %s", job.ID, failure.Stage, failure.Kind, failure.Message)
		if cause := errors.Unwrap(failure); cause != nil {
			s.logger.Printf("job %s cause: %v", job.ID, cause)
		}
		return nil, failure
	}

	s.logger.Printf("job %s done: platform=%s language=%s segments=%d elapsed=%s",
		job.ID, result.Platform, result.Transcript.Language, len(result.Transcript.Segments), result.Elapsed.Round(time.Millisecond))
	return result, nil
}

func (s *Service) run(ctx context.Context, job *pipeline.Job) (*Result, error) {
	// Step 1: Validate input. Nothing touches the disk before this passes.
	s.step(1, "Validating URL...")
	if _, err := source.Validate(job.URL); err != nil {
		return nil, pipeline.Wrap(pipeline.KindInvalidInput, err, err.Error())
	}
	platform, err := source.Detect(job.URL)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindInvalidInput, err, err.Error())
	}
	job.Platform = platform
	if err := job.Advance(pipeline.StageValidated); err != nil {
		return nil, err
	}
	fmt.Fprintf(s.output, "      Platform: %s\n\n", platform)

	// Step 2: Check the speech engine before spending time on a download
	s.step(2, "Checking speech engine...")
	if err := s.engine.Verify(ctx); err != nil {
		var classified *pipeline.Error
		if !errors.As(err, &classified) && ctx.Err() == nil {
			return nil, pipeline.Wrap(pipeline.KindEngineMissing, err, "speech engine is not available: "+err.Error())
		}
		return nil, err
	}
	fmt.Fprintf(s.output, "      Engine ready\n\n")

	ns := s.store.NewNamespace()
	defer ns.ReleaseAll()

	// Step 3: Fetch media
	s.step(3, "Fetching media...")
	prefix, err := ns.PathFor(media.ArtifactRawMedia)
	if err != nil {
		return nil, err
	}
	mediaPath, err := s.fetcher.Fetch(ctx, &media.FetchRequest{
		URL:        job.URL,
		Platform:   platform,
		DestPrefix: prefix,
	})
	if err != nil {
		return nil, err
	}
	ns.Adopt(mediaPath, media.ArtifactRawMedia)
	if err := job.Advance(pipeline.StageFetched); err != nil {
		return nil, err
	}
	fmt.Fprintf(s.output, "      Downloaded: %s\n\n", filepath.Base(mediaPath))

	// Step 4: Extract audio
	s.step(4, "Extracting audio...")
	audioPath, err := ns.PathFor(media.ArtifactAudio)
	if err != nil {
		return nil, err
	}
	if err := s.extractor.Extract(ctx, mediaPath, audioPath); err != nil {
		return nil, err
	}
	ns.Adopt(audioPath, media.ArtifactAudio)
	if err := job.Advance(pipeline.StageExtracted); err != nil {
		return nil, err
	}
	sizeMB := float64(s.fileSizer.Size(audioPath)) / 1024 / 1024
	fmt.Fprintf(s.output, "      Audio: %s (%.2f MB)\n\n", filepath.Base(audioPath), sizeMB)

	// Step 5: Transcribe
	mode := "Transcribing"
	if job.Translate {
		mode = "Transcribing and translating to English"
	}
	s.step(5, mode+"...")
	tr, err := s.engine.Transcribe(ctx, audioPath, job.Translate)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, errors.New("engine returned no result")
	}
	tr.Translated = job.Translate
	if err := tr.Validate(); err != nil {
		return nil, pipeline.Wrap(pipeline.KindTranscriptionFailed, err, "Transcription error: "+err.Error())
	}
	if err := job.Advance(pipeline.StageTranscribed); err != nil {
		return nil, err
	}
	fmt.Fprintf(s.output, "      Language: %s, duration %.1fs, %d segments\n\n", tr.Language, tr.Duration, len(tr.Segments))

	if err := job.Advance(pipeline.StageDone); err != nil {
		return nil, err
	}

	return &Result{
		JobID:      job.ID,
		Platform:   platform,
		Transcript: tr,
		Elapsed:    job.Elapsed(),
	}, nil
}

func (s *Service) step(n int, msg string) {
	fmt.Fprintf(s.output, "[%d/%d] %s\n", n, totalSteps, msg)
}
