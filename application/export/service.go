package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipscribe/domain/distribution"
	"clipscribe/domain/transcript"
)

// ErrNoTranscript is returned when there is nothing to export
var ErrNoTranscript = errors.New("no transcript to export")

// Uploader publishes a rendered file
type Uploader interface {
	Upload(ctx context.Context, filePath, mimeType string) (*distribution.UploadResult, error)
}

// Pruner trims old published files after an upload
type Pruner interface {
	KeepNewest(ctx context.Context, keep int) (*distribution.PruneResult, error)
}

// Service renders transcripts to files and optionally publishes them
type Service struct {
	outputDir string
	uploader  Uploader
	pruner    Pruner
	keep      int
	output    io.Writer
	now       func() time.Time
}

// ServiceOption is a functional option for configuring Service
type ServiceOption func(*Service)

// WithUploader enables publishing through u
func WithUploader(u Uploader) ServiceOption {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithPruner keeps only the newest keep published files after each upload
func WithPruner(p Pruner, keep int) ServiceOption {
	return func(s *Service) {
		s.pruner = p
		s.keep = keep
	}
}

// WithOutput sets where progress lines are written
func WithOutput(w io.Writer) ServiceOption {
	return func(s *Service) {
		if w != nil {
			s.output = w
		}
	}
}

// WithClock sets the time source used for file names (for testing)
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new export service writing into outputDir
func NewService(outputDir string, opts ...ServiceOption) *Service {
	s := &Service{
		outputDir: outputDir,
		output:    io.Discard,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Input describes one export
type Input struct {
	Transcript *transcript.Result
	Format     transcript.Format
	Search     string // Optional; keeps only matching segments
	Upload     bool
}

// Output describes a written export
type Output struct {
	Path         string
	FileName     string
	Bytes        int
	ShareableURL string
	Pruned       []distribution.DeletedFile
}

// Rendered is an export held in memory
type Rendered struct {
	FileName string
	MimeType string
	Data     []byte
}

// Render produces the export contents and its download file name
func (s *Service) Render(r *transcript.Result, format transcript.Format, search string) (*Rendered, error) {
	if r == nil {
		return nil, ErrNoTranscript
	}

	if search != "" {
		r = r.Filtered(search)
	}

	data, err := transcript.Render(r, format)
	if err != nil {
		return nil, err
	}

	return &Rendered{
		FileName: transcript.Filename(r, format, s.now()),
		MimeType: format.MimeType(),
		Data:     data,
	}, nil
}

// Export renders the transcript into the output directory and publishes it when asked
func (s *Service) Export(ctx context.Context, input Input) (*Output, error) {
	if input.Upload && s.uploader == nil {
		return nil, distribution.ErrFolderNotConfigured
	}

	rendered, err := s.Render(input.Transcript, input.Format, input.Search)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(s.outputDir, rendered.FileName)
	if err := os.WriteFile(path, rendered.Data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(s.output, "Saved: %s\n", path)

	out := &Output{
		Path:     path,
		FileName: rendered.FileName,
		Bytes:    len(rendered.Data),
	}

	if !input.Upload {
		return out, nil
	}

	fmt.Fprintf(s.output, "Uploading %s to Google Drive...\n", rendered.FileName)
	uploaded, err := s.uploader.Upload(ctx, path, rendered.MimeType)
	if err != nil {
		return out, fmt.Errorf("upload failed: %w", err)
	}
	out.ShareableURL = uploaded.ShareableURL
	fmt.Fprintf(s.output, "Link: %s\n", uploaded.ShareableURL)

	if s.pruner != nil && s.keep > 0 {
		pruned, err := s.pruner.KeepNewest(ctx, s.keep)
		if err != nil {
			return out, fmt.Errorf("pruning old transcripts failed: %w", err)
		}
		for _, df := range pruned.DeletedFiles {
			fmt.Fprintf(s.output, "Removed old transcript: %s\n", df.Name)
		}
		out.Pruned = pruned.DeletedFiles
	}

	return out, nil
}

// LoadResult reads a transcript saved as JSON, SRT or WebVTT. Subtitle files
// carry no language, so only segments and text are recovered from them.
func LoadResult(path string) (*transcript.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var r transcript.Result
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		if r.Segments, err = transcript.ParseSRT(string(data)); err != nil {
			return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
		}
	case ".vtt":
		if r.Segments, err = transcript.ParseVTT(string(data)); err != nil {
			return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
		}
	}

	r.Normalize()
	if n := len(r.Segments); n > 0 && r.Duration == 0 {
		r.Duration = r.Segments[n-1].End
	}
	return &r, nil
}
