package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipscribe/domain/media"
	"clipscribe/domain/pipeline"
	"clipscribe/infrastructure/command"
)

// InstallHint is the remediation shown when ffmpeg is missing
const InstallHint = "brew install ffmpeg (or apt install ffmpeg)"

// Extractor implements media.AudioExtractor using ffmpeg
type Extractor struct {
	ffmpegPath   string
	runner       command.Runner
	bitrate      string
	probeTimeout time.Duration
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		if path != "" {
			e.ffmpegPath = path
		}
	}
}

// WithRunner sets a custom command runner (for testing)
func WithRunner(runner command.Runner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// WithBitrate sets the mp3 bitrate, e.g. "128k"
func WithBitrate(bitrate string) ExtractorOption {
	return func(e *Extractor) {
		if bitrate != "" {
			e.bitrate = bitrate
		}
	}
}

// NewExtractor creates a new FFmpeg-based audio extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath:   "ffmpeg",
		runner:       &command.ExecRunner{},
		bitrate:      media.DefaultAudioBitrate,
		probeTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract implements media.AudioExtractor. Input that is already mp3 is
// moved into place without transcoding. On success the input file is gone.
func (e *Extractor) Extract(ctx context.Context, inputPath, outputPath string) error {
	if strings.EqualFold(filepath.Ext(inputPath), media.CanonicalAudioExt) {
		if err := os.Rename(inputPath, outputPath); err != nil {
			return pipeline.Wrap(pipeline.KindExtractionFailed, err, "Failed to extract audio: could not move audio file")
		}
		return nil
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y", // Overwrite output file if it exists
		"-i", inputPath,
		"-vn",                   // No video
		"-acodec", "libmp3lame", // MP3 codec
		"-ab", e.bitrate,
		outputPath,
	}

	res, err := e.runner.Run(ctx, e.ffmpegPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctx.Err())
		}
		if command.IsNotFound(err) {
			return pipeline.Wrap(pipeline.KindToolMissing, err,
				fmt.Sprintf("ffmpeg is not installed. Please install it using: %s", InstallHint))
		}
		detail := command.Diagnostic(res.Stderr, 2)
		if detail == "" {
			detail = fmt.Sprintf("ffmpeg exited with code %d", res.ExitCode)
		}
		return pipeline.Wrap(pipeline.KindExtractionFailed, err, "Failed to extract audio: "+detail)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return pipeline.Wrap(pipeline.KindExtractionFailed, err, "Failed to extract audio: no audio file was produced")
	}

	// The namespace sweeps leftovers, so a failed remove is not fatal
	_ = os.Remove(inputPath)
	return nil
}

// Version returns the first line of ffmpeg -version
func (e *Extractor) Version(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	res, err := e.runner.Run(probeCtx, e.ffmpegPath, "-version")
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffmpeg version check interrupted: %w", ctx.Err())
		}
		return "", pipeline.Wrap(pipeline.KindToolMissing, err,
			fmt.Sprintf("ffmpeg is not installed. Please install it using: %s", InstallHint))
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	return line, nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	_, err := e.Version(ctx)
	return err
}

// Ensure Extractor implements media.AudioExtractor
var _ media.AudioExtractor = (*Extractor)(nil)
