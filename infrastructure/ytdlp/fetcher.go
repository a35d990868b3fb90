package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipscribe/domain/media"
	"clipscribe/domain/pipeline"
	"clipscribe/infrastructure/command"
)

// InstallHint is the remediation shown when yt-dlp is missing
const InstallHint = "pip install yt-dlp (or brew install yt-dlp)"

// DefaultUserAgent is sent with every media request; some platforms reject the yt-dlp default
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher implements media.Fetcher using the yt-dlp CLI
type Fetcher struct {
	binary        string
	runner        command.Runner
	probeTimeout  time.Duration
	socketTimeout time.Duration
	retries       int
	extractAudio  bool
	audioQuality  string
	userAgent     string
	readDir       func(string) ([]os.DirEntry, error)
}

// FetcherOption is a functional option for configuring Fetcher
type FetcherOption func(*Fetcher)

// WithBinary sets a custom yt-dlp executable path
func WithBinary(path string) FetcherOption {
	return func(f *Fetcher) {
		if path != "" {
			f.binary = path
		}
	}
}

// WithRunner sets a custom command runner (for testing)
func WithRunner(runner command.Runner) FetcherOption {
	return func(f *Fetcher) {
		f.runner = runner
	}
}

// WithSocketTimeout sets yt-dlp's per-socket network timeout
func WithSocketTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.socketTimeout = d
		}
	}
}

// WithRetries sets yt-dlp's own network retry count
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retries = n
		}
	}
}

// WithExtractAudio makes yt-dlp convert the download to mp3 itself
func WithExtractAudio(enabled bool, quality string) FetcherOption {
	return func(f *Fetcher) {
		f.extractAudio = enabled
		if quality != "" {
			f.audioQuality = quality
		}
	}
}

// WithUserAgent overrides the browser user agent
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewFetcher creates a new yt-dlp based fetcher
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		binary:        "yt-dlp",
		runner:        &command.ExecRunner{},
		probeTimeout:  5 * time.Second,
		socketTimeout: 30 * time.Second,
		audioQuality:  "192K",
		userAgent:     DefaultUserAgent,
		readDir:       os.ReadDir,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Version returns the installed yt-dlp version
func (f *Fetcher) Version(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	res, err := f.runner.Run(probeCtx, f.binary, "--version")
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("yt-dlp version check interrupted: %w", ctx.Err())
		}
		return "", pipeline.Wrap(pipeline.KindToolMissing, err,
			fmt.Sprintf("yt-dlp is not installed. Please install it using: %s", InstallHint))
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// VerifyInstalled checks that yt-dlp is available
func (f *Fetcher) VerifyInstalled(ctx context.Context) error {
	_, err := f.Version(ctx)
	return err
}

// Fetch implements media.Fetcher. yt-dlp picks the file extension, so the
// written file is discovered by scanning for the destination prefix.
func (f *Fetcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	if err := f.VerifyInstalled(ctx); err != nil {
		return "", err
	}

	args := f.buildArgs(req)
	res, err := f.runner.Run(ctx, f.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("yt-dlp interrupted: %w", ctx.Err())
		}
		if command.IsNotFound(err) {
			return "", pipeline.Wrap(pipeline.KindToolMissing, err,
				fmt.Sprintf("yt-dlp is not installed. Please install it using: %s", InstallHint))
		}
		detail := command.Diagnostic(res.Stderr, 3)
		if detail == "" {
			detail = fmt.Sprintf("yt-dlp exited with code %d", res.ExitCode)
		}
		return "", pipeline.Wrap(pipeline.KindDownloadFailed, err, "Failed to download video: "+detail)
	}

	path, err := f.resolveOutput(req.DestPrefix)
	if err != nil {
		return "", pipeline.Wrap(pipeline.KindDownloadFailed, err, "Failed to download video: downloaded file not found")
	}
	return path, nil
}

func (f *Fetcher) buildArgs(req *media.FetchRequest) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-progress",
		"--no-mtime",
		"--no-check-certificates",
		"--socket-timeout", strconv.Itoa(int(f.socketTimeout.Seconds())),
		"--retries", strconv.Itoa(f.retries),
		"--fragment-retries", strconv.Itoa(f.retries),
		"--user-agent", f.userAgent,
		"--add-header", "Accept-Language:en-us,en;q=0.5",
	}

	if referer := req.Platform.Referer(); referer != "" {
		args = append(args, "--add-header", "Referer:"+referer)
	}

	if f.extractAudio {
		args = append(args,
			"-x",
			"--audio-format", strings.TrimPrefix(media.CanonicalAudioExt, "."),
			"--audio-quality", f.audioQuality,
		)
	}

	args = append(args, "-o", req.DestPrefix+".%(ext)s", "--", req.URL)
	return args
}

// resolveOutput finds the file yt-dlp wrote for prefix, ignoring partial downloads
func (f *Fetcher) resolveOutput(prefix string) (string, error) {
	dir := filepath.Dir(prefix)
	base := filepath.Base(prefix)

	entries, err := f.readDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read download directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		return filepath.Join(dir, name), nil
	}

	return "", fmt.Errorf("no file with prefix %s in %s", base, dir)
}

// Ensure Fetcher implements media.Fetcher
var _ media.Fetcher = (*Fetcher)(nil)
