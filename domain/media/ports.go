package media

import (
	"context"

	"clipscribe/domain/source"
	"clipscribe/domain/transcript"
)

// CanonicalAudioExt is the extension of the audio encoding the engine expects
const CanonicalAudioExt = ".mp3"

// DefaultAudioBitrate is the bitrate used when transcoding to the canonical encoding
const DefaultAudioBitrate = "128k"

// FetchRequest describes one media download
type FetchRequest struct {
	URL        string
	Platform   source.Platform
	DestPrefix string // path without extension; the downloader picks the extension
}

// Fetcher downloads the media behind a URL
// This is a port that can be implemented by different infrastructure adapters
type Fetcher interface {
	// Fetch downloads the media and returns the path of the file actually written
	Fetch(ctx context.Context, req *FetchRequest) (string, error)
}

// AudioExtractor converts arbitrary media into the canonical audio encoding
type AudioExtractor interface {
	// Extract writes the canonical audio for inputPath to outputPath
	Extract(ctx context.Context, inputPath, outputPath string) error
}

// Engine is a speech-to-text engine
type Engine interface {
	// Verify checks that the engine and its dependencies are runnable
	Verify(ctx context.Context) error

	// Transcribe runs speech recognition, translating to English when translate is set
	Transcribe(ctx context.Context, audioPath string, translate bool) (*transcript.Result, error)
}
