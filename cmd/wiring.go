package cmd

import (
	"context"
	"io"
	"log"

	appdist "clipscribe/application/distribution"
	"clipscribe/application/export"
	"clipscribe/application/process"
	"clipscribe/domain/distribution"
	"clipscribe/infrastructure/artifact"
	"clipscribe/infrastructure/config"
	"clipscribe/infrastructure/drive"
	"clipscribe/infrastructure/ffmpeg"
	"clipscribe/infrastructure/whisper"
	"clipscribe/infrastructure/ytdlp"
)

// newLogger creates the operational logger shared by a command's components
func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "clipscribe: ", log.LstdFlags)
}

// adapters holds the production implementations of the pipeline ports
type adapters struct {
	store     *artifact.Store
	fetcher   *ytdlp.Fetcher
	extractor *ffmpeg.Extractor
	engine    *whisper.Engine
}

func newAdapters(cfg *config.Config, logger *log.Logger) *adapters {
	return &adapters{
		store: artifact.NewStore(cfg.Paths.TempDirectory, artifact.WithLogger(logger)),
		fetcher: ytdlp.NewFetcher(
			ytdlp.WithBinary(cfg.Tools.YtDlp),
			ytdlp.WithSocketTimeout(cfg.Fetch.SocketTimeout),
			ytdlp.WithRetries(cfg.Fetch.Retries),
			ytdlp.WithExtractAudio(cfg.Fetch.ExtractAudio, cfg.Fetch.AudioQuality),
			ytdlp.WithUserAgent(cfg.Fetch.UserAgent),
		),
		extractor: ffmpeg.NewExtractor(
			ffmpeg.WithFFmpegPath(cfg.Tools.FFmpeg),
			ffmpeg.WithBitrate(cfg.Audio.Bitrate),
		),
		engine: whisper.NewEngine(
			whisper.WithPython(cfg.Tools.Python),
			whisper.WithModel(cfg.Whisper.Model, cfg.Whisper.Device, cfg.Whisper.ComputeType),
			whisper.WithDecoding(cfg.Whisper.BeamSize, cfg.Whisper.MinSilenceMS),
		),
	}
}

func (a *adapters) processService(output io.Writer, logger *log.Logger) *process.Service {
	return process.NewService(a.fetcher, a.extractor, a.engine, a.store,
		process.WithOutput(output),
		process.WithLogger(logger),
	)
}

// newExportService builds the export service, connecting Google Drive only
// when publishing was requested
func newExportService(ctx context.Context, cfg *config.Config, upload bool, output io.Writer) (*export.Service, error) {
	opts := []export.ServiceOption{export.WithOutput(output)}

	if upload {
		if cfg.Google.TranscriptsFolderID == "" {
			return nil, distribution.ErrFolderNotConfigured
		}
		client, err := drive.NewClientFromCredentials(ctx, drive.OAuthConfig{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       cfg.Google.TokenFile,
			Output:          output,
		})
		if err != nil {
			return nil, err
		}
		folderID := cfg.Google.TranscriptsFolderID
		opts = append(opts,
			export.WithUploader(appdist.NewUploadService(client, folderID, output)),
			export.WithPruner(appdist.NewCleanupService(client, folderID), cfg.Google.KeepTranscripts),
		)
	}

	return export.NewService(cfg.Paths.OutputDirectory, opts...), nil
}
