package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"clipscribe/application/export"
	"clipscribe/application/process"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/transcript"

	"github.com/spf13/cobra"
)

var (
	transcribeTranslate bool
	transcribeFormat    string
	transcribeSearch    string
	transcribeSave      bool
	transcribeUpload    bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <url>",
	Short: "Transcribe a YouTube, Instagram or TikTok video",
	Long: `Download a video, extract its audio and transcribe it locally.

The transcript is written to stdout in the chosen format; progress goes to stderr.
Use --save to write it to the configured output directory instead, and --upload
to also publish it to the configured Google Drive folder.

Example:
  clipscribe transcribe https://www.youtube.com/watch?v=abc123
  clipscribe transcribe https://www.tiktok.com/@user/video/123 --translate --format srt --save
  clipscribe transcribe https://youtu.be/abc123 --search "climate" --format vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.Flags().BoolVar(&transcribeTranslate, "translate", false, "Translate the speech to English")
	transcribeCmd.Flags().StringVar(&transcribeFormat, "format", "txt", "Output format: txt, srt, vtt or json")
	transcribeCmd.Flags().StringVar(&transcribeSearch, "search", "", "Only keep segments containing this text")
	transcribeCmd.Flags().BoolVar(&transcribeSave, "save", false, "Save the transcript to the output directory")
	transcribeCmd.Flags().BoolVar(&transcribeUpload, "upload", false, "Publish the transcript to Google Drive (implies --save)")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr)
	svc := newAdapters(cfg, logger).processService(os.Stderr, logger)

	exporter, err := newExportService(cmd.Context(), cfg, transcribeUpload, os.Stderr)
	if err != nil {
		return err
	}

	return RunTranscribeWithDependencies(
		cmd.Context(),
		svc,
		exporter,
		TranscribeInput{
			URL:       args[0],
			Translate: transcribeTranslate,
			Format:    transcribeFormat,
			Search:    transcribeSearch,
			Save:      transcribeSave || transcribeUpload,
			Upload:    transcribeUpload,
		},
		DefaultOutput,
		os.Stderr,
	)
}

// Transcriber runs one transcription Job
type Transcriber interface {
	Run(ctx context.Context, input process.Input) (*process.Result, error)
}

// TranscribeInput contains the parameters of the transcribe command
type TranscribeInput struct {
	URL       string
	Translate bool
	Format    string
	Search    string
	Save      bool
	Upload    bool
}

// RunTranscribeWithDependencies runs the transcribe command with injected dependencies (for testing)
func RunTranscribeWithDependencies(
	ctx context.Context,
	transcriber Transcriber,
	exporter *export.Service,
	input TranscribeInput,
	output OutputWriter,
	progress OutputWriter,
) error {
	format, err := transcript.ParseFormat(input.Format)
	if err != nil {
		return err
	}

	result, err := transcriber.Run(ctx, process.Input{URL: input.URL, Translate: input.Translate})
	if err != nil {
		return fmt.Errorf("transcription failed [%s]: %w", pipeline.KindOf(err), err)
	}

	tr := result.Transcript
	summary := fmt.Sprintf("Transcribed %s video in %s (language: %s", result.Platform, result.Elapsed.Round(time.Millisecond), tr.Language)
	if tr.Translated {
		summary += ", translated to English"
	}
	fmt.Fprintln(progress, summary+")")

	if input.Save {
		out, err := exporter.Export(ctx, export.Input{
			Transcript: tr,
			Format:     format,
			Search:     input.Search,
			Upload:     input.Upload,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(output, out.Path)
		if out.ShareableURL != "" {
			fmt.Fprintln(output, out.ShareableURL)
		}
		return nil
	}

	rendered, err := exporter.Render(tr, format, input.Search)
	if err != nil {
		return err
	}
	return writeRendered(output, rendered.Data)
}

// writeRendered writes data, ending it with a newline
func writeRendered(output OutputWriter, data []byte) error {
	if _, err := output.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err := output.Write([]byte("\n"))
		return err
	}
	return nil
}
