package cmd

import (
	"context"
	"fmt"
	"os"

	"clipscribe/application/export"
	"clipscribe/domain/transcript"

	"github.com/spf13/cobra"
)

var (
	exportInput  string
	exportFormat string
	exportSearch string
	exportUpload bool
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a saved transcript to another format",
	Long: `Convert a transcript saved as JSON, SRT or WebVTT to txt, srt, vtt or json.

The file is written to the configured output directory as
transcript_<language>_<timestamp>.<format>. Use --upload to also publish it to
the configured Google Drive folder.

Example:
  clipscribe export --input transcripts/transcript_es_1700000000000.json --format srt
  clipscribe export --input talk.vtt --format txt --search "budget" --stdout`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportInput, "input", "", "Path to a JSON, SRT or VTT transcript (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "txt", "Output format: txt, srt, vtt or json")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "Only keep segments containing this text")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "Publish the export to Google Drive")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Print the export instead of saving it")
	exportCmd.MarkFlagRequired("input")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	exporter, err := newExportService(cmd.Context(), cfg, exportUpload, os.Stderr)
	if err != nil {
		return err
	}

	return RunExportWithDependencies(
		cmd.Context(),
		exporter,
		ExportInput{
			InputPath: exportInput,
			Format:    exportFormat,
			Search:    exportSearch,
			Upload:    exportUpload,
			Stdout:    exportStdout,
		},
		DefaultOutput,
	)
}

// ExportInput contains the parameters of the export command
type ExportInput struct {
	InputPath string
	Format    string
	Search    string
	Upload    bool
	Stdout    bool
}

// RunExportWithDependencies runs the export command with injected dependencies (for testing)
func RunExportWithDependencies(ctx context.Context, exporter *export.Service, input ExportInput, output OutputWriter) error {
	format, err := transcript.ParseFormat(input.Format)
	if err != nil {
		return err
	}
	if input.Stdout && input.Upload {
		return fmt.Errorf("--stdout and --upload cannot be combined")
	}

	tr, err := export.LoadResult(input.InputPath)
	if err != nil {
		return err
	}

	if input.Stdout {
		rendered, err := exporter.Render(tr, format, input.Search)
		if err != nil {
			return err
		}
		return writeRendered(output, rendered.Data)
	}

	out, err := exporter.Export(ctx, export.Input{
		Transcript: tr,
		Format:     format,
		Search:     input.Search,
		Upload:     input.Upload,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Exported %d bytes to %s\n", out.Bytes, out.Path)
	if out.ShareableURL != "" {
		fmt.Fprintf(output, "Link: %s\n", out.ShareableURL)
	}
	return nil
}
