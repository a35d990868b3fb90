package cmd

import (
	"context"
	"fmt"
	"os"

	"clipscribe/domain/pipeline"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that every external tool is installed",
	Long: `Run the same pre-flight probes the pipeline uses and report what is missing.

Checks yt-dlp, ffmpeg, python3 and the faster-whisper package.

Example:
  clipscribe doctor`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// Check is one named pre-flight probe. Run returns a version or detail line.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

func toolChecks(a *adapters) []Check {
	return []Check{
		{Name: "yt-dlp", Run: a.fetcher.Version},
		{Name: "ffmpeg", Run: a.extractor.Version},
	}
}

func engineChecks(a *adapters) []Check {
	return []Check{
		{Name: "python3", Run: a.engine.Version},
		{Name: "faster-whisper", Run: func(ctx context.Context) (string, error) {
			if err := a.engine.Verify(ctx); err != nil {
				return "", err
			}
			return "importable", nil
		}},
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	a := newAdapters(cfg, newLogger(os.Stderr))
	checks := append(toolChecks(a), engineChecks(a)...)
	return RunDoctorWithDependencies(cmd.Context(), checks, DefaultOutput)
}

// RunDoctorWithDependencies runs the doctor command with injected dependencies (for testing)
func RunDoctorWithDependencies(ctx context.Context, checks []Check, output OutputWriter) error {
	failed := 0
	for i, check := range checks {
		fmt.Fprintf(output, "[%d/%d] %s... ", i+1, len(checks), check.Name)
		detail, err := check.Run(ctx)
		if err != nil {
			failed++
			kind := pipeline.KindOf(err)
			status := "MISSING"
			if kind == pipeline.KindInternalFailure {
				status = "FAILED"
			}
			fmt.Fprintf(output, "%s (%s)\n      %s\n", status, kind, err.Error())
			continue
		}
		fmt.Fprintf(output, "OK %s\n", detail)
	}

	fmt.Fprintln(output)
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	fmt.Fprintln(output, "All checks passed.")
	return nil
}
