package cmd

import (
	"fmt"
	"os"

	"clipscribe/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// DefaultOutput is the default output writer for commands
var DefaultOutput OutputWriter = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "clipscribe",
	Short: "Transcribe YouTube, Instagram and TikTok videos",
	Long: `clipscribe turns a social video URL into a timestamped transcript:

  - Download the media with yt-dlp
  - Extract an mp3 audio track with ffmpeg
  - Transcribe (or translate to English) locally with faster-whisper
  - Export as text, SRT or WebVTT and optionally publish to Google Drive

Every temporary file is removed when a request finishes, whether it succeeded or not.

Example:
  clipscribe transcribe https://www.youtube.com/watch?v=abc123 --format srt
  clipscribe serve --port 3001`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	// A missing file means defaults; a broken file is reported by commands that need it
	cfg, cfgErr = config.LoadOrDefault(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}
