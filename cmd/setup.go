package cmd

import (
	"fmt"
	"os"
	"strconv"

	"clipscribe/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

// whisperModels are the faster-whisper model sizes offered during setup
var whisperModels = []string{"tiny", "base", "small", "medium", "large-v3"}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up your configuration file
with working directories, the transcription model, the HTTP port
and optional Google Drive publishing.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, DefaultOutput)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output OutputWriter) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to clipscribe setup!")
	fmt.Fprintln(output)

	// Keep settings the prompts do not cover, such as allowed origins
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}

	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}
	if err := promptTranscription(prompter, cfg); err != nil {
		return err
	}
	if err := promptServer(prompter, cfg); err != nil {
		return err
	}
	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	fmt.Fprintln(output, "Run 'clipscribe doctor' to check that yt-dlp, ffmpeg and faster-whisper are installed.")
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	temp, err := prompter.Input("Where should temporary downloads go?", cfg.Paths.TempDirectory)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if temp == "" {
		return fmt.Errorf("temporary directory is required")
	}
	cfg.Paths.TempDirectory = temp

	output, err := prompter.Input("Where should exported transcripts be saved?", cfg.Paths.OutputDirectory)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if output == "" {
		return fmt.Errorf("output directory is required")
	}
	cfg.Paths.OutputDirectory = output

	return nil
}

func promptTranscription(prompter Prompter, cfg *config.Config) error {
	bitrate, err := prompter.Input("Audio bitrate for mp3 extraction?", cfg.Audio.Bitrate)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if bitrate != "" {
		cfg.Audio.Bitrate = bitrate
	}

	model, err := prompter.Select("Whisper model (larger is slower and more accurate)?", whisperModels, cfg.Whisper.Model)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if model != "" {
		cfg.Whisper.Model = model
	}

	return nil
}

func promptServer(prompter Prompter, cfg *config.Config) error {
	raw, err := prompter.Input("Port for 'clipscribe serve'?", strconv.Itoa(cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if raw == "" {
		return nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("port must be a number: %q", raw)
	}
	cfg.Server.Port = port
	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Publish transcripts to Google Drive?", cfg.Google.TranscriptsFolderID != "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		cfg.Google.TranscriptsFolderID = ""
		return nil
	}

	credentials, err := prompter.Input("Path to Google credentials file?", cfg.Google.CredentialsFile)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if credentials != "" {
		cfg.Google.CredentialsFile = credentials
	}

	folder, err := prompter.Input("Google Drive folder ID for transcripts?", cfg.Google.TranscriptsFolderID)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.TranscriptsFolderID = folder

	keep, err := prompter.Input("How many transcripts to keep in the folder (0 keeps all)?", strconv.Itoa(cfg.Google.KeepTranscripts))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if keep != "" {
		n, err := strconv.Atoi(keep)
		if err != nil || n < 0 {
			return fmt.Errorf("keep count must be a non-negative number: %q", keep)
		}
		cfg.Google.KeepTranscripts = n
	}

	return nil
}
