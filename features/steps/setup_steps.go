//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipscribe/cmd"
	"clipscribe/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	originalContent string
	selectResponse  string
	output          *bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	selectResponse   string
	inputIndex       int
	confirmIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool, selected string) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
		selectResponse:   selected,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func (m *MockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if m.selectResponse == "" {
		return defaultValue, nil
	}
	for _, o := range options {
		if o == m.selectResponse {
			return o, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %v", m.selectResponse, options)
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		SharedSetupContext = &setupContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config", "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedSetupContext.tempDir != "" {
			os.RemoveAll(SharedSetupContext.tempDir)
		}
		SharedSetupContext = &setupContext{}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^the whisper model "([^"]*)" is chosen$`, theWhisperModelIsChosen)
	ctx.Step(`^I run the setup command with inputs:$`, iRunTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmations "([^"]*)" and inputs:$`, iRunTheSetupCommandWithConfirmationsAndInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^a config file should exist$`, aConfigFileShouldExist)
	ctx.Step(`^the config should have temp_directory "([^"]*)"$`, theConfigShouldHaveTempDirectory)
	ctx.Step(`^the config should have output_directory "([^"]*)"$`, theConfigShouldHaveOutputDirectory)
	ctx.Step(`^the config should have server port (\d+)$`, theConfigShouldHaveServerPort)
	ctx.Step(`^the config should have whisper model "([^"]*)"$`, theConfigShouldHaveWhisperModel)
	ctx.Step(`^the config should have transcripts_folder_id "([^"]*)"$`, theConfigShouldHaveTranscriptsFolderID)
	ctx.Step(`^the setup should be cancelled$`, theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, theExistingConfigShouldBeUnchanged)
}

func getSetupContext() *setupContext {
	return SharedSetupContext
}

func noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(getSetupContext().configPath), 0755)
}

func aConfigFileAlreadyExistsForSetup() error {
	s := getSetupContext()
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `paths:
  temp_directory: "/original/tmp"
  output_directory: "/original/transcripts"
whisper:
  model: "tiny"
server:
  port: 4000
google:
  transcripts_folder_id: "original-folder-id"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func theWhisperModelIsChosen(model string) error {
	getSetupContext().selectResponse = model
	return nil
}

func (s *setupContext) run(inputs []string, confirms []bool) error {
	prompter := NewMockPrompter(inputs, confirms, s.selectResponse)
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	return s.err
}

func iRunTheSetupCommandWithInputs(table *godog.Table) error {
	s := getSetupContext()
	if err := s.run(parseInputTable(table), nil); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

func iRunTheSetupCommandWithConfirmationsAndInputs(confirmations string, table *godog.Table) error {
	s := getSetupContext()
	if err := s.run(parseInputTable(table), parseConfirmations(confirmations)); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

func iRunTheSetupCommandWithConfirmation(confirmation string) error {
	s := getSetupContext()
	_ = s.run(nil, parseConfirmations(confirmation))
	return nil
}

// parseInputTable reads a single-column table of answers, skipping the header
func parseInputTable(table *godog.Table) []string {
	var inputs []string
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		inputs = append(inputs, row.Cells[0].Value)
	}
	return inputs
}

// parseConfirmations reads a comma-separated list of yes/no answers
func parseConfirmations(s string) []bool {
	var confirms []bool
	for _, part := range strings.Split(s, ",") {
		answer := strings.ToLower(strings.TrimSpace(part))
		confirms = append(confirms, answer == "yes" || answer == "y")
	}
	return confirms
}

func (s *setupContext) load() (*config.Config, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func aConfigFileShouldExist() error {
	s := getSetupContext()
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func theConfigShouldHaveTempDirectory(expected string) error {
	cfg, err := getSetupContext().load()
	if err != nil {
		return err
	}
	if cfg.Paths.TempDirectory != expected {
		return fmt.Errorf("expected temp_directory %q, got %q", expected, cfg.Paths.TempDirectory)
	}
	return nil
}

func theConfigShouldHaveOutputDirectory(expected string) error {
	cfg, err := getSetupContext().load()
	if err != nil {
		return err
	}
	if cfg.Paths.OutputDirectory != expected {
		return fmt.Errorf("expected output_directory %q, got %q", expected, cfg.Paths.OutputDirectory)
	}
	return nil
}

func theConfigShouldHaveServerPort(expected int) error {
	cfg, err := getSetupContext().load()
	if err != nil {
		return err
	}
	if cfg.Server.Port != expected {
		return fmt.Errorf("expected port %d, got %d", expected, cfg.Server.Port)
	}
	return nil
}

func theConfigShouldHaveWhisperModel(expected string) error {
	cfg, err := getSetupContext().load()
	if err != nil {
		return err
	}
	if cfg.Whisper.Model != expected {
		return fmt.Errorf("expected whisper model %q, got %q", expected, cfg.Whisper.Model)
	}
	return nil
}

func theConfigShouldHaveTranscriptsFolderID(expected string) error {
	cfg, err := getSetupContext().load()
	if err != nil {
		return err
	}
	if cfg.Google.TranscriptsFolderID != expected {
		return fmt.Errorf("expected transcripts_folder_id %q, got %q", expected, cfg.Google.TranscriptsFolderID)
	}
	return nil
}

func theSetupShouldBeCancelled() error {
	s := getSetupContext()
	if s.err != nil {
		return fmt.Errorf("expected a clean cancel, got: %w", s.err)
	}
	if !strings.Contains(s.output.String(), "Setup cancelled.") {
		return fmt.Errorf("expected cancellation message, got: %q", s.output.String())
	}
	return nil
}

func theExistingConfigShouldBeUnchanged() error {
	s := getSetupContext()
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config file was modified")
	}
	return nil
}
