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

type configContext struct {
	tempDir    string
	configPath string
	cfg        *config.Config
	loadErr    error

	output *bytes.Buffer
	err    error
}

// SharedConfigContext is reset before each scenario via Before hook
var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		SharedConfigContext = &configContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config", "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedConfigContext.tempDir != "" {
			os.RemoveAll(SharedConfigContext.tempDir)
		}
		SharedConfigContext = &configContext{}
		return c, nil
	})

	ctx.Step(`^a configuration file containing:$`, aConfigurationFileContaining)
	ctx.Step(`^a default configuration file$`, aDefaultConfigurationFile)
	ctx.Step(`^no configuration file exists$`, noConfigurationFileExists)
	ctx.Step(`^I load the configuration$`, iLoadTheConfiguration)
	ctx.Step(`^I attempt to load the configuration$`, iAttemptToLoadTheConfiguration)
	ctx.Step(`^the temp directory should be "([^"]*)"$`, theTempDirectoryShouldBe)
	ctx.Step(`^the whisper model should be "([^"]*)"$`, theWhisperModelShouldBe)
	ctx.Step(`^the server port should be (\d+)$`, theServerPortShouldBe)
	ctx.Step(`^the audio bitrate should be "([^"]*)"$`, theAudioBitrateShouldBe)
	ctx.Step(`^I should receive an error containing "([^"]*)"$`, iShouldReceiveAnErrorContaining)
	ctx.Step(`^I should receive an error about missing configuration$`, iShouldReceiveAnErrorAboutMissingConfiguration)

	ctx.Step(`^I run config origins add "([^"]*)"$`, iRunConfigOriginsAdd)
	ctx.Step(`^I run config origins list$`, iRunConfigOriginsList)
	ctx.Step(`^I run config origins remove "([^"]*)"$`, iRunConfigOriginsRemove)
	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, iRunConfigSet)
	ctx.Step(`^I run config get "([^"]*)"$`, iRunConfigGet)
	ctx.Step(`^the command should succeed$`, theCommandShouldSucceed)
	ctx.Step(`^the command should fail with "([^"]*)"$`, theCommandShouldFailWith)
	ctx.Step(`^the output should contain "([^"]*)"$`, theOutputShouldContain)
	ctx.Step(`^the saved configuration should not allow origin "([^"]*)"$`, theSavedConfigurationShouldNotAllowOrigin)
}

func getConfigContext() *configContext {
	return SharedConfigContext
}

func aConfigurationFileContaining(content *godog.DocString) error {
	c := getConfigContext()
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.configPath, []byte(content.Content), 0644)
}

func aDefaultConfigurationFile() error {
	c := getConfigContext()
	return config.Save(config.Default(), c.configPath)
}

func noConfigurationFileExists() error {
	c := getConfigContext()
	if _, err := os.Stat(c.configPath); err == nil {
		return fmt.Errorf("unexpected config file at %s", c.configPath)
	}
	return nil
}

func iLoadTheConfiguration() error {
	c := getConfigContext()
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("unexpected error loading config: %w", err)
	}
	c.cfg = cfg
	return nil
}

func iAttemptToLoadTheConfiguration() error {
	c := getConfigContext()
	c.cfg, c.loadErr = config.Load(c.configPath)
	return nil
}

func theTempDirectoryShouldBe(expected string) error {
	c := getConfigContext()
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if c.cfg.Paths.TempDirectory != expected {
		return fmt.Errorf("expected temp directory %q, got %q", expected, c.cfg.Paths.TempDirectory)
	}
	return nil
}

func theWhisperModelShouldBe(expected string) error {
	c := getConfigContext()
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if c.cfg.Whisper.Model != expected {
		return fmt.Errorf("expected whisper model %q, got %q", expected, c.cfg.Whisper.Model)
	}
	return nil
}

func theServerPortShouldBe(expected int) error {
	c := getConfigContext()
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if c.cfg.Server.Port != expected {
		return fmt.Errorf("expected port %d, got %d", expected, c.cfg.Server.Port)
	}
	return nil
}

func theAudioBitrateShouldBe(expected string) error {
	c := getConfigContext()
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if c.cfg.Audio.Bitrate != expected {
		return fmt.Errorf("expected bitrate %q, got %q", expected, c.cfg.Audio.Bitrate)
	}
	return nil
}

func iShouldReceiveAnErrorContaining(expected string) error {
	c := getConfigContext()
	if c.loadErr == nil || !strings.Contains(c.loadErr.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %v", expected, c.loadErr)
	}
	return nil
}

func iShouldReceiveAnErrorAboutMissingConfiguration() error {
	if getConfigContext().loadErr == nil {
		return fmt.Errorf("expected an error but got none")
	}
	return nil
}

// --- Config commands ---

// loadConfig reads the file fresh so each command sees what the previous one saved
func (c *configContext) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.cfg = cfg
	c.output.Reset()
	return nil
}

func iRunConfigOriginsAdd(origin string) error {
	c := getConfigContext()
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.err = cmd.RunConfigOriginsAddWithDependencies(c.cfg, c.configPath, origin, c.output)
	return nil
}

func iRunConfigOriginsList() error {
	c := getConfigContext()
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.err = cmd.RunConfigOriginsListWithDependencies(c.cfg, c.configPath, c.output)
	return nil
}

func iRunConfigOriginsRemove(origin string) error {
	c := getConfigContext()
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.err = cmd.RunConfigOriginsRemoveWithDependencies(c.cfg, c.configPath, origin, c.output)
	return nil
}

func iRunConfigSet(key, value string) error {
	c := getConfigContext()
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.err = cmd.RunConfigSetWithDependencies(c.cfg, c.configPath, key, value, c.output)
	return nil
}

func iRunConfigGet(key string) error {
	c := getConfigContext()
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.err = cmd.RunConfigGetWithDependencies(c.cfg, c.configPath, key, c.output)
	return nil
}

func theCommandShouldSucceed() error {
	c := getConfigContext()
	if c.err != nil {
		return fmt.Errorf("expected command to succeed but got error: %v\nOutput: %s", c.err, c.output.String())
	}
	return nil
}

func theCommandShouldFailWith(expectedError string) error {
	c := getConfigContext()
	if c.err == nil {
		return fmt.Errorf("expected command to fail with %q but it succeeded\nOutput: %s", expectedError, c.output.String())
	}
	if !strings.Contains(strings.ToLower(c.err.Error()), strings.ToLower(expectedError)) {
		return fmt.Errorf("expected error to contain %q but got %q", expectedError, c.err.Error())
	}
	return nil
}

func theOutputShouldContain(expected string) error {
	output := getConfigContext().output.String()
	if !strings.Contains(output, expected) {
		return fmt.Errorf("expected output to contain %q but got:\n%s", expected, output)
	}
	return nil
}

func theSavedConfigurationShouldNotAllowOrigin(origin string) error {
	c := getConfigContext()
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	for _, o := range cfg.Server.AllowedOrigins {
		if o == origin {
			return fmt.Errorf("origin %s is still allowed: %v", origin, cfg.Server.AllowedOrigins)
		}
	}
	return nil
}
