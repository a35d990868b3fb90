package whisper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clipscribe/domain/media"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/transcript"
	"clipscribe/infrastructure/command"
)

//go:embed assets/transcribe.py
var helperScript string

const (
	pythonHint  = "Python 3 is not installed. Please install Python 3 to use local transcription."
	packageHint = "faster-whisper is not installed. Please run: pip install faster-whisper"
)

// Engine implements media.Engine by running faster-whisper through python3
type Engine struct {
	python        string
	runner        command.Runner
	model         string
	device        string
	computeType   string
	beamSize      int
	minSilenceMS  int
	probeTimeout  time.Duration
	importTimeout time.Duration
}

// EngineOption is a functional option for configuring Engine
type EngineOption func(*Engine)

// WithPython sets a custom python interpreter path
func WithPython(path string) EngineOption {
	return func(e *Engine) {
		if path != "" {
			e.python = path
		}
	}
}

// WithRunner sets a custom command runner (for testing)
func WithRunner(runner command.Runner) EngineOption {
	return func(e *Engine) {
		e.runner = runner
	}
}

// WithModel selects the whisper model and where it runs
func WithModel(model, device, computeType string) EngineOption {
	return func(e *Engine) {
		if model != "" {
			e.model = model
		}
		if device != "" {
			e.device = device
		}
		if computeType != "" {
			e.computeType = computeType
		}
	}
}

// WithDecoding sets the beam size and the VAD minimum silence in milliseconds
func WithDecoding(beamSize, minSilenceMS int) EngineOption {
	return func(e *Engine) {
		if beamSize > 0 {
			e.beamSize = beamSize
		}
		if minSilenceMS > 0 {
			e.minSilenceMS = minSilenceMS
		}
	}
}

// WithProbeTimeouts bounds the interpreter version check and the
// faster-whisper import check. Importing pulls in ctranslate2 and can take
// far longer than the version check on a cold cache.
func WithProbeTimeouts(version, importCheck time.Duration) EngineOption {
	return func(e *Engine) {
		if version > 0 {
			e.probeTimeout = version
		}
		if importCheck > 0 {
			e.importTimeout = importCheck
		}
	}
}

// NewEngine creates a new faster-whisper engine
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		python:        "python3",
		runner:        &command.ExecRunner{},
		model:         "base",
		device:        "cpu",
		computeType:   "int8",
		beamSize:      5,
		minSilenceMS:  500,
		probeTimeout:  5 * time.Second,
		importTimeout: 2 * time.Minute,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// helperOutput is the JSON document the helper prints on stdout
type helperOutput struct {
	Text       string               `json:"text"`
	Language   string               `json:"language"`
	Duration   float64              `json:"duration"`
	Segments   []transcript.Segment `json:"segments"`
	Translated bool                 `json:"translated"`
	Error      string               `json:"error"`
}

// Version returns the interpreter version, e.g. "Python 3.11.4"
func (e *Engine) Version(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	res, err := e.runner.Run(probeCtx, e.python, "--version")
	if err != nil {
		if ctx.Err() != nil {
			return "", pipeline.Wrap(pipeline.KindInternalFailure, ctx.Err(), "python version check interrupted")
		}
		return "", pipeline.Wrap(pipeline.KindEngineMissing, err, pythonHint)
	}
	// Older interpreters print the version on stderr
	out := bytes.TrimSpace(res.Stdout)
	if len(out) == 0 {
		out = bytes.TrimSpace(res.Stderr)
	}
	return string(out), nil
}

// Verify implements media.Engine
func (e *Engine) Verify(ctx context.Context) error {
	if _, err := e.Version(ctx); err != nil {
		return err
	}

	importCtx, cancel := context.WithTimeout(ctx, e.importTimeout)
	defer cancel()

	if _, err := e.runner.Run(importCtx, e.python, "-c", "import faster_whisper"); err != nil {
		switch {
		case ctx.Err() != nil:
			return pipeline.Wrap(pipeline.KindInternalFailure, ctx.Err(), "faster-whisper check interrupted")
		case importCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
			return pipeline.Wrap(pipeline.KindInternalFailure, err,
				fmt.Sprintf("timed out after %s importing faster-whisper", e.importTimeout))
		}
		return pipeline.Wrap(pipeline.KindEngineDependencyMissing, err, packageHint)
	}
	return nil
}

// Transcribe implements media.Engine. The helper runs via python -c so no
// script file is written to disk.
func (e *Engine) Transcribe(ctx context.Context, audioPath string, translate bool) (*transcript.Result, error) {
	args := []string{
		"-c", helperScript,
		audioPath,
		"--model", e.model,
		"--device", e.device,
		"--compute-type", e.computeType,
		"--beam-size", strconv.Itoa(e.beamSize),
		"--min-silence-ms", strconv.Itoa(e.minSilenceMS),
	}
	if translate {
		args = append(args, "--translate")
	}

	res, err := e.runner.Run(ctx, e.python, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("transcription interrupted: %w", ctx.Err())
		}
		return nil, e.classifyFailure(res, err)
	}

	out, err := decodeOutput(res.Stdout)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindTranscriptionFailed, err,
			"Transcription error: engine returned malformed output")
	}
	if out.Error != "" {
		return nil, pipeline.Wrap(pipeline.KindTranscriptionFailed, errors.New(out.Error),
			"Transcription error: "+out.Error)
	}

	result := &transcript.Result{
		Text:     out.Text,
		Language: out.Language,
		Duration: out.Duration,
		Segments: out.Segments,
	}
	result.Normalize()
	result.Translated = translate

	return result, nil
}

func (e *Engine) classifyFailure(res command.Result, err error) error {
	if command.IsNotFound(err) {
		return pipeline.Wrap(pipeline.KindEngineMissing, err, pythonHint)
	}

	combined := string(res.Stderr) + string(res.Stdout)
	if strings.Contains(combined, "No module named") {
		return pipeline.Wrap(pipeline.KindEngineDependencyMissing, err, packageHint)
	}

	if out, decodeErr := decodeOutput(res.Stdout); decodeErr == nil && out.Error != "" {
		return pipeline.Wrap(pipeline.KindTranscriptionFailed, err, "Transcription error: "+out.Error)
	}

	detail := command.Diagnostic(res.Stderr, 2)
	if detail == "" {
		detail = fmt.Sprintf("engine exited with code %d", res.ExitCode)
	}
	return pipeline.Wrap(pipeline.KindTranscriptionFailed, err, "Transcription error: "+detail)
}

// decodeOutput parses the last JSON object line on stdout; libraries may
// print progress lines before it
func decodeOutput(stdout []byte) (*helperOutput, error) {
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var out helperOutput
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			return nil, fmt.Errorf("failed to decode engine output: %w", err)
		}
		return &out, nil
	}
	return nil, errors.New("engine produced no JSON output")
}

// Ensure Engine implements media.Engine
var _ media.Engine = (*Engine)(nil)
