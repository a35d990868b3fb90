package command

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process
// is killed; orphaned grandchildren can otherwise hold them open.
const waitDelay = 2 * time.Second

// Runner defines the interface for running external commands
// This allows mocking exec.Command in tests
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result captures the output of one external command
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExecRunner is the production implementation using os/exec
type ExecRunner struct{}

// Run executes a command, capturing stdout, stderr and the exit code.
// Success is judged by exit code only. Cancelling ctx kills the whole
// process group so helpers spawned by the tool die with it.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroupOnCancel(cmd)

	err := cmd.Run()
	result := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// IsNotFound reports whether err means the executable does not exist on the
// host, either missing from PATH or a configured path that does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// Diagnostic condenses command stderr into a short human readable summary:
// the last maxLines non-empty lines, with ERROR lines preferred when present.
func Diagnostic(stderr []byte, maxLines int) string {
	var lines, errorLines []string
	for _, line := range strings.Split(strings.ReplaceAll(string(stderr), "\r", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if strings.HasPrefix(line, "ERROR") || strings.HasPrefix(line, "Error") {
			errorLines = append(errorLines, line)
		}
	}
	if len(errorLines) > 0 {
		lines = errorLines
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
