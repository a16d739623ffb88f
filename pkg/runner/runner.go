// Package runner invokes the external pipeline tools.
//
// Commands are argument vectors, never shell strings, so paths containing
// quotes or spaces reach the tool unchanged. Every completed invocation
// yields a Result carrying the exit code and captured output; callers decide
// what a non-zero exit means through Result.Err.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medpipe/pkg/metrics"
)

const cancelWaitDelay = 2 * time.Second

// Command describes one external invocation
type Command struct {
	// Tool is a short label used in logs, metrics and errors ("crop", "viewer", ...)
	Tool string

	// Path is the executable, either a resolved file or a name looked up on PATH
	Path string

	// Args are passed verbatim, without shell interpretation
	Args []string

	// Dir is the working directory; empty inherits the caller's
	Dir string
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result contains the outcome of a process that ran to completion
type Result struct {
	// RunID identifies this invocation in logs
	RunID string

	// Tool is copied from the command
	Tool string

	// ExitCode is the process exit code, 0 on success
	ExitCode int

	// Stdout and Stderr are the captured output streams
	Stdout []byte
	Stderr []byte

	// Duration is the wall time of the process
	Duration time.Duration
}

// OK reports whether the process exited with status 0.
func (r *Result) OK() bool {
	return r.ExitCode == 0
}

// Err returns a *ToolError for a non-zero exit and nil otherwise.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ToolError{
		Tool:     r.Tool,
		ExitCode: r.ExitCode,
		Stdout:   string(r.Stdout),
		Stderr:   string(r.Stderr),
	}
}

// ToolError reports a tool that ran but failed
type ToolError struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if diag := e.Diagnostic(); diag != "" {
		msg += ": " + diag
	}
	return msg
}

// Diagnostic returns the tool's own explanation: stderr when present, stdout otherwise.
func (e *ToolError) Diagnostic() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(e.Stdout)
}

// Runner runs external commands. It blocks until the process exits.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewExecRunner creates a runner. Both arguments may be nil.
func NewExecRunner(logger *zap.Logger, rec *metrics.Recorder) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger, metrics: rec}
}

// Run starts the command and waits for it. The returned error is non-nil
// only when the process could not be started or was cancelled through ctx;
// a process that exits non-zero yields a Result whose Err is non-nil.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%s: empty executable path", c.Tool)
	}

	runID := uuid.NewString()
	log := r.logger.With(
		zap.String("run_id", runID),
		zap.String("tool", c.Tool),
	)

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	// Grandchildren may hold the output pipes open after a cancelled tool is killed
	cmd.WaitDelay = cancelWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info("starting external tool",
		zap.Strings("argv", c.Argv()),
		zap.String("dir", c.Dir),
	)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.metrics.ObserveTool(c.Tool, metrics.OutcomeError, elapsed)
		log.Warn("external tool cancelled", zap.Error(ctxErr))
		return nil, fmt.Errorf("%s cancelled: %w", c.Tool, ctxErr)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			r.metrics.ObserveTool(c.Tool, metrics.OutcomeError, elapsed)
			log.Error("failed to start external tool", zap.Error(err))
			return nil, fmt.Errorf("failed to start %s: %w", c.Tool, err)
		}
		exitCode = exitErr.ExitCode()
	}

	result := &Result{
		RunID:    runID,
		Tool:     c.Tool,
		ExitCode: exitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: elapsed,
	}

	if result.OK() {
		r.metrics.ObserveTool(c.Tool, metrics.OutcomeSuccess, elapsed)
		log.Info("external tool finished", zap.Duration("duration", elapsed))
	} else {
		r.metrics.ObserveTool(c.Tool, metrics.OutcomeFailure, elapsed)
		log.Warn("external tool failed",
			zap.Int("exit_code", exitCode),
			zap.Duration("duration", elapsed),
			zap.ByteString("stderr", result.Stderr),
		)
	}
	return result, nil
}
