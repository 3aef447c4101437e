// Package nlp abstracts the external NLP model used for query decomposition
// and semantic reranking. Pipeline logic never spawns processes directly; it
// talks to a ModelInvoker, with one subprocess implementation and a
// deterministic static double for tests.
package nlp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	apperrors "github.com/reverb-labs/echosearch/internal/errors"
)

// ModelInvoker invokes an external NLP model with a prompt and returns its
// raw stdout. The binary may be slow, absent, or emit malformed output;
// callers must degrade gracefully on every error.
type ModelInvoker interface {
	// Invoke runs the model with the given prompt. The context carries
	// the caller's time box; on expiry the implementation must kill and
	// reap the process before returning.
	Invoke(ctx context.Context, prompt string) (string, error)

	// Available reports whether the model can be invoked at all.
	Available() bool
}

// SubprocessInvoker runs an executable with the prompt as its argument and
// captures stdout.
type SubprocessInvoker struct {
	binary string
	args   []string
}

var _ ModelInvoker = (*SubprocessInvoker)(nil)

// NewSubprocessInvoker creates an invoker for the given binary. Extra args
// are passed before the prompt.
func NewSubprocessInvoker(binary string, args ...string) *SubprocessInvoker {
	return &SubprocessInvoker{binary: binary, args: args}
}

// Invoke runs the binary. exec.CommandContext kills the process when the
// context expires, and Output waits for the exit status, so a timed-out
// subprocess is always reaped before control returns.
func (s *SubprocessInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if s.binary == "" {
		return "", apperrors.New(apperrors.ErrCodeModelMissing, "no model binary configured", nil)
	}

	args := make([]string, 0, len(s.args)+1)
	args = append(args, s.args...)
	args = append(args, prompt)

	start := time.Now()
	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("model_invoke_timeout",
				slog.String("binary", s.binary),
				slog.Duration("elapsed", time.Since(start)))
			return "", apperrors.New(apperrors.ErrCodeModelTimeout, "model invocation timed out", ctx.Err())
		}
		return "", apperrors.New(apperrors.ErrCodeModelExit,
			fmt.Sprintf("model invocation failed: %v (stderr: %s)", err, stderr.String()), err)
	}

	slog.Debug("model_invoke_complete",
		slog.String("binary", s.binary),
		slog.Int("output_bytes", len(out)),
		slog.Duration("elapsed", time.Since(start)))
	return string(out), nil
}

// Available reports whether the binary resolves on the execution path.
func (s *SubprocessInvoker) Available() bool {
	if s.binary == "" {
		return false
	}
	_, err := exec.LookPath(s.binary)
	return err == nil
}

// StaticInvoker returns a fixed output (or error) after an optional delay.
// Used when no model is configured and as a deterministic test double.
type StaticInvoker struct {
	// Output is returned from every Invoke call.
	Output string

	// Err, when set, is returned instead of Output.
	Err error

	// Delay is waited before returning; the context still applies.
	Delay time.Duration

	// Calls counts Invoke invocations.
	Calls int
}

var _ ModelInvoker = (*StaticInvoker)(nil)

// Invoke returns the configured output, respecting context cancellation
// during the delay.
func (s *StaticInvoker) Invoke(ctx context.Context, _ string) (string, error) {
	s.Calls++
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Output, nil
}

// Available always returns true for StaticInvoker.
func (s *StaticInvoker) Available() bool {
	return true
}
