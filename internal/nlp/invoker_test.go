package nlp

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reverb-labs/echosearch/internal/errors"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("subprocess tests rely on unix tooling")
	}
}

func TestSubprocessInvokerCapturesStdout(t *testing.T) {
	requireUnix(t)
	inv := NewSubprocessInvoker("echo")

	out, err := inv.Invoke(context.Background(), "hello prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello prompt\n", out)
}

func TestSubprocessInvokerPassesArgsBeforePrompt(t *testing.T) {
	requireUnix(t)
	inv := NewSubprocessInvoker("echo", "-n")

	out, err := inv.Invoke(context.Background(), "no newline")
	require.NoError(t, err)
	assert.Equal(t, "no newline", out)
}

func TestSubprocessInvokerTimeout(t *testing.T) {
	requireUnix(t)
	inv := NewSubprocessInvoker("sleep")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := inv.Invoke(ctx, "5")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second, "the process must be killed, not waited out")

	var echoErr *apperrors.EchoError
	require.ErrorAs(t, err, &echoErr)
	assert.Equal(t, apperrors.ErrCodeModelTimeout, echoErr.Code)
	assert.True(t, echoErr.Recoverable)
}

func TestSubprocessInvokerNonZeroExit(t *testing.T) {
	requireUnix(t)
	inv := NewSubprocessInvoker("sh", "-c", "exit 3; echo ignored")

	_, err := inv.Invoke(context.Background(), "unused")
	require.Error(t, err)

	var echoErr *apperrors.EchoError
	require.ErrorAs(t, err, &echoErr)
	assert.Equal(t, apperrors.ErrCodeModelExit, echoErr.Code)
}

func TestSubprocessInvokerNoBinary(t *testing.T) {
	inv := NewSubprocessInvoker("")

	_, err := inv.Invoke(context.Background(), "prompt")
	require.Error(t, err)

	var echoErr *apperrors.EchoError
	require.ErrorAs(t, err, &echoErr)
	assert.Equal(t, apperrors.ErrCodeModelMissing, echoErr.Code)
}

func TestSubprocessInvokerAvailable(t *testing.T) {
	requireUnix(t)
	assert.True(t, NewSubprocessInvoker("sh").Available())
	assert.False(t, NewSubprocessInvoker("").Available())
	assert.False(t, NewSubprocessInvoker("definitely-not-a-real-binary-name").Available())
}

func TestStaticInvoker(t *testing.T) {
	inv := &StaticInvoker{Output: "fixed output"}

	out, err := inv.Invoke(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "fixed output", out)
	assert.Equal(t, 1, inv.Calls)
	assert.True(t, inv.Available())
}

func TestStaticInvokerError(t *testing.T) {
	boom := errors.New("boom")
	inv := &StaticInvoker{Err: boom}

	_, err := inv.Invoke(context.Background(), "prompt")
	assert.ErrorIs(t, err, boom)
}

func TestStaticInvokerDelayRespectsContext(t *testing.T) {
	inv := &StaticInvoker{Output: "late", Delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := inv.Invoke(ctx, "prompt")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
