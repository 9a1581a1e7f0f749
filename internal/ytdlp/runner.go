package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxOutputBytes bounds how much subprocess output is buffered. A runaway
// yt-dlp process must not exhaust memory.
const maxOutputBytes = 10 << 20

var errOutputTooLarge = errors.New("yt-dlp output exceeds buffer limit")

// Runner executes the external extraction tool and returns its stdout. The
// seam lets tests exercise the parsing logic with a fake process.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// commandError wraps a failed invocation with the arguments used and the
// tool's stderr, which is where yt-dlp explains itself.
type commandError struct {
	args    []string
	stderr  string
	wrapped error
}

func (e *commandError) Error() string {
	msg := fmt.Sprintf("yt-dlp failed: %v (args: %s)", e.wrapped, strings.Join(e.args, " "))
	if e.stderr != "" {
		msg += ": " + e.stderr
	}
	return msg
}

func (e *commandError) Unwrap() error {
	return e.wrapped
}

func newCommandError(args []string, stderr string, err error) error {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > 500 {
		stderr = stderr[:500] + "..."
	}
	return &commandError{args: args, stderr: stderr, wrapped: err}
}

// boundedBuffer fails the write, and therefore the command, once the limit
// is exceeded.
type boundedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.limit {
		return 0, errOutputTooLarge
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

// execRunner runs the real binary with a wall-clock timeout per invocation.
type execRunner struct {
	binary  string
	timeout time.Duration
}

func newExecRunner(binary string, timeout time.Duration) *execRunner {
	return &execRunner{binary: binary, timeout: timeout}
}

func (r *execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, args...)

	stdout := &boundedBuffer{limit: maxOutputBytes}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, newCommandError(args, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}
