package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external tool and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs tools with os/exec, killing them when ctx ends.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return out.Bytes(), stderr.Bytes(), ctx.Err()
		}
		return out.Bytes(), stderr.Bytes(), &ExitError{Tool: name, Err: err, Stderr: stderr.String()}
	}
	return out.Bytes(), stderr.Bytes(), nil
}

// ExitError is returned when a tool exits unsuccessfully.
type ExitError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s failed: %v, stderr: %s", e.Tool, e.Err, tail(e.Stderr, 500))
}

func (e *ExitError) Unwrap() error { return e.Err }

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
