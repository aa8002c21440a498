// Package gateway invokes external CLIs (talosctl, kind, kubectl) with a
// per-call timeout and classifies failures as transient or fatal.
//
// Classification uses exit-code and stderr-pattern heuristics. A default set
// of transient patterns covers network blips and a not-yet-ready API server;
// call sites can extend it. Anything that does not match a transient pattern
// is treated as fatal (bad arguments, authentication failures) and is never
// retried.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/zerotouch/ztboot/internal/retry"
)

// Class distinguishes retryable failures from ones that must surface
// immediately.
type Class int

const (
	// ClassNone means the command succeeded.
	ClassNone Class = iota
	// ClassTransient covers network blips, timeouts, and services that are
	// not ready yet. Callers decide the retry policy.
	ClassTransient
	// ClassFatal covers bad arguments, authentication failures, and anything
	// else retrying cannot fix.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	default:
		return "none"
	}
}

// Command describes one external invocation. TransientPatterns extends the
// default stderr heuristics for this call site only.
type Command struct {
	Name              string
	Args              []string
	Env               []string // appended to the parent environment
	Stdin             []byte
	Timeout           time.Duration
	TransientPatterns []string
}

// Result carries the captured output of an invocation. Started and Finished
// are recorded for audit logging.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Class    Class
	Started  time.Time
	Finished time.Time
}

// Error is returned for failed invocations. Fatal errors are additionally
// wrapped with retry.Fatal so the phase executor skips retries.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
	Class    Class
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s exited with code %d (%s)", e.Command, e.ExitCode, e.Class)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

// Runner executes external commands. The production implementation is Exec;
// tests substitute a Recorder.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands via os/exec with the configured timeout. On timeout the
// child process is killed and the failure is classified as transient.
type Exec struct{}

// defaultTransientPatterns matches stderr output of commands that failed for
// reasons expected to clear on their own.
var defaultTransientPatterns = []string{
	"EOF",
	"connection refused",
	"connection reset",
	"i/o timeout",
	"no such host",
	"TLS handshake timeout",
	"context deadline exceeded",
	"Unable to connect",
	"apiserver not ready",
	"the server is currently unable to handle the request",
}

// Run implements Runner. Every invocation is logged with start and end
// timestamps so the run can be audited afterwards.
func (Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	res := Result{Started: time.Now()}
	log.Printf("exec: %s %s", cmd.Name, strings.Join(cmd.Args, " "))

	// #nosec G204 - command names and arguments come from the phase table,
	// not from untrusted input
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if len(cmd.Stdin) > 0 {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	runErr := c.Run()
	res.Finished = time.Now()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	log.Printf("exec: %s finished in %v", cmd.Name, res.Finished.Sub(res.Started).Round(time.Millisecond))

	if runErr == nil {
		res.ExitCode = 0
		res.Class = ClassNone
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		// Process never started or was killed before exiting cleanly.
		res.ExitCode = -1
	}

	res.Class = classify(ctx, res.Stderr, cmd.TransientPatterns)

	gwErr := &Error{
		Command:  cmd.Name,
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Class:    res.Class,
	}
	if res.Class == ClassFatal {
		return res, retry.Fatal(gwErr)
	}
	return res, gwErr
}

// classify decides transient vs fatal for a failed invocation. A killed
// deadline is always transient; otherwise stderr is matched against the
// default and per-call transient patterns.
func classify(ctx context.Context, stderr string, extra []string) Class {
	if ctx.Err() != nil {
		return ClassTransient
	}
	for _, pattern := range defaultTransientPatterns {
		if strings.Contains(stderr, pattern) {
			return ClassTransient
		}
	}
	for _, pattern := range extra {
		if strings.Contains(stderr, pattern) {
			return ClassTransient
		}
	}
	return ClassFatal
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
