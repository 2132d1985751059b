package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/osi4iot/hookrelay/internal/config"
)

const (
	defaultHookTimeout = config.DefaultTimeoutSeconds * time.Second
	truncatedMarker    = "\n[output truncated]"
	killGrace          = 2 * time.Second
)

// Invocation describes one external command run.
type Invocation struct {
	Command string
	Payload []byte
	Timeout time.Duration
	Env     map[string]string
	Dir     string
}

// Result is the raw outcome of one invocation. It carries no decision semantics.
type Result struct {
	ExitCode        int           `json:"exitCode"`
	Stdout          []byte        `json:"-"`
	Stderr          []byte        `json:"-"`
	Duration        time.Duration `json:"-"`
	TimedOut        bool          `json:"timedOut"`
	StdoutTruncated bool          `json:"stdoutTruncated,omitempty"`
	StderrTruncated bool          `json:"stderrTruncated,omitempty"`
	// Err is set when the shell could not be started or the caller's context ended.
	Err error `json:"-"`
}

// DurationMs returns the wall-clock duration in milliseconds
func (r Result) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// Invoker runs hook commands through sh -c in their own process group.
type Invoker struct {
	maxOutput int
	shell     string
}

// NewInvoker creates an Invoker capping each captured stream at maxOutputBytes
func NewInvoker(maxOutputBytes int) *Invoker {
	if maxOutputBytes <= 0 {
		maxOutputBytes = config.DefaultMaxOutputBytes
	}
	return &Invoker{maxOutput: maxOutputBytes, shell: "sh"}
}

// Invoke runs one command to completion or until its timeout expires.
// On timeout the whole process group is killed and the result has
// TimedOut set and ExitCode -1.
func (inv *Invoker) Invoke(ctx context.Context, in Invocation) Result {
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := config.NewPlaceholderExpander(templateVars(in.Env)).Expand(in.Command)

	cmd := exec.CommandContext(runCtx, inv.shell, "-c", command)
	cmd.Stdin = bytes.NewReader(in.Payload)
	cmd.Dir = in.Dir
	if cmd.Dir == "" {
		cmd.Dir = currentDir()
	}
	cmd.Env = mergeEnv(os.Environ(), in.Env)

	stdout := newBoundedBuffer(inv.maxOutput)
	stderr := newBoundedBuffer(inv.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	setProcGroup(cmd)
	cmd.Cancel = func() error {
		return killProcGroup(cmd)
	}
	cmd.WaitDelay = killGrace

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Duration:        time.Since(start),
		Stdout:          stdout.Bytes(),
		Stderr:          stderr.Bytes(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.TimedOut = true
		res.ExitCode = -1
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = ctx.Err()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = err
	}

	return res
}

// templateVars picks the values that may be spliced into command text.
// Argument values only ever reach the shell through the environment.
func templateVars(env map[string]string) map[string]string {
	vars := make(map[string]string, 2)
	for _, k := range []string{EnvProjectDir, EnvClaudeProjectDir} {
		if v, ok := env[k]; ok {
			vars[k] = v
		}
	}
	return vars
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key := kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key = kv[:i]
				break
			}
		}
		if _, overridden := extra[key]; !overridden {
			env = append(env, kv)
		}
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func currentDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "/"
	}
	return cwd
}

// boundedBuffer keeps the first limit bytes written and silently drops the
// rest, so the child never blocks on a full pipe.
type boundedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	switch {
	case remaining <= 0:
		if len(p) > 0 {
			b.truncated = true
		}
	case len(p) > remaining:
		b.buf.Write(p[:remaining])
		b.truncated = true
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *boundedBuffer) Bytes() []byte {
	if !b.truncated {
		return b.buf.Bytes()
	}
	out := make([]byte, 0, b.buf.Len()+len(truncatedMarker))
	out = append(out, b.buf.Bytes()...)
	return append(out, truncatedMarker...)
}
