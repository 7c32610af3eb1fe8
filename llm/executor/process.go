package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

// outputTail is how much of the interpreter output ends up in the error.
const outputTail = 512

var DefaultCommand = []string{"python3", "-"}

// Config [executor] 配置段
type Config struct {
	Command []string `json:"command"`
	Timeout string   `json:"timeout"`
	WorkDir string   `json:"work_dir"`
}

func DefaultConfig() Config {
	return Config{Command: DefaultCommand, Timeout: "2m"}
}

// Process feeds each script to a fresh interpreter process on stdin. There
// is no sandbox: the script can do whatever the interpreter can.
type Process struct {
	command []string
	timeout time.Duration
	workDir string
	logger  *zap.Logger
}

func NewProcess(cfg Config) (*Process, error) {
	command := cfg.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("executor.timeout: %w", err)
		}
		timeout = d
	}
	return &Process{
		command: append([]string(nil), command...),
		timeout: timeout,
		workDir: cfg.WorkDir,
		logger:  logs.GetLogger("executor"),
	}, nil
}

func (p *Process) Command() []string { return append([]string(nil), p.command...) }

// Execute implements workflow.ScriptSink. A non-zero exit, a start failure
// or a timeout is an errors.ErrExecution carrying the tail of the output.
func (p *Process) Execute(ctx context.Context, script string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Dir = p.workDir
	cmd.Stdin = strings.NewReader(script)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// children that keep the pipes open must not outlive the kill
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	p.logger.Debug("script finished",
		logs.String("command", strings.Join(p.command, " ")),
		logs.Duration("elapsed", time.Since(start)),
		logs.Int("output", out.Len()))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrapf(errors.ErrExecution, ctx.Err(), "interrupted after %s", time.Since(start).Round(time.Millisecond))
	}
	detail := err.Error()
	if tail := tailOf(out.String()); tail != "" {
		detail += ": " + tail
	}
	return errors.WithMsg(errors.ErrExecution, detail)
}

func tailOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTail {
		return s
	}
	return "..." + s[len(s)-outputTail:]
}
