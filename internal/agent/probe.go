package agent

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/hadiscovery/internal/discovery"
)

const (
	// maxProbeOutput caps the captured stdout and stderr of a probe.
	maxProbeOutput = 4096

	// probeWaitDelay bounds the wait for output pipes after a probe is killed.
	probeWaitDelay = time.Second
)

var (
	// ErrEmptyCommand is returned when a probe has no command.
	ErrEmptyCommand = errors.New("agent: empty probe command")

	// ErrProbeFailed is returned when a probe command fails or times out.
	ErrProbeFailed = errors.New("agent: probe failed")
)

// Runner runs a probe command and returns its trimmed standard output.
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
}

// CommandRunner runs probes as subprocesses.
//
// Each command runs in its own process group. When ctx ends the whole
// group is killed, so shell pipelines do not outlive their probe.
type CommandRunner struct{}

// Run executes argv and returns its trimmed standard output.
func (CommandRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 || argv[0] == "" {
		return "", ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // probe commands come from the operator's configuration

	// Create a new process group so we can signal all children on timeout
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	cmd.WaitDelay = probeWaitDelay

	stdout := &cappedBuffer{limit: maxProbeOutput}
	stderr := &cappedBuffer{limit: maxProbeOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrProbeFailed, argv[0], ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s: %w: %s", ErrProbeFailed, argv[0], err, msg)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrProbeFailed, argv[0], err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	limit int
	buf   []byte
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - len(b.buf); room > 0 {
		b.buf = append(b.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return string(b.buf)
}

// probe publishes the output of a command as an entity's state.
type probe struct {
	device     string
	entity     string
	command    []string
	stateTopic string
	qos        byte
	timeout    time.Duration

	runner   Runner
	recorder Recorder
	metrics  ProbeMetrics
	logger   Logger
}

// run is the probe's discovery.Callback. The command and the state publish
// share one timeout.
func (p *probe) run(ctx context.Context, pub discovery.Publisher) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Run(ctx, p.command)
	p.metrics.ProbeCompleted(p.device, p.entity, err)
	if err != nil {
		p.logger.Warn("probe failed",
			"device", p.device,
			"entity", p.entity,
			"error", err,
		)
		return
	}

	if err := pub.Publish(ctx, p.stateTopic, []byte(out), p.qos, false); err != nil {
		p.logger.Warn("publishing probe state failed",
			"device", p.device,
			"entity", p.entity,
			"topic", p.stateTopic,
			"error", err,
		)
		return
	}
	p.logger.Debug("probe state published",
		"device", p.device,
		"entity", p.entity,
		"state", out,
	)

	if value, err := strconv.ParseFloat(out, 64); err == nil {
		p.recorder.WriteReading(p.device, p.entity, value)
	}
}
