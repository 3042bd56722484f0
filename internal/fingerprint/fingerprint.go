// Package fingerprint describes the scanning machine's hardware for the root
// of the discovery tree.
package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// DefaultTimeout bounds the platform command and host fact lookup.
const DefaultTimeout = 10 * time.Second

// Runner runs a command and returns its standard output and standard error.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Describer builds the hardware description of this machine.
type Describer struct {
	run      Runner
	hostInfo func(ctx context.Context) (*host.InfoStat, error)
	command  Command
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Describer.
type Option func(*Describer)

// WithTimeout bounds Describe. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(desc *Describer) {
		if d > 0 {
			desc.timeout = d
		}
	}
}

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(desc *Describer) { desc.run = r }
}

// New creates a Describer for the current platform.
func New(logger *zap.Logger, opts ...Option) *Describer {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Describer{
		run:      ExecRunner,
		hostInfo: host.InfoWithContext,
		command:  PlatformCommand(),
		timeout:  DefaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Describe returns a one-line description: host facts followed by the
// flattened output of the platform hardware command. It never fails; a
// part that cannot be read is replaced by a short marker.
func (d *Describer) Describe(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	parts := make([]string, 0, 2)
	if facts := d.hostFacts(ctx); facts != "" {
		parts = append(parts, facts)
	}
	parts = append(parts, d.hardware(ctx))
	return strings.Join(parts, " | ")
}

func (d *Describer) hostFacts(ctx context.Context) string {
	info, err := d.hostInfo(ctx)
	if err != nil || info == nil {
		d.logger.Debug("host facts unavailable", zap.Error(err))
		return ""
	}
	fields := []string{info.Hostname, info.Platform, info.PlatformVersion, info.KernelArch}
	nonEmpty := fields[:0]
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func (d *Describer) hardware(ctx context.Context) string {
	if !d.command.Supported() {
		return "Target OS is unsupported!"
	}
	stdout, stderr, err := d.run(ctx, d.command.Name, d.command.Args...)
	if err != nil && len(stdout) == 0 && len(stderr) == 0 {
		d.logger.Debug("hardware command failed",
			zap.String("command", d.command.Name),
			zap.Error(err),
		)
		return fmt.Sprintf("unavailable (%v)", err)
	}
	return FlattenLines(string(stdout) + "\n" + string(stderr))
}

// FlattenLines joins the trimmed lines of s with single spaces and drops
// blank lines.
func FlattenLines(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(line)
	}
	return b.String()
}
