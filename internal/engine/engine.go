// Package engine drives the container engine hosting the registry: it
// execs maintenance commands inside the registry container and restarts it.
// It talks to Docker or Podman over the configured socket.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/bsamaha/docker-registry/internal/common"
	"github.com/bsamaha/docker-registry/pkg/logger"
)

// Engine wraps an engine API client scoped to the registry container.
type Engine struct {
	cli         *client.Client
	containerID string
	stopTimeout int
	gc          common.GCConfig
	storage     common.StorageConfig
}

// ExecResult carries the outcome of a command exec'd inside the container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func NewEngine(cfg *common.Config) (*Engine, error) {
	sock := cfg.Engine.Sock
	if cfg.Engine.Podman && cfg.Engine.PodmanSock != "" {
		sock = cfg.Engine.PodmanSock
	}
	if sock == "" {
		return nil, fmt.Errorf("engine socket path is empty")
	}
	if _, err := os.Stat(sock); os.IsNotExist(err) {
		return nil, fmt.Errorf("engine socket does not exist: %s", sock)
	}

	cli, err := client.NewClientWithOpts(
		client.WithAPIVersionNegotiation(),
		client.WithHost("unix://"+sock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine client: %w", err)
	}

	logger.Debug("Engine client initialized",
		"socket", sock,
		"podman", cfg.Engine.Podman,
		"container", cfg.Engine.Container)

	return &Engine{
		cli:         cli,
		containerID: cfg.Engine.Container,
		stopTimeout: cfg.Engine.StopTimeout,
		gc:          cfg.GC,
		storage:     cfg.Storage,
	}, nil
}

func (e *Engine) Close() error {
	return e.cli.Close()
}

// Container returns the name or ID of the registry container the engine
// operates on.
func (e *Engine) Container() string {
	return e.containerID
}

// Ping verifies that the engine is reachable and the registry container is
// running.
func (e *Engine) Ping(ctx context.Context) error {
	info, err := e.cli.ContainerInspect(ctx, e.containerID)
	if err != nil {
		return fmt.Errorf("cannot inspect container %s: %w", e.containerID, err)
	}
	if info.State == nil || !info.State.Running {
		return fmt.Errorf("container %s is not running", e.containerID)
	}
	return nil
}

// ExecInContainer runs a command inside the registry container and waits
// for it to finish, capturing both output streams.
func (e *Engine) ExecInContainer(ctx context.Context, cmd []string) (*ExecResult, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("exec command is empty")
	}

	execResp, err := e.cli.ContainerExecCreate(ctx, e.containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec in container %s: %w", e.containerID, err)
	}

	attach, err := e.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if err := demuxExecStream(ctx, &stdout, &stderr, attach.Reader); err != nil {
		return nil, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}

	result := &ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	logger.Debug("Exec finished",
		"command", strings.Join(cmd, " "),
		"exit_code", result.ExitCode)
	return result, nil
}

// demuxExecStream copies the multiplexed exec stream into stdout and
// stderr, honoring context cancellation.
func demuxExecStream(ctx context.Context, stdout, stderr io.Writer, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, r)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
