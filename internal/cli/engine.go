// engine.go defines the engine interface: the slice of the docker package
// that the build, run, and dev workflows drive. The commands orchestrate
// against the interface rather than the package functions directly, so the
// workflow invariants (no container creation after a failed build, image
// removal after a dev session) are unit-testable with an in-memory fake.
package cli

import (
	"context"
	"time"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
)

// engine is implemented by sdkEngine for real invocations and by fakes in
// the workflow tests. Method signatures mirror the docker package functions
// with the client argument bound.
type engine interface {
	BuildImage(ctx context.Context, opts docker.BuildOptions) error
	ImageExists(ctx context.Context, ref string) (bool, error)
	RemoveImage(ctx context.Context, ref string, force bool) error
	FindByName(ctx context.Context, name string) (*model.ContainerInfo, error)
	CreateDashboard(ctx context.Context, spec docker.ContainerSpec) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string, force bool) error
	WaitContainer(ctx context.Context, containerID string, autoRemove bool) (int64, error)
	StreamLogs(ctx context.Context, containerID string, opts docker.LogStreamOptions) error
	WaitForLogLine(ctx context.Context, containerID, substr string, timeout time.Duration) error
}

// sdkEngine is the production engine, bound to a connected Docker client.
type sdkEngine struct {
	cli *docker.Client
}

func newEngine(cli *docker.Client) *sdkEngine {
	return &sdkEngine{cli: cli}
}

func (e *sdkEngine) BuildImage(ctx context.Context, opts docker.BuildOptions) error {
	return docker.BuildImage(ctx, e.cli, opts)
}

func (e *sdkEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	return docker.ImageExists(ctx, e.cli, ref)
}

func (e *sdkEngine) RemoveImage(ctx context.Context, ref string, force bool) error {
	return docker.RemoveImage(ctx, e.cli, ref, force)
}

func (e *sdkEngine) FindByName(ctx context.Context, name string) (*model.ContainerInfo, error) {
	return docker.FindByName(ctx, e.cli, name)
}

func (e *sdkEngine) CreateDashboard(ctx context.Context, spec docker.ContainerSpec) (string, error) {
	return docker.CreateDashboard(ctx, e.cli, spec)
}

func (e *sdkEngine) StartContainer(ctx context.Context, containerID string) error {
	return docker.StartContainer(ctx, e.cli, containerID)
}

func (e *sdkEngine) StopContainer(ctx context.Context, containerID string) error {
	return docker.StopContainer(ctx, e.cli, containerID)
}

func (e *sdkEngine) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	return docker.RemoveContainer(ctx, e.cli, containerID, force)
}

func (e *sdkEngine) WaitContainer(ctx context.Context, containerID string, autoRemove bool) (int64, error) {
	return docker.WaitContainer(ctx, e.cli, containerID, autoRemove)
}

func (e *sdkEngine) StreamLogs(ctx context.Context, containerID string, opts docker.LogStreamOptions) error {
	return docker.StreamLogs(ctx, e.cli, containerID, opts)
}

func (e *sdkEngine) WaitForLogLine(ctx context.Context, containerID, substr string, timeout time.Duration) error {
	return docker.WaitForLogLine(ctx, e.cli, containerID, substr, timeout)
}
