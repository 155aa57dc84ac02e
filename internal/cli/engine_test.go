package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
	"github.com/trendops/rqdash/internal/project"
)

// fakeEngine implements the engine interface in memory. Every method
// records the attempt before returning its injected error, so tests can
// assert both on what the workflows did and on what they skipped.
type fakeEngine struct {
	buildCalls []docker.BuildOptions
	buildErr   error

	imageExists bool
	imageErr    error

	removedImages  []string
	removeImageErr error

	existing *model.ContainerInfo
	findErr  error

	nextID       string
	createdSpecs []docker.ContainerSpec
	createErr    error

	startedIDs []string
	startErr   error

	stoppedIDs []string
	stopErr    error

	removedContainers  []string
	removeContainerErr error

	waitCalls    int
	waitExitCode int64
	waitErr      error

	streamErr error

	waitedFor []string
	readyErr  error
}

func (f *fakeEngine) BuildImage(_ context.Context, opts docker.BuildOptions) error {
	f.buildCalls = append(f.buildCalls, opts)
	return f.buildErr
}

func (f *fakeEngine) ImageExists(_ context.Context, _ string) (bool, error) {
	return f.imageExists, f.imageErr
}

func (f *fakeEngine) RemoveImage(_ context.Context, ref string, _ bool) error {
	f.removedImages = append(f.removedImages, ref)
	return f.removeImageErr
}

func (f *fakeEngine) FindByName(_ context.Context, _ string) (*model.ContainerInfo, error) {
	return f.existing, f.findErr
}

func (f *fakeEngine) CreateDashboard(_ context.Context, spec docker.ContainerSpec) (string, error) {
	f.createdSpecs = append(f.createdSpecs, spec)
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.nextID != "" {
		return f.nextID, nil
	}
	return "cafe0123456789abcdef", nil
}

func (f *fakeEngine) StartContainer(_ context.Context, containerID string) error {
	f.startedIDs = append(f.startedIDs, containerID)
	return f.startErr
}

func (f *fakeEngine) StopContainer(_ context.Context, containerID string) error {
	f.stoppedIDs = append(f.stoppedIDs, containerID)
	return f.stopErr
}

func (f *fakeEngine) RemoveContainer(_ context.Context, containerID string, _ bool) error {
	f.removedContainers = append(f.removedContainers, containerID)
	return f.removeContainerErr
}

func (f *fakeEngine) WaitContainer(_ context.Context, _ string, _ bool) (int64, error) {
	f.waitCalls++
	return f.waitExitCode, f.waitErr
}

func (f *fakeEngine) StreamLogs(_ context.Context, _ string, _ docker.LogStreamOptions) error {
	return f.streamErr
}

func (f *fakeEngine) WaitForLogLine(_ context.Context, _ string, substr string, _ time.Duration) error {
	f.waitedFor = append(f.waitedFor, substr)
	return f.readyErr
}

// stubPorts implements portChecker without opening sockets.
type stubPorts struct {
	busy     map[int]bool
	nextFree int
	findErr  error
}

func (s *stubPorts) EnsureAvailable(port int) error {
	if s.busy[port] {
		return fmt.Errorf("port %d is already in use on the host", port)
	}
	return nil
}

func (s *stubPorts) FindAvailablePort(startPort, _ int, _ string) (int, error) {
	if s.findErr != nil {
		return 0, s.findErr
	}
	if s.nextFree != 0 {
		return s.nextFree, nil
	}
	return startPort, nil
}

// testConfig returns the default project configuration, which is what a
// project without a config file gets.
func testConfig() *project.Config {
	return project.DefaultConfig()
}
