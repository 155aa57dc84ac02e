package docker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	// Docker API types for container listing results.
	// types.Container is the struct returned by ContainerList.
	"github.com/docker/docker/api/types"

	// container package provides the Config/HostConfig structs for
	// creation plus ListOptions, StopOptions, RemoveOptions and friends.
	"github.com/docker/docker/api/types/container"

	// filters package provides Args type for building Docker API query filters.
	"github.com/docker/docker/api/types/filters"

	// stdcopy demultiplexes the stdout/stderr frames the daemon sends
	// over a single log connection for non-TTY containers.
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/docker/go-connections/nat"

	"github.com/trendops/rqdash/internal/model"
)

// ContainerSpec describes the dashboard container to create.
type ContainerSpec struct {
	// Name is the container name. rqdash names the container after the
	// project so FindByName can locate it later.
	Name string

	// Image is the image reference to run (name:tag).
	Image string

	// HostPort and ContainerPort define the published port mapping.
	// A zero HostPort publishes nothing (used by dev, which serves no
	// traffic to the host).
	HostPort      int
	ContainerPort int

	// Binds are host:container bind mount specs, e.g.
	// "/abs/path/data:/app/data".
	Binds []string

	// Env holds KEY=VALUE pairs passed into the container.
	Env []string

	// Labels are stamped on the container (see BuildContainerLabels).
	Labels map[string]string

	// AutoRemove asks the daemon to delete the container as soon as it
	// exits, like `docker run --rm`.
	AutoRemove bool
}

// CreateDashboard creates (but does not start) a dashboard container from
// the given spec and returns its ID.
//
// When a port mapping is requested, the container port is bound on host
// IP 0.0.0.0 so the dashboard is reachable from the host browser and from
// other machines on the network, matching `docker run -p 8501:8501`.
func CreateDashboard(ctx context.Context, cli *Client, spec ContainerSpec) (string, error) {
	config := &container.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: spec.Labels,
	}
	hostConfig := &container.HostConfig{
		AutoRemove: spec.AutoRemove,
		Binds:      spec.Binds,
	}

	if spec.HostPort > 0 {
		port, err := nat.NewPort("tcp", strconv.Itoa(spec.ContainerPort))
		if err != nil {
			return "", model.WrapCLIError(
				model.ExitGeneralError,
				fmt.Sprintf("invalid container port %d", spec.ContainerPort),
				err,
			)
		}
		config.ExposedPorts = nat.PortSet{port: struct{}{}}
		hostConfig.PortBindings = nat.PortMap{
			port: []nat.PortBinding{
				{
					HostIP:   "0.0.0.0",
					HostPort: strconv.Itoa(spec.HostPort),
				},
			},
		}
	}

	resp, err := cli.Inner().ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to create container %q", spec.Name),
			err,
		)
	}

	return resp.ID, nil
}

// StartContainer starts a created or stopped container by its ID.
func StartContainer(ctx context.Context, cli *Client, containerID string) error {
	// container.StartOptions is currently empty in the Docker SDK but is
	// included for forward compatibility with future Docker API versions.
	err := cli.Inner().ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to start container %q", ShortID(containerID)),
			err,
		)
	}
	return nil
}

// StopContainer stops a running container by its ID. It sends SIGTERM to
// the container's main process and waits for it to exit gracefully. If the
// container does not stop within the Docker daemon's default timeout
// (typically 10 seconds), it is forcefully killed with SIGKILL.
func StopContainer(ctx context.Context, cli *Client, containerID string) error {
	// StopOptions with nil Timeout uses Docker's default timeout.
	// This gives Streamlit a chance to shut down gracefully.
	err := cli.Inner().ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to stop container %q", ShortID(containerID)),
			err,
		)
	}
	return nil
}

// RemoveContainer removes a container by its ID. The container must be
// stopped first unless force is true, in which case Docker kills it with
// SIGKILL and then removes it.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to remove container %q", ShortID(containerID)),
			err,
		)
	}
	return nil
}

// WaitContainer blocks until the container exits and returns its exit
// code. For auto-removed containers the wait condition must be "removed":
// waiting for the not-running state races against the daemon deleting the
// container, which would surface as a spurious "no such container" error.
func WaitContainer(ctx context.Context, cli *Client, containerID string, autoRemove bool) (int64, error) {
	condition := container.WaitConditionNotRunning
	if autoRemove {
		condition = container.WaitConditionRemoved
	}

	statusCh, errCh := cli.Inner().ContainerWait(ctx, containerID, condition)
	select {
	case err := <-errCh:
		return 0, model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed while waiting for container %q", ShortID(containerID)),
			err,
		)
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, fmt.Errorf(
				"wait on container %q returned an error: %s",
				ShortID(containerID), status.Error.Message,
			)
		}
		return status.StatusCode, nil
	}
}

// LogStreamOptions control StreamLogs. Nil writers discard that stream.
type LogStreamOptions struct {
	// Follow keeps the stream open and delivers new output as the
	// container produces it, until the container exits or ctx ends.
	Follow bool

	// Tail limits output to the last N lines (decimal string, as the
	// Docker API expects). Empty means everything.
	Tail string

	Stdout io.Writer
	Stderr io.Writer
}

// StreamLogs copies the container's log output to the given writers.
// The daemon multiplexes stdout and stderr over one connection for
// non-TTY containers; stdcopy splits them back apart.
//
// Cancelling ctx ends a followed stream without error: that is how the
// dev command detaches from a container it is about to stop.
func StreamLogs(ctx context.Context, cli *Client, containerID string, opts LogStreamOptions) error {
	out, err := cli.Inner().ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to read logs of container %q", ShortID(containerID)),
			err,
		)
	}
	defer out.Close()

	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	_, err = stdcopy.StdCopy(stdout, stderr, out)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("log stream of container %q interrupted: %w", ShortID(containerID), err)
	}
	return nil
}

// WaitForLogLine follows the container's log until a line containing
// substr appears, then returns nil. It returns an error when the timeout
// elapses first, or when the log stream ends without the line (the
// container exited before becoming ready).
//
// This is how `run` detects Streamlit's startup banner before printing
// the dashboard URL.
func WaitForLogLine(ctx context.Context, cli *Client, containerID, substr string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := cli.Inner().ContainerLogs(waitCtx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to read logs of container %q", ShortID(containerID)),
			err,
		)
	}
	defer out.Close()

	// Demultiplex the frames into a pipe so the scanner sees clean lines.
	// Scanning the raw stream would work most of the time, but a frame
	// header landing mid-line can split the substring.
	pr, pw := io.Pipe()
	go func() {
		_, copyErr := stdcopy.StdCopy(pw, pw, out)
		pw.CloseWithError(copyErr)
	}()

	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), substr) {
			return nil
		}
	}

	if waitCtx.Err() != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("container %q did not become ready within %s", ShortID(containerID), timeout),
			waitCtx.Err(),
		)
	}
	return model.NewCLIError(
		model.ExitGeneralError,
		fmt.Sprintf("container %q exited before printing %q", ShortID(containerID), substr),
	)
}

// FindByName returns the container (running or stopped) with exactly the
// given name, or nil when no such container exists.
func FindByName(ctx context.Context, cli *Client, name string) (*model.ContainerInfo, error) {
	// The name filter matches substrings server-side, so the results
	// still need narrowing to the exact name.
	filterArgs := filters.NewArgs(filters.Arg("name", name))
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	for _, c := range containers {
		for _, n := range c.Names {
			if strings.TrimPrefix(n, "/") == name {
				info := containerToInfo(c)
				return &info, nil
			}
		}
	}
	return nil, nil
}

// ListManaged queries the Docker daemon for all containers carrying the
// rqdash management label, including stopped ones. A non-empty project
// narrows the listing to that project's containers.
//
// This is the primary entry point for discovering what rqdash currently
// manages. All state is derived from Docker labels rather than any
// external database.
func ListManaged(ctx context.Context, cli *Client, project string) ([]model.ContainerInfo, error) {
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: ManagedFilter(project),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	// Convert Docker API types.Container structs to our domain model
	// ContainerInfo structs. This decouples the rest of the application
	// from the Docker SDK types.
	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}

	return result, nil
}

// containerToInfo converts a Docker API Container struct to our domain
// model ContainerInfo. This is a pure mapping function with no side effects.
//
// The Docker API returns container names with a leading "/" prefix
// (e.g., "/my-container"), which we strip for cleaner display in CLI
// output. Label metadata is merged in best-effort: a container missing
// rqdash labels still maps with its runtime fields.
func containerToInfo(c types.Container) model.ContainerInfo {
	// Extract the container name. Docker returns names as a slice,
	// and each name has a leading "/" that we strip for readability.
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	info := model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Image:         c.Image,
		State:         c.State,
		Status:        c.Status,
		Labels:        c.Labels,
	}

	if meta, err := ParseContainerLabels(c.Labels); err == nil {
		info.Project = meta.Project
		info.Mode = meta.Mode
		info.HostPort = meta.HostPort
		info.CreatedAt = meta.CreatedAt
	} else if c.Created > 0 {
		// No usable labels; fall back to Docker's own creation record.
		info.CreatedAt = time.Unix(c.Created, 0).UTC()
	}

	return info
}

// ShortID trims a full 64-character container or image ID to the familiar
// 12-character form used in log messages and tables.
func ShortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
