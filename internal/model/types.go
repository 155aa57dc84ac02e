// Package model defines the domain types for the rqdash CLI.
//
// rqdash keeps no state file on disk. Everything it knows about the
// dashboard (which container is running, how it was started, which image
// it came from) is reconstructed at runtime from Docker API queries and
// the labels stamped on containers and images at creation time.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RunMode describes how a dashboard container was started. The two modes
// mirror the two ways the dashboard is used:
//
//	persistent: detached container with a published host port (`rqdash run`);
//	            survives until stopped explicitly.
//	ephemeral:  foreground container with the data directory bind-mounted and
//	            auto-removal on exit (`rqdash dev`); its image is deleted when
//	            the session ends.
type RunMode string

const (
	// ModePersistent is the detached, port-published mode used by `run`.
	ModePersistent RunMode = "persistent"

	// ModeEphemeral is the auto-removing, bind-mounted mode used by `dev`.
	ModeEphemeral RunMode = "ephemeral"
)

// String returns the string representation of RunMode.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (m RunMode) String() string {
	return string(m)
}

// IsValid checks whether the RunMode value is one of the predefined modes.
func (m RunMode) IsValid() bool {
	switch m {
	case ModePersistent, ModeEphemeral:
		return true
	default:
		return false
	}
}

// ParseRunMode converts a string to a RunMode.
// Returns an error if the string does not match any valid mode.
func ParseRunMode(s string) (RunMode, error) {
	mode := RunMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid run mode: %q (valid: persistent, ephemeral)", s)
	}
	return mode, nil
}

// ContainerInfo holds runtime information about a dashboard container.
// This data is fetched dynamically from the Docker API, not persisted.
type ContainerInfo struct {
	// ContainerID is the unique Docker container identifier (SHA-256 hash prefix).
	ContainerID string `json:"containerId"`

	// ContainerName is the human-readable Docker container name.
	ContainerName string `json:"containerName"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// State is the Docker container state (e.g., "running", "exited", "created").
	State string `json:"state"`

	// Status is Docker's human-readable status line (e.g., "Up 2 hours").
	Status string `json:"status"`

	// Mode records how the container was started, parsed from its labels.
	Mode RunMode `json:"mode"`

	// Project is the project name the container belongs to, from its labels.
	Project string `json:"project,omitempty"`

	// HostPort is the published host port, if any. Zero for ephemeral
	// containers, which publish nothing.
	HostPort int `json:"hostPort,omitempty"`

	// CreatedAt is the container creation time reported by Docker.
	CreatedAt time.Time `json:"createdAt"`

	// Labels is the full set of Docker labels on the container,
	// including the rqdash management labels (rqdash.* prefix).
	Labels map[string]string `json:"labels,omitempty"`
}

// IsRunning reports whether Docker considers the container running.
func (c *ContainerInfo) IsRunning() bool {
	return c.State == "running"
}

// CleanupReport summarizes one cleanup pass over the Docker host:
// which exited containers and dangling images were removed, what the
// network and volume prunes reclaimed, and how many bytes came back.
type CleanupReport struct {
	// ContainersRemoved lists the IDs of exited containers that were removed.
	ContainersRemoved []string `json:"containersRemoved,omitempty"`

	// ImagesRemoved lists the IDs of dangling images that were removed.
	ImagesRemoved []string `json:"imagesRemoved,omitempty"`

	// NetworksPruned lists the names of unused networks that were pruned.
	NetworksPruned []string `json:"networksPruned,omitempty"`

	// VolumesPruned lists the names of unused volumes that were pruned.
	VolumesPruned []string `json:"volumesPruned,omitempty"`

	// SpaceReclaimed is the total bytes reclaimed, as reported by the
	// network and volume prune responses.
	SpaceReclaimed uint64 `json:"spaceReclaimed"`

	// DryRun marks a report produced without removing anything.
	DryRun bool `json:"dryRun,omitempty"`
}

// Empty reports whether the cleanup pass found nothing to remove or prune.
func (r *CleanupReport) Empty() bool {
	return len(r.ContainersRemoved) == 0 &&
		len(r.ImagesRemoved) == 0 &&
		len(r.NetworksPruned) == 0 &&
		len(r.VolumesPruned) == 0
}

// TotalRemoved returns the number of resources removed or pruned.
func (r *CleanupReport) TotalRemoved() int {
	return len(r.ContainersRemoved) + len(r.ImagesRemoved) +
		len(r.NetworksPruned) + len(r.VolumesPruned)
}

// nameRegex validates container names the way Docker does: the first
// character must be alphanumeric, the rest may add underscore, dot, hyphen.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateContainerName checks if the given name is acceptable to Docker
// as a container name.
func ValidateContainerName(name string) error {
	if name == "" {
		return fmt.Errorf("container name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid container name %q: must start with an alphanumeric character and contain only alphanumerics, underscores, dots and hyphens", name)
	}
	return nil
}

// ExitCode defines the CLI exit codes. These codes allow scripts and CI
// systems to programmatically determine the outcome of a command.
//
// Build and run failures deliberately share ExitGeneralError (1), matching
// the behavior of the shell scripts this tool replaces.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	// Image build failures and container run failures exit with this code.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the project configuration is missing a
	// required file or failed validation.
	ExitConfigError ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitPortUnavailable indicates the host port the dashboard should
	// publish on is already in use by another process.
	ExitPortUnavailable ExitCode = 4

	// ExitContainerNotFound indicates no managed dashboard container exists
	// for the requested operation.
	ExitContainerNotFound ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
