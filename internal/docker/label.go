package docker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"

	"github.com/trendops/rqdash/internal/model"
)

// Label key constants define the Docker label keys used to persist
// dashboard metadata on containers. These labels serve as the sole
// persistence mechanism; there is no external state file.
//
// All keys share the "rqdash." prefix to namespace them and avoid
// collisions with labels set by other tools (Docker Compose, VS Code, etc.).
const (
	// LabelPrefix is the common prefix for all rqdash labels.
	// Using a consistent prefix enables efficient label-based filtering
	// when listing containers via the Docker API.
	LabelPrefix = "rqdash."

	// LabelManagedBy identifies containers managed by rqdash.
	// This is the primary label used for filtering and discovery.
	// Key: "rqdash.managed-by", Value: always "rqdash".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject stores the project name the container belongs to.
	// Key: "rqdash.project", Value: project name from the config
	// (e.g., "related-queries-dashboard").
	LabelProject = LabelPrefix + "project"

	// LabelMode stores how the container was started.
	// Key: "rqdash.mode", Value: "persistent" (run) or "ephemeral" (dev).
	LabelMode = LabelPrefix + "mode"

	// LabelPort stores the published host port.
	// Key: "rqdash.port", Value: decimal port number, "0" when the
	// container publishes nothing (ephemeral mode).
	LabelPort = LabelPrefix + "port"

	// LabelCreatedAt stores the timestamp of container creation.
	// Key: "rqdash.created-at", Value: RFC3339 formatted timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
// All containers created by this CLI are tagged with this value,
// enabling discovery via Docker API label filters.
const ManagedByValue = "rqdash"

// BuildContainerLabels constructs the Docker label map applied to every
// container rqdash creates. The labels allow `status`, `stop`, and `logs`
// to rediscover the container from Docker state alone.
//
// Image provenance labels (see the gitinfo package) are merged in
// separately with MergeLabels; they follow the OCI annotation keys and
// do not carry the rqdash prefix.
func BuildContainerLabels(project string, mode model.RunMode, hostPort int, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   project,
		LabelMode:      mode.String(),
		LabelPort:      strconv.Itoa(hostPort),
		// time.RFC3339 produces ISO-8601 compatible timestamps like
		// "2026-08-26T10:00:00Z". Using UTC ensures consistency
		// regardless of the host machine's timezone.
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// BuildImageLabels returns the labels stamped on built images: the
// managed-by marker and the owning project. Unlike container labels there
// is no mode, port, or timestamp; an image is not tied to one run of the
// dashboard. Provenance labels from git metadata (gitinfo.OCILabels) are
// merged on top by the caller when available.
func BuildImageLabels(project string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   project,
	}
}

// ParseContainerLabels reconstructs dashboard metadata from a container's
// label map. This is the inverse of BuildContainerLabels and is used when
// listing or inspecting containers to rebuild the domain model.
//
// Only the label-derived fields of the returned ContainerInfo are
// populated (Project, Mode, HostPort, CreatedAt, Labels). Runtime fields
// such as the container ID, name, and state come from the Docker API, not
// from labels.
//
// Required labels: managed-by, project, mode, port, created-at. Missing
// required labels cause an error.
func ParseContainerLabels(labels map[string]string) (*model.ContainerInfo, error) {
	// Validate that all required labels are present.
	// We check them all at once rather than failing on the first missing one,
	// so the error message can list all missing labels for easier debugging.
	requiredKeys := []string{
		LabelManagedBy,
		LabelProject,
		LabelMode,
		LabelPort,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	// Verify this container is actually managed by rqdash.
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	// Parse the mode string into the typed enum.
	mode, err := model.ParseRunMode(labels[LabelMode])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelMode, err)
	}

	// Parse the published host port. Zero is valid: ephemeral containers
	// publish nothing.
	hostPort, err := strconv.Atoi(labels[LabelPort])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s=%q: %w", LabelPort, labels[LabelPort], err)
	}

	// Parse the ISO-8601 timestamp.
	// time.RFC3339 is Go's constant for the ISO-8601 / RFC-3339 format.
	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return &model.ContainerInfo{
		Project:   labels[LabelProject],
		Mode:      mode,
		HostPort:  hostPort,
		CreatedAt: createdAt,
		Labels:    labels,
	}, nil
}

// MergeLabels returns a new map containing all entries of base with the
// entries of extra added on top. Keys present in both take the value from
// extra. Either argument may be nil.
//
// This is how the OCI provenance labels from the gitinfo package are
// combined with the rqdash management labels before container creation
// and image builds.
func MergeLabels(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// ManagedFilter returns Docker API filter arguments matching containers
// managed by rqdash. A non-empty project narrows the match to containers
// of that project.
//
// The filter is applied server-side by the Docker daemon, which is more
// efficient than listing all containers and filtering in Go.
func ManagedFilter(project string) filters.Args {
	args := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)
	if project != "" {
		args.Add("label", LabelProject+"="+project)
	}
	return args
}
