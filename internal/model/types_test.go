package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunMode_String verifies that RunMode values produce the expected
// string representations for CLI output and JSON serialization.
func TestRunMode_String(t *testing.T) {
	tests := []struct {
		mode     RunMode
		expected string
	}{
		{ModePersistent, "persistent"},
		{ModeEphemeral, "ephemeral"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.mode.String())
		})
	}
}

// TestRunMode_IsValid checks that only defined mode values pass validation.
func TestRunMode_IsValid(t *testing.T) {
	assert.True(t, ModePersistent.IsValid())
	assert.True(t, ModeEphemeral.IsValid())
	assert.False(t, RunMode("invalid").IsValid())
	assert.False(t, RunMode("").IsValid())
}

// TestParseRunMode verifies string-to-mode conversion, including case
// normalization and error cases.
func TestParseRunMode(t *testing.T) {
	tests := []struct {
		input    string
		expected RunMode
		hasError bool
	}{
		{"persistent", ModePersistent, false},
		{"ephemeral", ModeEphemeral, false},
		{"Persistent", ModePersistent, false}, // case insensitive
		{"EPHEMERAL", ModeEphemeral, false},   // case insensitive
		{"detached", "", true},                // unknown value
		{"", "", true},                        // empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRunMode(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestContainerInfo_IsRunning verifies the state check used by status
// and stop to decide whether a container needs stopping.
func TestContainerInfo_IsRunning(t *testing.T) {
	running := ContainerInfo{State: "running"}
	assert.True(t, running.IsRunning())

	exited := ContainerInfo{State: "exited"}
	assert.False(t, exited.IsRunning())

	created := ContainerInfo{State: "created"}
	assert.False(t, created.IsRunning())
}

// TestCleanupReport_Empty checks that a report counts as empty only when
// every category is empty, since the text output branches on it.
func TestCleanupReport_Empty(t *testing.T) {
	t.Run("fresh report is empty", func(t *testing.T) {
		r := CleanupReport{}
		assert.True(t, r.Empty())
		assert.Equal(t, 0, r.TotalRemoved())
	})

	t.Run("any removal makes it non-empty", func(t *testing.T) {
		tests := []struct {
			name   string
			report CleanupReport
		}{
			{"containers", CleanupReport{ContainersRemoved: []string{"abc123"}}},
			{"images", CleanupReport{ImagesRemoved: []string{"sha256:def"}}},
			{"networks", CleanupReport{NetworksPruned: []string{"old-net"}}},
			{"volumes", CleanupReport{VolumesPruned: []string{"old-vol"}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.False(t, tt.report.Empty())
				assert.Equal(t, 1, tt.report.TotalRemoved())
			})
		}
	})

	t.Run("total sums all categories", func(t *testing.T) {
		r := CleanupReport{
			ContainersRemoved: []string{"a", "b"},
			ImagesRemoved:     []string{"c"},
			NetworksPruned:    []string{"d"},
			VolumesPruned:     []string{"e", "f"},
		}
		assert.Equal(t, 6, r.TotalRemoved())
	})
}

// TestValidateContainerName checks container name validation rules:
// - Must not be empty
// - Must start with an alphanumeric character
// - May contain alphanumerics, underscores, dots and hyphens
func TestValidateContainerName(t *testing.T) {
	tests := []struct {
		name     string
		hasError bool
	}{
		{"related-queries-dashboard", false}, // valid: the default name
		{"a", false},                         // valid: single character
		{"dash_board.v2", false},             // valid: underscore and dot
		{"abc123", false},                    // valid: alphanumeric
		{"", true},                           // invalid: empty
		{"-dashboard", true},                 // invalid: starts with hyphen
		{".dashboard", true},                 // invalid: starts with dot
		{"dash board", true},                 // invalid: space
		{"dash/board", true},                 // invalid: slash
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContainerName(tt.name)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitDockerNotRunning, "Docker daemon is not running")
		assert.Equal(t, ExitDockerNotRunning, err.Code)
		assert.Equal(t, "Docker daemon is not running", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitDockerNotRunning, "Docker daemon is not running", inner)
		assert.Equal(t, ExitDockerNotRunning, err.Code)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Verify errors.Is works with unwrapped errors (Go 1.13+ error chain).
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitDockerNotRunning, "Docker daemon is not running", inner)
		assert.True(t, errors.Is(err, inner))
	})

	// Build and run failures share the general error code, matching the
	// shell scripts this tool replaces.
	t.Run("build failure maps to exit 1", func(t *testing.T) {
		err := NewCLIError(ExitGeneralError, "image build failed")
		assert.Equal(t, ExitCode(1), err.Code)
	})
}
