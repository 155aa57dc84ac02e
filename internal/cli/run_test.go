package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
)

// defaultRunFlags returns the flag values cobra would produce for a bare
// `rqdash run`.
func defaultRunFlags() *runFlags {
	return &runFlags{waitTimeout: time.Second}
}

func TestExecuteRun(t *testing.T) {
	eng := &fakeEngine{nextID: "cafe000111222333444555"}
	cfg := testConfig()

	result, err := executeRun(context.Background(), eng, &stubPorts{}, cfg, t.TempDir(), defaultRunFlags())

	assert.NoError(t, err)
	assert.Len(t, eng.buildCalls, 1)
	assert.Equal(t, []string{"related-queries-dashboard:latest"}, eng.buildCalls[0].Tags)

	if assert.Len(t, eng.createdSpecs, 1) {
		spec := eng.createdSpecs[0]
		assert.Equal(t, "related-queries-dashboard", spec.Name)
		assert.Equal(t, "related-queries-dashboard:latest", spec.Image)
		assert.Equal(t, 8501, spec.HostPort)
		assert.Equal(t, 8501, spec.ContainerPort)
		assert.False(t, spec.AutoRemove)
		assert.Empty(t, spec.Binds)
		assert.Equal(t, string(model.ModePersistent), spec.Labels[docker.LabelMode])
	}

	assert.Equal(t, []string{"cafe000111222333444555"}, eng.startedIDs)
	assert.Equal(t, []string{streamlitReadyMessage}, eng.waitedFor)

	assert.True(t, result.Ready)
	assert.Equal(t, 8501, result.HostPort)
	assert.Equal(t, "http://localhost:8501", result.URL)
}

func TestExecuteRun_BuildFailureSkipsCreate(t *testing.T) {
	eng := &fakeEngine{buildErr: errors.New("The command '/bin/sh -c pip install' returned a non-zero code: 1")}

	_, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), defaultRunFlags())

	assert.Error(t, err)
	assert.Empty(t, eng.createdSpecs, "a failed build must not be followed by container creation")
	assert.Empty(t, eng.startedIDs)
}

func TestExecuteRun_PortConflict(t *testing.T) {
	eng := &fakeEngine{}
	ports := &stubPorts{busy: map[int]bool{8501: true}}

	_, err := executeRun(context.Background(), eng, ports, testConfig(), t.TempDir(), defaultRunFlags())

	var cliErr *model.CLIError
	if assert.ErrorAs(t, err, &cliErr) {
		assert.Equal(t, model.ExitPortUnavailable, cliErr.Code)
	}
	assert.Empty(t, eng.createdSpecs)
}

func TestExecuteRun_AutoPortFallback(t *testing.T) {
	eng := &fakeEngine{}
	ports := &stubPorts{busy: map[int]bool{8501: true}, nextFree: 8502}
	flags := defaultRunFlags()
	flags.autoPort = true

	result, err := executeRun(context.Background(), eng, ports, testConfig(), t.TempDir(), flags)

	assert.NoError(t, err)
	assert.Equal(t, 8502, result.HostPort)
	assert.Equal(t, "http://localhost:8502", result.URL)
	if assert.Len(t, eng.createdSpecs, 1) {
		assert.Equal(t, 8502, eng.createdSpecs[0].HostPort)
	}
}

func TestExecuteRun_ReplacesExitedContainer(t *testing.T) {
	eng := &fakeEngine{existing: &model.ContainerInfo{
		ContainerID:   "deadbeef001122334455",
		ContainerName: "related-queries-dashboard",
		State:         "exited",
		Mode:          model.ModePersistent,
	}}

	_, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), defaultRunFlags())

	assert.NoError(t, err)
	assert.Equal(t, []string{"deadbeef001122334455"}, eng.removedContainers)
	assert.Len(t, eng.createdSpecs, 1)
}

func TestExecuteRun_RefusesRunningContainer(t *testing.T) {
	eng := &fakeEngine{existing: &model.ContainerInfo{
		ContainerID:   "deadbeef001122334455",
		ContainerName: "related-queries-dashboard",
		State:         "running",
		Mode:          model.ModePersistent,
		HostPort:      8501,
	}}

	_, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), defaultRunFlags())

	assert.Error(t, err)
	assert.Empty(t, eng.removedContainers, "a running dashboard must not be touched")
	assert.Empty(t, eng.createdSpecs)
}

func TestExecuteRun_NoBuildRequiresImage(t *testing.T) {
	eng := &fakeEngine{imageExists: false}
	flags := defaultRunFlags()
	flags.noBuild = true

	_, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), flags)

	assert.Error(t, err)
	assert.Empty(t, eng.buildCalls)
	assert.Empty(t, eng.createdSpecs)
}

func TestExecuteRun_NoBuildUsesExistingImage(t *testing.T) {
	eng := &fakeEngine{imageExists: true}
	flags := defaultRunFlags()
	flags.noBuild = true

	result, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), flags)

	assert.NoError(t, err)
	assert.Empty(t, eng.buildCalls)
	assert.Len(t, eng.createdSpecs, 1)
	assert.True(t, result.Ready)
}

func TestExecuteRun_ReadinessTimeoutNotFatal(t *testing.T) {
	eng := &fakeEngine{readyErr: errors.New("timed out waiting for log line")}

	result, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), defaultRunFlags())

	assert.NoError(t, err)
	assert.False(t, result.Ready)
	assert.Len(t, eng.startedIDs, 1, "the container keeps running even when readiness is not observed")
}

func TestExecuteRun_NoWaitSkipsReadiness(t *testing.T) {
	eng := &fakeEngine{}
	flags := defaultRunFlags()
	flags.noWait = true

	result, err := executeRun(context.Background(), eng, &stubPorts{}, testConfig(), t.TempDir(), flags)

	assert.NoError(t, err)
	assert.Empty(t, eng.waitedFor)
	assert.False(t, result.Ready)
}

func TestEnvSlice(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected []string
	}{
		{
			name:     "nil map",
			env:      nil,
			expected: nil,
		},
		{
			name:     "single entry",
			env:      map[string]string{"TZ": "UTC"},
			expected: []string{"TZ=UTC"},
		},
		{
			name:     "sorted by key",
			env:      map[string]string{"B_VAR": "2", "A_VAR": "1", "C_VAR": "3"},
			expected: []string{"A_VAR=1", "B_VAR=2", "C_VAR=3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, envSlice(tt.env))
		})
	}
}
