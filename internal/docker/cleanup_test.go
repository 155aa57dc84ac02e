package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendops/rqdash/internal/model"
)

// fakeEngine is an in-memory engineAPI. It serves canned listings and
// records every call, so tests can assert not only what the cleanup pass
// reported but which Engine API calls it actually made.
type fakeEngine struct {
	exited   []types.Container
	dangling []image.Summary

	networksDeleted []string
	volumesDeleted  []string
	spaceReclaimed  uint64

	// Injected failures.
	containerListErr   error
	imageListErr       error
	containerRemoveErr map[string]error
	imageRemoveErr     map[string]error

	// Call recording.
	removedContainers    []string
	removedImages        []string
	containerRemoveCalls int
	imageRemoveCalls     int
	networksPruneCalls   int
	volumesPruneCalls    int

	lastContainerListOptions container.ListOptions
	lastImageListOptions     image.ListOptions
}

func (f *fakeEngine) ContainerList(_ context.Context, options container.ListOptions) ([]types.Container, error) {
	f.lastContainerListOptions = options
	if f.containerListErr != nil {
		return nil, f.containerListErr
	}
	return f.exited, nil
}

func (f *fakeEngine) ContainerRemove(_ context.Context, containerID string, _ container.RemoveOptions) error {
	f.containerRemoveCalls++
	if err := f.containerRemoveErr[containerID]; err != nil {
		return err
	}
	f.removedContainers = append(f.removedContainers, containerID)
	return nil
}

func (f *fakeEngine) ImageList(_ context.Context, options image.ListOptions) ([]image.Summary, error) {
	f.lastImageListOptions = options
	if f.imageListErr != nil {
		return nil, f.imageListErr
	}
	return f.dangling, nil
}

func (f *fakeEngine) ImageRemove(_ context.Context, imageID string, _ image.RemoveOptions) ([]image.DeleteResponse, error) {
	f.imageRemoveCalls++
	if err := f.imageRemoveErr[imageID]; err != nil {
		return nil, err
	}
	f.removedImages = append(f.removedImages, imageID)
	return []image.DeleteResponse{{Deleted: imageID}}, nil
}

func (f *fakeEngine) NetworksPrune(_ context.Context, _ filters.Args) (network.PruneReport, error) {
	f.networksPruneCalls++
	return network.PruneReport{NetworksDeleted: f.networksDeleted}, nil
}

func (f *fakeEngine) VolumesPrune(_ context.Context, _ filters.Args) (volume.PruneReport, error) {
	f.volumesPruneCalls++
	return volume.PruneReport{
		VolumesDeleted: f.volumesDeleted,
		SpaceReclaimed: f.spaceReclaimed,
	}, nil
}

// exitedContainer builds a minimal exited-state container summary for the
// fake's listings.
func exitedContainer(id string) types.Container {
	return types.Container{
		ID:     id,
		Names:  []string{"/" + id},
		State:  "exited",
		Status: "Exited (0) 2 hours ago",
	}
}

// TestCleanerRun_NothingToRemove verifies the no-op pass: with no exited
// containers and no dangling images, no removal call is made at all, but
// the network and volume prunes still run unconditionally.
func TestCleanerRun_NothingToRemove(t *testing.T) {
	fake := &fakeEngine{}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{})

	require.NoError(t, err)
	assert.True(t, report.Empty(), "report should be empty when nothing was removed")

	assert.Zero(t, fake.containerRemoveCalls,
		"no container removal should be invoked when nothing is exited")
	assert.Zero(t, fake.imageRemoveCalls,
		"no image removal should be invoked when nothing is dangling")
	assert.Equal(t, 1, fake.networksPruneCalls, "network prune must always run")
	assert.Equal(t, 1, fake.volumesPruneCalls, "volume prune must always run")
}

// TestCleanerRun_UsesExitedAndDanglingFilters verifies the listings ask
// the daemon for exactly the states the pass removes: status=exited for
// containers, dangling=true for images.
func TestCleanerRun_UsesExitedAndDanglingFilters(t *testing.T) {
	fake := &fakeEngine{}
	cleaner := &Cleaner{api: fake}

	_, err := cleaner.Run(context.Background(), CleanupOptions{})
	require.NoError(t, err)

	assert.True(t, fake.lastContainerListOptions.All,
		"exited containers only appear in all-state listings")
	assert.Equal(t, []string{"exited"},
		fake.lastContainerListOptions.Filters.Get("status"))

	assert.Equal(t, []string{"true"},
		fake.lastImageListOptions.Filters.Get("dangling"))
}

// TestCleanerRun_RemovesAllExited verifies that every exited container's
// ID is removed within a single pass.
func TestCleanerRun_RemovesAllExited(t *testing.T) {
	fake := &fakeEngine{
		exited: []types.Container{
			exitedContainer("aaa111"),
			exitedContainer("bbb222"),
			exitedContainer("ccc333"),
		},
	}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"aaa111", "bbb222", "ccc333"}, fake.removedContainers,
		"all exited containers should be removed in one pass")
	assert.ElementsMatch(t, []string{"aaa111", "bbb222", "ccc333"}, report.ContainersRemoved)
	assert.Equal(t, 3, report.TotalRemoved())
}

// TestCleanerRun_RemovesDanglingImages verifies dangling images are
// removed and reported.
func TestCleanerRun_RemovesDanglingImages(t *testing.T) {
	fake := &fakeEngine{
		dangling: []image.Summary{
			{ID: "sha256:feed01"},
			{ID: "sha256:feed02"},
		},
	}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sha256:feed01", "sha256:feed02"}, fake.removedImages)
	assert.ElementsMatch(t, []string{"sha256:feed01", "sha256:feed02"}, report.ImagesRemoved)
}

// TestCleanerRun_ContinuesPastRemovalFailure verifies the best-effort
// policy: one failing removal is logged and skipped, the rest of the
// batch and the prunes still happen, and Run reports no error.
func TestCleanerRun_ContinuesPastRemovalFailure(t *testing.T) {
	fake := &fakeEngine{
		exited: []types.Container{
			exitedContainer("good-1"),
			exitedContainer("stuck-2"),
			exitedContainer("good-3"),
		},
		containerRemoveErr: map[string]error{
			"stuck-2": errors.New("removal of container stuck-2 is already in progress"),
		},
	}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{})

	require.NoError(t, err, "a single removal failure must not abort the pass")
	assert.ElementsMatch(t, []string{"good-1", "good-3"}, report.ContainersRemoved,
		"only the successfully removed containers should be reported")
	assert.Equal(t, 3, fake.containerRemoveCalls, "every container should still be attempted")
	assert.Equal(t, 1, fake.networksPruneCalls)
	assert.Equal(t, 1, fake.volumesPruneCalls)
}

// TestCleanerRun_DryRun verifies that a dry run reports the removal
// candidates without making any mutating call.
func TestCleanerRun_DryRun(t *testing.T) {
	fake := &fakeEngine{
		exited: []types.Container{
			exitedContainer("aaa111"),
			exitedContainer("bbb222"),
		},
		dangling: []image.Summary{
			{ID: "sha256:feed01"},
		},
	}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{DryRun: true})

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.ElementsMatch(t, []string{"aaa111", "bbb222"}, report.ContainersRemoved,
		"dry run should report what would be removed")
	assert.ElementsMatch(t, []string{"sha256:feed01"}, report.ImagesRemoved)

	assert.Zero(t, fake.containerRemoveCalls, "dry run must not remove containers")
	assert.Zero(t, fake.imageRemoveCalls, "dry run must not remove images")
	assert.Zero(t, fake.networksPruneCalls, "dry run must not prune networks")
	assert.Zero(t, fake.volumesPruneCalls, "dry run must not prune volumes")
}

// TestCleanerRun_ReportsPrunes verifies the prune results flow into the
// report, including the reclaimed bytes.
func TestCleanerRun_ReportsPrunes(t *testing.T) {
	fake := &fakeEngine{
		networksDeleted: []string{"br-deadbeef"},
		volumesDeleted:  []string{"9f8c2a", "0b1d3e"},
		spaceReclaimed:  4096,
	}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"br-deadbeef"}, report.NetworksPruned)
	assert.Equal(t, []string{"9f8c2a", "0b1d3e"}, report.VolumesPruned)
	assert.Equal(t, uint64(4096), report.SpaceReclaimed)
	assert.False(t, report.Empty())
}

// TestCleanerRun_ListFailureAborts verifies that failing to reach the
// daemon for the initial listing aborts the pass with a docker-not-running
// error, before any prune runs.
func TestCleanerRun_ListFailureAborts(t *testing.T) {
	fake := &fakeEngine{
		containerListErr: errors.New("Cannot connect to the Docker daemon"),
	}
	cleaner := &Cleaner{api: fake}

	report, err := cleaner.Run(context.Background(), CleanupOptions{})

	require.Error(t, err)
	assert.Nil(t, report)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)

	assert.Zero(t, fake.networksPruneCalls, "prunes must not run after an aborted listing")
	assert.Zero(t, fake.volumesPruneCalls)
}
