package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/sirupsen/logrus"

	"github.com/trendops/rqdash/internal/model"
)

// engineAPI is the subset of the Docker Engine API the cleanup pass uses.
// *client.Client satisfies it; tests substitute an in-memory fake so the
// pass's invariants can be verified without a daemon.
type engineAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
	NetworksPrune(ctx context.Context, pruneFilters filters.Args) (network.PruneReport, error)
	VolumesPrune(ctx context.Context, pruneFilters filters.Args) (volume.PruneReport, error)
}

// Cleaner runs the host cleanup pass: remove exited containers, remove
// dangling images, then prune unused networks and volumes.
//
// The pass is deliberately host-global rather than limited to rqdash's
// own containers; it replaces a maintenance routine that swept the whole
// Docker host after dashboard rebuilds.
type Cleaner struct {
	api engineAPI
}

// NewCleaner returns a Cleaner backed by the given Docker client.
func NewCleaner(cli *Client) *Cleaner {
	return &Cleaner{api: cli.Inner()}
}

// CleanupOptions control a cleanup pass.
type CleanupOptions struct {
	// DryRun reports the containers and images that would be removed
	// without performing any mutating call. The network and volume
	// prunes are skipped entirely: the Engine API offers no way to
	// predict what they would delete.
	DryRun bool
}

// Run executes the cleanup pass and returns a report of what was removed.
//
// Order matters and matches the routine this replaces: exited containers
// first (freeing image references), then dangling images, then the
// unconditional network and volume prunes. When there are no exited
// containers the removal step is skipped outright, and likewise for
// dangling images; the prunes always run.
//
// Individual removal failures are logged as warnings and do not abort
// the pass. Only a failure to reach the daemon for the initial listings
// is returned as an error.
func (c *Cleaner) Run(ctx context.Context, opts CleanupOptions) (*model.CleanupReport, error) {
	report := &model.CleanupReport{DryRun: opts.DryRun}

	exited, err := c.ExitedContainers(ctx)
	if err != nil {
		return nil, err
	}
	if len(exited) > 0 {
		ids := containerIDs(exited)
		if opts.DryRun {
			report.ContainersRemoved = ids
		} else {
			report.ContainersRemoved = c.RemoveContainers(ctx, ids)
		}
	} else {
		logrus.Debug("no exited containers to remove")
	}

	dangling, err := c.DanglingImages(ctx)
	if err != nil {
		return nil, err
	}
	if len(dangling) > 0 {
		ids := imageIDs(dangling)
		if opts.DryRun {
			report.ImagesRemoved = ids
		} else {
			report.ImagesRemoved = c.RemoveImages(ctx, ids)
		}
	} else {
		logrus.Debug("no dangling images to remove")
	}

	if opts.DryRun {
		return report, nil
	}

	networks, err := c.PruneNetworks(ctx)
	if err != nil {
		logrus.WithError(err).Warn("network prune failed")
	} else {
		report.NetworksPruned = networks
	}

	volumes, reclaimed, err := c.PruneVolumes(ctx)
	if err != nil {
		logrus.WithError(err).Warn("volume prune failed")
	} else {
		report.VolumesPruned = volumes
		report.SpaceReclaimed = reclaimed
	}

	return report, nil
}

// ExitedContainers lists every container on the host in the "exited"
// state, regardless of who created it.
func (c *Cleaner) ExitedContainers(ctx context.Context) ([]types.Container, error) {
	filterArgs := filters.NewArgs(filters.Arg("status", "exited"))
	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list exited containers",
			err,
		)
	}
	return containers, nil
}

// RemoveContainers removes the given containers in one batch and returns
// the IDs that were actually removed. A failure on one container is
// logged as a warning and does not stop the rest of the batch.
func (c *Cleaner) RemoveContainers(ctx context.Context, ids []string) []string {
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := c.api.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
			logrus.WithError(err).WithField("container", ShortID(id)).Warn("failed to remove container")
			continue
		}
		logrus.WithField("container", ShortID(id)).Debug("removed exited container")
		removed = append(removed, id)
	}
	return removed
}

// DanglingImages lists the untagged image layers left behind when a tag
// moves to a newly built image.
func (c *Cleaner) DanglingImages(ctx context.Context) ([]image.Summary, error) {
	filterArgs := filters.NewArgs(filters.Arg("dangling", "true"))
	images, err := c.api.ImageList(ctx, image.ListOptions{
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list dangling images",
			err,
		)
	}
	return images, nil
}

// RemoveImages removes the given images and returns the IDs actually
// removed. Images still referenced by a container fail to delete; the
// failure is logged and the batch continues, mirroring RemoveContainers.
func (c *Cleaner) RemoveImages(ctx context.Context, ids []string) []string {
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := c.api.ImageRemove(ctx, id, image.RemoveOptions{PruneChildren: true}); err != nil {
			logrus.WithError(err).WithField("image", ShortID(id)).Warn("failed to remove image")
			continue
		}
		logrus.WithField("image", ShortID(id)).Debug("removed dangling image")
		removed = append(removed, id)
	}
	return removed
}

// PruneNetworks removes all unused networks and returns their names.
func (c *Cleaner) PruneNetworks(ctx context.Context) ([]string, error) {
	report, err := c.api.NetworksPrune(ctx, filters.NewArgs())
	if err != nil {
		return nil, err
	}
	return report.NetworksDeleted, nil
}

// PruneVolumes removes unused anonymous volumes and returns their names
// and the bytes reclaimed. Named volumes are preserved; that is the
// daemon's default prune scope.
func (c *Cleaner) PruneVolumes(ctx context.Context) ([]string, uint64, error) {
	report, err := c.api.VolumesPrune(ctx, filters.NewArgs())
	if err != nil {
		return nil, 0, err
	}
	return report.VolumesDeleted, report.SpaceReclaimed, nil
}

func containerIDs(containers []types.Container) []string {
	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids
}

func imageIDs(images []image.Summary) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}
