package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/sirupsen/logrus"

	"github.com/trendops/rqdash/internal/model"
)

// FindImages returns the local images whose reference matches ref.
// A bare name matches every tag of that image; "name:tag" matches one.
func FindImages(ctx context.Context, cli *Client, ref string) ([]image.Summary, error) {
	filterArgs := filters.NewArgs(filters.Arg("reference", ref))
	images, err := cli.Inner().ImageList(ctx, image.ListOptions{
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to list images matching %q", ref),
			err,
		)
	}
	return images, nil
}

// ImageExists reports whether at least one local image matches ref.
// `run --no-build` uses this to fail fast instead of letting container
// creation report a missing image.
func ImageExists(ctx context.Context, cli *Client, ref string) (bool, error) {
	images, err := FindImages(ctx, cli, ref)
	if err != nil {
		return false, err
	}
	return len(images) > 0, nil
}

// RemoveImage deletes the image with the given reference or ID.
//
// Force also removes the image when stopped containers still reference
// it. PruneChildren additionally deletes parent layers left dangling by
// the removal, so a dev session leaves nothing behind.
func RemoveImage(ctx context.Context, cli *Client, ref string, force bool) error {
	resp, err := cli.Inner().ImageRemove(ctx, ref, image.RemoveOptions{
		Force:         force,
		PruneChildren: true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to remove image %q", ref),
			err,
		)
	}

	for _, item := range resp {
		switch {
		case item.Deleted != "":
			logrus.WithField("layer", ShortID(item.Deleted)).Debug("deleted image layer")
		case item.Untagged != "":
			logrus.WithField("image", item.Untagged).Debug("untagged image")
		}
	}
	return nil
}
