package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/go-archive"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/sirupsen/logrus"

	"github.com/trendops/rqdash/internal/model"
)

// BuildOptions describes a single image build.
type BuildOptions struct {
	// ContextDir is the build context root. The Dockerfile and everything
	// COPY'd into the image must live under it.
	ContextDir string

	// Dockerfile is the path of the Dockerfile relative to ContextDir.
	// Empty means "Dockerfile".
	Dockerfile string

	// Tags are the image references (name:tag) applied to the result.
	Tags []string

	// Labels are stamped on the built image.
	Labels map[string]string

	// NoCache disables the daemon's layer cache for this build.
	NoCache bool

	// Pull always attempts to pull a newer version of the base image.
	Pull bool
}

// BuildImage builds an image from a local context directory and streams
// the daemon's build output through the log at Info level, so the CLI
// shows the same step-by-step progress `docker build` would.
//
// The context directory is tarred client-side with the exclusions from
// its .dockerignore, exactly as the docker CLI prepares a build context.
//
// Returns a model.CLIError with ExitGeneralError when the build fails.
// Note that the Engine API reports Dockerfile errors and failed RUN steps
// inside the response stream rather than as an HTTP error, so the stream
// must be decoded to detect them.
func BuildImage(ctx context.Context, cli *Client, opts BuildOptions) error {
	dockerfile := opts.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	// Fail early with a readable error when the Dockerfile is missing.
	// The daemon would reject the context anyway, but its error names a
	// path inside the tar, not the user's directory.
	if _, err := os.Stat(filepath.Join(opts.ContextDir, dockerfile)); err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("no Dockerfile at %s", filepath.Join(opts.ContextDir, dockerfile)),
			err,
		)
	}

	excludes, err := readDockerignore(opts.ContextDir)
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to read .dockerignore in %q", opts.ContextDir),
			err,
		)
	}

	// The daemon needs the Dockerfile inside the context even when the
	// ignore file would exclude it.
	excludes = append(excludes, "!"+dockerfile)

	buildCtx, err := archive.TarWithOptions(opts.ContextDir, &archive.TarOptions{
		ExcludePatterns: excludes,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("failed to prepare build context from %q", opts.ContextDir),
			err,
		)
	}
	defer buildCtx.Close()

	logrus.WithFields(logrus.Fields{
		"tags":    strings.Join(opts.Tags, ", "),
		"context": opts.ContextDir,
	}).Info("Building image")

	resp, err := cli.Inner().ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:       opts.Tags,
		Dockerfile: dockerfile,
		Labels:     opts.Labels,
		NoCache:    opts.NoCache,
		PullParent: opts.Pull,
		// Remove intermediate containers after each successful step,
		// matching the docker CLI default.
		Remove: true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			"image build request failed",
			err,
		)
	}
	defer resp.Body.Close()

	if err := decodeBuildStream(resp.Body); err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("image build failed for %s", strings.Join(opts.Tags, ", ")),
			err,
		)
	}

	return nil
}

// decodeBuildStream consumes the NDJSON message stream the daemon emits
// during a build, forwarding progress lines to the log. An error detail
// in the stream aborts decoding and is returned as the build failure:
// the HTTP call itself succeeds even when a build step fails.
func decodeBuildStream(r io.Reader) error {
	dec := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode build output: %w", err)
		}

		if msg.Error != nil {
			return msg.Error
		}

		// Aux messages carry the image ID at the end of the build;
		// they are not user-facing progress.
		if msg.Aux != nil {
			continue
		}

		// Step output arrives in Stream; base image pull progress (when
		// PullParent is set) arrives in Status.
		if text := strings.TrimSpace(msg.Stream); text != "" {
			logrus.Info(text)
		}
		if msg.Status != "" {
			logrus.Debug(msg.Status)
		}
	}
}

// readDockerignore loads exclusion patterns from the context directory's
// .dockerignore file. A missing file means no exclusions.
func readDockerignore(contextDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(contextDir, ".dockerignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse .dockerignore: %w", err)
	}
	return patterns, nil
}
