// dev.go implements the "rqdash dev" command.
//
// Dev is the foreground, leave-no-trace workflow: build the image, run the
// container with the project's data directory bind-mounted and AutoRemove
// set, stream its logs to the terminal until it exits, and then remove the
// image. After a successful session neither the container nor the image is
// left on the host.
//
// A container that exits non-zero fails the command with exit code 1 and
// the image is kept, so the failing build can be inspected with plain
// docker commands. Ctrl-C counts as a deliberate end of the session, not a
// failure: the container is stopped gracefully and the image is removed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
	"github.com/trendops/rqdash/internal/project"
)

// devStopTimeout bounds the graceful stop issued when the session is
// interrupted.
const devStopTimeout = 30 * time.Second

// devResult captures the outcome of a dev session for output formatting.
type devResult struct {
	ExitCode     int    `json:"exitCode"`
	Image        string `json:"image"`
	ImageRemoved bool   `json:"imageRemoved"`
	Cancelled    bool   `json:"cancelled,omitempty"`
}

// NewDevCommand creates the "dev" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDevCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the dashboard in the foreground with the data directory mounted",
		Long: `Build the image and run the dashboard in the foreground.

The project's data directory is bind-mounted into the container, the
container is removed automatically when it exits, and the image is removed
after a successful session. Press Ctrl-C to end the session.

Example:
  rqdash dev`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), cmd)
		},
	}

	return cmd
}

// runDev is the main logic function for the dev command.
func runDev(ctx context.Context, cmd *cobra.Command) error {
	dir, cfg, err := loadProject()
	if err != nil {
		return err
	}

	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	result, err := executeDev(ctx, newEngine(cli), cfg, dir, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	printDevResult(result)
	return nil
}

// executeDev drives the dev workflow against the given engine. Split from
// runDev for testing purposes. Container output is streamed to logOut and
// logErr.
func executeDev(ctx context.Context, eng engine, cfg *project.Config, dir string, logOut, logErr io.Writer) (*devResult, error) {
	// Teardown calls must run even after Ctrl-C cancels ctx.
	teardown := context.WithoutCancel(ctx)

	// Step 1: Build the image. A failed build stops the workflow here;
	// no container is created.
	if _, err := buildDashboardImage(ctx, eng, cfg, dir, false, false); err != nil {
		return nil, err
	}

	// Step 2: Make sure the bind source exists. Docker would create a
	// missing host directory as root-owned, which the dashboard process
	// then cannot write to.
	dataDir := filepath.Join(dir, cfg.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to create data directory %s", dataDir), err)
	}

	// Step 3: Free up the container name and create the container.
	if err := ensureNameFree(ctx, eng, cfg.ContainerName()); err != nil {
		return nil, err
	}
	containerID, err := eng.CreateDashboard(ctx, docker.ContainerSpec{
		Name:       cfg.ContainerName(),
		Image:      cfg.Ref(),
		Binds:      []string{dataDir + ":" + cfg.DataMount},
		Env:        envSlice(cfg.Env),
		Labels:     docker.BuildContainerLabels(cfg.Name, model.ModeEphemeral, 0, time.Now()),
		AutoRemove: true,
	})
	if err != nil {
		return nil, err
	}

	// Step 4: Start it. A container that never started will not
	// auto-remove itself, so clean it up before reporting the error.
	if err := eng.StartContainer(ctx, containerID); err != nil {
		if rmErr := eng.RemoveContainer(teardown, containerID, true); rmErr != nil {
			logrus.WithError(rmErr).Warn("Failed to remove unstarted container")
		}
		return nil, err
	}

	// Step 5: Stream logs until the container exits. The wait uses the
	// teardown context: after Ctrl-C we still need the exit code of the
	// container we are about to stop.
	logsDone := make(chan error, 1)
	go func() {
		logsDone <- eng.StreamLogs(ctx, containerID, docker.LogStreamOptions{
			Follow: true,
			Stdout: logOut,
			Stderr: logErr,
		})
	}()

	waitDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			logrus.Info("Interrupted, stopping the dashboard")
			stopCtx, cancel := context.WithTimeout(teardown, devStopTimeout)
			defer cancel()
			if err := eng.StopContainer(stopCtx, containerID); err != nil {
				logrus.WithError(err).Warn("Failed to stop container")
			}
		case <-waitDone:
		}
	}()

	exitCode, waitErr := eng.WaitContainer(teardown, containerID, true)
	close(waitDone)
	if err := <-logsDone; err != nil {
		logrus.WithError(err).Debug("Log stream ended with an error")
	}
	if waitErr != nil {
		return nil, waitErr
	}

	// Step 6: Settle the session. A genuine non-zero exit keeps the
	// image around for inspection; an interrupted session does not,
	// because stopping Streamlit makes the exit code non-zero even
	// though nothing went wrong.
	cancelled := ctx.Err() != nil
	if exitCode != 0 && !cancelled {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("dashboard exited with status %d (image %s kept for inspection)", exitCode, cfg.Ref()))
	}

	imageRemoved := true
	if err := eng.RemoveImage(teardown, cfg.Ref(), false); err != nil {
		logrus.WithError(err).Warn("Failed to remove image")
		imageRemoved = false
	}

	return &devResult{
		ExitCode:     int(exitCode),
		Image:        cfg.Ref(),
		ImageRemoved: imageRemoved,
		Cancelled:    cancelled,
	}, nil
}

// printDevResult outputs the dev command result in text or JSON format.
func printDevResult(result *devResult) {
	if IsJSONOutput() {
		printDevResultJSON(result)
	} else {
		printDevResultText(result)
	}
}

// printDevResultJSON outputs the dev result as structured JSON.
func printDevResultJSON(result *devResult) {
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printDevResultText outputs the dev result as human-readable text.
func printDevResultText(result *devResult) {
	fmt.Printf("Dashboard session ended (exit %d)\n", result.ExitCode)
	if result.ImageRemoved {
		fmt.Printf("  Removed image %s\n", result.Image)
	} else {
		fmt.Printf("  Image %s was not removed\n", result.Image)
	}
}
