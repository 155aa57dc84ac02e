// stop.go implements the "rqdash stop" command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
)

// stopFlags holds the flag values for the stop command.
type stopFlags struct {
	// rm also removes the container after stopping it.
	rm bool
}

// stopResult captures the outcome of the stop command for output
// formatting.
type stopResult struct {
	ContainerID   string `json:"containerId"`
	ContainerName string `json:"containerName"`
	Stopped       bool   `json:"stopped"`
	Removed       bool   `json:"removed"`
}

// NewStopCommand creates the "stop" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStopCommand() *cobra.Command {
	flags := &stopFlags{}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the dashboard container",
		Long: `Stop the project's dashboard container.

The container is kept around so "rqdash run --no-build" can replace it
quickly; pass --rm to remove it as well.

Examples:
  rqdash stop
  rqdash stop --rm`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.rm, "rm", false, "Remove the container after stopping it")

	return cmd
}

// runStop is the main logic function for the stop command.
func runStop(ctx context.Context, flags *stopFlags) error {
	// Step 1: Find the project's container.
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	info, err := docker.FindByName(ctx, cli, cfg.ContainerName())
	if err != nil {
		return err
	}
	if info == nil {
		return model.NewCLIError(model.ExitContainerNotFound,
			fmt.Sprintf("no dashboard container named %s exists", cfg.ContainerName()))
	}

	result := &stopResult{
		ContainerID:   info.ContainerID,
		ContainerName: info.ContainerName,
	}

	// Step 2: Stop it, unless it has already exited.
	if info.IsRunning() {
		if err := docker.StopContainer(ctx, cli, info.ContainerID); err != nil {
			return err
		}
		result.Stopped = true
	} else {
		logrus.WithField("container", info.ContainerName).Info("Container is not running")
	}

	// Step 3: Remove it if asked. An ephemeral container removes itself
	// as soon as it stops, so an explicit remove would race the daemon
	// and fail with "no such container".
	if flags.rm {
		if info.Mode == model.ModeEphemeral {
			logrus.Debug("Skipping explicit removal of an auto-removing container")
			result.Removed = true
		} else {
			if err := docker.RemoveContainer(ctx, cli, info.ContainerID, false); err != nil {
				return err
			}
			result.Removed = true
		}
	}

	// Step 4: Output the result.
	printStopResult(result)
	return nil
}

// printStopResult outputs the stop command result in text or JSON format.
func printStopResult(result *stopResult) {
	if IsJSONOutput() {
		printStopResultJSON(result)
	} else {
		printStopResultText(result)
	}
}

// printStopResultJSON outputs the stop result as structured JSON.
func printStopResultJSON(result *stopResult) {
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printStopResultText outputs the stop result as human-readable text.
func printStopResultText(result *stopResult) {
	switch {
	case result.Removed:
		fmt.Printf("Stopped and removed container %s\n", result.ContainerName)
	case result.Stopped:
		fmt.Printf("Stopped container %s\n", result.ContainerName)
	default:
		fmt.Printf("Container %s was already stopped\n", result.ContainerName)
	}
}
