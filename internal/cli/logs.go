// logs.go implements the "rqdash logs" command.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
)

// logsFlags holds the flag values for the logs command.
type logsFlags struct {
	// follow keeps the stream open until the container exits or the
	// command is interrupted.
	follow bool

	// tail limits output to the last N lines. Zero prints everything.
	tail int
}

// NewLogsCommand creates the "logs" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewLogsCommand() *cobra.Command {
	flags := &logsFlags{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the dashboard container's logs",
		Long: `Print the project's dashboard container logs.

The container's stdout and stderr are written to the matching streams of
this process, so shell redirection separates them as usual.

Examples:
  rqdash logs
  rqdash logs --follow
  rqdash logs --tail 100`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVarP(&flags.follow, "follow", "f", false, "Follow the log output")
	cmd.Flags().IntVar(&flags.tail, "tail", 0, "Number of lines from the end of the logs (0 means all)")

	return cmd
}

// runLogs is the main logic function for the logs command.
func runLogs(ctx context.Context, flags *logsFlags) error {
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

	tail := ""
	if flags.tail > 0 {
		tail = strconv.Itoa(flags.tail)
	}

	return docker.StreamLogs(ctx, cli, info.ContainerID, docker.LogStreamOptions{
		Follow: flags.follow,
		Tail:   tail,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
}
