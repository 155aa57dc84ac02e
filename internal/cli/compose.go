// compose.go implements the "rqdash compose" command.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/project"
)

// composeFlags holds the flag values for the compose command.
type composeFlags struct {
	// output is the file to write to. Empty writes to stdout.
	output string
}

// NewComposeCommand creates the "compose" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewComposeCommand() *cobra.Command {
	flags := &composeFlags{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Render a docker-compose.yml for the project",
		Long: `Render a docker-compose.yml equivalent of the project configuration.

The generated file builds the same image, publishes the same port, and
mounts the same data directory as "rqdash run", for teams that prefer to
drive the dashboard with docker compose.

Examples:
  rqdash compose
  rqdash compose -o docker-compose.yml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

// runCompose is the main logic function for the compose command. It is
// pure rendering; the Docker daemon is never contacted.
func runCompose(flags *composeFlags) error {
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	data, err := project.GenerateCompose(cfg, docker.BuildImageLabels(cfg.Name))
	if err != nil {
		return err
	}

	if flags.output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := project.WriteGeneratedFile(flags.output, data); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", flags.output)
	return nil
}
