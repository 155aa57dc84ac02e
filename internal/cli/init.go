// init.go implements the "rqdash init" command.
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/model"
	"github.com/trendops/rqdash/internal/project"
)

// initFlags holds the flag values for the init command.
type initFlags struct {
	// force overwrites scaffold files that already exist.
	force bool
}

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold the Dockerfile, .dockerignore, and project config",
		Long: `Write the scaffold files into the project directory.

Creates the Dockerfile, a .dockerignore, a commented starter config, and
the data directory. Existing files are left untouched unless --force is
given.

Examples:
  rqdash init
  rqdash init --project ./dashboard
  rqdash init --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite scaffold files that already exist")

	return cmd
}

// runInit is the main logic function for the init command.
func runInit(flags *initFlags) error {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot resolve project directory %q", projectDir), err)
	}

	result, err := project.WriteScaffold(dir, project.DefaultConfig(), flags.force)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write scaffold", err)
	}

	printInitResult(dir, result)
	return nil
}

// printInitResult outputs the init command result in text or JSON format.
func printInitResult(dir string, result *project.ScaffoldResult) {
	if IsJSONOutput() {
		printInitResultJSON(dir, result)
	} else {
		printInitResultText(dir, result)
	}
}

// printInitResultJSON outputs the init result as structured JSON.
func printInitResultJSON(dir string, result *project.ScaffoldResult) {
	out := struct {
		Project string `json:"project"`
		*project.ScaffoldResult
	}{Project: dir, ScaffoldResult: result}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

// printInitResultText outputs the init result as human-readable text.
func printInitResultText(dir string, result *project.ScaffoldResult) {
	fmt.Printf("Initialized %s\n", dir)
	for _, name := range result.Written {
		fmt.Printf("  wrote   %s\n", name)
	}
	for _, name := range result.Skipped {
		fmt.Printf("  skipped %s (exists, use --force to overwrite)\n", name)
	}
}
