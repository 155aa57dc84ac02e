// Package cli implements the cobra-based commands for rqdash.
//
// Each subcommand (init, build, run, dev, stop, logs, status, cleanup,
// compose) is defined in its own file within this package. This file defines
// the root command that serves as the parent for all subcommands, the global
// flags, and the error-to-exit-code translation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
	"github.com/trendops/rqdash/internal/project"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose raises the log level to debug. Logs go to stderr, so they
	// never mix with command output on stdout.
	verbose bool

	// quiet lowers the log level to warnings and errors only. The build
	// and container log streams still reach stdout; quiet silences the
	// tool's own progress lines.
	quiet bool

	// projectDir is the project directory every command operates on.
	// Defaults to the current directory, like the scripts this replaces.
	projectDir string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action, it only provides
// help text and global flags. Actual functionality is provided by the
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "rqdash",
		Short: "Docker lifecycle manager for the related-queries dashboard",
		Long: `rqdash builds and runs the related-queries-dashboard Docker image: a
Streamlit dashboard served on port 8501.

It replaces the project's build/run/cleanup shell scripts with one binary:
"run" starts the dashboard detached with the port published, "dev" runs a
throwaway foreground session with the data directory mounted, and "cleanup"
sweeps exited containers, dangling images, and unused networks and volumes.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// Logging must be configured before any subcommand runs, and
		// PersistentPreRun fires after flag parsing on every invocation.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},
	}

	// PersistentFlags are inherited by all subcommands. This is the cobra
	// mechanism for global flags: any flag defined here is automatically
	// available in every subcommand without re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "Project directory")

	// Register subcommands. Each subcommand is defined in its own file
	// (run.go, dev.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewDevCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewCleanupCommand())
	rootCmd.AddCommand(NewComposeCommand())

	return rootCmd
}

// configureLogging applies the --verbose/--quiet flags to the global logrus
// logger. Logs always go to stderr: stdout belongs to command output so
// `rqdash status --json | jq` works.
func configureLogging() {
	logrus.SetOutput(os.Stderr)
	switch {
	case quiet:
		logrus.SetLevel(logrus.WarnLevel)
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Execute runs the root command under the given context and handles exit
// codes. This is the main entry point called from main.go; the context is
// cancelled on SIGINT/SIGTERM so long operations can shut down cleanly.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Check if the error is a CLIError with a specific exit code.
		// errors.As would also work here, but a type assertion is simpler
		// for this single-level check.
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		// Generic error: exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// We write to stderr for errors, even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		// Text format: "Error: <message>" on stderr.
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadProject resolves the --project directory to an absolute path and
// loads its configuration. The configuration is validated before being
// returned, so commands can rely on its fields being usable.
func loadProject() (string, *project.Config, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return "", nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("cannot resolve project directory %q", projectDir),
			err,
		)
	}

	cfg, err := project.Load(dir)
	if err != nil {
		return "", nil, err
	}
	if err := cfg.ValidateStrict(); err != nil {
		return "", nil, err
	}

	return dir, cfg, nil
}

// connectDocker opens the Docker client and verifies the daemon responds.
// Callers must Close the returned client. Both failure paths already carry
// the docker-not-running exit code.
func connectDocker(ctx context.Context) (*docker.Client, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}

	logrus.Debug("Connected to Docker daemon")
	return cli, nil
}
