// build.go implements the "rqdash build" command.
//
// The build command turns the project directory into the dashboard image.
// The Docker daemon's build output is streamed through the log so the
// command feels like `docker build`. Built images are stamped with the
// rqdash management labels plus OCI provenance labels derived from the
// project's git metadata, when the project is a git repository.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/gitinfo"
	"github.com/trendops/rqdash/internal/project"
)

// buildFlags holds the flag values for the build command.
type buildFlags struct {
	// tag overrides the image tag from the project config.
	tag string

	// noCache disables the daemon's layer cache for this build.
	noCache bool

	// pull always attempts to pull a newer version of the base image.
	pull bool
}

// NewBuildCommand creates the "build" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the dashboard image",
		Long: `Build the dashboard image from the project directory.

The project's Dockerfile is used as-is; the build context honors the
.dockerignore file. Build progress is streamed to the terminal.

Examples:
  rqdash build
  rqdash build --no-cache
  rqdash build --tag v2`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVarP(&flags.tag, "tag", "t", "", "Image tag (default: from project config)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Build without using the layer cache")
	cmd.Flags().BoolVar(&flags.pull, "pull", false, "Always pull a newer base image")

	return cmd
}

// runBuild is the main logic function for the build command.
func runBuild(ctx context.Context, flags *buildFlags) error {
	// Step 1: Load and validate the project configuration.
	dir, cfg, err := loadProject()
	if err != nil {
		return err
	}
	if flags.tag != "" {
		cfg.Tag = flags.tag
		// Re-validate: the flag can carry an illegal tag just as the
		// config file can.
		if err := cfg.ValidateStrict(); err != nil {
			return err
		}
	}

	// Step 2: Connect to the Docker daemon.
	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	// Step 3: Build the image.
	info, err := buildDashboardImage(ctx, newEngine(cli), cfg, dir, flags.noCache, flags.pull)
	if err != nil {
		return err
	}

	// Step 4: Output the result.
	printBuildResult(cfg.Ref(), info)
	return nil
}

// buildDashboardImage builds the project's image with the management and
// provenance labels applied. It is shared by the build, run, and dev
// commands; the returned git metadata may be zero when the project is not
// a repository.
func buildDashboardImage(ctx context.Context, eng engine, cfg *project.Config, dir string, noCache, pull bool) (gitinfo.Info, error) {
	info := describeProvenance(dir)
	labels := docker.MergeLabels(docker.BuildImageLabels(cfg.Name), info.OCILabels())

	err := eng.BuildImage(ctx, docker.BuildOptions{
		ContextDir: dir,
		Tags:       []string{cfg.Ref()},
		Labels:     labels,
		NoCache:    noCache,
		Pull:       pull,
	})
	return info, err
}

// describeProvenance reads the project's git metadata for the provenance
// labels. A project that is not a git repository (or a host without git)
// builds without labels; that is not an error.
func describeProvenance(dir string) gitinfo.Info {
	info, err := gitinfo.Describe(dir)
	if err != nil {
		logrus.WithError(err).Debug("no git metadata available, building without provenance labels")
		return gitinfo.Info{}
	}
	return info
}

// printBuildResult outputs the build command result in text or JSON format.
func printBuildResult(ref string, info gitinfo.Info) {
	if IsJSONOutput() {
		printBuildResultJSON(ref, info)
	} else {
		printBuildResultText(ref, info)
	}
}

// printBuildResultJSON outputs the build result as structured JSON.
func printBuildResultJSON(ref string, info gitinfo.Info) {
	type resultJSON struct {
		Image  string `json:"image"`
		Commit string `json:"commit,omitempty"`
		Branch string `json:"branch,omitempty"`
		Dirty  bool   `json:"dirty,omitempty"`
	}

	result := resultJSON{
		Image:  ref,
		Commit: info.Commit,
		Branch: info.Branch,
		Dirty:  info.Dirty,
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printBuildResultText outputs the build result as human-readable text.
func printBuildResultText(ref string, info gitinfo.Info) {
	fmt.Printf("Built image %s\n", ref)
	if info.Commit != "" {
		revision := info.ShortCommit()
		if info.Dirty {
			revision += " (dirty)"
		}
		fmt.Printf("  Revision: %s\n", revision)
	}
}
