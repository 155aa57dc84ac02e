// run.go implements the "rqdash run" command.
//
// Run is the everyday workflow: build the image, then start the dashboard
// detached with the configured host port published. The command waits for
// Streamlit's readiness line in the container log before printing the URL,
// so a successful run means the dashboard is actually reachable.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
	"github.com/trendops/rqdash/internal/port"
	"github.com/trendops/rqdash/internal/project"
)

// streamlitReadyMessage is the log line Streamlit prints once the server
// accepts connections. Waiting for it separates "container started" from
// "dashboard is up".
const streamlitReadyMessage = "You can now view your Streamlit app"

// autoPortSpan is how many ports above the configured one --auto-port
// probes before giving up.
const autoPortSpan = 99

// runFlags holds the flag values for the run command.
type runFlags struct {
	// noBuild skips the image build and requires the image to exist.
	noBuild bool

	// noWait skips waiting for the readiness line.
	noWait bool

	// autoPort falls back to the next free host port when the configured
	// one is taken.
	autoPort bool

	// waitTimeout bounds how long to wait for the readiness line.
	waitTimeout time.Duration
}

// portChecker is the slice of port.Scanner the run workflow needs. Tests
// substitute a stub so no real sockets are opened.
type portChecker interface {
	EnsureAvailable(port int) error
	FindAvailablePort(startPort, endPort int, protocol string) (int, error)
}

// runResult captures the outcome of the run command for output formatting.
type runResult struct {
	ContainerID   string `json:"containerId"`
	ContainerName string `json:"containerName"`
	Image         string `json:"image"`
	HostPort      int    `json:"hostPort"`
	URL           string `json:"url"`
	Ready         bool   `json:"ready"`
}

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the image and start the dashboard",
		Long: `Build the dashboard image and start it as a detached container.

The container publishes the configured host port and keeps running until
stopped with "rqdash stop". An exited container of the same name is
replaced; a running one is left alone and reported as an error.

Examples:
  rqdash run
  rqdash run --no-build
  rqdash run --auto-port`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.noBuild, "no-build", false, "Skip the build and use the existing image")
	cmd.Flags().BoolVar(&flags.noWait, "no-wait", false, "Do not wait for the dashboard to report ready")
	cmd.Flags().BoolVar(&flags.autoPort, "auto-port", false, "Fall back to the next free host port when the configured one is taken")
	cmd.Flags().DurationVar(&flags.waitTimeout, "wait-timeout", 60*time.Second, "How long to wait for the dashboard to report ready")

	return cmd
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, flags *runFlags) error {
	dir, cfg, err := loadProject()
	if err != nil {
		return err
	}

	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	result, err := executeRun(ctx, newEngine(cli), port.NewScanner(), cfg, dir, flags)
	if err != nil {
		return err
	}

	printRunResult(result)
	return nil
}

// executeRun drives the run workflow against the given engine. Split from
// runRun for testing purposes.
func executeRun(ctx context.Context, eng engine, ports portChecker, cfg *project.Config, dir string, flags *runFlags) (*runResult, error) {
	// Step 1: Make sure the image exists, building it unless told not to.
	// A failed build stops the workflow here; no container is created.
	if flags.noBuild {
		exists, err := eng.ImageExists(ctx, cfg.Ref())
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("image %s not found; run \"rqdash build\" first or drop --no-build", cfg.Ref()))
		}
	} else {
		if _, err := buildDashboardImage(ctx, eng, cfg, dir, false, false); err != nil {
			return nil, err
		}
	}

	// Step 2: Preflight the host port.
	hostPort := cfg.Port
	if err := ports.EnsureAvailable(hostPort); err != nil {
		if !flags.autoPort {
			return nil, model.WrapCLIError(model.ExitPortUnavailable,
				fmt.Sprintf("port %d is not available (use --auto-port to pick a free one)", hostPort), err)
		}
		selected, perr := ports.FindAvailablePort(hostPort+1, hostPort+autoPortSpan, "tcp")
		if perr != nil {
			return nil, model.WrapCLIError(model.ExitPortUnavailable,
				fmt.Sprintf("no free port found between %d and %d", hostPort+1, hostPort+autoPortSpan), perr)
		}
		logrus.WithFields(logrus.Fields{
			"configured": hostPort,
			"selected":   selected,
		}).Info("Configured port is in use, selected a free one")
		hostPort = selected
	}

	// Step 3: Replace a stale container of the same name. A running one
	// is the user's live dashboard and is never touched.
	if err := ensureNameFree(ctx, eng, cfg.ContainerName()); err != nil {
		return nil, err
	}

	// Step 4: Create and start the container.
	containerID, err := eng.CreateDashboard(ctx, docker.ContainerSpec{
		Name:          cfg.ContainerName(),
		Image:         cfg.Ref(),
		HostPort:      hostPort,
		ContainerPort: cfg.ContainerPort,
		Env:           envSlice(cfg.Env),
		Labels:        docker.BuildContainerLabels(cfg.Name, model.ModePersistent, hostPort, time.Now()),
	})
	if err != nil {
		return nil, err
	}
	if err := eng.StartContainer(ctx, containerID); err != nil {
		return nil, err
	}

	// Step 5: Wait for Streamlit to report ready. A timeout is reported
	// but does not fail the command; the container keeps running and may
	// just be slow to install or import.
	ready := false
	if !flags.noWait {
		if err := eng.WaitForLogLine(ctx, containerID, streamlitReadyMessage, flags.waitTimeout); err != nil {
			logrus.WithError(err).Warn("Dashboard did not report ready in time, check \"rqdash logs\"")
		} else {
			ready = true
		}
	}

	return &runResult{
		ContainerID:   containerID,
		ContainerName: cfg.ContainerName(),
		Image:         cfg.Ref(),
		HostPort:      hostPort,
		URL:           fmt.Sprintf("http://localhost:%d", hostPort),
		Ready:         ready,
	}, nil
}

// ensureNameFree makes the project's container name available for a new
// container. An exited holder of the name is removed; a running one is an
// error, because it is someone's live dashboard.
func ensureNameFree(ctx context.Context, eng engine, name string) error {
	existing, err := eng.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if existing.IsRunning() {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("container %s is already running; stop it with \"rqdash stop\" first", existing.ContainerName))
	}
	logrus.WithField("container", existing.ContainerName).Info("Removing exited container")
	return eng.RemoveContainer(ctx, existing.ContainerID, true)
}

// envSlice converts the config's environment map into Docker's KEY=VALUE
// form, sorted for deterministic container specs.
func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}

// printRunResult outputs the run command result in text or JSON format.
func printRunResult(result *runResult) {
	if IsJSONOutput() {
		printRunResultJSON(result)
	} else {
		printRunResultText(result)
	}
}

// printRunResultJSON outputs the run result as structured JSON.
func printRunResultJSON(result *runResult) {
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printRunResultText outputs the run result as human-readable text.
func printRunResultText(result *runResult) {
	fmt.Printf("Dashboard is up\n")
	fmt.Printf("  Container: %s (%s)\n", result.ContainerName, docker.ShortID(result.ContainerID))
	fmt.Printf("  Image:     %s\n", result.Image)
	fmt.Printf("  URL:       %s\n", result.URL)
	if !result.Ready {
		fmt.Printf("\nThe dashboard has not reported ready yet. Follow the logs with:\n")
		fmt.Printf("  rqdash logs --follow\n")
	}
}
