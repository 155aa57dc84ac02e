// status.go implements the "rqdash status" command.
//
// Status is the one-glance view of the project: the managed containers with
// their state and age, plus image presence and a probe of the dashboard
// port for a live listener.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bndr/gotabulate"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
	"github.com/trendops/rqdash/internal/port"
	"github.com/trendops/rqdash/internal/project"
)

// statusReport is the full status command output.
type statusReport struct {
	Project       string                `json:"project"`
	Image         statusImage           `json:"image"`
	Port          int                   `json:"port"`
	PortListening bool                  `json:"portListening"`
	Containers    []model.ContainerInfo `json:"containers"`
}

// statusImage describes the project's image on the daemon.
type statusImage struct {
	Ref       string `json:"ref"`
	Present   bool   `json:"present"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// NewStatusCommand creates the "status" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the project's containers, image, and port",
		Long: `Show the state of the project's dashboard.

Lists the managed containers, reports whether the image exists on the
daemon and its size, and probes whether the dashboard port is actually
accepting connections on the host.

Examples:
  rqdash status
  rqdash status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}

	return cmd
}

// runStatus is the main logic function for the status command.
func runStatus(ctx context.Context) error {
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	report, err := buildStatusReport(ctx, cli, port.NewScanner(), cfg)
	if err != nil {
		return err
	}

	printStatusResult(report)
	return nil
}

// buildStatusReport gathers the container list, image presence, and port
// state into one report.
func buildStatusReport(ctx context.Context, cli *docker.Client, scanner *port.Scanner, cfg *project.Config) (*statusReport, error) {
	containers, err := docker.ListManaged(ctx, cli, cfg.Name)
	if err != nil {
		return nil, err
	}
	if containers == nil {
		containers = []model.ContainerInfo{}
	}

	images, err := docker.FindImages(ctx, cli, cfg.Ref())
	if err != nil {
		return nil, err
	}
	img := statusImage{Ref: cfg.Ref()}
	if len(images) > 0 {
		img.Present = true
		img.SizeBytes = images[0].Size
	}

	// A running container may have been started on a fallback port, so
	// probe the port it actually publishes rather than the configured one.
	probePort := cfg.Port
	for _, c := range containers {
		if c.IsRunning() && c.HostPort > 0 {
			probePort = c.HostPort
			break
		}
	}

	return &statusReport{
		Project:       cfg.Name,
		Image:         img,
		Port:          probePort,
		PortListening: !scanner.IsPortAvailable(probePort, "tcp"),
		Containers:    containers,
	}, nil
}

// statusRows converts the container list into table rows.
// Exported logic kept in a helper for testing purposes.
func statusRows(containers []model.ContainerInfo) [][]interface{} {
	rows := make([][]interface{}, 0, len(containers))
	for _, c := range containers {
		hostPort := "-"
		if c.HostPort > 0 {
			hostPort = strconv.Itoa(c.HostPort)
		}
		rows = append(rows, []interface{}{
			c.ContainerName,
			docker.ShortID(c.ContainerID),
			c.State,
			string(c.Mode),
			hostPort,
			formatAge(c.CreatedAt),
		})
	}
	return rows
}

// formatAge renders a creation time the way `docker ps` does ("2 hours
// ago"). A zero time renders as "-".
func formatAge(createdAt time.Time) string {
	if createdAt.IsZero() {
		return "-"
	}
	return units.HumanDuration(time.Since(createdAt)) + " ago"
}

// printStatusResult outputs the status command result in text or JSON
// format.
func printStatusResult(report *statusReport) {
	if IsJSONOutput() {
		printStatusResultJSON(report)
	} else {
		printStatusResultText(report)
	}
}

// printStatusResultJSON outputs the status report as structured JSON.
func printStatusResultJSON(report *statusReport) {
	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
}

// printStatusResultText outputs the status report as a summary block plus
// a container table.
func printStatusResultText(report *statusReport) {
	fmt.Printf("Project: %s\n", report.Project)
	if report.Image.Present {
		fmt.Printf("Image:   %s (%s)\n", report.Image.Ref, units.HumanSize(float64(report.Image.SizeBytes)))
	} else {
		fmt.Printf("Image:   %s (not built)\n", report.Image.Ref)
	}
	if report.PortListening {
		fmt.Printf("Port:    %d (listening)\n", report.Port)
	} else {
		fmt.Printf("Port:    %d (not listening)\n", report.Port)
	}
	fmt.Println()

	if len(report.Containers) == 0 {
		fmt.Println("No dashboard containers found.")
		return
	}

	table := gotabulate.Create(statusRows(report.Containers))
	table.SetHeaders([]string{"NAME", "ID", "STATE", "MODE", "PORT", "CREATED"})
	table.SetEmptyString("-")
	table.SetAlign("left")
	table.SetMaxCellSize(40)
	table.SetWrapStrings(true)
	fmt.Println(table.Render("grid"))
}
