// cleanup.go implements the "rqdash cleanup" command.
//
// Cleanup reclaims disk space on the Docker host: exited containers and
// dangling images are removed when present, and unused networks and
// volumes are pruned on every pass. The prunes are unconditional; they are
// no-ops on a clean host and Docker only touches resources nothing is
// attached to.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/trendops/rqdash/internal/docker"
	"github.com/trendops/rqdash/internal/model"
)

// cleanupFlags holds the flag values for the cleanup command.
type cleanupFlags struct {
	// dryRun reports what would be removed without removing anything.
	dryRun bool
}

// NewCleanupCommand creates the "cleanup" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanupCommand() *cobra.Command {
	flags := &cleanupFlags{}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove exited containers, dangling images, and unused networks and volumes",
		Long: `Clean up leftover Docker resources on this host.

Removes all exited containers and all dangling images, then prunes unused
networks and volumes. This acts on the whole host, not only on resources
this tool created.

Examples:
  rqdash cleanup
  rqdash cleanup --dry-run`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would be removed without removing anything")

	return cmd
}

// runCleanup is the main logic function for the cleanup command.
func runCleanup(ctx context.Context, flags *cleanupFlags) error {
	// Step 1: Connect to the Docker daemon. Cleanup is host-wide, so the
	// project config is not needed.
	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	// Step 2: Run the cleanup pass.
	report, err := docker.NewCleaner(cli).Run(ctx, docker.CleanupOptions{
		DryRun: flags.dryRun,
	})
	if err != nil {
		return err
	}

	// Step 3: Output the result.
	printCleanupResult(report)
	return nil
}

// printCleanupResult outputs the cleanup command result in text or JSON
// format.
func printCleanupResult(report *model.CleanupReport) {
	if IsJSONOutput() {
		printCleanupResultJSON(report)
	} else {
		printCleanupResultText(report)
	}
}

// printCleanupResultJSON outputs the cleanup report as structured JSON.
func printCleanupResultJSON(report *model.CleanupReport) {
	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
}

// printCleanupResultText outputs the cleanup report as human-readable
// text.
func printCleanupResultText(report *model.CleanupReport) {
	verb := "Removed"
	if report.DryRun {
		verb = "Would remove"
	}

	printCleanupSection(verb+" containers", shortIDs(report.ContainersRemoved))
	printCleanupSection(verb+" images", shortIDs(report.ImagesRemoved))
	printCleanupSection("Pruned networks", report.NetworksPruned)
	printCleanupSection("Pruned volumes", report.VolumesPruned)

	switch {
	case report.DryRun:
		fmt.Println("Dry run: nothing was removed. Network and volume prunes are skipped in dry runs.")
	case report.Empty():
		fmt.Println("Nothing to clean up.")
	default:
		fmt.Printf("Cleaned up %d resources, reclaimed %s.\n",
			report.TotalRemoved(), units.HumanSize(float64(report.SpaceReclaimed)))
	}
}

// printCleanupSection prints one labeled ID/name list, skipping empty
// sections.
func printCleanupSection(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", label, len(items))
	for _, item := range items {
		fmt.Printf("  %s\n", item)
	}
}

// shortIDs shortens container and image IDs for display. Network and
// volume names pass through printCleanupSection untouched; truncating
// those would mangle real names.
func shortIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, docker.ShortID(id))
	}
	return out
}
