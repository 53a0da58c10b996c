package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/llmpanel/internal/handlers"
	"github.com/mihaisavezi/llmpanel/internal/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their fallback chains",
	RunE:  runProvidersList,
}

var providersHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show model health recorded by the running server",
	Long: `Show model health. Health lives in memory, so this asks the running server
over HTTP; start one with 'llmpanel start'.`,
	RunE: runProvidersHealth,
}

var providersResetCmd = &cobra.Command{
	Use:   "reset-health",
	Short: "Mark every model healthy again on the running server",
	RunE:  runProvidersReset,
}

func init() {
	providersCmd.AddCommand(providersHealthCmd, providersResetCmd)
}

func runProvidersList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	for _, info := range handlers.Describe(a.registry) {
		marker := "  "
		if info.Active {
			marker = color.GreenString("▶ ")
		}

		var tags []string
		if info.Free {
			tags = append(tags, "free")
		}

		if info.Local {
			tags = append(tags, "local")
		}

		if !info.Configured {
			tags = append(tags, color.YellowString("no key"))
		}

		fmt.Fprintf(w, "%s%-11s %s %v\n", marker, info.Name, info.Model, tags)

		if len(info.Fallbacks) > 0 {
			fmt.Fprintf(w, "    fallbacks: %v\n", info.Fallbacks)
		}
	}

	return nil
}

func runProvidersHealth(cmd *cobra.Command, _ []string) error {
	var snapshot map[string]providers.ModelHealth
	if err := serverCall(cmd.Context(), "GET", "/api/v1/models/health", &snapshot); err != nil {
		return err
	}

	if len(snapshot) == 0 {
		color.Green("No failures recorded.")
		return nil
	}

	models := make([]string, 0, len(snapshot))
	for m := range snapshot {
		models = append(models, m)
	}

	sort.Strings(models)

	w := cmd.OutOrStdout()

	for _, m := range models {
		h := snapshot[m]

		state := color.GreenString("available")
		if !h.Available {
			state = color.RedString("unavailable")
		}

		fmt.Fprintf(w, "%-45s %s failures=%d last=%s\n", m, state, h.FailureCount, h.LastFailure.Format(time.Kitchen))
	}

	return nil
}

func runProvidersReset(cmd *cobra.Command, _ []string) error {
	if err := serverCall(cmd.Context(), "DELETE", "/api/v1/models/health", nil); err != nil {
		return err
	}

	color.Green("Model health reset.")

	return nil
}
