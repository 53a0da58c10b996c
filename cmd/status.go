package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/llmpanel/internal/process"
	"github.com/mihaisavezi/llmpanel/internal/usage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and token usage",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	procMgr := process.NewManager(baseDir)
	cfg := cfgMgr.Get()
	w := cmd.OutOrStdout()

	a, err := newApp()
	if err != nil {
		return err
	}

	running := procMgr.IsRunning()

	color.Blue("Status for %s:", AppName)

	if running {
		fmt.Fprintf(w, "  %-16s: %s\n", "Server", color.GreenString("running"))
		fmt.Fprintf(w, "  %-16s: %d\n", "PID", procMgr.ReadPID())
		fmt.Fprintf(w, "  %-16s: http://%s:%d\n", "Endpoint", cfg.Host, cfg.Port)

		var health map[string]string
		if err := serverCall(cmd.Context(), http.MethodGet, "/health", &health); err != nil {
			fmt.Fprintf(w, "  %-16s: %s\n", "Health", color.RedString(err.Error()))
		} else {
			fmt.Fprintf(w, "  %-16s: %s\n", "Health", health["status"])
		}
	} else {
		fmt.Fprintf(w, "  %-16s: %s\n", "Server", color.YellowString("not running"))
	}

	fmt.Fprintf(w, "  %-16s: %s (%s)\n", "Active provider", a.registry.CurrentName(), a.registry.Current().Model())
	fmt.Fprintf(w, "  %-16s: %d\n", "Tokens used", usage.NewCounterWithEncoder(a.store, nil, logger).Total())
	fmt.Fprintf(w, "  %-16s: %s\n", "Settings file", cfgMgr.GetPath())
	fmt.Fprintf(w, "  %-16s: v%s\n", "Version", Version)

	return nil
}

// serverCall sends a request to the running server and decodes the JSON
// reply into out when out is non-nil.
func serverCall(ctx context.Context, method, path string, out any) error {
	cfg := cfgMgr.Get()
	url := "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + path

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable at %s (is it running?): %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
