package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/llmpanel/internal/process"
	"github.com/mihaisavezi/llmpanel/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API in the foreground",
	Long:  `Serve the feature endpoints under /api/v1 until interrupted.`,
	RunE:  runServe,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP API in the background",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE:  runStop,
}

func runServe(cmd *cobra.Command, _ []string) error {
	procMgr := process.NewManager(baseDir)
	if procMgr.IsRunning() {
		return fmt.Errorf("a server is already running with PID %d", procMgr.ReadPID())
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	if err := procMgr.WritePID(); err != nil {
		return err
	}

	defer func() {
		if err := procMgr.CleanupPID(); err != nil {
			logger.Warn("Failed to remove PID file", "error", err)
		}
	}()

	cfg := a.cfg
	color.Green("Starting %s v%s on http://%s:%d", AppName, Version, cfg.Host, cfg.Port)

	return server.New(cfgMgr, a.registry, a.core, logger).Start(cmd.Context())
}

func runStart(_ *cobra.Command, _ []string) error {
	procMgr := process.NewManager(baseDir)

	args := []string{"serve", "--dir", baseDir, "--log-format", "json"}
	if verbose {
		args = append(args, "-v")
	}

	started, err := procMgr.StartBackground(args...)
	if err != nil {
		return err
	}

	if !started {
		color.Yellow("Server already running (PID %d)", procMgr.ReadPID())
		return nil
	}

	cfg := cfgMgr.Get()
	color.Green("Server started (PID %d) on http://%s:%d", procMgr.ReadPID(), cfg.Host, cfg.Port)

	return nil
}

func runStop(_ *cobra.Command, _ []string) error {
	procMgr := process.NewManager(baseDir)

	if !procMgr.IsRunning() {
		color.Yellow("Server is not running")
		return nil
	}

	color.Yellow("Stopping %s...", AppName)

	if err := procMgr.Stop(); err != nil {
		return err
	}

	color.Green("Server stopped")

	return nil
}
