package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mihaisavezi/llmpanel/internal/config"
	"github.com/mihaisavezi/llmpanel/internal/providers"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage settings",
	Long:  `Show and change provider keys, models and feature settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider> [key]",
	Short: "Store a provider API key",
	Long:  `Store a provider API key. Without a key argument it is read from the terminal without echo.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConfigSetKey,
}

var configSetModelCmd = &cobra.Command{
	Use:   "set-model <provider> <model>",
	Short: "Choose the model used for a provider",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetModel,
}

var configUseCmd = &cobra.Command{
	Use:     "use <provider>",
	Aliases: []string{"set-provider"},
	Short:   "Make a provider the active one",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigUse,
}

var configOllamaCmd = &cobra.Command{
	Use:   "set-ollama-url <url>",
	Short: "Point the Ollama provider at a server",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigOllama,
}

var configSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Change a general setting",
	Long: `Change a general setting. Settings: fallback (on|off), dark-mode (on|off),
language, max-retries, timeout, host, port, server-key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetKeyCmd, configSetModelCmd, configUseCmd, configOllamaCmd, configSetCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := cfgMgr.Get()
	w := cmd.OutOrStdout()

	if !cfgMgr.Exists() {
		color.Yellow("No settings file yet, showing defaults.")
	}

	color.Blue("Settings:")
	fmt.Fprintf(w, "  %-16s: %s\n", "Active provider", cfg.ActiveProvider)
	fmt.Fprintf(w, "  %-16s: %v\n", "Fallback", cfg.Fallback())
	fmt.Fprintf(w, "  %-16s: %d\n", "Max retries", cfg.MaxRetries)
	fmt.Fprintf(w, "  %-16s: %ds\n", "Timeout", cfg.TimeoutSeconds)
	fmt.Fprintf(w, "  %-16s: %s\n", "Target language", cfg.TargetLanguage)
	fmt.Fprintf(w, "  %-16s: %v\n", "Dark mode", cfg.DarkMode)
	fmt.Fprintf(w, "  %-16s: %s\n", "Server", fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port))
	fmt.Fprintf(w, "  %-16s: %s\n", "Server key", maskString(cfg.APIKey))
	fmt.Fprintf(w, "  %-16s: %s\n", "Settings file", cfgMgr.GetPath())

	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nProviders:")

	for _, name := range a.registry.List() {
		p, _ := a.registry.Get(name)

		key := maskString(p.APIKey())
		if !p.RequiresAPIKey() {
			key = "(not needed)"
		}

		fmt.Fprintf(w, "  - %-11s model=%s key=%s\n", name, p.Model(), key)
	}

	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	name := args[0]

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		var err error
		if key, err = readSecret(fmt.Sprintf("%s API key: ", name)); err != nil {
			return err
		}
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.registry.SaveAPIKey(name, key); err != nil {
		return err
	}

	color.Green("Saved API key for %s", name)

	return nil
}

// readSecret prompts on stderr and reads a line without echo when stdin is
// a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)

		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}

		return string(data), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}

	return line, nil
}

func runConfigSetModel(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.registry.SaveModel(args[0], args[1]); err != nil {
		return err
	}

	color.Green("%s now uses %s", args[0], args[1])

	return nil
}

func runConfigUse(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.registry.SetCurrent(args[0]); err != nil {
		return fmt.Errorf("%w (known: %s)", err, strings.Join(a.registry.List(), ", "))
	}

	p := a.registry.Current()
	color.Green("Active provider: %s (%s)", p.Name(), p.Model())

	if p.RequiresAPIKey() && p.APIKey() == "" {
		color.Yellow("%s has no API key yet. Set one with '%s config set-key %s' or %s.",
			p.Name(), AppName, p.Name(), providers.EnvKeyName(p.Name()))
	}

	return nil
}

func runConfigOllama(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.registry.SaveOllamaURL(args[0]); err != nil {
		return err
	}

	color.Green("Ollama URL set to %s", args[0])

	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	apply, err := settingUpdate(args[0], args[1])
	if err != nil {
		return err
	}

	if err := cfgMgr.Update(apply); err != nil {
		return err
	}

	color.Green("%s = %s", args[0], args[1])

	return nil
}

func settingUpdate(setting, value string) (func(*config.Config), error) {
	switch setting {
	case "fallback", "dark-mode":
		on, err := parseSwitch(value)
		if err != nil {
			return nil, err
		}

		if setting == "fallback" {
			return func(c *config.Config) { c.SetFallback(on) }, nil
		}

		return func(c *config.Config) { c.DarkMode = on }, nil
	case "language":
		return func(c *config.Config) { c.TargetLanguage = value }, nil
	case "host":
		return func(c *config.Config) { c.Host = value }, nil
	case "server-key":
		return func(c *config.Config) { c.APIKey = value }, nil
	case "max-retries", "timeout", "port":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", setting)
		}

		switch setting {
		case "max-retries":
			return func(c *config.Config) { c.MaxRetries = n }, nil
		case "timeout":
			return func(c *config.Config) { c.TimeoutSeconds = n }, nil
		default:
			return func(c *config.Config) { c.Port = n }, nil
		}
	default:
		return nil, fmt.Errorf("unknown setting %q", setting)
	}
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", v)
	}
}
