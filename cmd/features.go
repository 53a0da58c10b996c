package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/llmpanel/internal/features"
)

var (
	targetLanguage string
	formality      string
	tone           string
	recipient      string
	jsonOutput     bool
	streamOutput   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text into the target language",
	Long:  `Translate text read from the arguments or stdin. Recent translations steer terminology.`,
	RunE:  runTranslate,
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance [text]",
	Short: "Improve clarity, grammar and flow",
	RunE:  runEnhance,
}

var emailCmd = &cobra.Command{
	Use:   "email [notes]",
	Short: "Turn rough notes into an email",
	RunE:  runEmail,
}

var agentCmd = &cobra.Command{
	Use:   "agent [request]",
	Short: "Ask an open-ended question about some text",
	Long: `Ask an open-ended question. Each invocation starts with an empty memory; use
the server's /api/v1/agent endpoint for a conversation that remembers earlier exchanges.`,
	RunE: runAgent,
}

func init() {
	translateCmd.Flags().StringVarP(&targetLanguage, "to", "t", "", "target language (default from settings)")
	translateCmd.Flags().StringVar(&formality, "formality", "", "register hint, e.g. formal or informal")
	enhanceCmd.Flags().StringVar(&tone, "tone", "", "target tone")
	emailCmd.Flags().StringVar(&tone, "tone", "", "email tone")
	emailCmd.Flags().StringVar(&recipient, "to", "", "who the email is for")

	for _, c := range []*cobra.Command{translateCmd, enhanceCmd, emailCmd, agentCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print the full result as JSON")
		c.Flags().BoolVar(&streamOutput, "stream", false, "show the raw reply on stderr as it arrives")
	}
}

// inputText joins args, or reads stdin when there are none.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	lang := targetLanguage
	if lang == "" {
		lang = a.cfg.TargetLanguage
	}

	t := features.NewTranslator(a.core, lang)
	t.Formality = formality

	out, err := t.Run(featureContext(cmd), text)
	if err != nil {
		return explain(err)
	}

	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		r := out.Value
		fmt.Fprintln(w, r.Translation)
		printMeta(w, "Detected", r.DetectedLanguage)
		printList(w, "Alternatives", r.Alternatives)
		printList(w, "Notes", r.Notes)
	})
}

func runEnhance(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	e := features.NewEnhancer(a.core)
	e.Tone = tone

	out, err := e.Run(featureContext(cmd), text)
	if err != nil {
		return explain(err)
	}

	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		r := out.Value
		fmt.Fprintln(w, r.Enhanced)
		printList(w, "Improvements", r.Improvements)
		printList(w, "Suggestions", r.Suggestions)
	})
}

func runEmail(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	f := features.NewEmailFormatter(a.core)
	f.Tone = tone
	f.Recipient = recipient

	out, err := f.Run(featureContext(cmd), text)
	if err != nil {
		return explain(err)
	}

	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		r := out.Value
		printMeta(w, "Subject", r.Subject)
		fmt.Fprintln(w)

		for _, part := range []string{r.Greeting, r.Body, r.Closing} {
			if part != "" {
				fmt.Fprintln(w, part)
				fmt.Fprintln(w)
			}
		}

		printList(w, "Key points", r.KeyPoints)
	})
}

func runAgent(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	out, err := features.NewAgent(a.core, features.DefaultAgentMemory).Run(featureContext(cmd), text)
	if err != nil {
		return explain(err)
	}

	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		r := out.Value
		fmt.Fprintln(w, r.Answer)
		printMeta(w, "Summary", r.Summary)
		printList(w, "Key points", r.KeyPoints)
		printList(w, "Action items", r.ActionItems)
		printList(w, "Follow-up", r.FollowUpQuestions)
	})
}

func render[T any](w io.Writer, out *features.Outcome[T], human func(io.Writer)) error {
	if streamOutput && !out.Cached {
		fmt.Fprintln(os.Stderr)
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	human(w)

	if out.Degraded {
		color.New(color.FgYellow).Fprintln(os.Stderr, "(reply was not structured, showing it as plain text)")
	}

	source := fmt.Sprintf("%s/%s", out.Provider, out.Model)
	if out.Cached {
		source += " (cached)"
	}

	color.New(color.Faint).Fprintln(os.Stderr, source)

	return nil
}

func printMeta(w io.Writer, label, value string) {
	if value == "" {
		return
	}

	fmt.Fprintf(w, "%s: %s\n", color.CyanString(label), value)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintln(w, color.CyanString(label+":"))

	for _, item := range items {
		fmt.Fprintf(w, "  • %s\n", item)
	}
}

// featureContext streams the raw reply to stderr when --stream is set.
func featureContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if !streamOutput {
		return ctx
	}

	faint := color.New(color.Faint)
	w := cmd.ErrOrStderr()

	return features.WithDeltas(ctx, func(delta string) {
		faint.Fprint(w, delta)
	})
}

// explain adds a hint to errors the user can fix themselves.
func explain(err error) error {
	if errors.Is(err, features.ErrNeedsConfiguration) {
		return fmt.Errorf("%w (run '%s config set-key <provider>' or pick another provider)", err, AppName)
	}

	return err
}
