package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JakeFAU/webanalyst/internal/analysis"
	csvexport "github.com/JakeFAU/webanalyst/internal/export/csv"
)

type analyzeOptions struct {
	url    string
	prompt string
	model  string
	out    string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one web page and export the result as CSV",
		Long: `Fetches the page at --url, asks the model to follow --prompt, prints the
analysis, and writes web_analysis_<date>_<time>.csv to --out (use "-" for
stdout). The API key is read from a masked terminal prompt, or from the first
line of stdin when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "website URL to analyze")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "what the model should do with the page content")
	cmd.Flags().StringVar(&opts.model, "model", "", "model preset (default: first configured preset)")
	cmd.Flags().StringVar(&opts.out, "out", ".", `directory for the CSV file, or "-" for stdout`)
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	apiKey, err := readAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	result, err := appInstance.GetRunner().Run(cmd.Context(), analysis.Request{
		URL:    opts.url,
		Prompt: opts.prompt,
		Model:  opts.model,
		APIKey: apiKey,
	})
	if err != nil {
		if isValidationError(err) {
			return err
		}
		reportFailure(cmd, err)
		return err
	}

	body, err := csvexport.Encode(result.Record)
	if err != nil {
		reportFailure(cmd, err)
		return err
	}

	display := cmd.OutOrStdout()
	if opts.out == "-" {
		display = cmd.ErrOrStderr()
	}
	if _, err := fmt.Fprintf(display, "Analysis Results:\n%s\n", result.RawAnalysis); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}

	if opts.out == "-" {
		if _, err := cmd.OutOrStdout().Write(body); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	}
	path := filepath.Join(opts.out, csvexport.Filename(result.Record.Timestamp))
	if err := os.WriteFile(path, body, 0o644); err != nil { //nolint:gosec // exported report is meant to be shared
		return fmt.Errorf("write csv: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "CSV written to %s\n", path)
	return nil
}

// readAPIKey prompts without echo on a terminal and otherwise reads one line.
func readAPIKey(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "LLM API key: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func isValidationError(err error) bool {
	return errors.Is(err, analysis.ErrEmptyURL) ||
		errors.Is(err, analysis.ErrEmptyPrompt) ||
		errors.Is(err, analysis.ErrMissingAPIKey) ||
		errors.Is(err, analysis.ErrUnknownModel)
}

// reportFailure prints the user-facing message and guidance and silences
// cobra's own error line.
func reportFailure(cmd *cobra.Command, err error) {
	failure := analysis.Explain(err)
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(w, "Error: %s\n", failure.Message)
	for _, g := range failure.Guidance {
		_, _ = fmt.Fprintf(w, "  %s\n", g)
	}
	cmd.SilenceErrors = true
}
