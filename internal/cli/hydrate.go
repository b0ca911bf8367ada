package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

var hydrateCmd = &cobra.Command{
	Use:   "hydrate [file|-]",
	Short: "Fill the comments widgets of an HTML document",
	Long: `Read an HTML document, fetch the comments for every widget container in it
and write the document back with the containers filled in.

Containers whose fetch fails keep their original contents. Without a file
argument, or with "-", the document is read from stdin.

Example:
  tinyutterances hydrate post.html -o post.html
  cat snippet.html | tinyutterances hydrate --fragment`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHydrate,
}

func init() {
	rootCmd.AddCommand(hydrateCmd)

	hydrateCmd.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
	hydrateCmd.Flags().Bool("fragment", false, "treat the input as a fragment and write only the body contents")
	hydrateCmd.Flags().Bool("fail-on-error", false, "exit non-zero when any container could not be rendered")
}

func runHydrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	input := "-"
	if len(args) == 1 {
		input = args[0]
	}

	src, document, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	fragment, _ := cmd.Flags().GetBool("fragment")
	failOnError, _ := cmd.Flags().GetBool("fail-on-error")

	var out bytes.Buffer
	report, err := a.widgets.HydrateHTML(ctx, bytes.NewReader(src), &out, document, fragment)
	if err != nil {
		return err
	}

	if output == "" || output == "-" {
		if _, err := out.WriteTo(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else if err := os.WriteFile(output, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	a.logger.Info("document hydrated",
		"document", document,
		"run_id", report.RunID,
		"rendered", report.Count(model.ContainerRendered),
		"failed", report.Count(model.ContainerFailed),
		"skipped", report.Count(model.ContainerSkipped),
		"superseded", report.Count(model.ContainerSuperseded),
	)

	if failOnError {
		if n := report.Count(model.ContainerFailed) + report.Count(model.ContainerSkipped); n > 0 {
			return fmt.Errorf("%d of %d comments widgets were not rendered", n, len(report.Results))
		}
	}

	return nil
}

// readInput reads the whole input before anything is written, so the output
// file may be the input file itself.
func readInput(stdin io.Reader, path string) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, filepath.Base(path), nil
}
