package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"phpsniff/internal/phpcs"
)

var fixCmd = &cobra.Command{
	Use:          "fix [flags] <file.php>",
	Short:        "Fix a PHP file with phpcbf",
	Long:         "Run phpcbf on a file and write the result in place, or to stdout with --stdout.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runFix,
}

func init() {
	addToolFlags(fixCmd)
	fixCmd.Flags().Bool("stdout", false, "print the fixed text instead of writing the file")
}

func runFix(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	toStdout, err := cmd.Flags().GetBool("stdout")
	if err != nil {
		return err
	}
	file := args[0]
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", file)
	}

	ws, err := openWorkspace(cmd, file)
	if err != nil {
		return err
	}
	if !ws.resource.FixerEnabled {
		return fmt.Errorf("phpcbf is disabled by configuration")
	}
	files, err := collectPHPFiles([]string{file})
	if err != nil {
		return err
	}
	path := files[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	req, err := ws.request(path, string(data), ws.resource.FixerTool())
	if err != nil {
		return err
	}

	outcome, err := ws.engine.Fix(cmd.Context(), req)
	if err != nil {
		return err
	}
	if outcome.Warning != nil && !quiet(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.YellowString("warning:"), outcome.Warning)
	}

	switch outcome.Kind {
	case phpcs.FixFailure:
		return outcome.Err
	case phpcs.FixNoChange:
		if toStdout {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if !quiet(cmd) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", displayPath(path, ws.root), noChangeMessage(outcome))
		}
		return nil
	}

	if toStdout {
		_, err = fmt.Fprint(cmd.OutOrStdout(), outcome.Text)
		return err
	}
	if err := os.WriteFile(path, []byte(outcome.Text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", displayPath(path, ws.root), color.GreenString("fixed"))
	}
	return nil
}

func noChangeMessage(outcome phpcs.FixOutcome) string {
	if outcome.Message != "" {
		return outcome.Message
	}
	return "nothing to fix"
}
