package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ValidationError is one scenario file that failed to load.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios []string          `json:"scenarios"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenario files without running them",
		Long: `Load every scenario file in a directory and check it against the
scenario schema: field names, assertion types, tolerances, and that each
referenced config file exists. Nothing is simulated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeInputNotFound,
			fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}

	files, err := findScenarioFiles(scenariosDir, "")
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to find scenarios", err)
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), scenariosDir)

	result := ValidationResult{Scenarios: []string{}}
	for _, r := range loadScenarios(files) {
		if r.scenario == nil {
			result.Errors = append(result.Errors, ValidationError{File: r.File, Message: r.Errors[0]})
			continue
		}
		formatter.VerboseLog("Valid: %s (%s)", r.Name, r.File)
		result.Scenarios = append(result.Scenarios, r.Name)
	}
	result.Valid = len(result.Errors) == 0

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result})
	}
	fmt.Fprintf(formatter.Writer, "✓ All scenarios valid (%d)\n", len(result.Scenarios))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	msg := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
	if formatter.JSON() {
		err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: ErrCodeInvalid, Message: msg},
		})
		if err != nil {
			return err
		}
		return reported(NewExitError(ExitFailure, msg))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "%s\n  %s\n\n", e.File, e.Message)
	}
	return reported(NewExitError(ExitFailure, msg))
}
