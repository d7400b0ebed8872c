package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/specflow/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Validate a program description without analyzing it",
		Long: `Validate a program description (CUE directory, .cue or .yaml file).

Performs the structural checks (names, condition placement, labels, code
variants) and then resolves names and types as compile would. All
structural errors are reported; resolution stops at the first error.

Exit codes:
  0 - Program is valid
  1 - Validation errors
  2 - Command error (path not found, CUE load failure)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	src, err := compiler.LoadPath(path)
	if err != nil {
		code := errorCode(err, ErrCodeGeneric)
		_ = f.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	f.VerboseLog("Loaded %s with %d module(s)", src.Name, len(src.Program.Modules))

	errs := validateSource(src)
	if len(errs) > 0 {
		return outputValidationErrors(f, errs)
	}

	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintf(f.Writer, "✓ %s is valid\n", src.Name)
	return nil
}

// validateSource runs structural validation and, when it passes, name and
// type resolution.
func validateSource(src *compiler.Source) []compiler.ValidationError {
	if errs := compiler.Validate(&src.Program); len(errs) > 0 {
		return errs
	}
	_, err := compiler.Compile(src)
	if err == nil {
		return nil
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return []compiler.ValidationError{{Field: ce.Field, Message: ce.Message, Code: ce.Code}}
	}
	return []compiler.ValidationError{{Field: "program", Message: err.Error(), Code: ErrCodeGeneric}}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if f.Format == "json" {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}
