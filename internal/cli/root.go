package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/levimarcus10/BerlinOriginal/internal/logging"
	"github.com/levimarcus10/BerlinOriginal/internal/settings"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string // settings file, see internal/settings

	// Settings and Logger are filled in before any subcommand runs.
	Settings *settings.Settings
	Logger   *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the berlinreg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "berlinreg",
		Short: "berlinreg - Berlin scenario regression harness",
		Long: `Runs the Berlin transport simulation scenario with pinned iteration
counts and checks the resulting scores and mode shares against recorded
reference values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			s, err := settings.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load settings", err)
			}
			opts.Settings = s

			level := s.Logging.Level
			if opts.Verbose {
				level = "debug"
			}
			opts.Logger = logging.NewLogger(level, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "settings file (default ./"+settings.DefaultFile+" when present)")

	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewModesCommand(opts))
	cmd.AddCommand(NewScoresCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// settings returns the loaded settings, or defaults when the command was
// built without the root.
func (o *RootOptions) settings() *settings.Settings {
	if o.Settings == nil {
		return settings.Default()
	}
	return o.Settings
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
