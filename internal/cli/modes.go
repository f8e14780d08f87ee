package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/levimarcus10/BerlinOriginal/internal/modestats"
	"github.com/levimarcus10/BerlinOriginal/internal/population"
	"github.com/levimarcus10/BerlinOriginal/internal/trips"
)

// ModesOptions holds flags for the modes command.
type ModesOptions struct {
	*RootOptions
	StageActivities []string
	ModePrecedence  []string
	// InteractionSuffix adds every "<mode> interaction" type to the stages.
	InteractionSuffix bool
}

// ModesResult is the mode distribution of a plans file.
type ModesResult struct {
	File    string            `json:"file"`
	Persons int               `json:"persons"`
	Trips   int               `json:"trips"`
	Modes   []modestats.Share `json:"modes"`
}

// NewModesCommand creates the modes command.
func NewModesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "modes <plans-file>",
		Short: "Count trips per main mode in a plans file",
		Long: `Split every person's selected plan into trips and count them by main
mode. Reads plain or gzipped plans XML, such as a run's output_plans.xml.gz.

Examples:
  berlinreg modes output/berlin-v5.0-1pct.output_plans.xml.gz
  berlinreg modes plans.xml --stage-activity "pt interaction" --stage-activity "car interaction"
  berlinreg modes plans.xml --interaction-suffix
  berlinreg modes plans.xml --mode-precedence car,pt,bicycle,walk`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModes(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.StageActivities, "stage-activity", nil,
		"activity type that does not end a trip (default: pt, car, ride, bicycle and freight interaction)")
	cmd.Flags().BoolVar(&opts.InteractionSuffix, "interaction-suffix", false,
		`also treat every "<mode> interaction" activity as a stage activity`)
	cmd.Flags().StringSliceVar(&opts.ModePrecedence, "mode-precedence", nil,
		"main mode ranking, most dominant first")

	return cmd
}

func runModes(opts *ModesOptions, plansFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	pop, err := population.ReadPlansFile(plansFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to read plans", err)
	}

	stages := trips.DefaultStageActivities()
	if len(opts.StageActivities) > 0 {
		stages = trips.NewStageActivities(opts.StageActivities...)
	}
	if opts.InteractionSuffix {
		stages = stages.WithInteractionSuffix()
	}
	id := trips.NewPrecedenceIdentifier()
	if len(opts.ModePrecedence) > 0 {
		id = &trips.PrecedenceIdentifier{Order: opts.ModePrecedence, Auxiliary: trips.DefaultAuxiliary}
	}

	stats, err := modestats.Analyze(pop, stages, id)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInputInvalid, "mode analysis failed", err)
	}
	formatter.VerboseLog("Analyzed %d persons, %d trips", pop.Len(), stats.Total)

	result := ModesResult{
		File:    plansFile,
		Persons: pop.Len(),
		Trips:   stats.Total,
		Modes:   stats.Shares(),
	}
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s persons, %s trips\n\n", humanize.Comma(int64(result.Persons)), humanize.Comma(int64(result.Trips)))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MODE\tTRIPS\tSHARE\t")
	for _, s := range result.Modes {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", s.Mode, humanize.Comma(int64(s.Count)), humanize.FtoaWithDigits(s.Share*100, 2))
	}
	return tw.Flush()
}
