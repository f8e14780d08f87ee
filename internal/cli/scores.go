package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/levimarcus10/BerlinOriginal/internal/scorestats"
)

// ScoresOptions holds flags for the scores command.
type ScoresOptions struct {
	*RootOptions
	Items []string
}

// ScorePoint is one iteration's value.
type ScorePoint struct {
	Iteration int     `json:"iteration"`
	Value     float64 `json:"value"`
}

// ScoresResult holds the requested series of a score statistics file.
type ScoresResult struct {
	File          string                  `json:"file"`
	LastIteration int                     `json:"last_iteration"`
	Series        map[string][]ScorePoint `json:"series"`
}

// NewScoresCommand creates the scores command.
func NewScoresCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScoresOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scores <scorestats-file>",
		Short: "Print score statistics per iteration",
		Long: `Print score statistics from a run's scorestats.txt.

Items are executed, worst, average and best.

Examples:
  berlinreg scores output/berlin-v5.0-1pct.scorestats.txt
  berlinreg scores scorestats.txt --item average --item best`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScores(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Items, "item", []string{string(scorestats.Average)}, "score items to print")

	return cmd
}

func runScores(opts *ScoresOptions, file string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	items := make([]scorestats.Item, 0, len(opts.Items))
	for _, s := range opts.Items {
		item, err := scorestats.ParseItem(s)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "invalid --item", err)
		}
		items = append(items, item)
	}

	history, err := scorestats.ReadFile(file)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to read score statistics", err)
	}
	if err := history.Validate(); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInputInvalid, "inconsistent score statistics", err)
	}

	iterations := history.Iterations()
	result := ScoresResult{
		File:          file,
		LastIteration: history.LastIteration(),
		Series:        make(map[string][]ScorePoint, len(items)),
	}
	for _, item := range items {
		points := make([]ScorePoint, 0, len(iterations))
		for _, it := range iterations {
			if v, ok := history.Value(item, it); ok {
				points = append(points, ScorePoint{Iteration: it, Value: v})
			}
		}
		result.Series[string(item)] = points
	}

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result})
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	header := []string{"ITERATION"}
	for _, item := range items {
		header = append(header, strings.ToUpper(string(item)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, it := range iterations {
		row := []string{fmt.Sprint(it)}
		for _, item := range items {
			cell := "-"
			if v, ok := history.Value(item, it); ok {
				cell = fmt.Sprint(v)
			}
			row = append(row, cell)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
