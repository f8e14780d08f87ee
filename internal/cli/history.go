package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/levimarcus10/BerlinOriginal/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Scenario    string
	RunID       string
	LastPassing bool
}

// HistoryEntry is one recorded run.
type HistoryEntry struct {
	ID            string                     `json:"id"`
	Seq           int64                      `json:"seq"`
	Scenario      string                     `json:"scenario"`
	ConfigPath    string                     `json:"config_path"`
	LastIteration int                        `json:"last_iteration"`
	Pass          bool                       `json:"pass"`
	ErrorKind     string                     `json:"error_kind,omitempty"`
	Error         string                     `json:"error,omitempty"`
	Failures      []string                   `json:"failures,omitempty"`
	Scores        map[string]map[int]float64 `json:"scores,omitempty"`
	Modes         map[string]int             `json:"modes,omitempty"`
	SnapshotHash  string                     `json:"snapshot_hash,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scenario runs",
		Long: `List the runs recorded by "berlinreg test --db", oldest first, or show
one run with its scores and mode counts.

Examples:
  berlinreg history --db history.db
  berlinreg history --db history.db --scenario berlin-v5.0-1pct-100it
  berlinreg history --db history.db --scenario berlin-v5.0-1pct-100it --last-passing
  berlinreg history --db history.db --run 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from settings)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only runs of this scenario")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show one run in detail")
	cmd.Flags().BoolVar(&opts.LastPassing, "last-passing", false, "show the latest passing run of --scenario")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().DB
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "no database given (use --db or db in the settings file)", nil)
	}
	if opts.LastPassing && opts.Scenario == "" {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "--last-passing requires --scenario", nil)
	}
	// Opening creates the file, which would hide a mistyped path.
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rec store.RunRecord
	switch {
	case opts.RunID != "":
		rec, err = st.ReadRun(ctx, opts.RunID)
	case opts.LastPassing:
		rec, err = st.LastPassingRun(ctx, opts.Scenario)
	default:
		return listHistory(ctx, formatter, st, opts.Scenario)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeInputNotFound, "no such run", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to read run", err)
	}
	return showRun(formatter, toHistoryEntry(rec))
}

func listHistory(ctx context.Context, formatter *OutputFormatter, st *store.Store, scenario string) error {
	runs, err := st.ListRuns(ctx, scenario)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInputInvalid, "failed to list runs", err)
	}

	entries := make([]HistoryEntry, len(runs))
	for i, r := range runs {
		entries[i] = toHistoryEntry(r)
	}
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: entries})
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSCENARIO\tITERATIONS\tRESULT\tSNAPSHOT\tRUN")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			humanize.Ordinal(int(e.Seq)), e.Scenario, e.LastIteration, runOutcome(e), shortHash(e.SnapshotHash), e.ID)
	}
	return tw.Flush()
}

func showRun(formatter *OutputFormatter, e HistoryEntry) error {
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: e})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s)\n", e.ID, humanize.Ordinal(int(e.Seq)))
	fmt.Fprintf(w, "Scenario:   %s\n", e.Scenario)
	fmt.Fprintf(w, "Config:     %s\n", e.ConfigPath)
	fmt.Fprintf(w, "Iterations: %d\n", e.LastIteration)
	fmt.Fprintf(w, "Result:     %s\n", runOutcome(e))
	if e.SnapshotHash != "" {
		fmt.Fprintf(w, "Snapshot:   %s\n", e.SnapshotHash)
	}
	if e.Error != "" {
		fmt.Fprintf(w, "\n%s\n", e.Error)
	}
	for _, f := range e.Failures {
		fmt.Fprintf(w, "\n%s\n", f)
	}

	if len(e.Scores) > 0 {
		fmt.Fprintln(w, "\nScores:")
		items := make([]string, 0, len(e.Scores))
		for item := range e.Scores {
			items = append(items, item)
		}
		sort.Strings(items)
		for _, item := range items {
			iters := make([]int, 0, len(e.Scores[item]))
			for it := range e.Scores[item] {
				iters = append(iters, it)
			}
			sort.Ints(iters)
			for _, it := range iters {
				fmt.Fprintf(w, "  %s @ %d: %v\n", item, it, e.Scores[item][it])
			}
		}
	}

	if len(e.Modes) > 0 {
		fmt.Fprintln(w, "\nModes:")
		modes := make([]string, 0, len(e.Modes))
		for m := range e.Modes {
			modes = append(modes, m)
		}
		sort.Strings(modes)
		for _, m := range modes {
			fmt.Fprintf(w, "  %s: %s\n", m, humanize.Comma(int64(e.Modes[m])))
		}
	}
	return nil
}

func shortHash(h string) string {
	if h == "" {
		return "-"
	}
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func runOutcome(e HistoryEntry) string {
	switch {
	case e.ErrorKind != "":
		return e.ErrorKind + " error"
	case e.Pass:
		return "pass"
	default:
		return fmt.Sprintf("fail (%d)", len(e.Failures))
	}
}

func toHistoryEntry(r store.RunRecord) HistoryEntry {
	return HistoryEntry{
		ID:            r.ID,
		Seq:           r.Seq,
		Scenario:      r.Scenario,
		ConfigPath:    r.ConfigPath,
		LastIteration: r.LastIteration,
		Pass:          r.Pass,
		ErrorKind:     r.ErrorKind,
		Error:         strings.TrimSpace(r.Error),
		Failures:      r.Failures,
		Scores:        r.Scores,
		Modes:         r.Modes,
		SnapshotHash:  r.SnapshotHash,
	}
}
