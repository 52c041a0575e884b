package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewRecordingsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "recordings",
		Short: "List stored recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.NewApp(deps.Config, deps.Log)
			if err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}

			recordings, err := a.Recordings.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recordings) == 0 {
				fmt.Fprintln(out, "No recordings found")
				return nil
			}

			analyzed := a.Meetings.AnalyzedRecordings()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDURATION\tANALYSIS")
			for _, rec := range recordings {
				duration := "?"
				if d, err := a.Recordings.Duration(rec.Name); err == nil {
					duration = d.Round(time.Second).String()
				}
				meeting := "-"
				if id, ok := analyzed[rec.Name]; ok {
					meeting = id
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, duration, meeting)
			}
			return w.Flush()
		},
	}
}
