package cli

import (
	"fmt"
	"io"
	"strings"

	"meetingrec/internal/services"
)

func printResult(w io.Writer, result services.Result) {
	fmt.Fprintf(w, "Recording: %s\n", result.Recording.Name)
	fmt.Fprintf(w, "Meeting:   %s\n\n", result.MeetingID)

	if result.Analysis == nil {
		fmt.Fprintln(w, result.Transcript)
		return
	}
	a := result.Analysis

	fmt.Fprintln(w, "Executive summary")
	fmt.Fprintf(w, "  %s\n\n", a.ExecutiveSummary)

	fmt.Fprintln(w, "Key decisions")
	for i, d := range a.KeyDecisions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, d)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Action items")
	for _, item := range a.ActionItems {
		fmt.Fprintf(w, "  - [%s] %s (%s, %s)", item.Priority, item.Task, item.Assignee, item.Deadline)
		if len(item.Dependencies) > 0 {
			fmt.Fprintf(w, " after: %s", strings.Join(item.Dependencies, ", "))
		}
		fmt.Fprintln(w)
	}
}
