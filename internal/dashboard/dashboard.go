// Package dashboard builds the view model for the meeting dashboard page.
package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"meetingrec/internal/domain"
	"meetingrec/internal/session"
	"meetingrec/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

var priorityColors = map[domain.Priority]string{
	domain.PriorityHigh:   "#ffcccc",
	domain.PriorityMedium: "#ffffcc",
	domain.PriorityLow:    "#ccffcc",
}

// PriorityColor returns the highlight for p, or "" when p is not a known
// priority.
func PriorityColor(p domain.Priority) string {
	return priorityColors[domain.NormalizePriority(string(p))]
}

type ActionRow struct {
	Task         string
	Assignee     string
	Deadline     string
	Priority     string
	Dependencies string
	Color        string
}

type RecordingEntry struct {
	Name      string
	URL       string
	CreatedAt time.Time
	Size      int64
	MeetingID string
}

type View struct {
	IsRecording bool
	StartedAt   string
	Notices     []session.Notice

	Transcript string

	HasAnalysis     bool
	Summary         string
	Decisions       []string
	ActionItems     []ActionRow
	Diagram         string
	DiagramFallback bool
	FallbackDiagram string
	MeetingID       string

	LastRecording *RecordingEntry
	Recordings    []RecordingEntry
}

// Build assembles the dashboard. A diagram that fails CheckDiagram is
// replaced by FallbackDiagram and a warning notice; the rest of the page is
// unaffected. analyzed maps recording names to archived meeting ids.
func Build(snap session.Snapshot, notices []session.Notice, recordings []storage.Recording, analyzed map[string]string) View {
	v := View{
		IsRecording:     snap.IsRecording,
		Notices:         notices,
		Transcript:      snap.LastTranscript,
		FallbackDiagram: FallbackDiagram,
		MeetingID:       snap.LastMeetingID,
	}
	if snap.StartTime != nil {
		v.StartedAt = snap.StartTime.Format(time.RFC3339)
	}

	if a := snap.LastAnalysis; a != nil {
		v.HasAnalysis = true
		v.Summary = a.ExecutiveSummary
		v.Decisions = a.KeyDecisions
		v.ActionItems = actionRows(a.ActionItems)

		diagram, err := Prepare(a.MermaidDiagram)
		v.Diagram = diagram
		if err != nil {
			v.DiagramFallback = true
			v.Notices = append(v.Notices, session.Notice{Level: session.LevelWarning, Text: FallbackNotice})
		}
	}

	v.Recordings = make([]RecordingEntry, 0, len(recordings))
	for _, rec := range recordings {
		entry := RecordingEntry{
			Name:      rec.Name,
			URL:       RecordingURL(rec.Name),
			CreatedAt: rec.CreatedAt,
			Size:      rec.Size,
			MeetingID: analyzed[rec.Name],
		}
		v.Recordings = append(v.Recordings, entry)
		if rec.Name == snap.LastRecording {
			last := entry
			v.LastRecording = &last
		}
	}
	if v.LastRecording == nil && snap.LastRecording != "" {
		v.LastRecording = &RecordingEntry{Name: snap.LastRecording, URL: RecordingURL(snap.LastRecording)}
	}
	return v
}

func RecordingURL(name string) string {
	return "/recordings/" + url.PathEscape(name)
}

func actionRows(items []domain.ActionItem) []ActionRow {
	rows := make([]ActionRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, ActionRow{
			Task:         item.Task,
			Assignee:     item.Assignee,
			Deadline:     item.Deadline,
			Priority:     string(item.Priority),
			Dependencies: strings.Join(item.Dependencies, ", "),
			Color:        PriorityColor(item.Priority),
		})
	}
	return rows
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"inc":  func(i int) int { return i + 1 },
		"size": humanSize,
		"stamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04:05")
		},
	}).ParseFS(templateFS, "templates/*.html")
}

func humanSize(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	}
	return fmt.Sprintf("%d B", n)
}
