package domain

import "strings"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NormalizePriority trims and lower-cases p. Unknown values are returned
// normalized but fail Known.
func NormalizePriority(p string) Priority {
	return Priority(strings.ToLower(strings.TrimSpace(p)))
}

func (p Priority) Known() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type ActionItem struct {
	Task         string   `json:"task" validate:"required"`
	Assignee     string   `json:"assignee"`
	Deadline     string   `json:"deadline"`
	Priority     Priority `json:"priority"`
	Dependencies []string `json:"dependencies"`
}

type Analysis struct {
	ExecutiveSummary string       `json:"executive_summary" validate:"required"`
	ActionItems      []ActionItem `json:"action_items" validate:"required,dive"`
	KeyDecisions     []string     `json:"key_decisions" validate:"required"`
	MermaidDiagram   string       `json:"mermaid_diagram" validate:"required"`
}

type MeetingRecord struct {
	ID         string    `json:"id"`
	Recording  string    `json:"recording"`
	Transcript string    `json:"transcript"`
	Analysis   *Analysis `json:"analysis,omitempty"`
	CreatedAt  int64     `json:"createdAt"`
}
