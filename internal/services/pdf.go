package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"meetingrec/internal/domain"
)

// Report is the content of an exported meeting report.
type Report struct {
	Recording  string
	CreatedAt  time.Time
	Transcript string
	Analysis   domain.Analysis
}

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

func (s *PDFService) Render(w io.Writer, r Report) error {
	pdf := s.build(r)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (s *PDFService) RenderFile(outPath string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure pdf directory: %w", err)
	}

	pdf := s.build(r)
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (s *PDFService) build(r Report) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Meeting report "+r.Recording), false)
	pdf.SetAuthor("meetingrec", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Meeting Analysis")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	if r.Recording != "" {
		pdf.Cell(0, 6, tr("Recording: "+r.Recording))
		pdf.Ln(6)
	}
	if !r.CreatedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Date: %s", r.CreatedAt.Local().Format("2006-01-02 15:04")))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	s.writeSection(pdf, tr, "Executive Summary", []string{r.Analysis.ExecutiveSummary})

	decisions := make([]string, len(r.Analysis.KeyDecisions))
	for i, d := range r.Analysis.KeyDecisions {
		decisions[i] = fmt.Sprintf("%d. %s", i+1, d)
	}
	s.writeSection(pdf, tr, "Key Decisions", decisions)

	s.writeActionItems(pdf, tr, r.Analysis.ActionItems)

	s.writeSection(pdf, tr, "Transcript", strings.Split(strings.TrimSpace(r.Transcript), "\n"))
	return pdf
}

func (s *PDFService) writeSection(pdf *gofpdf.Fpdf, tr func(string) string, title string, lines []string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)

	written := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		pdf.MultiCell(0, 6, tr(line), "", "L", false)
		written++
	}
	if written == 0 {
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
	}
	pdf.Ln(6)
}

var priorityFill = map[domain.Priority][3]int{
	domain.PriorityHigh:   {0xff, 0xcc, 0xcc},
	domain.PriorityMedium: {0xff, 0xff, 0xcc},
	domain.PriorityLow:    {0xcc, 0xff, 0xcc},
}

func (s *PDFService) writeActionItems(pdf *gofpdf.Fpdf, tr func(string) string, items []domain.ActionItem) {
	if len(items) == 0 {
		s.writeSection(pdf, tr, "Action Items", nil)
		return
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Action Items")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)

	for _, item := range items {
		text := fmt.Sprintf("%s | %s | %s | %s", item.Task, orDash(item.Assignee), orDash(item.Deadline), orDash(string(item.Priority)))
		if len(item.Dependencies) > 0 {
			text += " | depends on: " + strings.Join(item.Dependencies, ", ")
		}
		fill, ok := priorityFill[item.Priority]
		if ok {
			pdf.SetFillColor(fill[0], fill[1], fill[2])
		}
		pdf.MultiCell(0, 6, tr(text), "", "L", ok)
	}
	pdf.Ln(6)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
