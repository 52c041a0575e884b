package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"meetingrec/internal/domain"
)

const defaultDeclaration = "graph TD"

// defaultStyles is appended when the diagram carries no styling of its own.
const defaultStyles = "    classDef default fill:#f9f,stroke:#333,stroke-width:2px"

// FallbackDiagram is shown when the analyzer's diagram cannot be rendered.
const FallbackDiagram = `graph TD
    Start[Meeting Start] --> Topics[Key Topics Discussed]
    Topics --> Decisions{Key Decisions}
    Decisions --> Actions([Action Items])
    Actions --> Team((Team Members))

    style Start fill:#f9f
    style Decisions fill:#ff9999
    style Actions fill:#99ff99
    style Team fill:#9999ff`

const FallbackNotice = "Error rendering diagram. Using simplified version..."

var closing = map[rune]rune{']': '[', ')': '(', '}': '{'}

// NormalizeDiagram strips markdown fences, prepends the graph declaration when
// it is missing and appends default styles when none are present.
func NormalizeDiagram(code string) string {
	code = stripFences(strings.TrimSpace(code))

	if !hasDeclaration(code) {
		code = defaultDeclaration + "\n" + code
	}

	if !hasStyling(code) {
		code = strings.TrimRight(code, "\n") + "\n" + defaultStyles
	}
	return code
}

// CheckDiagram rejects diagrams the renderer is known to choke on: an empty
// body or unbalanced node brackets on a line.
func CheckDiagram(code string) error {
	lines := strings.Split(strings.TrimSpace(code), "\n")
	body := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		if i == 0 && hasDeclaration(line) {
			continue
		}
		body++
		if err := checkBrackets(line); err != nil {
			return domain.RenderError("check diagram", fmt.Errorf("line %d: %w", i+1, err))
		}
	}
	if body == 0 {
		return domain.RenderError("check diagram", errors.New("diagram has no nodes"))
	}
	return nil
}

// Prepare normalizes code and falls back to FallbackDiagram when it fails
// CheckDiagram. The returned error is the RenderError that caused the
// fallback, if any.
func Prepare(code string) (string, error) {
	normalized := NormalizeDiagram(code)
	if err := CheckDiagram(normalized); err != nil {
		return FallbackDiagram, err
	}
	return normalized, nil
}

func checkBrackets(line string) error {
	var stack []rune
	inQuote := false
	for _, r := range line {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch r {
		case '[', '(', '{':
			stack = append(stack, r)
		case ']', ')', '}':
			if len(stack) == 0 || stack[len(stack)-1] != closing[r] {
				return fmt.Errorf("unbalanced %q", r)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inQuote {
		return errors.New("unterminated quote")
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

func hasDeclaration(code string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(code), "\n")
	first = strings.TrimSpace(first)
	return strings.HasPrefix(first, "graph") || strings.HasPrefix(first, "flowchart")
}

func hasStyling(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "style ") || strings.HasPrefix(line, "classDef ") {
			return true
		}
	}
	return false
}

func stripFences(code string) string {
	if !strings.HasPrefix(code, "```") {
		return code
	}
	code = strings.TrimPrefix(code, "```")
	if nl := strings.IndexByte(code, '\n'); nl >= 0 {
		code = code[nl+1:]
	} else {
		code = ""
	}
	code = strings.TrimSuffix(strings.TrimSpace(code), "```")
	return strings.TrimSpace(code)
}
