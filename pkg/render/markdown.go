// Package render builds and renders the markdown receipt shown in the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/progress"
)

// RenderMarkdown renders markdown content for terminal display.
// If noColor is true, returns the content unchanged.
// Otherwise, uses glamour to render with auto-detected style and word wrap.
func RenderMarkdown(content string, noColor bool) (string, error) {
	if noColor {
		return content, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	result, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	return result, nil
}

// DealSummary builds the markdown receipt for a created deal. optional fields
// (phone, notes) are left out when empty.
func DealSummary(d deal.Deal, id deal.ID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", deal.SuccessBanner)
	b.WriteString("| Field | Value |\n|---|---|\n")

	row := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "| %s | %s |\n", name, cell(value))
	}
	row("ID", string(id))
	row("Title", d.Title)
	row("Company", d.Company)
	row("Contact", d.ContactName)
	row("Email", d.ContactEmail)
	row("Phone", d.ContactPhone)
	row("Value", progress.FormatMoney(d.Value))
	row("Stage", string(d.Stage))
	if !d.CloseDate.IsZero() {
		row("Expected close", d.CloseDate.Format(deal.DateLayout))
	}

	if notes := strings.TrimSpace(d.Notes); notes != "" {
		b.WriteString("\n")
		for line := range strings.SplitSeq(notes, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}
	return b.String()
}

// cell makes a value safe for a single markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
