package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of text in aligned columns.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Right lists the column indexes aligned right (numbers).
	Right map[int]bool
	// Highlight is the index of the row rendered with Styles.Selected, or -1.
	Highlight int
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{
		Title:     title,
		Headers:   headers,
		Right:     make(map[int]bool),
		Highlight: -1,
	}
}

// AlignRight marks columns as right-aligned.
func (t *Table) AlignRight(cols ...int) *Table {
	for _, c := range cols {
		t.Right[c] = true
	}
	return t
}

// AddRow adds a row to the table. Missing cells render empty.
func (t *Table) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// View renders the table. An empty table renders as "".
func (t *Table) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	cell := func(style lipgloss.Style, i int, text string) string {
		align := lipgloss.Left
		if t.Right[i] {
			align = lipgloss.Right
		}
		// Width includes the one-column padding on each side.
		return style.Padding(0, 1).Width(widths[i] + 2).Align(align).Render(text)
	}

	sep := styles.Muted.Render("│")
	line := func(style lipgloss.Style, row []string) string {
		cells := make([]string, len(widths))
		for i := range widths {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			cells[i] = cell(style, i, text)
		}
		return strings.Join(cells, sep)
	}

	sb.WriteString(line(styles.Bold, t.Headers))
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w + 2
	}
	sb.WriteString(styles.RenderDivider(total))
	sb.WriteString("\n")

	for i, row := range t.Rows {
		style := styles.Body
		if i == t.Highlight {
			style = styles.Selected
		}
		sb.WriteString(line(style, row))
		sb.WriteString("\n")
	}
	return sb.String()
}
