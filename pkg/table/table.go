package table

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TableStyle defines the visual styling for tables
type TableStyle struct {
	Header    lipgloss.Style
	Cell      lipgloss.Style
	Separator string
}

// PlainTableStyle returns a plain table style with no colors
func PlainTableStyle() TableStyle {
	return TableStyle{
		Header: lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		Separator: "|",
	}
}

// StyledTableStyle returns a colorful, styled table
func StyledTableStyle() TableStyle {
	return TableStyle{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		Separator: "|",
	}
}

// Table represents a simple table renderer using lipgloss
type Table struct {
	headers     []string
	rows        [][]string
	style       TableStyle
	alignment   []lipgloss.Position
	columnWidth []int
}

// NewTable creates a new table with plain styling
func NewTable() *Table {
	return NewTableWithStyle(PlainTableStyle())
}

// NewStyledTable creates a new table with colorful styling
func NewStyledTable() *Table {
	return NewTableWithStyle(StyledTableStyle())
}

// NewAutoTable is styled when stdout is a terminal and plain otherwise.
func NewAutoTable(color bool) *Table {
	if color && IsTerminal() {
		return NewStyledTable()
	}
	return NewTable()
}

// NewTableWithStyle creates a new table with custom styling
func NewTableWithStyle(style TableStyle) *Table {
	return &Table{style: style}
}

// SetHeaders sets the table headers
func (t *Table) SetHeaders(headers ...string) {
	t.headers = headers
	if len(t.alignment) < len(headers) {
		t.alignment = append(t.alignment, make([]lipgloss.Position, len(headers)-len(t.alignment))...)
	}
}

// SetAlignment sets the alignment for every column
func (t *Table) SetAlignment(align lipgloss.Position) {
	for i := range t.alignment {
		t.alignment[i] = align
	}
}

// SetColumnAlignment sets the alignment of a single column. Numeric columns
// read better right aligned.
func (t *Table) SetColumnAlignment(col int, align lipgloss.Position) {
	if col < 0 {
		return
	}
	for len(t.alignment) <= col {
		t.alignment = append(t.alignment, lipgloss.Left)
	}
	t.alignment[col] = align
}

// AppendRow adds a single row to the table
func (t *Table) AppendRow(row ...string) {
	t.rows = append(t.rows, row)
}

// AppendBulk adds multiple rows to the table
func (t *Table) AppendBulk(rows [][]string) {
	t.rows = append(t.rows, rows...)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) columns() int {
	n := len(t.headers)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	return n
}

// calculateColumnWidths determines the width of each column
func (t *Table) calculateColumnWidths() {
	t.columnWidth = make([]int, t.columns())
	for i, header := range t.headers {
		t.columnWidth[i] = lipgloss.Width(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			t.columnWidth[i] = max(t.columnWidth[i], lipgloss.Width(cell))
		}
	}
	for i := range t.columnWidth {
		t.columnWidth[i] += 2 // padding
	}
}

func (t *Table) renderRow(row []string, isHeader bool) string {
	style := t.style.Cell
	if isHeader {
		style = t.style.Header
	}
	cells := make([]string, len(t.columnWidth))
	for i, width := range t.columnWidth {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		align := lipgloss.Left
		if i < len(t.alignment) {
			align = t.alignment[i]
		}
		cells[i] = style.Width(width).Align(align).Render(cell)
	}
	return strings.Join(cells, t.style.Separator)
}

// Render generates the complete table as a string
func (t *Table) Render() string {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return ""
	}

	t.calculateColumnWidths()

	var output strings.Builder
	if len(t.headers) > 0 {
		output.WriteString(t.renderRow(t.headers, true))
		output.WriteString("\n")

		separators := make([]string, len(t.columnWidth))
		for i, width := range t.columnWidth {
			separators[i] = strings.Repeat("-", width)
		}
		output.WriteString(strings.Join(separators, "+"))
		output.WriteString("\n")
	}
	for _, row := range t.rows {
		output.WriteString(t.renderRow(row, false))
		output.WriteString("\n")
	}

	return strings.TrimRight(output.String(), "\n")
}
