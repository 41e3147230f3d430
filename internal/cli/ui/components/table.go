package components

import (
	"strings"

	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// TableColumn defines a table column.
type TableColumn struct {
	Title string
	Width int
}

// TableModel is a styled table component.
type TableModel struct {
	columns     []TableColumn
	rows        [][]string
	border      lipgloss.Border
	borderStyle lipgloss.Style
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	width       int
}

// TableOption configures a TableModel.
type TableOption func(*TableModel)

// NewTable creates a new styled table.
func NewTable(opts ...TableOption) *TableModel {
	t := &TableModel{
		border:      lipgloss.RoundedBorder(),
		borderStyle: lipgloss.NewStyle().Foreground(styles.ColorBorder),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorPrimary).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Foreground(styles.ColorText).
			Padding(0, 1),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithColumns sets the table columns.
func WithColumns(cols []TableColumn) TableOption {
	return func(t *TableModel) {
		t.columns = cols
	}
}

// WithRows sets the table rows.
func WithRows(rows [][]string) TableOption {
	return func(t *TableModel) {
		t.rows = rows
	}
}

// WithBorder sets the table border style.
func WithBorder(b lipgloss.Border) TableOption {
	return func(t *TableModel) {
		t.border = b
	}
}

// WithTableWidth sets the table width.
func WithTableWidth(w int) TableOption {
	return func(t *TableModel) {
		t.width = w
	}
}

// WithHeaderStyle sets the header style.
func WithHeaderStyle(s lipgloss.Style) TableOption {
	return func(t *TableModel) {
		t.headerStyle = s
	}
}

// WithCellStyle sets the cell style.
func WithCellStyle(s lipgloss.Style) TableOption {
	return func(t *TableModel) {
		t.cellStyle = s
	}
}

// AddRow adds a row to the table.
func (t *TableModel) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Render renders the table as a string.
func (t *TableModel) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = truncateCell(col.Title, col.Width)
	}

	rows := make([][]string, len(t.rows))
	for rowIdx, row := range t.rows {
		rows[rowIdx] = make([]string, len(row))
		for colIdx, cell := range row {
			width := 0
			if colIdx < len(t.columns) {
				width = t.columns[colIdx].Width
			}
			rows[rowIdx][colIdx] = truncateCell(cell, width)
		}
	}

	tbl := table.New().
		Border(t.border).
		BorderStyle(t.borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			width := 0
			if col >= 0 && col < len(t.columns) {
				width = t.columns[col].Width
			}

			applyWidth := func(s lipgloss.Style) lipgloss.Style {
				if width > 0 {
					return s.Width(width).MaxWidth(width)
				}
				return s
			}

			if row == table.HeaderRow {
				return applyWidth(t.headerStyle)
			}
			return applyWidth(t.cellStyle)
		})

	if t.width > 0 {
		tbl = tbl.Width(t.width)
	}

	return tbl.String()
}

// truncateCell shortens a cell to maxWidth display columns, keeping
// grapheme clusters intact. Cells that already carry ANSI escapes are
// passed through untouched.
func truncateCell(value string, maxWidth int) string {
	if strings.Contains(value, "\x1b[") {
		return value
	}

	if maxWidth <= 0 || runewidth.StringWidth(value) <= maxWidth {
		return value
	}

	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	targetWidth := maxWidth - 3
	b := strings.Builder{}
	currentWidth := 0
	g := uniseg.NewGraphemes(value)
	for g.Next() {
		grapheme := g.Str()
		graphemeWidth := runewidth.StringWidth(grapheme)
		if currentWidth+graphemeWidth > targetWidth {
			break
		}
		b.WriteString(grapheme)
		currentWidth += graphemeWidth
	}

	if b.Len() == 0 {
		return strings.Repeat(".", maxWidth)
	}

	return b.String() + "..."
}

// View returns the table view (alias for Render).
func (t *TableModel) View() string {
	return t.Render()
}

// SimpleTable creates a table with headers and rows using default widths.
func SimpleTable(headers []string, rows [][]string) string {
	cols := make([]TableColumn, len(headers))
	for i, h := range headers {
		cols[i] = TableColumn{Title: h}
	}

	t := NewTable(
		WithColumns(cols),
		WithRows(rows),
	)

	return t.Render()
}

// RepositoryTable creates a table for displaying repositories.
func RepositoryTable(repos [][]string) string {
	return SimpleTable(
		[]string{"Repository", "Tags"},
		repos,
	)
}

// TagTable creates a table for displaying tags with their digests.
func TagTable(tags [][]string) string {
	return SimpleTable(
		[]string{"Tag", "Digest"},
		tags,
	)
}

// ReportTable creates a table summarizing delete outcomes.
func ReportTable(rows [][]string) string {
	return SimpleTable(
		[]string{"Target", "Digest", "Outcome"},
		rows,
	)
}
