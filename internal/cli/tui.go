package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/previewforge/previewforge/pkg/variant"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// VariantListModel is the bubbletea model for interactive variant
// selection. Candidates are shown in rank order with their quality score.
type VariantListModel struct {
	Variants []variant.Variant
	Cursor   int
	Selected *variant.Variant
}

// NewVariantListModel creates a new variant list model.
func NewVariantListModel(variants []variant.Variant) VariantListModel {
	return VariantListModel{Variants: variants}
}

func (m VariantListModel) Init() tea.Cmd {
	return nil
}

func (m VariantListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Variants)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = &m.Variants[m.Cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m VariantListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Variant"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, v := range m.Variants {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		line := cursor + variantLabel(v)
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else if v.Report.Passed {
			b.WriteString(listNormalStyle.Render(line))
		} else {
			b.WriteString(listDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  (rank 1 is the pipeline's pick)", m.Cursor+1, len(m.Variants))))

	return b.String()
}
