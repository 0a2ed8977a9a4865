package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/io"
	"github.com/matzehuels/repairgraph/pkg/variant"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command for exploring a variant table.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [variants.tsv]",
		Short: "Interactively browse a variant table",
		Long: `Interactively browse a variant table.

Variants are listed by decreasing frequency. Use s to cycle the sort order
(frequency, edit count, sequence) and enter to show the per-library counts
of the selected variant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := io.ImportVariants(args[0])
			if err != nil {
				return err
			}
			if len(exp.Variants) == 0 {
				printInfo("No variants in %s", args[0])
				return nil
			}
			_, err = tea.NewProgram(NewVariantListModel(exp), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

// =============================================================================
// VariantListModel - Interactive variant table
// =============================================================================

// Sort orders of the variant list.
const (
	sortFrequency = iota
	sortEdits
	sortSequence
	numSorts
)

var sortNames = [numSorts]string{"frequency", "edits", "sequence"}

// VariantListModel is the bubbletea model for browsing a variant table.
type VariantListModel struct {
	Experiment *variant.Experiment
	Variants   []variant.Variant
	Cursor     int
	Height     int
	Offset     int
	Sort       int
	Detail     bool
}

// NewVariantListModel creates a variant list sorted by frequency.
func NewVariantListModel(exp *variant.Experiment) VariantListModel {
	m := VariantListModel{
		Experiment: exp,
		Variants:   slices.Clone(exp.Variants),
		Height:     15,
	}
	m.sort()
	return m
}

func (m *VariantListModel) sort() {
	slices.SortStableFunc(m.Variants, func(a, b variant.Variant) int {
		switch m.Sort {
		case sortEdits:
			if c := cmp.Compare(len(a.Ops), len(b.Ops)); c != 0 {
				return c
			}
		case sortSequence:
			return strings.Compare(a.Sequence, b.Sequence)
		}
		if c := cmp.Compare(b.Frequency, a.Frequency); c != 0 {
			return c
		}
		return strings.Compare(a.Sequence, b.Sequence)
	})
}

// Selected returns the variant under the cursor.
func (m VariantListModel) Selected() variant.Variant {
	return m.Variants[m.Cursor]
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
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Variants)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "s":
			m.Sort = (m.Sort + 1) % numSorts
			m.sort()
			m.Cursor, m.Offset = 0, 0
		case "enter":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
	}
	return m, nil
}

func (m VariantListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Experiment.Name))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d variants · %d libraries · by %s",
		len(m.Variants), len(m.Experiment.Libraries), sortNames[m.Sort])))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  s sort  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Variants))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		v := m.Variants[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		edits := v.Signature()
		if edits == "" {
			edits = "ref"
		}
		rows = append(rows, []string{
			cursor,
			v.Sequence,
			strconv.Itoa(v.Count),
			fmt.Sprintf("%.4f", v.Frequency),
			fmt.Sprintf("%.4f", v.FrequencyStdDev),
			edits,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Sequence", "Count", "Freq", "SD", "Edits").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			isCurrent := m.Offset+row == m.Cursor
			switch {
			case isCurrent && col == 1:
				return listSelectedStyle
			case isCurrent:
				return lipgloss.NewStyle().Bold(true)
			case col == 1:
				return listNormalStyle
			}
			return listDimStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.Detail && len(m.Variants) > 0 {
		b.WriteString(m.detailView(m.Selected()))
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Variants))))

	return b.String()
}

// detailView lists the per-library counts and frequencies of v.
func (m VariantListModel) detailView(v variant.Variant) string {
	var b strings.Builder
	for i, lib := range m.Experiment.Libraries {
		count, freq := 0, 0.0
		if i < len(v.Counts) {
			count = v.Counts[i]
		}
		if i < len(v.Frequencies) {
			freq = v.Frequencies[i]
		}
		b.WriteString(fmt.Sprintf("  %s %s\n",
			listNormalStyle.Render(fmt.Sprintf("%-20s", lib)),
			listDimStyle.Render(fmt.Sprintf("%6d reads  %.4f", count, freq))))
	}
	return b.String()
}
