package plot

import (
	"fmt"
	"io"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Renderer draws an averaged figure.
type Renderer interface {
	Render(w io.Writer, fig *Figure) error
}

const (
	defaultChartWidth  = 60
	defaultChartHeight = 6
	maxLegendWidth     = 48
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	legendStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// TerminalRenderer draws one sparkline per group inside a bordered panel per
// metric, followed by the group scores.
type TerminalRenderer struct {
	Width  int
	Height int
}

var _ Renderer = (*TerminalRenderer)(nil)

// NewTerminalRenderer creates a renderer with the given sparkline size.
// Non-positive values select the defaults.
func NewTerminalRenderer(width, height int) *TerminalRenderer {
	if width <= 0 {
		width = defaultChartWidth
	}

	if height <= 0 {
		height = defaultChartHeight
	}

	return &TerminalRenderer{Width: width, Height: height}
}

// Render implements Renderer.
func (r *TerminalRenderer) Render(w io.Writer, fig *Figure) error {
	blocks := make([]string, 0, len(fig.Panels))

	for _, p := range fig.Panels {
		blocks = append(blocks, panelStyle.Render(r.renderPanel(fig, p)))
	}

	if len(blocks) == 0 {
		blocks = append(blocks, dimStyle.Render("no runs matched"))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, blocks...))

	return err
}

func (r *TerminalRenderer) renderPanel(fig *Figure, p *Panel) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s vs %s", fig.Task, p.Title, fig.XName)))
	b.WriteString("\n")

	width := legendWidth(p.Groups)

	for _, g := range p.Groups {
		b.WriteString("\n")
		b.WriteString(legendStyle.Render(runewidth.FillRight(
			runewidth.Truncate(g.Legend, width, "…"), width)))
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(fmt.Sprintf("(%d runs)", len(g.Lines))))
		b.WriteString("\n")

		if g.Curve != nil && len(g.Curve.Mean) > 0 {
			spark := sparkline.New(r.Width, r.Height)
			spark.PushAll(g.Curve.Mean)
			spark.Draw()
			b.WriteString(spark.View())
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("x: %s .. %s",
				formatValue(g.Curve.X[0]), formatValue(g.Curve.X[len(g.Curve.X)-1]))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(r.renderScores(p.Groups, width))

	return b.String()
}

func (r *TerminalRenderer) renderScores(groups []*Group, width int) string {
	var b strings.Builder

	header := runewidth.FillRight("group", width)
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s %12s %12s %12s %6s", header, "mean", "std", "max", "n")))

	for _, g := range groups {
		if g.Score == nil {
			continue
		}

		b.WriteString("\n")
		b.WriteString(legendStyle.Render(runewidth.FillRight(
			runewidth.Truncate(g.Legend, width, "…"), width)))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" %12s %12s %12s %6d",
			formatValue(g.Score.Mean), formatValue(g.Score.Std),
			formatValue(g.Score.Max), g.Score.Count)))
	}

	return b.String()
}

func legendWidth(groups []*Group) int {
	width := runewidth.StringWidth("group")

	for _, g := range groups {
		width = max(width, runewidth.StringWidth(g.Legend))
	}

	return min(width, maxLegendWidth)
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
