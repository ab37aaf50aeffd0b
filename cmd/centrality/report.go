package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-centrality/pkg/algorithms"
	"github.com/dd0wney/cluso-centrality/pkg/config"
)

// report is the outcome of a completed run.
type report struct {
	Algorithm     string                  `yaml:"algorithm"`
	Graph         string                  `yaml:"graph"`
	Nodes         int                     `yaml:"nodes"`
	Relationships int                     `yaml:"relationships"`
	Undirected    bool                    `yaml:"undirected"`
	Strategy      string                  `yaml:"strategy"`
	Sources       int                     `yaml:"sources"`
	ScaleFactor   float64                 `yaml:"scale_factor"`
	Normalized    bool                    `yaml:"normalized"`
	Duration      string                  `yaml:"duration"`
	Top           []algorithms.RankedNode `yaml:"top"`
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

func writeReport(w io.Writer, format string, r *report) error {
	switch format {
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	case config.OutputTable, "":
		_, err := io.WriteString(w, renderTable(r)+"\n")
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(r *report) string {
	rows := make([][]string, 0, len(r.Top))
	for i, n := range r.Top {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatUint(n.NodeID, 10),
			strconv.FormatFloat(n.Score, 'f', 6, 64),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))).
		Headers("RANK", "NODE", "BETWEENNESS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	title := titleStyle.Render(fmt.Sprintf("Betweenness centrality: %s", r.Graph))
	summary := summaryStyle.Render(fmt.Sprintf(
		"%d nodes, %d relationships, %d of %d sources (%s), scale factor %.3f, %s",
		r.Nodes, r.Relationships, r.Sources, r.Nodes, r.Strategy, r.ScaleFactor, r.Duration,
	))
	return lipgloss.JoinVertical(lipgloss.Left, title, summary, t.Render())
}
