package report

import (
	"fmt"
	"io"
	"strings"

	"flowlens/internal/analytics"
	"flowlens/internal/dataset"
	"flowlens/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// TopN is how many protocols, services and countries each card lists
const TopN = 5

// Input is everything a detection report shows
type Input struct {
	Table  *model.Table
	Clean  *dataset.CleanReport
	Result *model.DetectionResult
	Alerts []model.Alert
}

// Render lays the report out as styled text blocks
func Render(in Input) string {
	blocks := []string{header(in)}

	if in.Table != nil && in.Table.Labeled {
		if o, err := analytics.AnomalyOverview(in.Table); err == nil {
			blocks = append(blocks, overviewCard(o))
		}
	}
	if len(in.Alerts) > 0 {
		blocks = append(blocks, alertsCard(in.Alerts))
	}
	if in.Table != nil && in.Table.Len() > 0 {
		v := analytics.All(in.Table)
		blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Top,
			countCard("Protocols", analytics.ProtocolBreakdown(v), in.Table.Len()),
			countCard("Services", analytics.TopServices(v, TopN), in.Table.Len()),
			countryCard(analytics.CountryTraffic(v, analytics.DirectionSource)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// Write renders in to w followed by a newline
func Write(w io.Writer, in Input) error {
	_, err := fmt.Fprintln(w, Render(in))
	return err
}

func header(in Input) string {
	name := "dataset"
	if in.Result != nil {
		name = in.Result.Dataset
	}
	lines := []string{StyleTitle.Render("flowlens detection report: " + name)}
	if in.Clean != nil {
		line := fmt.Sprintf("%d rows read, %d kept, %d dropped", in.Clean.Rows, in.Clean.Kept, in.Clean.Dropped)
		if len(in.Clean.Ignored) > 0 {
			line += fmt.Sprintf(", ignored columns: %s", strings.Join(in.Clean.Ignored, ", "))
		}
		lines = append(lines, StyleSubtitle.Render(line))
	}
	if in.Result != nil {
		lines = append(lines, StyleSubtitle.Render(fmt.Sprintf("run %s took %s", in.Result.RunID, in.Result.Duration)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func overviewCard(o *analytics.Overview) string {
	status := StyleGood.Render("no anomalies")
	if o.Anomalous > 0 {
		status = StyleBad.Render(fmt.Sprintf("%d anomalous (%.2f%%)", o.Anomalous, o.AnomalousPercent))
	}
	lines := []string{
		StyleTitle.Render("Anomaly Overview"),
		fmt.Sprintf("%s %d", StyleLabel.Render("records:"), o.Total),
		fmt.Sprintf("%s %d (%.2f%%)", StyleLabel.Render("normal:"), o.Normal, o.NormalPercent),
		status,
	}
	for _, tc := range o.ByType {
		lines = append(lines, fmt.Sprintf("  %-24s %6d %s", tc.Type, tc.Count, bar(tc.Percent/100)))
	}
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func alertsCard(alerts []model.Alert) string {
	lines := []string{StyleTitle.Render("Alerts")}
	for _, a := range alerts {
		lines = append(lines, fmt.Sprintf("• %s %s", severityStyle(a.Severity).Render("["+a.Severity+"]"), a.Message))
	}
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func countCard(title string, counts []analytics.Count, total int) string {
	lines := []string{StyleTitle.Render(title)}
	for i, c := range counts {
		if i == TopN {
			break
		}
		lines = append(lines, fmt.Sprintf("%-8s %6d %5.1f%%", c.Value, c.Count, float64(c.Count)/float64(total)*100))
	}
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func countryCard(countries []analytics.CountryBytes) string {
	lines := []string{StyleTitle.Render("Source Countries")}
	for i, c := range countries {
		if i == TopN {
			break
		}
		lines = append(lines, fmt.Sprintf("%-16s %10.2f MB", c.Country, c.TotalMB))
	}
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// bar draws a fixed-width share bar for a fraction in [0, 1]
func bar(fraction float64) string {
	const w = 20
	filled := int(float64(w) * fraction)
	if filled > w {
		filled = w
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", w-filled) + "]"
}
