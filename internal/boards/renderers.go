package boards

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/thenoetrevino/dealflow/internal/kanban"
	"github.com/thenoetrevino/dealflow/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	amountStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FormatCents renders an amount of cents as dollars with thousands separators
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// OpportunityRenderer draws pipeline cards and per-stage value summaries
type OpportunityRenderer struct{}

var _ kanban.Renderer[*models.OpportunitySummary] = OpportunityRenderer{}

// RenderCard shows title, contact and amount
func (OpportunityRenderer) RenderCard(o *models.OpportunitySummary) string {
	lines := []string{titleStyle.Render(o.Title)}
	if o.ContactName != "" {
		lines = append(lines, mutedStyle.Render(o.ContactName))
	}
	lines = append(lines, amountStyle.Render(FormatCents(o.AmountCents)))
	return strings.Join(lines, "\n")
}

// RenderColumnSummary shows the deal count and the value of the loaded deals
func (OpportunityRenderer) RenderColumnSummary(_ string, items []*models.OpportunitySummary, total int) (string, bool) {
	if total == 0 {
		return "", false
	}
	var sum int64
	for _, o := range items {
		sum += o.AmountCents
	}
	deals := "deals"
	if total == 1 {
		deals = "deal"
	}
	return fmt.Sprintf("%d %s · %s", total, deals, FormatCents(sum)), true
}

// TaskRenderer draws task cards with due dates
type TaskRenderer struct {
	// Now is used for overdue checks; defaults to time.Now
	Now func() time.Time
}

var _ kanban.Renderer[*models.Task] = TaskRenderer{}

func (r TaskRenderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RenderCard shows title and due date, highlighting overdue tasks
func (r TaskRenderer) RenderCard(t *models.Task) string {
	lines := []string{titleStyle.Render(t.Title)}
	if t.DueDate != nil {
		now := r.now()
		due := "due " + humanize.RelTime(*t.DueDate, now, "ago", "from now")
		if t.Overdue(now) {
			lines = append(lines, overdueStyle.Render("overdue, "+due))
		} else {
			lines = append(lines, mutedStyle.Render(due))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderColumnSummary counts overdue tasks; columns without any have no summary
func (r TaskRenderer) RenderColumnSummary(_ string, items []*models.Task, _ int) (string, bool) {
	now := r.now()
	overdue := 0
	for _, t := range items {
		if t.Overdue(now) {
			overdue++
		}
	}
	if overdue == 0 {
		return "", false
	}
	return fmt.Sprintf("%d overdue", overdue), true
}
