// Package reporting renders a run report into the notification text and
// aggregates run statistics for logs.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

var jst = time.FixedZone("JST", 9*60*60)

// Formatter builds notification messages from run reports.
type Formatter struct {
	// Title heads every message.
	Title string
	// LowBalanceAlertJPY marks the balance line with a warning when the
	// post-run balance drops below it. Informational only; no guard
	// logic depends on it.
	LowBalanceAlertJPY int64
}

// NewFormatter returns a formatter with the given title.
func NewFormatter(title string, lowBalanceAlertJPY int64) *Formatter {
	if title == "" {
		title = "Bitbank DCA"
	}
	return &Formatter{Title: title, LowBalanceAlertJPY: lowBalanceAlertJPY}
}

// Format renders one run report as the notification text.
func (f *Formatter) Format(report *domain.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s / budget %s JPY",
		f.Title,
		report.StartedAt.In(jst).Format("2006-01-02 15:04"),
		formatYen(report.TotalJPY))
	if report.DipMultiplier > 1 {
		fmt.Fprintf(&b, " / dip x%.2f", report.DipMultiplier)
	}
	b.WriteString("\n")

	if len(report.Outcomes) == 0 {
		b.WriteString("(no pairs)\n")
	}
	for _, o := range report.Outcomes {
		b.WriteString(formatOutcome(o, report.DipFlags[o.Pair]))
	}

	fmt.Fprintf(&b, "JPY balance: %s", formatYen(report.BalanceAfter))
	if f.LowBalanceAlertJPY > 0 && report.BalanceAfter < f.LowBalanceAlertJPY {
		fmt.Fprintf(&b, " (below alert threshold %s)", formatYen(f.LowBalanceAlertJPY))
	}
	b.WriteString("\n")

	if report.Note != "" {
		b.WriteString(report.Note)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatOutcome(o domain.ExecutionOutcome, dip bool) string {
	var b strings.Builder

	marker := ""
	if dip {
		marker = " [dip]"
	}
	fmt.Fprintf(&b, "%s %s%s\n", o.Status.String(), o.Pair.String(), marker)

	switch o.Status {
	case domain.StatusFilled:
		fmt.Fprintf(&b, "  alloc %s JPY / quote %.0f / avg %.0f / qty %.8f\n",
			formatYen(o.PlannedJPY), o.QuotePrice, o.AvgPrice, o.FilledQty)
	case domain.StatusSkipped:
		fmt.Fprintf(&b, "  skip: %s / alloc %s JPY / quote %.0f\n",
			o.Reason.Label(), formatYen(o.PlannedJPY), o.QuotePrice)
	default:
		fmt.Fprintf(&b, "  error / alloc %s JPY\n", formatYen(o.PlannedJPY))
	}

	if spread, ok := o.Details["spread"]; ok {
		fmt.Fprintf(&b, "  spread %.2f%%", spread*100)
		if vol, ok := o.Details["vol5m_abs"]; ok {
			fmt.Fprintf(&b, " / 5m vol %.2f%%", vol*100)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// formatYen renders an integer yen amount with thousands separators.
func formatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

// Stats is an aggregate over one run's outcomes.
type Stats struct {
	Filled       int
	Skipped      int
	Errored      int
	FilledJPY    int64
	FilledQtySum float64
}

// Summarize aggregates outcomes for logging and tests.
func Summarize(outcomes []domain.ExecutionOutcome) Stats {
	var s Stats
	for _, o := range outcomes {
		switch o.Status {
		case domain.StatusFilled:
			s.Filled++
			s.FilledJPY += o.PlannedJPY
			s.FilledQtySum += o.FilledQty
		case domain.StatusSkipped:
			s.Skipped++
		default:
			s.Errored++
		}
	}
	return s
}
