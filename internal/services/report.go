package services

import (
	"fmt"
	"strings"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/summary"
)

// Report is a rendered guardian report ready for delivery.
type Report struct {
	Subject string
	Body    string
}

// BuildReport renders the plain-text guardian report for one account. The
// report covers the transactions inside the cadence window ending at now.
func BuildReport(profile core.UserProfile, txs []core.Transaction, cadence core.ReportCadence, now time.Time) Report {
	window := reportWindow(cadence, now)
	inWindow := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Date.Time.Before(window) {
			inWindow = append(inWindow, t)
		}
	}

	sum := summary.Build(inWindow, now)

	var b strings.Builder
	fmt.Fprintf(&b, "Spending report for %s (account %s)\n", profile.Name, profile.AccountID)
	fmt.Fprintf(&b, "Period: %s to %s\n\n", window.Format(core.DateLayout), now.Format(core.DateLayout))
	fmt.Fprintf(&b, "Income:  %s\n", core.FormatAmount(sum.TotalIncome, profile.Currency))
	fmt.Fprintf(&b, "Spent:   %s\n", core.FormatAmount(sum.TotalExpense, profile.Currency))
	fmt.Fprintf(&b, "Balance: %s\n", core.FormatAmount(sum.Balance, profile.Currency))

	if len(sum.TopExpenses) > 0 {
		b.WriteString("\nLargest expenses:\n")
		for _, g := range sum.TopExpenses {
			fmt.Fprintf(&b, "  %-24s %s\n", g.Label, core.FormatAmount(g.Amount, profile.Currency))
		}
	}

	if len(inWindow) == 0 {
		b.WriteString("\nNo transactions were recorded in this period.\n")
	} else {
		fmt.Fprintf(&b, "\n%d transactions recorded in this period.\n", len(inWindow))
	}

	return Report{
		Subject: fmt.Sprintf("%s spending report for %s", cadenceTitle(cadence), profile.Name),
		Body:    b.String(),
	}
}

func reportWindow(cadence core.ReportCadence, now time.Time) time.Time {
	switch cadence {
	case core.ReportMonthly:
		return now.AddDate(0, -1, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

func cadenceTitle(cadence core.ReportCadence) string {
	if cadence == core.ReportMonthly {
		return "Monthly"
	}
	return "Weekly"
}
