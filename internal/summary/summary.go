// Package summary derives financial views from a transaction collection.
//
// Every function here is pure and order-independent: callers pass the full
// collection plus a reference time, and nothing is cached or mutated. Derived
// views are recomputed on every data change, never persisted.
package summary

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

// OthersLabel is the collapsed bucket for expense groups beyond the top N.
const OthersLabel = "Others"

// TopExpenseLimit is how many distinct expense groups are kept before the
// remainder collapses into the Others bucket.
const TopExpenseLimit = 5

type (
	// DayBucket is one calendar day of the trailing week with its expense sum.
	DayBucket struct {
		Date   string // canonical YYYY-MM-DD
		Amount decimal.Decimal
	}

	// ExpenseGroup is the expense total for one trimmed description.
	ExpenseGroup struct {
		Label  string
		Amount decimal.Decimal
	}

	// PieSlice is one wedge of the spend-vs-income chart.
	PieSlice struct {
		Label  string
		Amount decimal.Decimal
	}

	// Summary is the full derived view rendered by the dashboard.
	Summary struct {
		TotalIncome  decimal.Decimal
		TotalExpense decimal.Decimal
		Balance      decimal.Decimal
		Weekly       []DayBucket
		TopExpenses  []ExpenseGroup
		Spending     []PieSlice
	}
)

// Totals sums amounts by kind. Transactions with unknown kinds contribute to
// neither side.
func Totals(txs []core.Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense
}

// Balance is total income minus total expense.
func Balance(txs []core.Transaction) decimal.Decimal {
	income, expense := Totals(txs)
	return income.Sub(expense)
}

// WeeklySpending returns seven buckets for the days [now-6 .. now] inclusive,
// each holding the sum of expense amounts whose stored date equals that
// calendar day exactly. Days without matches hold zero.
func WeeklySpending(txs []core.Transaction, now time.Time) []DayBucket {
	buckets := make([]DayBucket, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i-6).Format(core.DateLayout)
		buckets[i] = DayBucket{Date: day, Amount: decimal.Zero}
		index[day] = i
	}
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		// Exact string match on the stored date; no timezone normalization.
		if i, ok := index[t.Date.String()]; ok {
			buckets[i].Amount = buckets[i].Amount.Add(t.Amount)
		}
	}
	return buckets
}

// TopExpenses groups expenses by trimmed description and returns the groups
// sorted by total, descending. When more than limit distinct groups exist the
// remainder collapses into a single Others entry holding their sum. Ties keep
// the order grouping produced (first appearance in the input).
func TopExpenses(txs []core.Transaction, limit int) []ExpenseGroup {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		label := strings.TrimSpace(t.Description)
		if _, seen := sums[label]; !seen {
			order = append(order, label)
		}
		sums[label] = sums[label].Add(t.Amount)
	}
	if len(order) == 0 {
		return nil
	}

	groups := make([]ExpenseGroup, 0, len(order))
	for _, label := range order {
		groups = append(groups, ExpenseGroup{Label: label, Amount: sums[label]})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Amount.GreaterThan(groups[j].Amount)
	})

	if limit <= 0 || len(groups) <= limit {
		return groups
	}
	others := decimal.Zero
	for _, g := range groups[limit:] {
		others = others.Add(g.Amount)
	}
	return append(groups[:limit:limit], ExpenseGroup{Label: OthersLabel, Amount: others})
}

// SpendVsIncome returns up to two slices: "Spent" holding the total expense
// and "Remaining" holding max(0, income-expense). Zero-value slices are
// dropped entirely, so an all-expense collection yields a single slice and an
// empty collection yields nil.
func SpendVsIncome(txs []core.Transaction) []PieSlice {
	income, expense := Totals(txs)
	remaining := income.Sub(expense)
	if remaining.Sign() < 0 {
		remaining = decimal.Zero
	}
	var slices []PieSlice
	if expense.Sign() > 0 {
		slices = append(slices, PieSlice{Label: "Spent", Amount: expense})
	}
	if remaining.Sign() > 0 {
		slices = append(slices, PieSlice{Label: "Remaining", Amount: remaining})
	}
	return slices
}

// Build assembles the complete dashboard view in one pass.
func Build(txs []core.Transaction, now time.Time) Summary {
	income, expense := Totals(txs)
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
		Weekly:       WeeklySpending(txs, now),
		TopExpenses:  TopExpenses(txs, TopExpenseLimit),
		Spending:     SpendVsIncome(txs),
	}
}
