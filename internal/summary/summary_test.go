package summary

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expense(desc, amount string, date core.Date) core.Transaction {
	return core.Transaction{Date: date, Description: desc, Amount: dec(amount), Kind: core.Expense}
}

func income(desc, amount string, date core.Date) core.Transaction {
	return core.Transaction{Date: date, Description: desc, Amount: dec(amount), Kind: core.Income}
}

func TestDashboardScenario(t *testing.T) {
	day := core.NewDate(2025, 6, 10)
	txs := []core.Transaction{
		expense("Lunch", "50", day),
		expense("Lunch", "30", day),
		income("Salary", "200", day),
	}

	in, out := Totals(txs)
	assert.True(t, in.Equal(dec("200")), "income %s", in)
	assert.True(t, out.Equal(dec("80")), "expense %s", out)
	assert.True(t, Balance(txs).Equal(dec("120")), "balance %s", Balance(txs))

	top := TopExpenses(txs, TopExpenseLimit)
	require.Len(t, top, 1)
	assert.Equal(t, "Lunch", top[0].Label)
	assert.True(t, top[0].Amount.Equal(dec("80")))

	pie := SpendVsIncome(txs)
	require.Len(t, pie, 2)
	assert.Equal(t, "Spent", pie[0].Label)
	assert.True(t, pie[0].Amount.Equal(dec("80")))
	assert.Equal(t, "Remaining", pie[1].Label)
	assert.True(t, pie[1].Amount.Equal(dec("120")))
}

func TestBalanceEqualsIncomeMinusExpense(t *testing.T) {
	day := core.NewDate(2025, 1, 1)
	collections := [][]core.Transaction{
		nil,
		{income("a", "10", day)},
		{expense("b", "4.50", day), expense("c", "0.50", day)},
		{income("a", "10", day), expense("b", "25", day), income("c", "3.33", day)},
	}
	for i, txs := range collections {
		in, out := Totals(txs)
		assert.True(t, Balance(txs).Equal(in.Sub(out)), "collection %d", i)
	}
}

func TestWeeklySpending(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense("coffee", "3", core.NewDate(2025, 6, 10)), // today
		expense("bus", "2.50", core.NewDate(2025, 6, 4)),  // oldest included day
		expense("old", "99", core.NewDate(2025, 6, 3)),    // outside the window
		income("pay", "500", core.NewDate(2025, 6, 10)),   // income never counts
		expense("more coffee", "4", core.NewDate(2025, 6, 10)),
	}

	buckets := WeeklySpending(txs, now)
	require.Len(t, buckets, 7)
	assert.Equal(t, "2025-06-04", buckets[0].Date)
	assert.Equal(t, "2025-06-10", buckets[6].Date)
	assert.True(t, buckets[0].Amount.Equal(dec("2.5")), "oldest day %s", buckets[0].Amount)
	assert.True(t, buckets[6].Amount.Equal(dec("7")), "today %s", buckets[6].Amount)
	for i := 1; i < 6; i++ {
		assert.True(t, buckets[i].Amount.IsZero(), "day %s should be empty", buckets[i].Date)
	}
}

func TestTopExpensesCollapsesIntoOthers(t *testing.T) {
	day := core.NewDate(2025, 2, 2)
	var txs []core.Transaction
	// Eight distinct groups with descending totals 80, 70, ... 10.
	for i := 0; i < 8; i++ {
		amount := fmt.Sprintf("%d", 80-10*i)
		txs = append(txs, expense(fmt.Sprintf("group-%d", i), amount, day))
	}

	top := TopExpenses(txs, TopExpenseLimit)
	require.Len(t, top, TopExpenseLimit+1)
	assert.Equal(t, "group-0", top[0].Label)
	assert.Equal(t, OthersLabel, top[5].Label)
	// Others holds 30 + 20 + 10.
	assert.True(t, top[5].Amount.Equal(dec("60")), "others %s", top[5].Amount)

	// The sum of all entries equals the total expense.
	total := decimal.Zero
	for _, g := range top {
		total = total.Add(g.Amount)
	}
	_, out := Totals(txs)
	assert.True(t, total.Equal(out))
}

func TestTopExpensesTrimsAndKeepsTieOrder(t *testing.T) {
	day := core.NewDate(2025, 2, 2)
	txs := []core.Transaction{
		expense(" Lunch ", "10", day),
		expense("Lunch", "5", day), // same group after trimming
		expense("Taxi", "15", day),
		expense("Cinema", "15", day), // ties with Taxi; Taxi appeared first
	}
	top := TopExpenses(txs, TopExpenseLimit)
	require.Len(t, top, 3)
	assert.Equal(t, "Lunch", top[0].Label)
	assert.Equal(t, "Taxi", top[1].Label)
	assert.Equal(t, "Cinema", top[2].Label)
}

func TestSpendVsIncomeOmitsZeroSlices(t *testing.T) {
	day := core.NewDate(2025, 3, 3)

	assert.Nil(t, SpendVsIncome(nil), "empty collection yields no slices")

	onlySpend := SpendVsIncome([]core.Transaction{expense("x", "40", day)})
	require.Len(t, onlySpend, 1)
	assert.Equal(t, "Spent", onlySpend[0].Label)

	onlyIncome := SpendVsIncome([]core.Transaction{income("y", "40", day)})
	require.Len(t, onlyIncome, 1)
	assert.Equal(t, "Remaining", onlyIncome[0].Label)

	// Overspent: Remaining clamps at zero and is omitted.
	overspent := SpendVsIncome([]core.Transaction{
		income("y", "10", day),
		expense("x", "40", day),
	})
	require.Len(t, overspent, 1)
	assert.Equal(t, "Spent", overspent[0].Label)
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense("Lunch", "50", core.NewDate(2025, 6, 10)),
		income("Salary", "200", core.NewDate(2025, 6, 1)),
	}
	s := Build(txs, now)
	assert.True(t, s.Balance.Equal(dec("150")))
	assert.Len(t, s.Weekly, 7)
	assert.Len(t, s.TopExpenses, 1)
	assert.Len(t, s.Spending, 2)
}
