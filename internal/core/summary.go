package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MonthlyFlow is the income/expense total for one calendar month.
type MonthlyFlow struct {
	Month   string          `json:"month"` // "YYYY-MM"
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryAmount is an expense total aggregated by category name.
type CategoryAmount struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// SummaryReport is the aggregate view over a set of entries.
type SummaryReport struct {
	TotalIncome  decimal.Decimal  `json:"total_income"`
	TotalExpense decimal.Decimal  `json:"total_expense"`
	Balance      decimal.Decimal  `json:"balance"`
	Monthly      []MonthlyFlow    `json:"monthly"`
	ByCategory   []CategoryAmount `json:"by_category"`
}

// Summarize computes the summary report for a sequence of entries in a
// single linear pass. Any date filtering happens upstream in the repository;
// whatever entries arrive here are counted.
//
// The category breakdown covers expenses only: income entries never
// contribute to it, and an expense without a category is counted in the
// totals and its month bucket but omitted from the breakdown.
func Summarize(entries []Entry) SummaryReport {
	report := SummaryReport{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Monthly:      []MonthlyFlow{},
		ByCategory:   []CategoryAmount{},
	}

	months := make(map[string]*MonthlyFlow)
	byCategory := make(map[string]decimal.Decimal)

	for _, e := range entries {
		key := e.Date.MonthKey()
		flow, ok := months[key]
		if !ok {
			flow = &MonthlyFlow{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			months[key] = flow
		}

		if e.Type == Income {
			report.TotalIncome = report.TotalIncome.Add(e.Amount)
			flow.Income = flow.Income.Add(e.Amount)
			continue
		}

		report.TotalExpense = report.TotalExpense.Add(e.Amount)
		flow.Expense = flow.Expense.Add(e.Amount)
		if e.Category != nil {
			total, ok := byCategory[e.Category.Name]
			if !ok {
				total = decimal.Zero
			}
			byCategory[e.Category.Name] = total.Add(e.Amount)
		}
	}

	report.Balance = report.TotalIncome.Sub(report.TotalExpense)

	monthKeys := make([]string, 0, len(months))
	for key := range months {
		monthKeys = append(monthKeys, key)
	}
	sort.Strings(monthKeys)
	for _, key := range monthKeys {
		report.Monthly = append(report.Monthly, *months[key])
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.ByCategory = append(report.ByCategory, CategoryAmount{Name: name, Value: byCategory[name]})
	}

	return report
}
