package core

import "github.com/shopspring/decimal"

const (
	BudgetOver   = "over budget"
	BudgetWithin = "within budget"
	BudgetUnset  = "-"
)

// BudgetKey addresses exactly one budget value.
type BudgetKey struct {
	Bank      BankID
	MonthYear string
	Category  string
}

// Budget is a stored budget value. Absence of a Budget is distinct from a
// zero amount.
type Budget struct {
	BudgetKey
	Amount decimal.Decimal
}

// TxnLine is one contributing row of a CategoryTotal.
type TxnLine struct {
	Date        string
	Description string
	Amount      decimal.Decimal
}

// CategoryTotal is the month total of one category.
type CategoryTotal struct {
	Category     string
	Amount       decimal.Decimal
	Budget       decimal.NullDecimal
	Transactions []TxnLine
}

// DashboardMetrics are the scalar figures over all categories of a month.
type DashboardMetrics struct {
	MonthlyCommitment decimal.Decimal
	CurrentSpending   decimal.Decimal
	Balance           decimal.NullDecimal
}

// Dashboard is the month view of one bank ledger.
type Dashboard struct {
	Bank          BankID
	Months        []string
	SelectedMonth string
	Categories    []CategoryTotal
	Metrics       DashboardMetrics
}
