package coa

import "github.com/shopspring/decimal"

// GroupSeed describes a group installed by the default chart.
type GroupSeed struct {
	Code               string
	Name               string
	Nature             Nature
	AffectsGrossProfit bool
	Parent             string
}

// LedgerSeed describes a ledger installed by the default chart.
type LedgerSeed struct {
	Code           string
	Name           string
	Group          string
	OpeningBalance decimal.Decimal
}

// DefaultGroups is the stock chart for a small Indian trading business.
// Parents precede children.
func DefaultGroups() []GroupSeed {
	return []GroupSeed{
		{Code: "CAPITAL", Name: "Capital Account", Nature: NatureEquity},
		{Code: "CUR_ASSETS", Name: "Current Assets", Nature: NatureAsset},
		{Code: "BANK", Name: "Bank Accounts", Nature: NatureAsset, Parent: "CUR_ASSETS"},
		{Code: "CASH", Name: "Cash-in-Hand", Nature: NatureAsset, Parent: "CUR_ASSETS"},
		{Code: "DEBTORS", Name: "Sundry Debtors", Nature: NatureAsset, Parent: "CUR_ASSETS"},
		{Code: "STOCK", Name: "Stock-in-Hand", Nature: NatureAsset, Parent: "CUR_ASSETS"},
		{Code: "FIXED_ASSETS", Name: "Fixed Assets", Nature: NatureAsset},
		{Code: "CUR_LIAB", Name: "Current Liabilities", Nature: NatureLiability},
		{Code: "CREDITORS", Name: "Sundry Creditors", Nature: NatureLiability, Parent: "CUR_LIAB"},
		{Code: "DUTIES", Name: "Duties & Taxes", Nature: NatureLiability, Parent: "CUR_LIAB"},
		{Code: "SALES", Name: "Sales Accounts", Nature: NatureIncome, AffectsGrossProfit: true},
		{Code: "DIRECT_INC", Name: "Direct Incomes", Nature: NatureIncome, AffectsGrossProfit: true},
		{Code: "INDIRECT_INC", Name: "Indirect Incomes", Nature: NatureIncome},
		{Code: "PURCHASE", Name: "Purchase Accounts", Nature: NatureExpense, AffectsGrossProfit: true},
		{Code: "DIRECT_EXP", Name: "Direct Expenses", Nature: NatureExpense, AffectsGrossProfit: true},
		{Code: "INDIRECT_EXP", Name: "Indirect Expenses", Nature: NatureExpense},
	}
}

// DefaultLedgers are the ledgers seeded alongside DefaultGroups.
func DefaultLedgers() []LedgerSeed {
	zero := decimal.Zero
	return []LedgerSeed{
		{Code: "CAP-001", Name: "Proprietor's Capital", Group: "CAPITAL", OpeningBalance: zero},
		{Code: "CASH-001", Name: "Cash", Group: "CASH", OpeningBalance: zero},
		{Code: "BANK-001", Name: "HDFC Current Account", Group: "BANK", OpeningBalance: zero},
		{Code: "SALES-001", Name: "Sales", Group: "SALES", OpeningBalance: zero},
		{Code: "PURCH-001", Name: "Purchases", Group: "PURCHASE", OpeningBalance: zero},
		{Code: "GST-OUT", Name: "Output GST", Group: "DUTIES", OpeningBalance: zero},
		{Code: "GST-IN", Name: "Input GST", Group: "DUTIES", OpeningBalance: zero},
		{Code: "RENT-001", Name: "Rent", Group: "INDIRECT_EXP", OpeningBalance: zero},
		{Code: "DR-001", Name: "Sharma Traders", Group: "DEBTORS", OpeningBalance: zero},
		{Code: "CR-001", Name: "Gupta Wholesale", Group: "CREDITORS", OpeningBalance: zero},
	}
}
