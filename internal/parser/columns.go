package parser

import (
	"strings"
)

// Header synonyms for each logical column, compared case-insensitively
// after trimming.
var (
	dateHeaders    = []string{"date", "transaction date", "posting date", "trans date", "value date", "post date"}
	descHeaders    = []string{"description", "memo", "details", "transaction details", "payee", "merchant", "narration", "particulars"}
	amountHeaders  = []string{"amount", "transaction amount", "value"}
	debitHeaders   = []string{"debit", "debits", "withdrawal", "withdrawals", "paid out", "money out", "debit amount"}
	creditHeaders  = []string{"credit", "credits", "deposit", "deposits", "paid in", "money in", "credit amount"}
	balanceHeaders = []string{"balance", "running balance", "ending balance"}
)

// headerScanLimit is how many non-empty rows are searched for a header.
const headerScanLimit = 10

// columnMap holds the index of each logical column, or -1 when absent.
type columnMap struct {
	date, description, amount, debit, credit, balance int
}

func (c columnMap) hasDate() bool { return c.date >= 0 }

func (c columnMap) hasAmount() bool {
	return c.amount >= 0 || c.debit >= 0 || c.credit >= 0
}

func (c columnMap) missing() []string {
	var m []string
	if !c.hasDate() {
		m = append(m, "date")
	}
	if !c.hasAmount() {
		m = append(m, "amount")
	}
	return m
}

// detectColumns maps header cells to logical columns. The first matching
// cell wins for each column.
func detectColumns(header []string) columnMap {
	cols := columnMap{date: -1, description: -1, amount: -1, debit: -1, credit: -1, balance: -1}
	for i, cell := range header {
		name := normalizeHeader(cell)
		switch {
		case cols.date < 0 && matchesAny(name, dateHeaders):
			cols.date = i
		case cols.description < 0 && matchesAny(name, descHeaders):
			cols.description = i
		case cols.amount < 0 && matchesAny(name, amountHeaders):
			cols.amount = i
		case cols.debit < 0 && matchesAny(name, debitHeaders):
			cols.debit = i
		case cols.credit < 0 && matchesAny(name, creditHeaders):
			cols.credit = i
		case cols.balance < 0 && matchesAny(name, balanceHeaders):
			cols.balance = i
		}
	}
	return cols
}

// normalizeHeader trims, lowercases, drops a byte order mark and a trailing
// currency or unit suffix such as "Amount (USD)".
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "("); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	return strings.Join(strings.Fields(s), " ")
}

func matchesAny(name string, candidates []string) bool {
	for _, c := range candidates {
		if name == c {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// findHeader returns the index of the header row and its column map. Rows
// before it, such as account details, are ignored.
func findHeader(rows [][]string) (int, columnMap, error) {
	seen := 0
	var first *columnMap
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		cols := detectColumns(row)
		if cols.hasDate() && cols.hasAmount() {
			return i, cols, nil
		}
		if first == nil {
			first = &cols
		}
		seen++
		if seen >= headerScanLimit {
			break
		}
	}
	if first == nil {
		return -1, columnMap{}, &ParseError{Kind: KindEmptyInput, Reason: "statement has no rows"}
	}
	return -1, columnMap{}, newMissingColumnsError(first.missing())
}
