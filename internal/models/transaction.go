package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are emitted as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType is derived from the sign of a bank transaction amount.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// TypeOf returns debit for negative amounts and credit otherwise.
func TypeOf(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TypeDebit
	}
	return TypeCredit
}

// BankTransaction represents a single bank statement transaction.
type BankTransaction struct {
	ID          string           `json:"transaction_id"`
	Date        Date             `json:"date"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"` // signed: negative for debits
	Type        TransactionType  `json:"type"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
}

// NewBankTransaction builds a transaction with the type derived from the amount.
func NewBankTransaction(id string, date Date, description string, amount decimal.Decimal) BankTransaction {
	amount = amount.Round(2)
	return BankTransaction{
		ID:          id,
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        TypeOf(amount),
	}
}

// ContentType identifies the format of an uploaded statement.
type ContentType string

const (
	ContentCSV     ContentType = "csv"
	ContentTSV     ContentType = "tsv"
	ContentPDF     ContentType = "pdf"
	ContentPDFText ContentType = "pdf-text"
	ContentXLSX    ContentType = "xlsx"
	ContentXLS     ContentType = "xls"
)

// LineTrace captures what the PDF text parser did with each input line.
type LineTrace struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	HasDate bool   `json:"hasDate"`
	Result  string `json:"result"` // "parsed", "skipped", "summary", "invalid"
}

// StatementMetadata holds account details found in the statement text.
type StatementMetadata struct {
	AccountNumber   string `json:"account_number,omitempty"`
	StatementPeriod string `json:"statement_period,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
}
