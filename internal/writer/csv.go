// Package writer exports parsed transactions and reconciliation results as CSV.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-reconciler/internal/models"
)

// TransactionWriter writes parsed transactions to CSV.
type TransactionWriter struct {
	// IncludeMetadata prefixes the table with "# key,value" rows describing
	// the statement.
	IncludeMetadata bool
	Metadata        models.StatementMetadata
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *TransactionWriter) WriteToFile(path string, txns []models.BankTransaction) error {
	return writeFile(path, func(f io.Writer) error { return w.Write(f, txns) })
}

// Write writes transactions in CSV format to out.
func (w *TransactionWriter) Write(out io.Writer, txns []models.BankTransaction) error {
	cw := csv.NewWriter(out)

	if w.IncludeMetadata {
		meta := [][2]string{
			{"# Account Number", w.Metadata.AccountNumber},
			{"# Statement Period", w.Metadata.StatementPeriod},
		}
		for _, kv := range meta {
			if kv[1] == "" {
				continue
			}
			if err := cw.Write(kv[:]); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := cw.Write([]string{"ID", "Date", "Description", "Type", "Amount", "Balance"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		row := []string{
			txn.ID,
			txn.Date.String(),
			txn.Description,
			string(txn.Type),
			formatAmount(txn.Amount),
			formatOptional(txn.Balance),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Report statuses.
const (
	StatusMatched              = "matched"
	StatusSuggested            = "suggested"
	StatusUnmatchedDocument    = "unmatched_document"
	StatusUnmatchedTransaction = "unmatched_transaction"
)

var reportHeader = []string{
	"Status", "Match ID", "Match Type", "Confidence",
	"Document ID", "Vendor", "Document Amount", "Document Date",
	"Transaction ID", "Description", "Transaction Amount", "Transaction Date",
	"Name Score", "Amount Score", "Date Score", "Total Score", "Possible Matches",
}

// ReportWriter writes one CSV row per matched pair, suggestion and
// unmatched document or transaction.
type ReportWriter struct{}

// WriteToFile writes the report to a CSV file at the given path.
func (w *ReportWriter) WriteToFile(path string, result *models.ReconciliationResult) error {
	return writeFile(path, func(f io.Writer) error { return w.Write(f, result) })
}

// Write writes the report in CSV format to out.
func (w *ReportWriter) Write(out io.Writer, result *models.ReconciliationResult) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	var rows [][]string
	for _, m := range result.Matched {
		rows = append(rows, matchRow(StatusMatched, m))
	}
	for _, m := range result.SuggestedMatches {
		rows = append(rows, matchRow(StatusSuggested, m))
	}
	for _, d := range result.UnmatchedDocuments {
		rows = append(rows, []string{
			StatusUnmatchedDocument, "", "", "",
			d.ID, d.VendorName, formatAmount(d.Amount), d.Date.String(),
			"", "", "", "",
			"", "", "", "", "",
		})
	}
	for _, u := range result.UnmatchedTransactions {
		t := u.Transaction
		rows = append(rows, []string{
			StatusUnmatchedTransaction, "", "", "",
			"", "", "", "",
			t.ID, t.Description, formatAmount(t.Amount), t.Date.String(),
			"", "", "", "", strconv.Itoa(len(u.PossibleMatches)),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write report rows: %w", err)
	}
	return nil
}

func matchRow(status string, m models.Match) []string {
	return []string{
		status, m.ID, string(m.Type), string(m.Confidence),
		m.Document.ID, m.Document.VendorName, formatAmount(m.Document.Amount), m.Document.Date.String(),
		m.Transaction.ID, m.Transaction.Description, formatAmount(m.Transaction.Amount), m.Transaction.Date.String(),
		strconv.Itoa(m.Details.NameScore),
		strconv.Itoa(m.Details.AmountScore),
		strconv.Itoa(m.Details.DateScore),
		strconv.Itoa(m.Score),
		"",
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func formatOptional(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return formatAmount(*amount)
}
