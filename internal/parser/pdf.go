package parser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-reconciler/internal/extractor"
	"github.com/insightdelivered/statement-reconciler/internal/models"
)

const (
	monthNames = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`
	// Full dates, yearless numeric dates and "4 Dec" style dates.
	lineDate = `\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?` +
		`|\d{1,2}[ -]` + monthNames + `(?:[ -]\d{2,4})?` +
		`|` + monthNames + ` \d{1,2},? \d{4}`
	lineAmount = `\(?[-+]?[$€£¥]?\s?\d[\d,]*\.\d{2}\)?(?:\s?(?:CR|DR|cr|dr)\b|-)?`
)

// txnLine matches "DATE DESCRIPTION AMOUNT [BALANCE]".
var txnLine = regexp.MustCompile(
	`^\s*(` + lineDate + `)\s+(.+?)\s+(` + lineAmount + `)(?:\s+(` + lineAmount + `))?\s*$`,
)

// balanceTolerance absorbs rounding in printed balances.
var balanceTolerance = decimal.RequireFromString("0.015")

// parsePDF extracts text from raw PDF bytes and parses it.
func parsePDF(data []byte, opts Options) (*Result, error) {
	pages, err := extractor.ExtractText(context.Background(), data, opts.Logger)
	if err != nil && !errors.Is(err, extractor.ErrUnreadable) {
		return nil, corrupt("unreadable pdf", err)
	}

	res, perr := parsePDFText(pages.Text, opts)
	if perr != nil {
		return nil, perr
	}
	if !pages.Readable {
		res.LowConfidence = true
	}
	return res, nil
}

// parsePDFText scans extracted page text for transaction lines.
func parsePDFText(pages []string, opts Options) (*Result, error) {
	allText := strings.Join(pages, "\n")
	res := &Result{
		Metadata: models.StatementMetadata{
			AccountNumber:   findAccountNumber(allText),
			StatementPeriod: extractPeriod(allText),
			PageCount:       len(pages),
		},
	}
	if len(pages) > 0 && !extractor.IsReadableText(pages) {
		res.LowConfidence = true
	}

	year := opts.Year
	if year == 0 {
		if y, ok := yearHint(allText); ok {
			year = y
		} else {
			year = now().Year()
		}
	}

	var lastBalance *decimal.Decimal
	lineNum, matched := 0, 0
	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			lineNum++
			line := normalizeLine(raw)
			trace := models.LineTrace{LineNum: lineNum, Text: line}

			m := txnLine.FindStringSubmatch(line)
			trace.HasDate = m != nil
			switch {
			case line == "":
				trace.Result = "skipped"
			case m == nil:
				if bal, ok := openingBalance(line); ok {
					lastBalance = &bal
					trace.Result = "summary"
				} else {
					trace.Result = "skipped"
				}
			case isSummaryLine(m[2]):
				// Summary rows carry the balance in the last amount column.
				if bal, err := parseAmount(lastNonEmpty(m[3], m[4])); err == nil {
					lastBalance = &bal
				}
				trace.Result = "summary"
			default:
				txn, w := pdfTransaction(m, lineNum, matched, year, lastBalance)
				matched++
				if w != nil {
					res.warn(*w)
					trace.Result = "invalid"
					break
				}
				if txn.Balance != nil {
					lastBalance = txn.Balance
				}
				res.Transactions = append(res.Transactions, txn)
				trace.Result = "parsed"
			}

			if opts.Trace {
				res.Trace = append(res.Trace, trace)
			}
		}
	}
	return res, nil
}

func pdfTransaction(m []string, lineNum, index, year int, lastBalance *decimal.Decimal) (models.BankTransaction, *Warning) {
	rawDate, desc, rawAmount, rawBalance := m[1], strings.TrimSpace(m[2]), m[3], m[4]

	date, err := parseDate(rawDate)
	if err != nil {
		date, err = parseShortDate(rawDate, year)
	}
	if err != nil {
		return models.BankTransaction{}, &Warning{Kind: WarnRowSkipped, Row: lineNum, Field: "date", Value: rawDate, Reason: err.Error()}
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		return models.BankTransaction{}, &Warning{Kind: WarnRowSkipped, Row: lineNum, Field: "amount", Value: rawAmount, Reason: err.Error()}
	}

	var balance *decimal.Decimal
	if rawBalance != "" {
		if b, err := parseAmount(rawBalance); err == nil {
			balance = &b
		}
	}

	if !hasSignMarker(rawAmount) {
		amount = signByContext(amount, balance, lastBalance, desc)
	}

	txn := models.NewBankTransaction(fmt.Sprintf("bank_tx_%d", index), date, desc, amount)
	txn.Balance = balance
	return txn, nil
}

// signByContext decides the direction of an unsigned amount. The running
// balance wins when it is unambiguous, then the wording of the description.
func signByContext(amount decimal.Decimal, balance, prev *decimal.Decimal, desc string) decimal.Decimal {
	amount = amount.Abs()
	if balance != nil && prev != nil {
		debitDiff := prev.Sub(amount).Sub(*balance).Abs()
		creditDiff := prev.Add(amount).Sub(*balance).Abs()
		debitOK := debitDiff.LessThan(balanceTolerance)
		creditOK := creditDiff.LessThan(balanceTolerance)
		switch {
		case debitOK && !creditOK:
			return amount.Neg()
		case creditOK && !debitOK:
			return amount
		case debitOK && creditOK:
			if debitDiff.LessThanOrEqual(creditDiff) {
				return amount.Neg()
			}
			return amount
		}
	}
	if isCreditDescription(desc) {
		return amount
	}
	if isDebitDescription(desc) {
		return amount.Neg()
	}
	return amount
}

var creditKeywords = []string{
	"direct credit", "credit from", "bgc ", "bacs ", "refund",
	"interest paid", "transfer from", "deposit", "payroll", "salary",
}

func isCreditDescription(desc string) bool {
	lower := strings.ToLower(desc) + " "
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var debitKeywords = []string{
	"card payment", "direct debit", "debit", "payment", "withdrawal",
	"transfer out", "standing order", "dd ", "pos ", "atm ", "check ", "cheque",
	"purchase", "fee", "charge", "bill pay",
}

func isDebitDescription(desc string) bool {
	lower := strings.ToLower(desc) + " "
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var summaryKeywords = []string{
	"opening balance", "closing balance", "balance brought forward",
	"balance carried forward", "brought forward", "carried forward",
	"beginning balance", "ending balance", "previous balance",
	"start balance", "end balance",
	"total paid in", "total paid out", "total deposits", "total withdrawals",
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// lineCleaner removes extraction artifacts: non-breaking and zero-width
// spaces, tabs from pdf.js style output and arrow column separators.
var lineCleaner = strings.NewReplacer(
	"\u00a0", " ",
	"\u200b", "",
	"\t", " ",
	"→", " ",
)

func normalizeLine(line string) string {
	return strings.TrimSpace(lineCleaner.Replace(line))
}

var amountPattern = regexp.MustCompile(`\d[\d,]*\.\d{2}`)

// openingBalance reads an undated opening or brought-forward line.
func openingBalance(line string) (decimal.Decimal, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "opening balance") &&
		!strings.Contains(lower, "beginning balance") &&
		!strings.Contains(lower, "previous balance") &&
		!strings.Contains(lower, "brought forward") {
		return decimal.Zero, false
	}
	amounts := amountPattern.FindAllString(line, -1)
	if len(amounts) == 0 {
		return decimal.Zero, false
	}
	bal, err := parseAmount(amounts[len(amounts)-1])
	if err != nil {
		return decimal.Zero, false
	}
	return bal, true
}

func lastNonEmpty(vals ...string) string {
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i] != "" {
			return vals[i]
		}
	}
	return ""
}
