package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-reconciler/internal/models"
)

// tabularOptions adjusts cell parsing for one kind of tabular source.
type tabularOptions struct {
	// serialDates accepts spreadsheet date serials such as "45672".
	serialDates bool
}

// parseRows locates the header and converts every data row after it.
// Rows are 1-based in warnings; ids use the 0-based data row index.
func parseRows(rows [][]string, opts tabularOptions) (*Result, error) {
	headerIdx, cols, err := findHeader(rows)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	index := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		rowNum := i + 1
		id := fmt.Sprintf("bank_tx_%d", index)
		index++

		txn, w := convertRow(row, cols, rowNum, id, opts)
		if w != nil {
			res.warn(*w)
			continue
		}
		res.Transactions = append(res.Transactions, txn)
	}
	return res, nil
}

func convertRow(row []string, cols columnMap, rowNum int, id string, opts tabularOptions) (models.BankTransaction, *Warning) {
	skip := func(field, value, reason string) (models.BankTransaction, *Warning) {
		return models.BankTransaction{}, &Warning{Kind: WarnRowSkipped, Row: rowNum, Field: field, Value: value, Reason: reason}
	}

	rawDate := cell(row, cols.date)
	date, err := parseDate(rawDate)
	if err != nil && opts.serialDates {
		date, err = parseSerialDate(rawDate)
	}
	if err != nil {
		return skip("date", rawDate, err.Error())
	}

	var amount decimal.Decimal
	if cols.amount >= 0 {
		raw := cell(row, cols.amount)
		amount, err = parseAmount(raw)
		if err != nil {
			return skip("amount", raw, err.Error())
		}
	} else {
		rawDebit, rawCredit := cell(row, cols.debit), cell(row, cols.credit)
		var have bool
		if strings.TrimSpace(rawDebit) != "" {
			d, err := parseAmount(rawDebit)
			if err != nil {
				return skip("debit", rawDebit, err.Error())
			}
			amount = amount.Sub(d.Abs())
			have = true
		}
		if strings.TrimSpace(rawCredit) != "" {
			c, err := parseAmount(rawCredit)
			if err != nil {
				return skip("credit", rawCredit, err.Error())
			}
			amount = amount.Add(c.Abs())
			have = true
		}
		if !have {
			return skip("amount", "", "no debit or credit value")
		}
	}

	txn := models.NewBankTransaction(id, date, strings.TrimSpace(cell(row, cols.description)), amount)
	if cols.balance >= 0 {
		if bal, err := parseAmount(cell(row, cols.balance)); err == nil {
			txn.Balance = &bal
		}
	}
	return txn, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseSerialDate converts a spreadsheet date serial number.
func parseSerialDate(s string) (models.Date, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 1 {
		return models.Date{}, fmt.Errorf("unrecognized date format")
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return models.Date{}, err
	}
	return models.DateOf(t), nil
}
