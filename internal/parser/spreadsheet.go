package parser

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first sheet of an Excel workbook.
func parseXLSX(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, corrupt("invalid xlsx workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &ParseError{Kind: KindEmptyInput, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, corrupt(fmt.Sprintf("read sheet %q", sheet), err)
	}
	return parseRows(rows, tabularOptions{serialDates: true})
}

// parseXLS reads the first sheet of a legacy BIFF workbook.
func parseXLS(data []byte) (res *Result, err error) {
	// The BIFF decoder panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, corrupt("invalid xls workbook", fmt.Errorf("%v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, corrupt("invalid xls workbook", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &ParseError{Kind: KindEmptyInput, Reason: "workbook has no sheets"}
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return parseRows(rows, tabularOptions{serialDates: true})
}
