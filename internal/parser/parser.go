// Package parser turns bank statement exports into transactions.
//
// Delimited text and spreadsheets go through header detection and column
// mapping. PDFs are reduced to text and scanned line by line for
// "date description amount [balance]" rows.
package parser

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/insightdelivered/statement-reconciler/internal/models"
)

// Result is the outcome of parsing one statement.
type Result struct {
	Transactions  []models.BankTransaction `json:"transactions"`
	Count         int                      `json:"count"`
	Warnings      []Warning                `json:"warnings"`
	LowConfidence bool                     `json:"low_confidence"`
	Metadata      models.StatementMetadata `json:"metadata"`
	Trace         []models.LineTrace       `json:"trace,omitempty"`
}

func (r *Result) warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// Options adjusts parsing.
type Options struct {
	// Year completes PDF dates printed without a year. When zero the year is
	// taken from the first full date in the statement, then the current year.
	Year int
	// Trace records what happened to every PDF text line.
	Trace bool
	// Logger receives extraction diagnostics. Nil uses slog.Default.
	Logger *slog.Logger
}

var now = time.Now

// Parse parses a statement of the given content type with default options.
func Parse(data []byte, contentType string) (*Result, error) {
	return ParseWithOptions(data, contentType, Options{})
}

// ParseWithOptions parses a statement. Fatal problems are returned as a
// *ParseError (or *MissingColumnsError); row-level problems become warnings.
func ParseWithOptions(data []byte, contentType string, opts Options) (*Result, error) {
	ct, err := ResolveContentType(contentType)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Kind: KindEmptyInput, Reason: "statement is empty"}
	}

	var res *Result
	switch ct {
	case models.ContentCSV:
		res, err = parseDelimited(data, 0)
	case models.ContentTSV:
		res, err = parseDelimited(data, '\t')
	case models.ContentXLSX:
		res, err = parseXLSX(data)
	case models.ContentXLS:
		res, err = parseXLS(data)
	case models.ContentPDF:
		res, err = parsePDF(data, opts)
	case models.ContentPDFText:
		res, err = parsePDFText(splitPages(string(data)), opts)
	}
	if err != nil {
		return nil, err
	}

	res.Count = len(res.Transactions)
	if res.Count == 0 {
		res.LowConfidence = true
		res.warn(Warning{Kind: WarnEmptyResult, Reason: "no transactions found"})
	}
	if res.Transactions == nil {
		res.Transactions = []models.BankTransaction{}
	}
	if res.Warnings == nil {
		res.Warnings = []Warning{}
	}
	return res, nil
}

// ResolveContentType maps a content type name, MIME type or alias to a
// supported ContentType.
func ResolveContentType(s string) (models.ContentType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(name, ";"); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	switch name {
	case "csv", "text/csv", "text/plain", "application/csv", "txt":
		return models.ContentCSV, nil
	case "tsv", "text/tab-separated-values":
		return models.ContentTSV, nil
	case "pdf", "application/pdf":
		return models.ContentPDF, nil
	case "pdf-text", "pdf_text", "text/x-pdf-text":
		return models.ContentPDFText, nil
	case "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return models.ContentXLSX, nil
	case "xls", "application/vnd.ms-excel":
		return models.ContentXLS, nil
	}
	return "", UnsupportedContentTypeError(s)
}

// ContentTypeFromFilename guesses the content type from a file extension.
// It returns "" when the extension is not recognized.
func ContentTypeFromFilename(name string) models.ContentType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return models.ContentCSV
	case ".tsv":
		return models.ContentTSV
	case ".pdf":
		return models.ContentPDF
	case ".xlsx":
		return models.ContentXLSX
	case ".xls":
		return models.ContentXLS
	}
	return ""
}

// pageBreak separates pages in extracted text uploads, alongside form feeds.
const pageBreak = "---PAGE_BREAK---"

func splitPages(text string) []string {
	text = strings.ReplaceAll(text, pageBreak, "\f")
	return strings.Split(text, "\f")
}
