package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters are the separators sniffed from delimited text, in order of
// preference when counts tie.
var delimiters = []rune{',', ';', '\t', '|'}

// parseDelimited reads delimited text. A zero delimiter is sniffed.
func parseDelimited(data []byte, delim rune) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if delim == 0 {
		delim = sniffDelimiter(string(data))
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		pe := corrupt("malformed delimited text", err)
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			pe.Row = csvErr.Line
		}
		return nil, pe
	}
	return parseRows(rows, tabularOptions{})
}

// sniffDelimiter picks the candidate that occurs most often across the first
// non-empty lines.
func sniffDelimiter(text string) rune {
	counts := make(map[rune]int, len(delimiters))
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, d := range delimiters {
			counts[d] += strings.Count(line, string(d))
		}
		seen++
		if seen >= headerScanLimit {
			break
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
