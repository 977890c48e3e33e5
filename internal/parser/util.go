package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-reconciler/internal/models"
)

// dateLayouts are tried in order; the first that parses wins. Month-first
// forms come before day-first ones, so 02/03/2025 is February 3rd.
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"2/1/2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/1/2",
	"1/2/06",
	"2-1-2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 Jan 06",
	"2 January 2006",
	"2-Jan-06",
	"1-2-06",
	"20060102",
}

// parseDate parses a statement date into a calendar date.
func parseDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return models.DateOf(t), nil
	}
	// Spreadsheet exports often carry a time of day.
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return models.DateOf(t), nil
	}
	return models.Date{}, errors.New("unrecognized date format")
}

// parseShortDate parses a date without a year ("10/02", "4 Dec") using year.
func parseShortDate(s string, year int) (models.Date, error) {
	s = strings.TrimSpace(s)
	y := strconv.Itoa(year)
	for _, candidate := range []struct{ layout, value string }{
		{"1/2/2006", s + "/" + y},
		{"1-2-2006", s + "-" + y},
		{"2 Jan 2006", s + " " + y},
		{"2-Jan-2006", s + "-" + y},
	} {
		if t, err := time.Parse(candidate.layout, candidate.value); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, errors.New("unrecognized short date")
}

var amountCleaner = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "",
	",", "", " ", "", "\u00a0", "",
)

// parseAmount converts strings such as "1,234.56", "-£25.99", "(100.00)",
// "100.00DR" or "100.00CR" into a signed amount rounded to cents.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountCleaner.Replace(s)

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "CR"):
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "DR"):
		negative = true
		s = s[:len(s)-2]
	case len(s) > 1 && strings.HasSuffix(s, "-") && !strings.HasPrefix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	}

	if s == "" || s == "-" || s == "+" {
		return decimal.Zero, errors.New("empty amount")
	}
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("not a number")
	}
	if negative {
		amt = amt.Abs().Neg()
	}
	return amt.Round(2), nil
}

// hasSignMarker reports whether an amount string says which way money moved.
func hasSignMarker(s string) bool {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	return strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") ||
		strings.HasPrefix(s, "(") ||
		strings.HasSuffix(upper, "CR") || strings.HasSuffix(upper, "DR") ||
		strings.HasSuffix(s, "-")
}

// accountNumberPattern finds an account number following a label.
var accountNumberPattern = regexp.MustCompile(`(?i)account\s*(?:number|no\.?|#)?\s*:?\s*([*xX\d][*xX\d\- ]{3,}\d)`)

func findAccountNumber(text string) string {
	m := accountNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var (
	periodSlashDates = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	periodISODates   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	periodTextDates  = regexp.MustCompile(`(?i)\b(?:\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*,?\s+\d{4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},\s+\d{4})`)
)

// extractPeriod finds a "statement period" style date range.
func extractPeriod(text string) string {
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "period") && !strings.Contains(lower, "statement date") {
			continue
		}
		for _, re := range []*regexp.Regexp{periodSlashDates, periodISODates, periodTextDates} {
			if dates := re.FindAllString(line, 2); len(dates) == 2 {
				return dates[0] + " to " + dates[1]
			}
		}
	}
	return ""
}

// yearHint returns the year of the first full date found in text, used to
// complete dates printed without a year.
func yearHint(text string) (int, bool) {
	for _, re := range []*regexp.Regexp{periodISODates, periodSlashDates, periodTextDates} {
		for _, m := range re.FindAllString(text, -1) {
			if d, err := parseDate(m); err == nil {
				return d.Year(), true
			}
		}
	}
	return 0, false
}
