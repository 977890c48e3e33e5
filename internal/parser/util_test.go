package parser

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"25.99", "25.99", false},
		{"1,234.56", "1234.56", false},
		{"£25.99", "25.99", false},
		{"$ 1,000", "1000", false},
		{"€9.5", "9.5", false},
		{"¥300", "300", false},
		{"-25.99", "-25.99", false},
		{"(100.00)", "-100", false},
		{"($1,234.50)", "-1234.5", false},
		{"100.00CR", "100", false},
		{"100.00 cr", "100", false},
		{"100.00DR", "-100", false},
		{"100.00-", "-100", false},
		{"+42.10", "42.1", false},
		{"12.345", "12.35", false},
		{"0.00", "0", false},
		{" 25.99 ", "25.99", false},
		{"1 234.00", "1234", false},
		{"", "", true},
		{"-", "", true},
		{"abc", "", true},
		{"CR", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestHasSignMarker(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"25.99", false},
		{"£1,234.56", false},
		{"-25.99", true},
		{"+25.99", true},
		{"(25.99)", true},
		{"25.99 CR", true},
		{"25.99DR", true},
		{"25.99-", true},
	}

	for _, tt := range tests {
		if got := hasSignMarker(tt.input); got != tt.expected {
			t.Errorf("hasSignMarker(%q): got %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"01/15/2025", "2025-01-15", false},
		{"02/10/2025", "2025-02-10", false}, // month first when ambiguous
		{"2025-01-15", "2025-01-15", false},
		{"15/01/2024", "2024-01-15", false},
		{"01-15-2025", "2025-01-15", false},
		{"Jan 5, 2024", "2024-01-05", false},
		{"JAN 5, 2024", "2024-01-05", false},
		{"January 5, 2024", "2024-01-05", false},
		{"2024/01/05", "2024-01-05", false},
		{"01/05/24", "2024-01-05", false},
		{"15-01-2024", "2024-01-15", false},
		{"5 Jan 2024", "2024-01-05", false},
		{"5-Jan-2024", "2024-01-05", false},
		{"5 Jan 24", "2024-01-05", false},
		{"5 January 2024", "2024-01-05", false},
		{"2024-01-05T23:30:00Z", "2024-01-05", false},
		{"2024-01-05 08:00:00", "2024-01-05", false},
		{"", "", true},
		{"31/31/2024", "", true},
		{"yesterday", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseShortDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10/02", "2025-10-02"},
		{"1-31", "2025-01-31"},
		{"4 Dec", "2025-12-04"},
		{"4-Dec", "2025-12-04"},
	}

	for _, tt := range tests {
		got, err := parseShortDate(tt.input, 2025)
		if err != nil {
			t.Errorf("parseShortDate(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got.String() != tt.expected {
			t.Errorf("parseShortDate(%q): got %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestFindAccountNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Account number: 12345678", "12345678"},
		{"Account No. ****1234", "****1234"},
		{"ACCOUNT # 1234-5678-90", "1234-5678-90"},
		{"Account holder: John Smith", ""},
		{"no details here", ""},
	}

	for _, tt := range tests {
		if got := findAccountNumber(tt.input); got != tt.expected {
			t.Errorf("findAccountNumber(%q): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestExtractPeriod(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Statement period: 01/01/2024 to 31/01/2024", "01/01/2024 to 31/01/2024"},
		{"Period 2025-01-01 - 2025-01-31", "2025-01-01 to 2025-01-31"},
		{"Statement Period 1 January 2024 to 31 January 2024", "1 January 2024 to 31 January 2024"},
		{"Opening balance 1,000.00", ""},
	}

	for _, tt := range tests {
		if got := extractPeriod(tt.input); got != tt.expected {
			t.Errorf("extractPeriod(%q): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}
