// Package extractor pulls page text out of PDF bank statements.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable means no method produced text that looks like a statement.
var ErrUnreadable = errors.New("no readable text in PDF; it may be scanned or use custom font encodings")

// pageMethod is one way of turning the pages of a PDF into text.
type pageMethod struct {
	name string
	fn   func(r *pdf.Reader, numPages int) []string
}

var pageMethods = []pageMethod{
	{"rows", textByRow},
	{"content", textByContent},
	{"page_plain", textByPagePlainText},
	{"reader_plain", func(r *pdf.Reader, _ int) []string { return textByReaderPlainText(r) }},
}

// Pages is the text of each page plus how it was obtained.
type Pages struct {
	Text     []string
	Method   string
	Readable bool
}

// ExtractText returns the text of every page in the PDF. Library methods are
// tried in order, then the pdftotext command when it is installed. If
// nothing readable comes out, the best effort is returned with
// Readable=false alongside ErrUnreadable. A nil logger uses slog.Default.
func ExtractText(ctx context.Context, data []byte, logger *slog.Logger) (*Pages, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pages, libErr := extractWithLibrary(data, logger)
	if libErr == nil && pages.Readable {
		return pages, nil
	}

	if fallback, err := extractWithPdftotext(ctx, data); err == nil && IsReadableText(fallback) {
		return &Pages{Text: fallback, Method: "pdftotext", Readable: true}, nil
	} else if err != nil {
		logger.Debug("pdftotext fallback unavailable", "error", err)
	}

	if libErr != nil {
		return nil, fmt.Errorf("extract pdf text: %w", libErr)
	}
	return pages, ErrUnreadable
}

func extractWithLibrary(data []byte, logger *slog.Logger) (pages *Pages, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, errors.New("pdf has no pages")
	}

	var best *Pages
	for _, m := range pageMethods {
		text := m.fn(r, numPages)
		if IsReadableText(text) {
			logger.Debug("pdf text extracted", "method", m.name, "pages", len(text))
			return &Pages{Text: text, Method: m.name, Readable: true}, nil
		}
		if best == nil && totalTextLen(text) > 0 {
			best = &Pages{Text: text, Method: m.name}
		}
	}
	if best == nil {
		best = &Pages{Text: []string{}}
	}
	return best, nil
}

// readableRunes are the characters counted as ordinary statement text. A
// strict ASCII set keeps identity-encoded font garbage from passing.
const readableRunes = ".,-/:;()'\"£$€%&@#!?+=*"

func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				readable++
			case r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '\f':
				readable++
			case strings.ContainsRune(readableRunes, r):
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// statementWords appear in nearly every bank statement.
var statementWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "deposit",
	"withdrawal", "opening", "closing", "transfer", "period", "page",
}

func containsStatementWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range statementWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}

// IsReadableText reports whether pages hold more than 50 characters of
// mostly plain text that mentions at least one statement word.
func IsReadableText(pages []string) bool {
	return totalTextLen(pages) > 50 &&
		textQuality(pages) > 0.6 &&
		containsStatementWords(pages)
}

// extractWithPdftotext runs poppler's pdftotext on a temporary copy.
func extractWithPdftotext(ctx context.Context, data []byte) ([]string, error) {
	bin, err := exec.LookPath("pdftotext")
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	var pages []string
	for _, p := range strings.Split(string(out), "\f") {
		if p = strings.TrimSpace(p); p != "" {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, errors.New("pdftotext produced no output")
	}
	return pages, nil
}

func textByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// columnGap is the horizontal distance that separates two columns.
const columnGap = 15

// textByContent rebuilds lines from positioned text, grouping by Y and
// ordering by X.
func textByContent(r *pdf.Reader, numPages int) []string {
	type piece struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		byY := make(map[int][]piece)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			byY[y] = append(byY[y], piece{x: t.X, s: t.S})
		}

		ys := make([]int, 0, len(byY))
		for y := range byY {
			ys = append(ys, y)
		}
		// PDF Y grows upwards.
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		lines := make([]string, 0, len(ys))
		for _, y := range ys {
			row := byY[y]
			sort.SliceStable(row, func(a, b int) bool { return row[a].x < row[b].x })

			var b strings.Builder
			for j, p := range row {
				if j > 0 && p.x-row[j-1].x > columnGap {
					b.WriteString("  ")
				}
				b.WriteString(p.s)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func textByPagePlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func textByReaderPlainText(r *pdf.Reader) []string {
	rd, err := r.GetPlainText()
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return []string{text}
	}
	return nil
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
