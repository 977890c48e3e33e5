package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/insightdelivered/statement-reconciler/internal/api"
	"github.com/insightdelivered/statement-reconciler/internal/config"
	"github.com/insightdelivered/statement-reconciler/internal/models"
	"github.com/insightdelivered/statement-reconciler/internal/parser"
	"github.com/insightdelivered/statement-reconciler/internal/reconcile"
	"github.com/insightdelivered/statement-reconciler/internal/writer"
)

type runOptions struct {
	contentType string
	output      string
	header      bool
	year        int
	documents   string
	report      string
	printJSON   bool
	threshold   int
}

func main() {
	typeFlag := flag.String("type", "", "Statement type: csv, tsv, pdf, pdf-text, xlsx, xls (inferred from the extension if omitted)")
	outputFlag := flag.String("output", "", "Write the parsed transactions to this CSV file")
	headerFlag := flag.Bool("header", true, "Include account metadata rows in the transactions CSV")
	yearFlag := flag.Int("year", 0, "Year for PDF dates printed without one (default: taken from the statement)")
	documentsFlag := flag.String("documents", "", "JSON file of documents to reconcile against")
	reportFlag := flag.String("report", "", "Write the reconciliation report to this CSV file")
	jsonFlag := flag.Bool("json", false, "Print the full reconciliation result as JSON")
	thresholdFlag := flag.Int("threshold", 0, "Auto-match threshold (default from config)")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of processing a file")
	configFlag := flag.String("config", "", "YAML configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Bank Statement Reconciler
by Insight Delivered (QEA AutoLens)

Parses bank statements (CSV, TSV, PDF, XLSX, XLS) into transactions and
reconciles them against invoices and receipts.

Usage:
  reconciler [flags] <statement>
  reconciler --serve [--config=config.yaml]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Parse a statement and write the transactions
  reconciler --output=transactions.csv statement.pdf

  # Reconcile against extracted documents
  reconciler --documents=invoices.json --report=report.csv statement.csv

  # Run the API
  reconciler --serve
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("reconciler v%s\n", api.Version)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("Error loading .env: %v\n", err)
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatalf("Error loading config: %v\n", err)
	}
	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	engine := reconcile.NewEngine(cfg.Matching, reconcile.WithLogger(logger))

	if *serveFlag {
		if err := serve(cfg, engine, logger); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	if *helpFlag || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(0)
	}

	opts := runOptions{
		contentType: *typeFlag,
		output:      *outputFlag,
		header:      *headerFlag,
		year:        *yearFlag,
		documents:   *documentsFlag,
		report:      *reportFlag,
		printJSON:   *jsonFlag,
		threshold:   *thresholdFlag,
	}
	if err := processFile(flag.Arg(0), opts, engine, logger); err != nil {
		fatalf("Error processing %s: %v\n", flag.Arg(0), err)
	}
}

func processFile(inputPath string, opts runOptions, engine *reconcile.Engine, logger *slog.Logger) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.Wrap(err, "read statement")
	}

	contentType := opts.contentType
	if contentType == "" {
		contentType = string(parser.ContentTypeFromFilename(inputPath))
	}
	if contentType == "" {
		return errors.Errorf("cannot infer statement type from %q, use --type", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	res, err := parser.ParseWithOptions(data, contentType, parser.Options{Year: opts.year, Logger: logger})
	if err != nil {
		return errors.Wrap(err, "parsing failed")
	}

	fmt.Printf("  Found %d transaction(s)\n", res.Count)
	for _, w := range res.Warnings {
		color.Yellow("  Warning: %s", w)
	}
	if res.LowConfidence {
		color.Yellow("  Low confidence: check the statement type or try the pdf-text input.")
	}
	if res.Metadata.AccountNumber != "" {
		fmt.Printf("  Account number: %s\n", res.Metadata.AccountNumber)
	}
	if res.Metadata.StatementPeriod != "" {
		fmt.Printf("  Period: %s\n", res.Metadata.StatementPeriod)
	}

	if opts.output != "" {
		w := &writer.TransactionWriter{IncludeMetadata: opts.header, Metadata: res.Metadata}
		if err := w.WriteToFile(opts.output, res.Transactions); err != nil {
			return errors.Wrap(err, "CSV write failed")
		}
		fmt.Printf("  Output: %s\n", opts.output)
	}

	if opts.documents == "" {
		fmt.Println("  Done.")
		return nil
	}

	docs, err := loadDocuments(opts.documents)
	if err != nil {
		return err
	}
	result := engine.Reconcile(docs, res.Transactions, opts.threshold)
	printSummary(os.Stdout, result)

	if opts.report != "" {
		if err := (&writer.ReportWriter{}).WriteToFile(opts.report, result); err != nil {
			return errors.Wrap(err, "report write failed")
		}
		fmt.Printf("  Report: %s\n", opts.report)
	}
	if opts.printJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode result")
		}
		fmt.Println(string(out))
	}
	return nil
}

// loadDocuments reads either a JSON array of documents or an object with a
// "documents" array.
func loadDocuments(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read documents")
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []models.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, errors.Wrapf(err, "decode documents %s", path)
		}
		return docs, nil
	}

	var wrapped struct {
		Documents []models.Document `json:"documents"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.Wrapf(err, "decode documents %s", path)
	}
	return wrapped.Documents, nil
}

func printSummary(w io.Writer, r *models.ReconciliationResult) {
	s := r.Summary
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Fprintf(w, "\nReconciliation: %d document(s), %d transaction(s)\n", s.TotalDocuments, s.TotalTransactions)

	green.Fprintf(w, "  Matched: %d\n", s.MatchedCount)
	for _, m := range r.Matched {
		fmt.Fprintf(w, "    %s <-> %s  score %d (%s)\n", m.Document.VendorName, m.Transaction.Description, m.Score, m.Confidence)
	}

	yellow.Fprintf(w, "  Suggested (review): %d\n", s.SuggestedMatchesCount)
	for _, m := range r.SuggestedMatches {
		fmt.Fprintf(w, "    %s <-> %s  score %d\n", m.Document.VendorName, m.Transaction.Description, m.Score)
	}

	red.Fprintf(w, "  Unmatched documents: %d\n", s.UnmatchedDocumentsCount)
	for _, d := range r.UnmatchedDocuments {
		fmt.Fprintf(w, "    %s %s %s\n", d.ID, d.VendorName, d.Amount.StringFixed(2))
	}

	red.Fprintf(w, "  Unmatched transactions: %d\n", s.UnmatchedTransactionsCount)
	for _, u := range r.UnmatchedTransactions {
		fmt.Fprintf(w, "    %s %s %s", u.Transaction.ID, u.Transaction.Description, u.Transaction.Amount.StringFixed(2))
		if n := len(u.PossibleMatches); n > 0 {
			fmt.Fprintf(w, "  (%d possible)", n)
		}
		fmt.Fprintln(w)
	}

	bold.Fprintf(w, "  Reconciliation rate: %.2f%%\n", s.ReconciliationRate)
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func serve(cfg config.Config, engine *reconcile.Engine, logger *slog.Logger) error {
	app := api.NewApp(cfg.Server, api.New(engine, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Listen(cfg.Server.Addr) }()
	logger.Info("listening", "addr", cfg.Server.Addr, "version", api.Version)

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
