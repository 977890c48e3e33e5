// Package api exposes statement parsing and reconciliation over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/insightdelivered/statement-reconciler/internal/config"
	"github.com/insightdelivered/statement-reconciler/internal/models"
	"github.com/insightdelivered/statement-reconciler/internal/parser"
	"github.com/insightdelivered/statement-reconciler/internal/reconcile"
	"github.com/insightdelivered/statement-reconciler/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "1.2.0"

// ParseResponse is the JSON response from the parse endpoint.
type ParseResponse struct {
	Success       bool                      `json:"success"`
	Error         string                    `json:"error,omitempty"`
	Kind          parser.ErrorKind          `json:"kind,omitempty"`
	Missing       []string                  `json:"missing,omitempty"`
	Transactions  []models.BankTransaction  `json:"transactions"`
	Count         int                       `json:"count"`
	Warnings      []parser.Warning          `json:"warnings"`
	LowConfidence bool                      `json:"low_confidence"`
	Metadata      *models.StatementMetadata `json:"metadata,omitempty"`
	CSV           string                    `json:"csv,omitempty"`
	Trace         []models.LineTrace        `json:"trace,omitempty"`
}

// ReconcileRequest is the body of the reconcile endpoint. Transactions may
// also be sent as bank_transactions.
type ReconcileRequest struct {
	Documents          []models.Document        `json:"documents"`
	Transactions       []models.BankTransaction `json:"transactions"`
	BankTransactions   []models.BankTransaction `json:"bank_transactions"`
	AutoMatchThreshold int                      `json:"auto_match_threshold"`
}

// ReconcileResponse wraps a reconciliation result.
type ReconcileResponse struct {
	Success bool                         `json:"success"`
	Results *models.ReconciliationResult `json:"results"`
}

// ManualMatchRequest pairs a document with a transaction chosen by a user.
// When Result is set the pair is applied to it and the amended result is
// returned.
type ManualMatchRequest struct {
	Document    *models.Document             `json:"document"`
	Transaction *models.BankTransaction      `json:"transaction"`
	Result      *models.ReconciliationResult `json:"result,omitempty"`
}

// ManualMatchResponse is the JSON response from the manual match endpoint.
type ManualMatchResponse struct {
	Success bool                         `json:"success"`
	Match   models.Match                 `json:"match"`
	Result  *models.ReconciliationResult `json:"result,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	engine *reconcile.Engine
	logger *slog.Logger
}

// New returns a handler backed by engine.
func New(engine *reconcile.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// NewApp builds a fiber app with middleware and all routes registered.
func NewApp(cfg config.Server, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-reconciler",
		BodyLimit:             cfg.BodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(requestLogger(h.logger))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigin,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the API routes on r.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	api := r.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Post("/statements/parse", h.HandleParse)
	api.Post("/reconcile", h.HandleReconcile)
	api.Post("/manual-match", h.HandleManualMatch)
}

// HandleHealth reports service liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleParse parses an uploaded statement from the multipart field "file".
// The content type comes from the "content_type" form value, then the file
// extension, then the part's own Content-Type header.
func (h *Handler) HandleParse(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
	}

	contentType := c.FormValue("content_type")
	if contentType == "" {
		contentType = string(parser.ContentTypeFromFilename(fh.Filename))
	}
	if contentType == "" {
		contentType = fh.Header.Get("Content-Type")
	}

	opts := parser.Options{Trace: c.FormValue("trace") == "true", Logger: h.logger}
	if y := c.FormValue("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid year %q", y))
		}
		opts.Year = year
	}

	res, err := parser.ParseWithOptions(data, contentType, opts)
	if err != nil {
		return writeParseError(c, err)
	}

	var csvBuf bytes.Buffer
	w := &writer.TransactionWriter{IncludeMetadata: c.FormValue("header") != "false", Metadata: res.Metadata}
	if err := w.Write(&csvBuf, res.Transactions); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	h.logger.Info("statement parsed",
		"file", fh.Filename,
		"content_type", contentType,
		"transactions", res.Count,
		"warnings", len(res.Warnings),
		"low_confidence", res.LowConfidence,
	)

	return c.JSON(ParseResponse{
		Success:       true,
		Transactions:  res.Transactions,
		Count:         res.Count,
		Warnings:      res.Warnings,
		LowConfidence: res.LowConfidence,
		Metadata:      &res.Metadata,
		CSV:           csvBuf.String(),
		Trace:         res.Trace,
	})
}

// HandleReconcile reconciles documents against bank transactions.
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if req.AutoMatchThreshold > 100 {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("auto_match_threshold must be at most 100: %d", req.AutoMatchThreshold))
	}

	txns := req.Transactions
	if len(txns) == 0 {
		txns = req.BankTransactions
	}
	for i := range txns {
		if txns[i].Type == "" {
			txns[i].Type = models.TypeOf(txns[i].Amount)
		}
	}

	result := h.engine.Reconcile(req.Documents, txns, req.AutoMatchThreshold)
	h.logger.Info("reconciliation served",
		"documents", result.Summary.TotalDocuments,
		"transactions", result.Summary.TotalTransactions,
		"matched", result.Summary.MatchedCount,
		"suggested", result.Summary.SuggestedMatchesCount,
	)
	return c.JSON(ReconcileResponse{Success: true, Results: result})
}

// HandleManualMatch records a user-chosen pair.
func (h *Handler) HandleManualMatch(c *fiber.Ctx) error {
	var req ManualMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if req.Document == nil || req.Transaction == nil {
		return writeError(c, fiber.StatusBadRequest, "Both document and transaction are required.")
	}
	if req.Transaction.Type == "" {
		req.Transaction.Type = models.TypeOf(req.Transaction.Amount)
	}

	m := h.engine.ManualMatch(*req.Document, *req.Transaction)
	if req.Result != nil {
		req.Result.ApplyManualMatch(m)
	}
	return c.JSON(ManualMatchResponse{Success: true, Match: m, Result: req.Result})
}

func writeParseError(c *fiber.Ctx, err error) error {
	resp := ParseResponse{
		Success:      false,
		Error:        err.Error(),
		Transactions: []models.BankTransaction{},
		Warnings:     []parser.Warning{},
	}
	var mce *parser.MissingColumnsError
	var pe *parser.ParseError
	switch {
	case errors.As(err, &mce):
		resp.Kind = mce.Kind
		resp.Missing = mce.Missing
	case errors.As(err, &pe):
		resp.Kind = pe.Kind
	default:
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorResponse{Success: false, Error: msg})
}

// errorHandler renders errors returned from handlers and middleware,
// including recovered panics and body limit rejections.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return writeError(c, status, err.Error())
}

// requestLogger logs one line per request after the response is written.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
		)
		return nil
	}
}
