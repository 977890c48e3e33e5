package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Document is an invoice or receipt produced by the extraction pipeline.
// Only the four logical fields take part in reconciliation; the received
// payload is retained so results echo back whatever shape the caller sent.
type Document struct {
	ID         string
	VendorName string
	Amount     decimal.Decimal // compared as an absolute value
	Date       Date

	raw json.RawMessage
}

type documentJSON struct {
	ID         string          `json:"document_id"`
	VendorName string          `json:"vendorName"`
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"date"`
}

// documentPayload lists every location the extraction pipeline has been
// seen to put the vendor, amount and date.
type documentPayload struct {
	DocumentID   json.RawMessage `json:"document_id"`
	ID           json.RawMessage `json:"id"`
	VendorName   string          `json:"vendorName"`
	VendorSnake  string          `json:"vendor_name"`
	CompanyName  string          `json:"companyName"`
	Amount       json.RawMessage `json:"amount"`
	TotalAmount  json.RawMessage `json:"totalAmount"`
	Date         string          `json:"date"`
	DocumentDate string          `json:"documentDate"`

	DocumentMetadata *struct {
		DocumentDate string `json:"documentDate"`
		Source       struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"documentMetadata"`
	PartyInformation *struct {
		Vendor struct {
			Name string `json:"name"`
		} `json:"vendor"`
	} `json:"partyInformation"`
	FinancialData *struct {
		TotalAmount json.RawMessage `json:"totalAmount"`
	} `json:"financialData"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	return json.Marshal(documentJSON{
		ID:         d.ID,
		VendorName: d.VendorName,
		Amount:     d.Amount,
		Date:       d.Date,
	})
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var p documentPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	doc := Document{raw: append(json.RawMessage(nil), b...)}

	doc.ID = rawToString(p.DocumentID)
	if doc.ID == "" {
		doc.ID = rawToString(p.ID)
	}

	switch {
	case p.VendorName != "":
		doc.VendorName = p.VendorName
	case p.VendorSnake != "":
		doc.VendorName = p.VendorSnake
	case p.DocumentMetadata != nil && p.DocumentMetadata.Source.Name != "":
		doc.VendorName = p.DocumentMetadata.Source.Name
	case p.PartyInformation != nil && p.PartyInformation.Vendor.Name != "":
		doc.VendorName = p.PartyInformation.Vendor.Name
	default:
		doc.VendorName = p.CompanyName
	}

	amountRaw := p.Amount
	if isEmptyRaw(amountRaw) && p.FinancialData != nil {
		amountRaw = p.FinancialData.TotalAmount
	}
	if isEmptyRaw(amountRaw) {
		amountRaw = p.TotalAmount
	}
	if !isEmptyRaw(amountRaw) {
		amt, err := parseLooseAmount(amountRaw)
		if err != nil {
			return fmt.Errorf("document %q: %w", doc.ID, err)
		}
		doc.Amount = amt
	}

	dateStr := p.Date
	if dateStr == "" && p.DocumentMetadata != nil {
		dateStr = p.DocumentMetadata.DocumentDate
	}
	if dateStr == "" {
		dateStr = p.DocumentDate
	}
	if dateStr != "" {
		date, err := ParseISODate(dateStr)
		if err != nil {
			return fmt.Errorf("document %q: %w", doc.ID, err)
		}
		doc.Date = date
	}

	*d = doc
	return nil
}

func isEmptyRaw(r json.RawMessage) bool {
	return len(r) == 0 || bytes.Equal(r, []byte("null"))
}

func rawToString(r json.RawMessage) string {
	if isEmptyRaw(r) {
		return ""
	}
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r))
}

// parseLooseAmount accepts a JSON number or a string such as "$1,234.50".
func parseLooseAmount(r json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(r, &s); err != nil {
		s = string(r)
	}
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return amt, nil
}
