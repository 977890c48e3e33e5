package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// MatchType records how a pair was matched.
type MatchType string

const (
	MatchAutomatic MatchType = "automatic"
	MatchSuggested MatchType = "suggested"
	MatchManual    MatchType = "manual"
)

// Confidence is the human-facing confidence label of a match.
type Confidence string

const (
	ConfidenceHigh         Confidence = "high"
	ConfidenceMedium       Confidence = "medium"
	ConfidenceLow          Confidence = "low"
	ConfidenceUserVerified Confidence = "user_verified"
)

// ScoreDetails explains how a document/transaction pair was scored.
type ScoreDetails struct {
	NameScore   int `json:"name_score"`
	AmountScore int `json:"amount_score"`
	DateScore   int `json:"date_score"`
	TotalScore  int `json:"total_score"`

	NameStrategy          string          `json:"name_strategy,omitempty"`
	NormalizedVendor      string          `json:"normalized_vendor"`
	NormalizedDescription string          `json:"normalized_description"`
	AmountDifference      decimal.Decimal `json:"amount_difference"`
	DaysDifference        *int            `json:"days_difference,omitempty"`
}

// MatchCandidate is one scored document/transaction pairing.
type MatchCandidate struct {
	Document    Document
	Transaction BankTransaction
	ScoreDetails
}

// Match is a document/transaction pair placed in matched or suggested.
type Match struct {
	ID             string          `json:"match_id"`
	Document       Document        `json:"document"`
	Transaction    BankTransaction `json:"transaction"`
	Score          int             `json:"match_score"`
	Type           MatchType       `json:"match_type"`
	Confidence     Confidence      `json:"confidence"`
	RequiresReview bool            `json:"requires_review"`
	Details        ScoreDetails    `json:"match_details"`
}

// PossibleMatch is an advisory candidate attached to an unmatched transaction.
type PossibleMatch struct {
	Document Document     `json:"document"`
	Score    int          `json:"score"`
	Details  ScoreDetails `json:"match_details"`
}

// UnmatchedTransaction is a transaction left over after assignment.
type UnmatchedTransaction struct {
	Transaction     BankTransaction `json:"transaction"`
	PossibleMatches []PossibleMatch `json:"possible_matches"`
}

type Summary struct {
	TotalDocuments             int     `json:"total_documents"`
	TotalTransactions          int     `json:"total_transactions"`
	MatchedCount               int     `json:"matched_count"`
	SuggestedMatchesCount      int     `json:"suggested_matches_count"`
	UnmatchedDocumentsCount    int     `json:"unmatched_documents_count"`
	UnmatchedTransactionsCount int     `json:"unmatched_transactions_count"`
	ReconciliationRate         float64 `json:"reconciliation_rate"`
}

// ReconciliationResult partitions every document and transaction of one run.
type ReconciliationResult struct {
	Matched               []Match                `json:"matched"`
	SuggestedMatches      []Match                `json:"suggested_matches"`
	UnmatchedDocuments    []Document             `json:"unmatched_documents"`
	UnmatchedTransactions []UnmatchedTransaction `json:"unmatched_transactions"`
	Summary               Summary                `json:"summary"`
}

// Recount refreshes the summary counts from the partitions. Totals are left
// untouched.
func (r *ReconciliationResult) Recount() {
	r.Summary.MatchedCount = len(r.Matched)
	r.Summary.SuggestedMatchesCount = len(r.SuggestedMatches)
	r.Summary.UnmatchedDocumentsCount = len(r.UnmatchedDocuments)
	r.Summary.UnmatchedTransactionsCount = len(r.UnmatchedTransactions)
	r.Summary.ReconciliationRate = ReconciliationRate(r.Summary.MatchedCount, r.Summary.TotalDocuments)
}

// ReconciliationRate returns matched/total as a percentage rounded to two
// decimals, or 0 when there are no documents.
func ReconciliationRate(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(matched)/float64(total)*100*100) / 100
}

// ApplyManualMatch moves a manually confirmed pair into Matched. Any matched
// or suggested entry that already used the document or the transaction is
// dissolved and its other side returned to the unmatched lists. The document
// is also dropped from the possible matches of every transaction left
// unmatched. Applying the same match twice leaves the result unchanged.
func (r *ReconciliationResult) ApplyManualMatch(m Match) {
	var freedDocs []Document
	var freedTxns []BankTransaction

	r.Matched = dissolve(r.Matched, m, &freedDocs, &freedTxns)
	r.SuggestedMatches = dissolve(r.SuggestedMatches, m, &freedDocs, &freedTxns)

	docs := r.UnmatchedDocuments[:0:0]
	for _, d := range r.UnmatchedDocuments {
		if !SameDocument(d, m.Document) {
			docs = append(docs, d)
		}
	}
	r.UnmatchedDocuments = append(docs, freedDocs...)

	txns := r.UnmatchedTransactions[:0:0]
	for _, u := range r.UnmatchedTransactions {
		if SameTransaction(u.Transaction, m.Transaction) {
			continue
		}
		u.PossibleMatches = withoutDocument(u.PossibleMatches, m.Document)
		txns = append(txns, u)
	}
	for _, t := range freedTxns {
		txns = append(txns, UnmatchedTransaction{Transaction: t, PossibleMatches: []PossibleMatch{}})
	}
	r.UnmatchedTransactions = txns

	r.Matched = append(r.Matched, m)
	r.Recount()
}

func withoutDocument(pm []PossibleMatch, d Document) []PossibleMatch {
	kept := make([]PossibleMatch, 0, len(pm))
	for _, p := range pm {
		if !SameDocument(p.Document, d) {
			kept = append(kept, p)
		}
	}
	return kept
}

func dissolve(matches []Match, m Match, freedDocs *[]Document, freedTxns *[]BankTransaction) []Match {
	kept := matches[:0:0]
	for _, existing := range matches {
		sameDoc := SameDocument(existing.Document, m.Document)
		sameTxn := SameTransaction(existing.Transaction, m.Transaction)
		switch {
		case sameDoc && sameTxn:
		case sameDoc:
			*freedTxns = append(*freedTxns, existing.Transaction)
		case sameTxn:
			*freedDocs = append(*freedDocs, existing.Document)
		default:
			kept = append(kept, existing)
		}
	}
	return kept
}

// SameDocument compares by id, falling back to the logical fields when
// either side has no id.
func SameDocument(a, b Document) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.VendorName == b.VendorName && a.Amount.Equal(b.Amount) && a.Date.Equal(b.Date.Time)
}

func SameTransaction(a, b BankTransaction) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.Description == b.Description && a.Amount.Equal(b.Amount) && a.Date.Equal(b.Date.Time)
}
