package reconcile

import (
	"strings"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-reconciler/internal/models"
)

var matchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:statement-reconciler:match"))

// MatchID derives a stable id for a document/transaction pair. Documents or
// transactions without an id are keyed by their logical fields.
func MatchID(doc models.Document, txn models.BankTransaction) string {
	docKey := doc.ID
	if docKey == "" {
		docKey = strings.Join([]string{doc.VendorName, doc.Amount.String(), doc.Date.String()}, "/")
	}
	txnKey := txn.ID
	if txnKey == "" {
		txnKey = strings.Join([]string{txn.Description, txn.Amount.String(), txn.Date.String()}, "/")
	}
	return uuid.NewSHA1(matchNamespace, []byte(docKey+"|"+txnKey)).String()
}

// ManualMatch records a user-confirmed pairing. It always succeeds whatever
// the pair scores; the scores are kept for audit. Calling it again for the
// same pair returns an identical match.
func (e *Engine) ManualMatch(doc models.Document, txn models.BankTransaction) models.Match {
	c := e.scorer.Score(doc, txn)
	m := newMatch(c, models.MatchManual, models.ConfidenceUserVerified, false)
	e.logger.Debug("manual match recorded",
		"match_id", m.ID,
		"document_id", doc.ID,
		"transaction_id", txn.ID,
		"score", m.Score,
	)
	return m
}
