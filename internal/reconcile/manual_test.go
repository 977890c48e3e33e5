package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-reconciler/internal/config"
	"github.com/insightdelivered/statement-reconciler/internal/models"
)

func TestManualMatchLowScoringPair(t *testing.T) {
	e := NewEngine(config.DefaultMatching())
	doc := document("doc-c", "Costco Wholesale", "89.95", jan(20))
	txn := transaction("bank_tx_2", "TARGET STORE", "-45.00", jan(25))

	m := e.ManualMatch(doc, txn)

	assert.Equal(t, models.MatchManual, m.Type)
	assert.Equal(t, models.ConfidenceUserVerified, m.Confidence)
	assert.False(t, m.RequiresReview)
	assert.Less(t, m.Score, 50)
	assert.Equal(t, m.Score, m.Details.TotalScore)
	assert.Equal(t, "doc-c", m.Document.ID)
	assert.Equal(t, "bank_tx_2", m.Transaction.ID)

	_, err := uuid.Parse(m.ID)
	require.NoError(t, err)
}

func TestManualMatchIdempotent(t *testing.T) {
	e := NewEngine(config.DefaultMatching())
	doc := document("doc-1", "Acme", "10.00", jan(1))
	txn := transaction("bank_tx_9", "ACME SUPPLY", "-10.00", jan(2))

	first := e.ManualMatch(doc, txn)
	second := e.ManualMatch(doc, txn)
	assert.Equal(t, first, second)

	other := e.ManualMatch(doc, transaction("bank_tx_10", "ACME SUPPLY", "-10.00", jan(2)))
	assert.NotEqual(t, first.ID, other.ID)
}

func TestMatchIDWithoutIDs(t *testing.T) {
	doc := document("", "Acme", "10.00", jan(1))
	txn := transaction("", "ACME", "-10.00", jan(1))

	assert.Equal(t, MatchID(doc, txn), MatchID(doc, txn))
	assert.NotEqual(t, MatchID(doc, txn), MatchID(document("", "Acme", "11.00", jan(1)), txn))
}

func TestApplyManualMatchFromPossible(t *testing.T) {
	docs, txns := scenarioInputs()
	e := NewEngine(config.DefaultMatching())
	result := e.Reconcile(docs, txns, 0)

	m := e.ManualMatch(docs[2], txns[2])
	result.ApplyManualMatch(m)

	assert.Empty(t, result.UnmatchedDocuments)
	assert.Empty(t, result.UnmatchedTransactions)
	require.Len(t, result.Matched, 2)
	assert.Equal(t, models.MatchManual, result.Matched[1].Type)
	assert.Equal(t, 2, result.Summary.MatchedCount)
	assert.Equal(t, 0, result.Summary.UnmatchedDocumentsCount)
	assert.Equal(t, 66.67, result.Summary.ReconciliationRate)

	before, err := json.Marshal(result)
	require.NoError(t, err)
	result.ApplyManualMatch(m)
	after, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestApplyManualMatchOverridesSuggestion(t *testing.T) {
	docs, txns := scenarioInputs()
	e := NewEngine(config.DefaultMatching())
	result := e.Reconcile(docs, txns, 0)
	require.Len(t, result.SuggestedMatches, 1)

	// The user pairs the AWS invoice with a different transaction.
	m := e.ManualMatch(docs[1], txns[2])
	result.ApplyManualMatch(m)

	assert.Empty(t, result.SuggestedMatches)
	require.Len(t, result.UnmatchedTransactions, 1)
	assert.Equal(t, "bank_tx_1", result.UnmatchedTransactions[0].Transaction.ID)
	require.Len(t, result.UnmatchedDocuments, 1)
	assert.Equal(t, "doc-c", result.UnmatchedDocuments[0].ID)
	assert.Equal(t, 2, result.Summary.MatchedCount)
	assert.Equal(t, 0, result.Summary.SuggestedMatchesCount)
}

func TestApplyManualMatchDropsDocumentFromPossibles(t *testing.T) {
	// every pair scores 65, so both transactions stay unmatched with possibles
	docs := []models.Document{
		document("d0", "Costco", "100.00", jan(10)),
		document("d1", "Costco", "100.00", jan(10)),
	}
	txns := []models.BankTransaction{
		transaction("t0", "COSTCO", "-80.00", jan(10)),
		transaction("t1", "COSTCO", "-80.00", jan(10)),
	}
	e := NewEngine(config.DefaultMatching())
	result := e.Reconcile(docs, txns, 0)
	require.Len(t, result.UnmatchedTransactions, 2)
	require.Len(t, result.UnmatchedTransactions[1].PossibleMatches, 2)

	result.ApplyManualMatch(e.ManualMatch(docs[0], txns[0]))

	require.Len(t, result.UnmatchedTransactions, 1)
	rest := result.UnmatchedTransactions[0]
	assert.Equal(t, "t1", rest.Transaction.ID)
	require.Len(t, rest.PossibleMatches, 1)
	assert.Equal(t, "d1", rest.PossibleMatches[0].Document.ID)
	require.Len(t, result.UnmatchedDocuments, 1)
	assert.Equal(t, "d1", result.UnmatchedDocuments[0].ID)
}
