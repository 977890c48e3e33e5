package reconcile

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-reconciler/internal/config"
	"github.com/insightdelivered/statement-reconciler/internal/models"
)

func jan(day int) models.Date {
	return models.NewDate(2025, time.January, day)
}

func document(id, vendor, amount string, date models.Date) models.Document {
	return models.Document{ID: id, VendorName: vendor, Amount: decimal.RequireFromString(amount), Date: date}
}

func transaction(id, desc, amount string, date models.Date) models.BankTransaction {
	return models.NewBankTransaction(id, date, desc, decimal.RequireFromString(amount))
}

func scenarioInputs() ([]models.Document, []models.BankTransaction) {
	docs := []models.Document{
		document("doc-a", "Walmart Inc.", "125.50", jan(10)),
		document("doc-b", "Amazon Web Services LLC", "49.99", jan(15)),
		document("doc-c", "Costco Wholesale", "89.95", jan(20)),
	}
	txns := []models.BankTransaction{
		transaction("bank_tx_0", "WALMART #1234", "-125.50", jan(10)),
		transaction("bank_tx_1", "AWS MONTHLY", "-49.99", jan(17)),
		transaction("bank_tx_2", "TARGET STORE", "-45.00", jan(25)),
	}
	return docs, txns
}

func TestReconcileScenarios(t *testing.T) {
	docs, txns := scenarioInputs()
	result := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)

	require.Len(t, result.Matched, 1)
	m := result.Matched[0]
	assert.Equal(t, "doc-a", m.Document.ID)
	assert.Equal(t, "bank_tx_0", m.Transaction.ID)
	assert.Equal(t, models.MatchAutomatic, m.Type)
	assert.Equal(t, models.ConfidenceHigh, m.Confidence)
	assert.False(t, m.RequiresReview)
	assert.GreaterOrEqual(t, m.Score, 97)

	require.Len(t, result.SuggestedMatches, 1)
	s := result.SuggestedMatches[0]
	assert.Equal(t, "doc-b", s.Document.ID)
	assert.Equal(t, "bank_tx_1", s.Transaction.ID)
	assert.Equal(t, models.MatchSuggested, s.Type)
	assert.Equal(t, models.ConfidenceLow, s.Confidence)
	assert.True(t, s.RequiresReview)
	assert.Equal(t, 87, s.Score)

	require.Len(t, result.UnmatchedDocuments, 1)
	assert.Equal(t, "doc-c", result.UnmatchedDocuments[0].ID)
	require.Len(t, result.UnmatchedTransactions, 1)
	assert.Equal(t, "bank_tx_2", result.UnmatchedTransactions[0].Transaction.ID)
	assert.Empty(t, result.UnmatchedTransactions[0].PossibleMatches)

	assert.Equal(t, models.Summary{
		TotalDocuments:             3,
		TotalTransactions:          3,
		MatchedCount:               1,
		SuggestedMatchesCount:      1,
		UnmatchedDocumentsCount:    1,
		UnmatchedTransactionsCount: 1,
		ReconciliationRate:         33.33,
	}, result.Summary)
}

func TestReconcileEmptyInputs(t *testing.T) {
	e := NewEngine(config.DefaultMatching())

	tests := []struct {
		name string
		docs []models.Document
		txns []models.BankTransaction
	}{
		{"nothing", nil, nil},
		{"documents only", []models.Document{document("d", "Acme", "10", jan(1))}, nil},
		{"transactions only", nil, []models.BankTransaction{transaction("t", "ACME", "-10", jan(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Reconcile(tt.docs, tt.txns, 0)
			assert.Empty(t, r.Matched)
			assert.Empty(t, r.SuggestedMatches)
			assert.Len(t, r.UnmatchedDocuments, len(tt.docs))
			assert.Len(t, r.UnmatchedTransactions, len(tt.txns))
			assert.Equal(t, 0.0, r.Summary.ReconciliationRate)

			// Empty partitions serialize as arrays, not null.
			b, err := json.Marshal(r)
			require.NoError(t, err)
			assert.Contains(t, string(b), `"matched":[]`)
			assert.Contains(t, string(b), `"suggested_matches":[]`)
		})
	}
}

func TestReconcileThresholdBoundary(t *testing.T) {
	// name 100, amount 80 (1% off), date 100 => total 93
	docs := []models.Document{document("d", "Netflix", "100.00", jan(10))}
	txns := []models.BankTransaction{transaction("t", "NETFLIX", "-99.00", jan(10))}
	e := NewEngine(config.DefaultMatching())

	at := e.Reconcile(docs, txns, 93)
	require.Len(t, at.Matched, 1)
	assert.Equal(t, 93, at.Matched[0].Score)
	assert.Equal(t, models.ConfidenceMedium, at.Matched[0].Confidence)

	above := e.Reconcile(docs, txns, 94)
	assert.Empty(t, above.Matched)
	require.Len(t, above.SuggestedMatches, 1)
	assert.Equal(t, 93, above.SuggestedMatches[0].Score)

	for _, threshold := range []int{80, 60} {
		low := e.Reconcile(docs, txns, threshold)
		require.Len(t, low.Matched, 1, "threshold %d", threshold)
		assert.Equal(t, models.MatchAutomatic, low.Matched[0].Type)
		assert.Empty(t, low.SuggestedMatches)
	}
}

func TestReconcileLowThresholdKeepsAssignmentFloor(t *testing.T) {
	// name 100, amount 0 (50% off), date 100 => total 65
	docs := []models.Document{document("d", "Netflix", "100.00", jan(10))}
	txns := []models.BankTransaction{transaction("t", "NETFLIX", "-50.00", jan(10))}
	e := NewEngine(config.DefaultMatching())

	for _, threshold := range []int{80, 65, 60, 1} {
		r := e.Reconcile(docs, txns, threshold)
		assert.Empty(t, r.Matched, "threshold %d", threshold)
		assert.Empty(t, r.SuggestedMatches, "threshold %d", threshold)
		require.Len(t, r.UnmatchedDocuments, 1)
		require.Len(t, r.UnmatchedTransactions, 1)
		require.Len(t, r.UnmatchedTransactions[0].PossibleMatches, 1)
		assert.Equal(t, 65, r.UnmatchedTransactions[0].PossibleMatches[0].Score)
		assert.Equal(t, 0.0, r.Summary.ReconciliationRate)
	}
}

func TestReconcileSuggestionFloor(t *testing.T) {
	// name 100, amount 50, date 80 => total 80
	docs := []models.Document{document("d", "Spotify", "100.00", jan(10))}
	txns := []models.BankTransaction{transaction("t", "SPOTIFY", "-96.00", jan(11))}

	cfg := config.DefaultMatching()
	r := NewEngine(cfg).Reconcile(docs, txns, 0)
	require.Len(t, r.SuggestedMatches, 1)
	assert.Equal(t, 80, r.SuggestedMatches[0].Score)

	cfg.NameThreshold = 81
	r = NewEngine(cfg).Reconcile(docs, txns, 0)
	assert.Empty(t, r.SuggestedMatches)
	require.Len(t, r.UnmatchedTransactions, 1)
	require.Len(t, r.UnmatchedTransactions[0].PossibleMatches, 1)
	assert.Equal(t, 80, r.UnmatchedTransactions[0].PossibleMatches[0].Score)
}

func TestReconcileOneToOne(t *testing.T) {
	docs := []models.Document{
		document("d1", "Staples", "42.00", jan(5)),
		document("d2", "Staples", "42.00", jan(5)),
	}
	txns := []models.BankTransaction{
		transaction("t1", "STAPLES 0091", "-42.00", jan(5)),
	}

	r := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)
	require.Len(t, r.Matched, 1)
	assert.Equal(t, "d1", r.Matched[0].Document.ID, "ties go to the earlier document")
	require.Len(t, r.UnmatchedDocuments, 1)
	assert.Equal(t, "d2", r.UnmatchedDocuments[0].ID)
	assert.Empty(t, r.UnmatchedTransactions)
}

func TestReconcileGreedyTakesHighestFirst(t *testing.T) {
	docs := []models.Document{
		document("d1", "Uber", "20.00", jan(3)),
		document("d2", "Uber", "20.00", jan(5)),
	}
	txns := []models.BankTransaction{
		transaction("t1", "UBER TRIP", "-20.00", jan(4)),
		transaction("t2", "UBER TRIP", "-20.00", jan(5)),
	}

	r := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)

	pairs := map[string]string{}
	for _, m := range append(r.Matched, r.SuggestedMatches...) {
		pairs[m.Document.ID] = m.Transaction.ID
	}
	assert.Equal(t, "t2", pairs["d2"], "same-day pair is assigned first")
	assert.Equal(t, "t1", pairs["d1"])
}

func TestReconcilePartitionsAreDisjoint(t *testing.T) {
	var docs []models.Document
	var txns []models.BankTransaction
	vendors := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}
	for i, v := range vendors {
		docs = append(docs, document(fmt.Sprintf("d%d", i), v, fmt.Sprintf("%d.00", 10*(i+1)), jan(i+1)))
		txns = append(txns, transaction(fmt.Sprintf("t%d", i), v+" PAYMENT", fmt.Sprintf("-%d.00", 10*(i+1)), jan(i+2)))
	}
	txns = append(txns, transaction("t-extra", "ACME REFUND", "10.00", jan(1)))

	r := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)

	seenDocs := map[string]int{}
	seenTxns := map[string]int{}
	for _, m := range append(r.Matched, r.SuggestedMatches...) {
		seenDocs[m.Document.ID]++
		seenTxns[m.Transaction.ID]++
	}
	for _, d := range r.UnmatchedDocuments {
		seenDocs[d.ID]++
	}
	for _, u := range r.UnmatchedTransactions {
		seenTxns[u.Transaction.ID]++
	}

	assert.Len(t, seenDocs, len(docs))
	assert.Len(t, seenTxns, len(txns))
	for id, n := range seenDocs {
		assert.Equal(t, 1, n, "document %s appears %d times", id)
	}
	for id, n := range seenTxns {
		assert.Equal(t, 1, n, "transaction %s appears %d times", id)
	}
}

func TestReconcileDeterministic(t *testing.T) {
	docs, txns := scenarioInputs()
	e := NewEngine(config.DefaultMatching())

	first, err := json.Marshal(e.Reconcile(docs, txns, 0))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(e.Reconcile(docs, txns, 0))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
	}
}

func TestReconcilePossibleMatches(t *testing.T) {
	// name 100, amount 0, date 100 => total 65 for every document
	var docs []models.Document
	for i := 0; i < 7; i++ {
		docs = append(docs, document(fmt.Sprintf("d%d", i), "Costco", "100.00", jan(10)))
	}
	txns := []models.BankTransaction{transaction("t", "COSTCO", "-80.00", jan(10))}

	r := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)
	require.Len(t, r.UnmatchedTransactions, 1)
	pm := r.UnmatchedTransactions[0].PossibleMatches
	require.Len(t, pm, 5)
	for i, p := range pm {
		assert.Equal(t, 65, p.Score)
		assert.Equal(t, fmt.Sprintf("d%d", i), p.Document.ID)
	}
}

func TestReconcilePossibleMatchesSortedDescending(t *testing.T) {
	docs := []models.Document{
		document("low", "Costco", "100.00", jan(13)),  // 50 + 0 + 6 = 56
		document("high", "Costco", "100.00", jan(10)), // 50 + 0 + 15 = 65
	}
	txns := []models.BankTransaction{transaction("t", "COSTCO", "-80.00", jan(10))}

	r := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)
	require.Len(t, r.UnmatchedTransactions, 1)
	pm := r.UnmatchedTransactions[0].PossibleMatches
	require.Len(t, pm, 2)
	assert.Equal(t, "high", pm[0].Document.ID)
	assert.Equal(t, "low", pm[1].Document.ID)
	assert.Greater(t, pm[0].Score, pm[1].Score)
}

func TestReconcilePrefilterByAmount(t *testing.T) {
	docs, txns := scenarioInputs()
	docs = append(docs, document("doc-d", "Costco", "100.00", jan(10)))
	txns = append(txns, transaction("bank_tx_3", "COSTCO", "-80.00", jan(10)))

	plain := NewEngine(config.DefaultMatching()).Reconcile(docs, txns, 0)

	cfg := config.DefaultMatching()
	cfg.PrefilterByAmount = true
	filtered := NewEngine(cfg).Reconcile(docs, txns, 0)

	assert.Equal(t, plain.Matched, filtered.Matched)
	assert.Equal(t, plain.SuggestedMatches, filtered.SuggestedMatches)
	assert.Equal(t, plain.UnmatchedDocuments, filtered.UnmatchedDocuments)

	var plainCostco, filteredCostco models.UnmatchedTransaction
	for _, u := range plain.UnmatchedTransactions {
		if u.Transaction.ID == "bank_tx_3" {
			plainCostco = u
		}
	}
	for _, u := range filtered.UnmatchedTransactions {
		if u.Transaction.ID == "bank_tx_3" {
			filteredCostco = u
		}
	}
	assert.NotEmpty(t, plainCostco.PossibleMatches)
	assert.Empty(t, filteredCostco.PossibleMatches, "pairs outside the amount band are never scored")
}

func TestClassifyAutoMatchBelowFloor(t *testing.T) {
	tests := []struct {
		total int
		want  Outcome
	}{
		{95, Automatic{Confidence: models.ConfidenceHigh}},
		{80, Automatic{Confidence: models.ConfidenceMedium}},
		{79, Possible{Score: 79}},
		{65, Possible{Score: 65}},
		{60, Possible{Score: 60}},
		{49, NoMatch{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total), func(t *testing.T) {
			c := models.MatchCandidate{ScoreDetails: models.ScoreDetails{TotalScore: tt.total}}
			got := Classify(c, 60, 80, 50)
			assert.IsType(t, tt.want, got)
			if want, ok := tt.want.(Automatic); ok {
				assert.Equal(t, want.Confidence, got.(Automatic).Confidence)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		total int
		want  Outcome
	}{
		{100, Automatic{Confidence: models.ConfidenceHigh}},
		{95, Automatic{Confidence: models.ConfidenceHigh}},
		{94, Automatic{Confidence: models.ConfidenceMedium}},
		{90, Automatic{Confidence: models.ConfidenceMedium}},
		{89, Suggested{}},
		{80, Suggested{}},
		{79, Possible{Score: 79}},
		{50, Possible{Score: 50}},
		{49, NoMatch{}},
		{0, NoMatch{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total), func(t *testing.T) {
			c := models.MatchCandidate{ScoreDetails: models.ScoreDetails{TotalScore: tt.total}}
			got := Classify(c, 90, 80, 50)
			switch want := tt.want.(type) {
			case Automatic:
				a, ok := got.(Automatic)
				require.True(t, ok, "got %T", got)
				assert.Equal(t, want.Confidence, a.Confidence)
			case Suggested:
				assert.IsType(t, Suggested{}, got)
			case Possible:
				p, ok := got.(Possible)
				require.True(t, ok, "got %T", got)
				assert.Equal(t, want.Score, p.Score)
			case NoMatch:
				assert.IsType(t, NoMatch{}, got)
			}
		})
	}
}
