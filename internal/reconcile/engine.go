// Package reconcile assigns bank transactions to documents.
//
// Every document/transaction pair is scored, candidates are walked from the
// highest total down and each pair whose endpoints are both still free is
// assigned. Assignment is one-to-one and never revisited. Candidates below the
// suggestion floor are kept only as advisory possible matches on the
// transactions that end up unmatched.
package reconcile

import (
	"cmp"
	"log/slog"
	"slices"
	"sort"

	"github.com/insightdelivered/statement-reconciler/internal/config"
	"github.com/insightdelivered/statement-reconciler/internal/models"
	"github.com/insightdelivered/statement-reconciler/internal/scoring"
)

// Engine runs reconciliations. It holds no state between calls and is safe
// for concurrent use.
type Engine struct {
	cfg    config.Matching
	scorer *scoring.Scorer
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithScorer replaces the default scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// NewEngine returns an engine for the given matching settings.
func NewEngine(cfg config.Matching, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		scorer: scoring.New(cfg),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's matching settings.
func (e *Engine) Config() config.Matching {
	return e.cfg
}

// Scorer returns the scorer the engine uses.
func (e *Engine) Scorer() *scoring.Scorer {
	return e.scorer
}

// scored is a candidate with the input positions of its endpoints.
type scored struct {
	doc, txn  int
	candidate models.MatchCandidate
}

// Reconcile matches documents against transactions. A threshold of zero or
// less uses the configured auto-match threshold.
func (e *Engine) Reconcile(docs []models.Document, txns []models.BankTransaction, autoMatchThreshold int) *models.ReconciliationResult {
	if autoMatchThreshold <= 0 {
		autoMatchThreshold = e.cfg.AutoMatchThreshold
	}

	candidates := e.scoreAll(docs, txns)
	slices.SortStableFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.candidate.TotalScore, a.candidate.TotalScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.doc, b.doc); c != 0 {
			return c
		}
		return cmp.Compare(a.txn, b.txn)
	})

	result := &models.ReconciliationResult{
		Matched:               []models.Match{},
		SuggestedMatches:      []models.Match{},
		UnmatchedDocuments:    []models.Document{},
		UnmatchedTransactions: []models.UnmatchedTransaction{},
	}

	docUsed := make([]bool, len(docs))
	txnUsed := make([]bool, len(txns))
	possibles := make([][]models.PossibleMatch, len(txns))

	for _, s := range candidates {
		switch o := Classify(s.candidate, autoMatchThreshold, e.cfg.NameThreshold, e.cfg.PossibleMatchFloor).(type) {
		case Automatic:
			if docUsed[s.doc] || txnUsed[s.txn] {
				continue
			}
			docUsed[s.doc], txnUsed[s.txn] = true, true
			result.Matched = append(result.Matched, newMatch(o.Candidate, models.MatchAutomatic, o.Confidence, false))
		case Suggested:
			if docUsed[s.doc] || txnUsed[s.txn] {
				continue
			}
			docUsed[s.doc], txnUsed[s.txn] = true, true
			result.SuggestedMatches = append(result.SuggestedMatches, newMatch(o.Candidate, models.MatchSuggested, models.ConfidenceLow, true))
		case Possible:
			// Candidates arrive sorted, so the first ones kept are the best.
			if len(possibles[s.txn]) < e.cfg.MaxPossibleMatches {
				possibles[s.txn] = append(possibles[s.txn], models.PossibleMatch{
					Document: o.Document,
					Score:    o.Score,
					Details:  o.Details,
				})
			}
		case NoMatch:
		}
	}

	for i, d := range docs {
		if !docUsed[i] {
			result.UnmatchedDocuments = append(result.UnmatchedDocuments, d)
		}
	}
	for j, t := range txns {
		if txnUsed[j] {
			continue
		}
		pm := possibles[j]
		if pm == nil {
			pm = []models.PossibleMatch{}
		}
		result.UnmatchedTransactions = append(result.UnmatchedTransactions, models.UnmatchedTransaction{
			Transaction:     t,
			PossibleMatches: pm,
		})
	}

	result.Summary.TotalDocuments = len(docs)
	result.Summary.TotalTransactions = len(txns)
	result.Recount()

	e.logger.Debug("reconciliation complete",
		"documents", len(docs),
		"transactions", len(txns),
		"candidates", len(candidates),
		"matched", result.Summary.MatchedCount,
		"suggested", result.Summary.SuggestedMatchesCount,
		"auto_match_threshold", autoMatchThreshold,
		"rate", result.Summary.ReconciliationRate,
	)
	return result
}

// scoreAll scores the Cartesian product, or only the pairs inside each
// document's amount band when prefiltering is enabled.
func (e *Engine) scoreAll(docs []models.Document, txns []models.BankTransaction) []scored {
	if !e.cfg.PrefilterByAmount {
		out := make([]scored, 0, len(docs)*len(txns))
		for i, d := range docs {
			for j, t := range txns {
				out = append(out, scored{doc: i, txn: j, candidate: e.scorer.Score(d, t)})
			}
		}
		return out
	}

	byAmount := make([]int, len(txns))
	for j := range byAmount {
		byAmount[j] = j
	}
	sort.SliceStable(byAmount, func(a, b int) bool {
		return txns[byAmount[a]].Amount.Abs().LessThan(txns[byAmount[b]].Amount.Abs())
	})

	var out []scored
	for i, d := range docs {
		lo, hi := e.scorer.NearBand(d.Amount)
		start := sort.Search(len(byAmount), func(k int) bool {
			return txns[byAmount[k]].Amount.Abs().GreaterThanOrEqual(lo)
		})
		for k := start; k < len(byAmount); k++ {
			j := byAmount[k]
			if txns[j].Amount.Abs().GreaterThan(hi) {
				break
			}
			out = append(out, scored{doc: i, txn: j, candidate: e.scorer.Score(d, txns[j])})
		}
	}
	return out
}

func newMatch(c models.MatchCandidate, typ models.MatchType, conf models.Confidence, review bool) models.Match {
	return models.Match{
		ID:             MatchID(c.Document, c.Transaction),
		Document:       c.Document,
		Transaction:    c.Transaction,
		Score:          c.TotalScore,
		Type:           typ,
		Confidence:     conf,
		RequiresReview: review,
		Details:        c.ScoreDetails,
	}
}
