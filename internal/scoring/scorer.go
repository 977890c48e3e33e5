// Package scoring rates how well a document pairs with a bank transaction.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-reconciler/internal/config"
	"github.com/insightdelivered/statement-reconciler/internal/models"
	"github.com/insightdelivered/statement-reconciler/internal/normalize"
	"github.com/insightdelivered/statement-reconciler/internal/similarity"
)

// Factor weights in percent. They sum to 100.
const (
	NameWeight   = 50
	AmountWeight = 35
	DateWeight   = 15
)

var hundred = decimal.NewFromInt(100)

// Scorer computes name, amount and date sub-scores and their weighted total.
// It is safe for concurrent use.
type Scorer struct {
	cfg        config.Matching
	strategies []similarity.Strategy
}

// New returns a Scorer using the default similarity strategies.
func New(cfg config.Matching) *Scorer {
	return &Scorer{cfg: cfg, strategies: similarity.DefaultStrategies()}
}

// WithStrategies replaces the name similarity strategies.
func (s *Scorer) WithStrategies(strategies ...similarity.Strategy) *Scorer {
	return &Scorer{cfg: s.cfg, strategies: strategies}
}

// Score rates one document against one transaction.
func (s *Scorer) Score(doc models.Document, txn models.BankTransaction) models.MatchCandidate {
	vendor := normalize.Normalize(doc.VendorName)
	desc := normalize.Normalize(txn.Description)
	name := similarity.Best(vendor, desc, s.strategies)

	diff := AmountDifference(doc, txn)
	amountScore := s.AmountScore(doc.Amount.Abs(), diff)

	dateScore, days := s.DateScore(doc.Date, txn.Date)

	return models.MatchCandidate{
		Document:    doc,
		Transaction: txn,
		ScoreDetails: models.ScoreDetails{
			NameScore:             name.Score,
			AmountScore:           amountScore,
			DateScore:             dateScore,
			TotalScore:            Total(name.Score, amountScore, dateScore),
			NameStrategy:          name.Strategy,
			NormalizedVendor:      vendor,
			NormalizedDescription: desc,
			AmountDifference:      diff,
			DaysDifference:        days,
		},
	}
}

// AmountDifference is the distance between the absolute amounts.
func AmountDifference(doc models.Document, txn models.BankTransaction) decimal.Decimal {
	return doc.Amount.Abs().Sub(txn.Amount.Abs()).Abs()
}

// AmountScore maps an absolute difference to 100, 80, 50 or 0. The percentage
// bands are relative to the document amount.
func (s *Scorer) AmountScore(docAmount, diff decimal.Decimal) int {
	switch {
	case diff.LessThanOrEqual(s.cfg.AmountTolerance):
		return 100
	case diff.LessThanOrEqual(percentOf(docAmount, s.cfg.AmountClosePercent)):
		return 80
	case diff.LessThanOrEqual(percentOf(docAmount, s.cfg.AmountNearPercent)):
		return 50
	default:
		return 0
	}
}

// DateScore loses 20 points per day apart and drops to 0 beyond the
// configured range. A missing date on either side scores 0 and reports no
// day difference.
func (s *Scorer) DateScore(docDate, txnDate models.Date) (int, *int) {
	if docDate.IsZero() || txnDate.IsZero() {
		return 0, nil
	}
	k := models.DaysBetween(docDate, txnDate)
	if k < 0 {
		k = -k
	}
	switch {
	case k == 0:
		return 100, &k
	case k <= s.cfg.DateRangeDays:
		return max(0, 100-20*k), &k
	default:
		return 0, &k
	}
}

// Total is the weighted sum of the sub-scores rounded half up.
func Total(name, amount, date int) int {
	return (name*NameWeight + amount*AmountWeight + date*DateWeight + 50) / 100
}

// NearBand returns the inclusive absolute amount range that scores above 0
// against a document of amount docAmount.
func (s *Scorer) NearBand(docAmount decimal.Decimal) (lo, hi decimal.Decimal) {
	a := docAmount.Abs()
	width := decimal.Max(s.cfg.AmountTolerance, percentOf(a, s.cfg.AmountNearPercent))
	return a.Sub(width), a.Add(width)
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}
