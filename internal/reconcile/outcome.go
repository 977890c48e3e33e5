package reconcile

import "github.com/insightdelivered/statement-reconciler/internal/models"

// Outcome is the classification of one scored candidate. It is one of
// Automatic, Suggested, Possible or NoMatch.
type Outcome interface {
	outcome()
}

// Automatic pairs are matched without review.
type Automatic struct {
	Candidate  models.MatchCandidate
	Confidence models.Confidence
}

// Suggested pairs are assigned but need a human to confirm them.
type Suggested struct {
	Candidate models.MatchCandidate
}

// Possible candidates are never assigned. They are attached as context to
// whichever transaction stays unmatched.
type Possible struct {
	Document models.Document
	Score    int
	Details  models.ScoreDetails
}

// NoMatch candidates are discarded.
type NoMatch struct{}

func (Automatic) outcome() {}
func (Suggested) outcome() {}
func (Possible) outcome()  {}
func (NoMatch) outcome()   {}

// highConfidenceScore separates high from medium automatic matches.
const highConfidenceScore = 95

// Classify places a candidate by its total score. autoMatch is the automatic
// threshold, suggest the assignment floor and possible the advisory floor.
// Nothing below suggest is assigned, whatever autoMatch is.
func Classify(c models.MatchCandidate, autoMatch, suggest, possible int) Outcome {
	switch total := c.TotalScore; {
	case total < suggest && total >= possible:
		return Possible{Document: c.Document, Score: total, Details: c.ScoreDetails}
	case total < suggest:
		return NoMatch{}
	case total >= max(autoMatch, suggest):
		conf := models.ConfidenceMedium
		if total >= highConfidenceScore {
			conf = models.ConfidenceHigh
		}
		return Automatic{Candidate: c, Confidence: conf}
	default:
		return Suggested{Candidate: c}
	}
}
