// Package similarity scores how alike two already-normalized strings are.
//
// Every Strategy returns an integer in 0..100. Best runs a set of strategies
// and keeps the highest score, which is how vendor names are compared against
// bank descriptions: reordered words, abbreviations and one string embedded in
// the other each get a strategy that handles them.
package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Strategy is one way of comparing two strings.
type Strategy interface {
	Name() string
	Score(a, b string) int
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc struct {
	ID string
	Fn func(a, b string) int
}

func (s StrategyFunc) Name() string          { return s.ID }
func (s StrategyFunc) Score(a, b string) int { return s.Fn(a, b) }

var (
	Direct    Strategy = StrategyFunc{ID: "ratio", Fn: Ratio}
	TokenSort Strategy = StrategyFunc{ID: "token_sort", Fn: TokenSortRatio}
	TokenSet  Strategy = StrategyFunc{ID: "token_set", Fn: TokenSetRatio}
	Partial   Strategy = StrategyFunc{ID: "partial", Fn: PartialRatio}
	Acronym   Strategy = StrategyFunc{ID: "acronym", Fn: AcronymRatio}
)

// DefaultStrategies is the set used for vendor name matching.
func DefaultStrategies() []Strategy {
	return []Strategy{Direct, TokenSort, TokenSet, Partial, Acronym}
}

// Result is the winning score and the strategy that produced it.
type Result struct {
	Score    int
	Strategy string
}

// Best returns the maximum score across strategies. Ties keep the earlier
// strategy so the reported name is stable.
func Best(a, b string, strategies []Strategy) Result {
	var best Result
	for _, s := range strategies {
		score := s.Score(a, b)
		if best.Strategy == "" || score > best.Score {
			best = Result{Score: score, Strategy: s.Name()}
		}
	}
	return best
}

// Ratio is the Levenshtein similarity of a and b, where a substitution costs
// as much as a deletion plus an insertion.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	r := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return toPercent(r)
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's full token set.
func TokenSetRatio(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	return max(Ratio(base, withA), Ratio(base, withB), Ratio(withA, withB))
}

// PartialRatio slides the shorter string across the longer one and keeps
// the best aligned window.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		window := long[start : start+len(short)]
		r := toPercent(levenshtein.RatioForStrings(short, window, levenshtein.DefaultOptions))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// acronymScore is awarded when the initials of a multi-word name equal a
// token on the other side, e.g. "amazon web services" and "aws monthly".
const acronymScore = 85

// AcronymRatio compares the initials of each multi-word string against the
// tokens of the other, scaled so an exact acronym hit scores acronymScore.
func AcronymRatio(a, b string) int {
	return max(acronymAgainst(a, b), acronymAgainst(b, a))
}

func acronymAgainst(name, other string) int {
	words := strings.Fields(name)
	if len(words) < 2 {
		return 0
	}
	var initials strings.Builder
	for _, w := range words {
		initials.WriteRune([]rune(w)[0])
	}
	acronym := initials.String()

	best := 0
	for _, tok := range strings.Fields(other) {
		if r := Ratio(acronym, tok); r > best {
			best = r
		}
	}
	return best * acronymScore / 100
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func toPercent(r float64) int {
	return int(math.Round(r * 100))
}
