package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/zombor/spesen/internal/receipt"
	"github.com/zombor/spesen/internal/report"
)

// CategoryBonus is added to the similarity when the receipt has the record's category
const CategoryBonus = 0.3

// Scorer rates how well a cached receipt matches a record. Scores <= 0 never match.
type Scorer interface {
	Score(rec report.Record, candidate *receipt.CacheEntry) float64
}

// TokenScorer compares the Dice coefficient of the word sets of both texts
type TokenScorer struct {
	Bonus float64
}

// NewTokenScorer returns a scorer with the default category bonus
func NewTokenScorer() TokenScorer {
	return TokenScorer{Bonus: CategoryBonus}
}

func (s TokenScorer) Score(rec report.Record, candidate *receipt.CacheEntry) float64 {
	text := strings.Join(nonEmpty(candidate.Description, candidate.Provider, candidate.City), " ")
	score := Similarity(rec.Text(), text)
	if score == 0 {
		return 0
	}
	if report.ParseCategory(candidate.Category) == rec.Category() {
		score += s.Bonus
	}
	return score
}

// Similarity is 2|A∩B| / (|A|+|B|) over the case-folded, accent-free tokens of a and b
func Similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}

func tokens(s string) map[string]struct{} {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	set := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[f] = struct{}{}
	}
	return set
}

func nonEmpty(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
