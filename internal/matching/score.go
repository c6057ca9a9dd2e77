package matching

import (
	"math"
	"strings"

	"festsync/internal/services/imdb"
	"festsync/internal/textutil"
)

// Film is the festival side of a match.
type Film struct {
	ID            int64
	Title         string
	OriginalTitle string
	Year          *int
}

// Score rates how well candidate describes film. Higher is better; the
// result is rounded to one decimal.
func Score(film Film, candidate imdb.Candidate) float64 {
	score := titleScore(film.Title, film.OriginalTitle, candidate.Title)

	if film.Year != nil && candidate.Year != nil {
		diff := *film.Year - *candidate.Year
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff == 0:
			score += 22
		case diff == 1:
			score += 14
		case diff == 2:
			score += 8
		case diff <= 5:
			score += 2
		default:
			score -= 24
		}
	}

	if candidate.Type == "feature" || candidate.Type == "movie" {
		score += 8
	}
	if candidate.Rank != nil {
		score += math.Max(-6, 10-math.Log10(*candidate.Rank+1)*3)
	}
	return math.Round(score*10) / 10
}

func titleScore(title, original, candidateTitle string) float64 {
	normCandidate := textutil.NormalizeTitle(candidateTitle)
	if normCandidate == "" {
		return 0
	}
	normTitle := textutil.NormalizeTitle(title)
	normOriginal := textutil.NormalizeTitle(original)

	similarity := textutil.JaccardSimilarity(title, candidateTitle)
	if original != "" {
		similarity = math.Max(similarity, textutil.JaccardSimilarity(original, candidateTitle))
	}
	score := similarity * 65

	exact := normCandidate == normTitle || (normOriginal != "" && normCandidate == normOriginal)
	switch {
	case exact:
		score += 25
	case contains(normCandidate, normTitle) || contains(normCandidate, normOriginal):
		score += 12
	}

	if len(normTitle) <= 3 && normCandidate != normTitle {
		score -= 20
	}
	return score
}

// contains reports substring containment in either direction. An empty side
// never matches.
func contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
