package matching

import (
	"slices"
	"strconv"
	"strings"

	"festsync/internal/textutil"
)

// BuildQueries lists the search queries for film in priority order: the
// title, the title with its year, then the same for the original title when
// it normalizes differently. Blank and repeated queries are dropped.
func BuildQueries(film Film) []string {
	var queries []string
	add := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" || slices.Contains(queries, value) {
			return
		}
		queries = append(queries, value)
	}

	add(film.Title)
	if film.Year != nil {
		add(film.Title + " " + strconv.Itoa(*film.Year))
	}
	original := strings.TrimSpace(film.OriginalTitle)
	if original != "" && textutil.NormalizeTitle(original) != textutil.NormalizeTitle(film.Title) {
		add(original)
		if film.Year != nil {
			add(original + " " + strconv.Itoa(*film.Year))
		}
	}
	return queries
}
