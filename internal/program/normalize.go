package program

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	metaRuntimePattern = regexp.MustCompile(`(\d{1,3})\s*'`)
	metaYearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	trailingSeparators = regexp.MustCompile(`[\s,]+$`)
)

// NormalizeItem maps one heterogeneous program item onto the canonical
// entity model. It never fails: missing fields stay empty.
func NormalizeItem(item any) Bundle {
	root := asRecord(item)
	if root == nil {
		root = map[string]any{}
	}
	sourceFilmID := ExtractSourceID(root)
	people, credits := normalizePeople(root)
	venues, screenings := normalizeScreenings(root)
	return Bundle{
		Film:       normalizeFilm(root, sourceFilmID),
		People:     people,
		Credits:    credits,
		Venues:     venues,
		Screenings: screenings,
	}
}

func normalizeFilm(item map[string]any, sourceFilmID string) Film {
	node := asRecord(item["film"])
	if node == nil {
		node = asRecord(item["movie"])
	}
	if node == nil {
		node = item
	}

	var section string
	if sectionNode := asRecord(item["section"]); sectionNode != nil {
		section = firstString(sectionNode, "name", "Name")
	} else {
		section = firstString(item, "section", "Section", "category", "Category")
	}

	metaNode, _ := firstPresent(item, "meta", "metaCompact", "metaTile", "Meta", "MetaCompact", "MetaTile")
	meta := parseMeta(metaNode)

	film := Film{
		SourceFilmID:   sourceFilmID,
		Title:          firstString(node, "title", "Title", "name", "Name"),
		OriginalTitle:  firstString(node, "originalTitle", "OriginalTitle", "original_title"),
		Synopsis:       firstString(node, "synopsis", "description", "Description", "logline"),
		RuntimeMinutes: optionalInt(node, "runtime", "runtimeMinutes", "duration", "Duration"),
		Year:           optionalInt(node, "year", "Year", "productionYear", "ProductionYear"),
		Country:        firstString(node, "country", "Country", "countries", "Countries"),
		Section:        section,
	}
	if film.Title == "" {
		film.Title = sourceFilmID
	}
	if film.Synopsis == "" {
		film.Synopsis = firstString(item, "synopsis", "shortSynopsis")
	}
	if film.RuntimeMinutes == nil {
		film.RuntimeMinutes = meta.runtime
	}
	if film.Year == nil {
		film.Year = meta.year
	}
	if film.Country == "" {
		film.Country = meta.country
	}
	return film
}

type metaInfo struct {
	runtime *int
	year    *int
	country string
}

// parseMeta reads compact descriptor lines such as "105'" or
// "Nordmazedonien, Serbien 2026". The first hit per field wins.
func parseMeta(node any) metaInfo {
	var info metaInfo
	for _, entry := range asArray(node) {
		line, ok := entry.(string)
		if !ok {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if info.runtime == nil {
			if m := metaRuntimePattern.FindStringSubmatch(line); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					info.runtime = &n
				}
			}
		}

		year := metaYearPattern.FindString(line)
		if year == "" {
			continue
		}
		if info.year == nil {
			if n, err := strconv.Atoi(year); err == nil {
				info.year = &n
			}
		}
		if info.country == "" {
			candidate := strings.Replace(line, year, "", 1)
			candidate = strings.TrimSpace(trailingSeparators.ReplaceAllString(candidate, ""))
			info.country = candidate
		}
	}
	return info
}
