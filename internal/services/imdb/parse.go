package imdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultRatingScale = 10

// ratingFallbackPattern matches the aggregateRating blob embedded in page
// state when no ld+json script carries one.
var ratingFallbackPattern = regexp.MustCompile(`"aggregateRating":\{"@type":"AggregateRating","ratingCount":([0-9,]+),"bestRating":([0-9.]+),"worstRating":[0-9.]+,"ratingValue":([0-9.]+)\}`)

// ParseSuggestions decodes a suggestion reply. Entries without a tt-prefixed
// id or without a title are dropped; a payload without a d array yields none.
func ParseSuggestions(data []byte) ([]Candidate, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	root, ok := payload.(map[string]any)
	if !ok {
		return nil, nil
	}
	entries, ok := root["d"].([]any)
	if !ok {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, _ := entry["id"].(string)
		title, _ := entry["l"].(string)
		if !strings.HasPrefix(id, "tt") || title == "" {
			continue
		}
		candidate := Candidate{ID: id, Title: title}
		if year, ok := finiteNumber(entry["y"]); ok {
			y := int(year)
			candidate.Year = &y
		}
		if kind, ok := entry["q"].(string); ok {
			candidate.Type = strings.ToLower(kind)
		}
		if rank, ok := finiteNumber(entry["rank"]); ok {
			candidate.Rank = &rank
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// ParseRating extracts the aggregate rating from a title page. ld+json
// scripts are consulted first, then the embedded page-state pattern. It
// returns nil when neither carries a rating.
func ParseRating(html []byte) (*Rating, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse title page: %w", err)
	}

	var found *Rating
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			return true
		}
		switch v := payload.(type) {
		case []any:
			for _, entry := range v {
				if rating := ratingFromObject(entry); rating != nil {
					found = rating
					return false
				}
			}
		default:
			if rating := ratingFromObject(v); rating != nil {
				found = rating
				return false
			}
		}
		return true
	})
	if found != nil {
		return found, nil
	}
	return ratingFromPattern(html), nil
}

func ratingFromObject(value any) *Rating {
	record, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	aggregate, ok := record["aggregateRating"].(map[string]any)
	if !ok {
		return nil
	}
	ratingValue, ok := looseNumber(aggregate["ratingValue"])
	if !ok {
		return nil
	}
	rating := &Rating{Value: ratingValue, Scale: defaultRatingScale}
	if scale, ok := looseNumber(aggregate["bestRating"]); ok {
		rating.Scale = scale
	}
	switch votes := aggregate["ratingCount"].(type) {
	case float64:
		rating.VoteCount = voteCount(votes)
	case string:
		if n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(votes), ",", ""), 64); err == nil {
			rating.VoteCount = voteCount(n)
		}
	}
	return rating
}

func ratingFromPattern(html []byte) *Rating {
	match := ratingFallbackPattern.FindSubmatch(html)
	if match == nil {
		return nil
	}
	scale, errScale := strconv.ParseFloat(string(match[2]), 64)
	value, errValue := strconv.ParseFloat(string(match[3]), 64)
	if errScale != nil || errValue != nil || math.IsInf(scale, 0) || math.IsInf(value, 0) {
		return nil
	}
	rating := &Rating{Value: value, Scale: scale}
	if n, err := strconv.ParseFloat(strings.ReplaceAll(string(match[1]), ",", ""), 64); err == nil {
		rating.VoteCount = voteCount(n)
	}
	return rating
}

func voteCount(n float64) *int64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	v := int64(n)
	return &v
}

func finiteNumber(value any) (float64, bool) {
	n, ok := value.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// looseNumber accepts JSON numbers and numeric strings.
func looseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return finiteNumber(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return finiteNumber(n)
	default:
		return 0, false
	}
}
