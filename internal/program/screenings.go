package program

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const unixTimeZone = "Europe/Berlin"

// Layouts with an explicit offset come first. Fractional seconds are accepted
// by every layout that has a seconds field.
var screeningTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func normalizeScreenings(item map[string]any) ([]Venue, []Screening) {
	node, _ := firstPresent(item, "screenings", "Screenings", "events", "Events", "dates", "Dates")

	var (
		venues     []Venue
		venueIndex = map[string]int{}
		screenings []Screening
	)

	for index, entry := range asArray(node) {
		screening := asRecord(entry)
		if screening == nil {
			continue
		}

		startsAt, fromUnix, ok := screeningStart(screening)
		if !ok {
			continue
		}

		id := firstID(screening, "extIdScreening", "id", "Id", "uuid", "slug")
		if id == "" {
			id = fmt.Sprintf("screening-%d-%s", index, StableHash(screening))
		}

		venue, hasVenue := screeningVenue(screening)
		if hasVenue {
			if pos, ok := venueIndex[venue.SourceVenueID]; ok {
				venues[pos] = venue
			} else {
				venueIndex[venue.SourceVenueID] = len(venues)
				venues = append(venues, venue)
			}
		}

		localTZ := firstString(screening, "timezone", "timeZone", "tz")
		if localTZ == "" && fromUnix {
			localTZ = unixTimeZone
		}

		screenings = append(screenings, Screening{
			SourceScreeningID: id,
			StartsAt:          startsAt,
			LocalTZ:           localTZ,
			Format:            firstString(screening, "format", "Format", "medium", "type"),
			TicketURL:         ticketURL(screening),
			SourceVenueID:     venue.SourceVenueID,
		})
	}
	return venues, screenings
}

// screeningStart prefers a unix-seconds timestamp under "time" and falls back
// to date strings. Strings without an offset are read as UTC.
func screeningStart(screening map[string]any) (time.Time, bool, bool) {
	if timeNode := asRecord(screening["time"]); timeNode != nil {
		if seconds, ok := firstNumber(timeNode, "unixtime", "unixTime", "timestamp", "unix"); ok {
			return time.Unix(int64(math.Trunc(seconds)), 0).UTC(), true, true
		}
	}
	raw := firstString(screening, "startsAt", "start", "dateTime", "date", "Date")
	if raw == "" {
		return time.Time{}, false, false
	}
	for _, layout := range screeningTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), false, true
		}
	}
	return time.Time{}, false, false
}

func screeningVenue(screening map[string]any) (Venue, bool) {
	node := asRecord(screening["venue"])
	if node == nil {
		node = asRecord(screening["location"])
	}
	if node != nil {
		name := firstString(node, "name", "Name")
		id := firstID(node, "id", "Id", "uuid", "slug")
		if id == "" {
			if name != "" {
				id = "venue:" + StableHash(strings.ToLower(name))
			} else {
				id = "venue:" + StableHash(node)
			}
		}
		if name == "" {
			name = id
		}
		return Venue{
			SourceVenueID: id,
			Name:          name,
			Address:       firstString(node, "address", "Address"),
			Lat:           optionalFloat(node, "lat", "latitude"),
			Lng:           optionalFloat(node, "lng", "lon", "longitude"),
		}, true
	}

	name := firstString(screening, "venueHall", "venueName", "locationName")
	if name == "" {
		if s, ok := screening["venue"].(string); ok {
			name = strings.TrimSpace(s)
		}
	}
	if name == "" {
		return Venue{}, false
	}
	return Venue{
		SourceVenueID: "venue:" + StableHash(strings.ToLower(name)),
		Name:          name,
	}, true
}

func ticketURL(screening map[string]any) string {
	raw, _ := firstPresent(screening, "ticketUrl", "ticket", "bookingUrl")
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return firstString(v, "url", "link", "href")
	}
	return ""
}
