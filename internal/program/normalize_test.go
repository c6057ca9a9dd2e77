package program_test

import (
	"encoding/json"
	"testing"
	"time"

	"festsync/internal/program"
	"festsync/internal/testsupport"
)

func decodeItem(t *testing.T, raw string) any {
	t.Helper()
	var item any
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item
}

func TestNormalizeItemMapsFixture(t *testing.T) {
	payload := testsupport.LoadFixture(t, "page_1.json")
	item := program.ExtractPage(payload).Items[0]
	bundle := program.NormalizeItem(item)

	film := bundle.Film
	if film.SourceFilmID != "film-1" || film.Title != "Opening Night" {
		t.Fatalf("unexpected film identity: %+v", film)
	}
	if film.OriginalTitle != "Premiere" || film.Section != "Berlinale Special" || film.Country != "Germany" {
		t.Fatalf("unexpected film fields: %+v", film)
	}
	if film.RuntimeMinutes == nil || *film.RuntimeMinutes != 98 || film.Year == nil || *film.Year != 2026 {
		t.Fatalf("unexpected runtime/year: %v %v", film.RuntimeMinutes, film.Year)
	}
	if len(bundle.People) != 1 || bundle.People[0].SourcePersonID != "p-100" {
		t.Fatalf("unexpected people: %+v", bundle.People)
	}
	credit := bundle.Credits[0]
	if credit.RoleType != "directing" || credit.RoleName != "Director" || credit.BillingOrder == nil || *credit.BillingOrder != 0 {
		t.Fatalf("unexpected credit: %+v", credit)
	}
	if len(bundle.Venues) != 1 || bundle.Venues[0].Name != "Berlinale Palast" || bundle.Venues[0].Lat == nil {
		t.Fatalf("unexpected venues: %+v", bundle.Venues)
	}
	if len(bundle.Screenings) != 1 {
		t.Fatalf("expected 1 screening, got %d", len(bundle.Screenings))
	}
	screening := bundle.Screenings[0]
	want := time.Date(2026, 2, 12, 18, 0, 0, 0, time.UTC)
	if !screening.StartsAt.Equal(want) {
		t.Fatalf("unexpected start %s", screening.StartsAt)
	}
	if screening.TicketURL != "https://tickets.example.org/s-1" || screening.SourceVenueID != "v-1" || screening.Format != "DCP" {
		t.Fatalf("unexpected screening: %+v", screening)
	}
}

func TestNormalizeItemBerlinaleEventShape(t *testing.T) {
	item := decodeItem(t, `{
		"id": 202615475,
		"title": "17",
		"section": {"name": "Perspectives"},
		"meta": ["105'", "Nordmazedonien, Serbien, Slowenien 2026"],
		"person": [{"name": "Kosara Mitic"}],
		"castMembers": [{"name": "Eva Kostic", "role": null}],
		"reducedCrewMembers": [{"name": "Kosara Mitic"}],
		"events": [{
			"extIdScreening": "572-20260218-1900",
			"id": 33178,
			"time": {"unixtime": 1771437600, "durationInMinutes": 136},
			"venueHall": "Bluemax Theater",
			"type": "event"
		}]
	}`)
	bundle := program.NormalizeItem(item)

	film := bundle.Film
	if film.SourceFilmID != "202615475" || film.Title != "17" {
		t.Fatalf("unexpected film identity: %+v", film)
	}
	if film.RuntimeMinutes == nil || *film.RuntimeMinutes != 105 {
		t.Fatalf("expected runtime 105 from meta, got %v", film.RuntimeMinutes)
	}
	if film.Year == nil || *film.Year != 2026 {
		t.Fatalf("expected year 2026 from meta, got %v", film.Year)
	}
	if film.Country != "Nordmazedonien, Serbien, Slowenien" {
		t.Fatalf("unexpected country %q", film.Country)
	}
	if film.Section != "Perspectives" {
		t.Fatalf("unexpected section %q", film.Section)
	}

	// Kosara Mitic appears twice but collapses to one person with two credits.
	if len(bundle.People) != 2 {
		t.Fatalf("expected 2 people, got %+v", bundle.People)
	}
	if len(bundle.Credits) != 3 {
		t.Fatalf("expected 3 credits, got %+v", bundle.Credits)
	}
	if bundle.Credits[1].RoleType != "cast" || bundle.Credits[1].BillingOrder != nil {
		t.Fatalf("object entries without order carry no billing order: %+v", bundle.Credits[1])
	}

	if len(bundle.Venues) != 1 || bundle.Venues[0].Name != "Bluemax Theater" {
		t.Fatalf("unexpected venues: %+v", bundle.Venues)
	}
	if len(bundle.Screenings) != 1 {
		t.Fatalf("expected 1 screening, got %d", len(bundle.Screenings))
	}
	screening := bundle.Screenings[0]
	if screening.SourceScreeningID != "572-20260218-1900" {
		t.Fatalf("unexpected screening id %q", screening.SourceScreeningID)
	}
	if screening.LocalTZ != "Europe/Berlin" || screening.Format != "event" {
		t.Fatalf("unexpected screening fields: %+v", screening)
	}
	if !screening.StartsAt.Equal(time.Date(2026, 2, 18, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", screening.StartsAt)
	}
	if screening.SourceVenueID != bundle.Venues[0].SourceVenueID {
		t.Fatal("screening should reference the derived venue id")
	}
}

func TestNormalizeItemStringCreditsUseIndexOrder(t *testing.T) {
	bundle := program.NormalizeItem(decodeItem(t, `{"id":"x","castMembers":["Ana", " ", "Ben", "Ana"]}`))
	if len(bundle.People) != 2 || len(bundle.Credits) != 2 {
		t.Fatalf("unexpected people/credits: %+v %+v", bundle.People, bundle.Credits)
	}
	if *bundle.Credits[0].BillingOrder != 0 || *bundle.Credits[1].BillingOrder != 2 {
		t.Fatalf("billing order should follow array index: %+v", bundle.Credits)
	}
	if bundle.Credits[0].RoleName != "cast" {
		t.Fatalf("expected default role name, got %q", bundle.Credits[0].RoleName)
	}
}

func TestNormalizeItemDropsUnresolvableScreenings(t *testing.T) {
	bundle := program.NormalizeItem(decodeItem(t, `{
		"id": "x",
		"screenings": [
			{"id": "a", "startsAt": "not a date"},
			{"id": "b"},
			"loose string",
			{"date": "2026-02-20", "venue": "Kino International"}
		]
	}`))
	if len(bundle.Screenings) != 1 {
		t.Fatalf("expected only the dated screening, got %+v", bundle.Screenings)
	}
	s := bundle.Screenings[0]
	if s.LocalTZ != "" {
		t.Fatalf("string dates do not imply a timezone, got %q", s.LocalTZ)
	}
	if len(s.SourceScreeningID) < len("screening-3-") || s.SourceScreeningID[:len("screening-3-")] != "screening-3-" {
		t.Fatalf("expected positional fallback id, got %q", s.SourceScreeningID)
	}
	if len(bundle.Venues) != 1 || bundle.Venues[0].Name != "Kino International" {
		t.Fatalf("unexpected venues %+v", bundle.Venues)
	}
}

func TestNormalizeItemVenueLastWriteWins(t *testing.T) {
	bundle := program.NormalizeItem(decodeItem(t, `{
		"id": "x",
		"screenings": [
			{"id": "a", "startsAt": "2026-02-20T10:00:00Z", "venue": {"id": "v", "name": "Old Name"}},
			{"id": "b", "startsAt": "2026-02-20T12:00:00Z", "venue": {"id": "v", "name": "New Name"}}
		]
	}`))
	if len(bundle.Venues) != 1 || bundle.Venues[0].Name != "New Name" {
		t.Fatalf("expected later venue to win, got %+v", bundle.Venues)
	}
}

func TestNormalizeItemTitleFallsBackToSourceID(t *testing.T) {
	bundle := program.NormalizeItem(decodeItem(t, `{"id":"film-77","synopsis":"Item level synopsis"}`))
	if bundle.Film.Title != "film-77" {
		t.Fatalf("expected source id as title, got %q", bundle.Film.Title)
	}
	if bundle.Film.Synopsis != "Item level synopsis" {
		t.Fatalf("unexpected synopsis %q", bundle.Film.Synopsis)
	}
}

func TestNormalizeItemScreeningDateSpellings(t *testing.T) {
	want := time.Date(2026, 2, 18, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
	}{
		{"rfc3339", "2026-02-18T19:00:00+01:00"},
		{"rfc3339 millis", "2026-02-18T18:00:00.000Z"},
		{"compact offset", "2026-02-18T19:00:00+0100"},
		{"hour offset", "2026-02-18T19:00:00+01"},
		{"space separated offset", "2026-02-18 19:00:00+01:00"},
		{"space separated compact offset", "2026-02-18 19:00:00 +0100"},
		{"rfc1123", "Wed, 18 Feb 2026 18:00:00 GMT"},
		{"rfc1123 numeric zone", "Wed, 18 Feb 2026 19:00:00 +0100"},
		{"no offset reads as utc", "2026-02-18T18:00:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(map[string]any{
				"id":         "film-x",
				"screenings": []any{map[string]any{"id": "s", "startsAt": tc.raw}},
			})
			if err != nil {
				t.Fatalf("encode item: %v", err)
			}
			bundle := program.NormalizeItem(decodeItem(t, string(raw)))
			if len(bundle.Screenings) != 1 {
				t.Fatalf("expected one screening for %q, got %d", tc.raw, len(bundle.Screenings))
			}
			if got := bundle.Screenings[0].StartsAt; !got.Equal(want) {
				t.Fatalf("starts at %s, want %s", got, want)
			}
		})
	}
}
