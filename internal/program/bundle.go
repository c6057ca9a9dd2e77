package program

import "time"

// Film is the canonical film record derived from one program item. Empty
// strings and nil pointers mean the value was not present upstream.
type Film struct {
	SourceFilmID   string
	Title          string
	OriginalTitle  string
	Synopsis       string
	RuntimeMinutes *int
	Year           *int
	Country        string
	Section        string
}

// Person is a credited individual.
type Person struct {
	SourcePersonID string
	Name           string
}

// Credit links a person to the item's film in a role.
type Credit struct {
	SourcePersonID string
	RoleType       string
	RoleName       string
	BillingOrder   *int
}

// Venue is a screening location.
type Venue struct {
	SourceVenueID string
	Name          string
	Address       string
	Lat           *float64
	Lng           *float64
}

// Screening is one scheduled showing of the item's film.
type Screening struct {
	SourceScreeningID string
	StartsAt          time.Time
	LocalTZ           string
	Format            string
	TicketURL         string
	SourceVenueID     string
}

// Bundle is everything normalized out of a single program item.
type Bundle struct {
	Film       Film
	People     []Person
	Credits    []Credit
	Venues     []Venue
	Screenings []Screening
}
