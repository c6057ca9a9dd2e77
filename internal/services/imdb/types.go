package imdb

// Candidate is one title suggested for a search query.
type Candidate struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Year  *int     `json:"year"`
	Type  string   `json:"type,omitempty"`
	Rank  *float64 `json:"rank"`
}

// Rating is the aggregate rating published on a title page.
type Rating struct {
	Value     float64 `json:"ratingValue"`
	Scale     float64 `json:"ratingScale"`
	VoteCount *int64  `json:"voteCount"`
}
