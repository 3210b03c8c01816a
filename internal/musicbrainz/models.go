package musicbrainz

// Area is the geographic area attached to an artist.
type Area struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Disambiguation string `json:"disambiguation"`
}

// Candidate is one artist returned by a search, best match first.
type Candidate struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Type           string `json:"type"`
	Gender         string `json:"gender"`
	Disambiguation string `json:"disambiguation"`
	Score          int    `json:"score"`
	Area           *Area  `json:"area"`
}

type artistSearchResponse struct {
	Created string      `json:"created"`
	Count   int         `json:"count"`
	Offset  int         `json:"offset"`
	Artists []Candidate `json:"artists"`
}
