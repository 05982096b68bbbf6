package entity

import "time"

// Page is the raw result of fetching a URL.
type Page struct {
	URL            string
	FinalURL       string
	StatusCode     int
	HTML           string
	ResponseTimeMS int64
	FetchedAt      time.Time
}
