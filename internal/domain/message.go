package domain

import "time"

type Message struct {
	ID        int64
	ListingID int64
	FromUser  string
	Read      bool
	Body      string
	CreatedAt time.Time
}
