package domain

import "time"

type Listing struct {
	ID          int64
	HostUser    string
	PriceCents  int64
	Title       string
	Description string
	PhotoURL    string
	City        string
	State       string
	Zipcode     string
	Address     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether username is the listing's host.
func (l *Listing) OwnedBy(username string) bool {
	return username != "" && l.HostUser == username
}
