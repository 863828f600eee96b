package domain

import "time"

// Item is a rateable entity (a dish) owned by exactly one Group.
type Item struct {
	ID        string
	Name      string
	GroupID   string
	ImageRef  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location holds the postal attributes of a venue.
type Location struct {
	Address string
	Zip     string
	State   string
}

// Contact groups the optional outbound links of a venue.
type Contact struct {
	Phone       *string
	Website     *string
	Instagram   *string
	Delivery    *string
	Reservation *string
}

// Group is the venue that owns one or more items.
type Group struct {
	ID        string
	Name      string
	Location  Location
	Contact   Contact
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dataset is a point-in-time copy of every group, item and rating.
type Dataset struct {
	Groups  []Group
	Items   []Item
	Ratings []Rating
}
