package models

// Restaurant is a business as returned by the upstream directory.
// Favorite flags and counts are not part of it; clients merge those in.
type Restaurant struct {
	ID           string     `json:"id"`
	Alias        string     `json:"alias,omitempty"`
	Name         string     `json:"name"`
	ImageURL     string     `json:"image_url"`
	URL          string     `json:"url"`
	ReviewCount  int        `json:"review_count"`
	Rating       float64    `json:"rating"`
	Price        string     `json:"price,omitempty"`
	DisplayPhone string     `json:"display_phone,omitempty"`
	Location     Location   `json:"location"`
	Categories   []Category `json:"categories"`
}

type Location struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// SearchCriteria is the body of POST /api/search.
// Radius is in meters; Price and Attributes are comma-joined token lists.
type SearchCriteria struct {
	Term       string `json:"term"`
	Location   string `json:"location,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Radius     int    `json:"radius,omitempty"`
	Price      string `json:"price,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	Attributes string `json:"attributes,omitempty"`
}

type SearchResponse struct {
	Businesses []Restaurant `json:"businesses"`
	Total      int          `json:"total"`
	Region     Region       `json:"region"`
}

type Region struct {
	Center Coordinates `json:"center"`
}

type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}
