package models

import "time"

// Favorite links a user to a saved restaurant id.
type Favorite struct {
	ID           int       `json:"id" db:"id"`
	UserID       int       `json:"user_id" db:"user_id"`
	RestaurantID string    `json:"restaurant_id" db:"restaurant_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type FavoritesResponse struct {
	Favorites []Restaurant `json:"favorites"`
}

// CountsResponse maps restaurant id to the number of users who saved it.
type CountsResponse struct {
	Counts map[string]int `json:"counts"`
}
