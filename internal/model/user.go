package model

import "time"

type User struct {
	ID           string    `json:"id"`
	AuthProvider string    `json:"auth_provider"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PictureURL   string    `json:"picture_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the profile handed to us by the external identity provider
// after a completed OAuth exchange.
type Identity struct {
	ID         string
	Provider   string
	Email      string
	Name       string
	PictureURL string
}
