package domain

// LikedProduct is a listing the user has marked as a favourite.
type LikedProduct struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
	PriceFrom     string   `json:"priceFrom"`
	PricePerAdult *bool    `json:"pricePerAdult,omitempty"`
	Location      string   `json:"location"`
	ImageURI      string   `json:"imageUri"`
}
