package dto

// Lat/Lng are pointers so a coordinate of exactly 0 still binds; required
// only rejects absent fields.
type UpdateLocationInput struct {
	Lat        *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng        *float64 `json:"lng" binding:"required,min=-180,max=180"`
	IsCleaning bool     `json:"is_cleaning"`
}

type NearbyUserResponse struct {
	UserID     string  `json:"user_id"`
	Username   string  `json:"username"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	IsCleaning bool    `json:"is_cleaning"`
	DistanceM  float64 `json:"distance_m"`
}
