package domain

// KeyPrefix namespaces every cache key written by this service.
const KeyPrefix = "rentsearch:"

// Listing is a rental listing as read from the listing store. Read-only to this service.
type Listing struct {
	ID          string   `json:"id" bson:"_id"`
	Title       string   `json:"title,omitempty" bson:"title,omitempty"`
	IsAvailable bool     `json:"isAvailable" bson:"isAvailable"`
	IsActive    bool     `json:"isActive" bson:"isActive"`
	Category    string   `json:"category,omitempty" bson:"category,omitempty"`
	Price       *float64 `json:"price,omitempty" bson:"price,omitempty"`
	Area        *float64 `json:"area,omitempty" bson:"area,omitempty"`
	Address     Address  `json:"address" bson:"address"`
	Amenities   []string `json:"amenities,omitempty" bson:"amenities,omitempty"`
	RoomID      string   `json:"roomId,omitempty" bson:"roomId,omitempty"`
	PostID      string   `json:"postId,omitempty" bson:"postId,omitempty"`
	BuildingID  string   `json:"buildingId,omitempty" bson:"buildingId,omitempty"`
	// Distance is set by proximity search, in meters.
	Distance *float64 `json:"distance,omitempty" bson:"distance,omitempty"`
}

// Address is the postal address of a listing.
type Address struct {
	Street   string    `json:"street,omitempty" bson:"street,omitempty"`
	Ward     string    `json:"ward,omitempty" bson:"ward,omitempty"`
	District string    `json:"district,omitempty" bson:"district,omitempty"`
	City     string    `json:"city,omitempty" bson:"city,omitempty"`
	Location *GeoPoint `json:"location,omitempty" bson:"location,omitempty"`
}

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint creates a GeoJSON point from coordinates.
func NewGeoPoint(c Coordinates) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{c.Lon, c.Lat}}
}

// RankedListing is a listing with its ranking score.
type RankedListing struct {
	Listing
	Score float64 `json:"score"`
}

// ListingSignals is the subset of an indexed listing used to enrich click events.
type ListingSignals struct {
	RoomID    string
	Amenities []string
}
