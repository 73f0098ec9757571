package venue

import (
	"context"
	"errors"

	"github.com/i474232898/pitchside/internal/geo"
)

// ErrNotFound is returned when a placeId is not in the catalog.
var ErrNotFound = errors.New("venue not found")

// Sport is the activity a venue was found for.
type Sport string

const (
	SportFootball Sport = "football"
	SportCricket  Sport = "cricket"
)

// Venue is a sports ground known to the session. PlaceID is its identity.
type Venue struct {
	PlaceID     string    `json:"placeId"`
	Name        string    `json:"name"`
	Sport       Sport     `json:"type"`
	Location    geo.Point `json:"location"`
	Address     string    `json:"address"`
	Rating      *float64  `json:"rating,omitempty"`
	OpenNow     *bool     `json:"openNow,omitempty"`
	Periods     []Period  `json:"periods,omitempty"`
	ClosingSoon bool      `json:"closingSoon"`
	ClosesAt    string    `json:"closesAt,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
}

// RawHit is one result of a nearby search, before it is tagged with a sport.
type RawHit struct {
	PlaceID  string
	Name     string
	Location geo.Point
	Address  string
	Types    []string
	Rating   *float64
	OpenNow  *bool
	PhotoURL string
}

// DetailField selects the data a details call returns.
type DetailField string

const (
	FieldOpeningHours DetailField = "opening_hours"
	FieldWebsite      DetailField = "website"
	FieldPhone        DetailField = "formatted_phone_number"
	FieldURL          DetailField = "url"
	FieldPhotos       DetailField = "photos"
)

// EnrichFields is the lightweight mask used when enriching search results.
var EnrichFields = []DetailField{FieldOpeningHours}

// DetailsFields is the mask used when a client opens a venue.
var DetailsFields = []DetailField{FieldWebsite, FieldPhone, FieldOpeningHours, FieldURL, FieldPhotos}

// Details is the extra information a provider returns for one place.
type Details struct {
	Website     string   `json:"website,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	MapsURL     string   `json:"mapsUrl,omitempty"`
	WeekdayText []string `json:"weekdayText"`
	IsOpen      *bool    `json:"isOpen,omitempty"`
	Periods     []Period `json:"periods"`
	PhotoURLs   []string `json:"photos"`
}

// SearchProvider finds venues around a point and returns per-place details.
type SearchProvider interface {
	SearchNearby(ctx context.Context, center geo.Point, radiusMeters int, keyword string) ([]RawHit, error)
	// Details returns nil, nil when the provider has nothing for placeID.
	Details(ctx context.Context, placeID string, fields []DetailField) (*Details, error)
}
