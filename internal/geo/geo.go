package geo

import "context"

// Provider identifies a geocoding backend.
type Provider string

const (
	ProviderNominatim Provider = "nominatim"
	ProviderPhoton    Provider = "photon"
)

// Candidate is one address match from a geocoding provider.
type Candidate struct {
	DisplayName string   `json:"display_name"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Kind        string   `json:"kind,omitempty"`
	Provider    Provider `json:"provider"`
}

// Geocoder resolves free-text addresses to coordinates and back. Both
// operations are best effort; an empty result slice is not an error.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
	Reverse(ctx context.Context, lat, lng float64) (*Candidate, error)
}
