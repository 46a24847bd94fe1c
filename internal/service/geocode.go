package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Gulshan36/QuickRides/internal/config"
)

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves free-form addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinate, error)
}

// MapsGeocoder is a Geocoder backed by an HTTP maps provider.
type MapsGeocoder struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewMapsGeocoder creates a geocoder from the maps configuration.
func NewMapsGeocoder(cfg config.MapsConfig) *MapsGeocoder {
	return &MapsGeocoder{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

var _ Geocoder = (*MapsGeocoder)(nil)

// Geocode resolves an address. An empty provider result maps to
// ErrAddressNotFound; transport and server failures map to
// ErrGeocoderUnavailable.
func (g *MapsGeocoder) Geocode(ctx context.Context, address string) (Coordinate, error) {
	if address == "" {
		return Coordinate{}, ErrAddressNotFound
	}

	endpoint := fmt.Sprintf("%s/geocode?address=%s&key=%s",
		g.baseURL, url.QueryEscape(address), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Coordinate{}, ErrAddressNotFound
	case resp.StatusCode != http.StatusOK:
		return Coordinate{}, fmt.Errorf("%w: status %d", ErrGeocoderUnavailable, resp.StatusCode)
	}

	var coord Coordinate
	if err := json.NewDecoder(resp.Body).Decode(&coord); err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}

	return coord, nil
}
