package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNoResults = errors.New("no geocoding results found")

type Location struct {
	Latitude  float64
	Longitude float64

	Street  string
	City    string
	State   string
	Zipcode string
	Country string
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]Location, error)
}

type MapQuestGeocoder struct {
	client *resty.Client
	apiKey string
}

func NewMapQuestGeocoder(apiKey string) *MapQuestGeocoder {
	client := resty.New().
		SetBaseURL("https://www.mapquestapi.com").
		SetTimeout(15 * time.Second)

	return &MapQuestGeocoder{client: client, apiKey: apiKey}
}

type mapquestLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type mapquestLocation struct {
	LatLng     mapquestLatLng `json:"latLng"`
	Street     string         `json:"street"`
	AdminArea5 string         `json:"adminArea5"` // city
	AdminArea3 string         `json:"adminArea3"` // state
	AdminArea1 string         `json:"adminArea1"` // country
	PostalCode string         `json:"postalCode"`
}

type mapquestResponse struct {
	Results []struct {
		Locations []mapquestLocation `json:"locations"`
	} `json:"results"`
}

func (g *MapQuestGeocoder) Geocode(ctx context.Context, query string) ([]Location, error) {
	var body mapquestResponse

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetQueryParam("location", query).
		SetResult(&body).
		Get("/geocoding/v1/address")
	if err != nil {
		slog.Error("error calling geocoding provider", "query", query, "error", err)
		return nil, fmt.Errorf("error calling geocoding provider: %w", err)
	}

	if resp.IsError() {
		slog.Error("geocoding provider returned error status", "query", query, "status", resp.StatusCode())
		return nil, fmt.Errorf("geocoding provider returned status %d", resp.StatusCode())
	}

	locations := make([]Location, 0)
	for _, result := range body.Results {
		for _, loc := range result.Locations {
			locations = append(locations, Location{
				Latitude:  loc.LatLng.Lat,
				Longitude: loc.LatLng.Lng,
				Street:    loc.Street,
				City:      loc.AdminArea5,
				State:     loc.AdminArea3,
				Zipcode:   loc.PostalCode,
				Country:   loc.AdminArea1,
			})
		}
	}

	if len(locations) == 0 {
		return nil, ErrNoResults
	}

	return locations, nil
}
