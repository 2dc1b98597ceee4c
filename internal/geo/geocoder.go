// ABOUTME: Location lookup for weather and market defaults
// ABOUTME: Coordinates from IP geolocation, names from Nominatim reverse geocoding
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kisandost/kisandost-go/internal/version"
)

// ErrNoPlaceName means the reverse geocoder found no usable name
var ErrNoPlaceName = errors.New("no place name for coordinates")

// Coordinates is a WGS84 position
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves place names from coordinates using Nominatim
type Geocoder struct {
	baseURL string
	client  *http.Client
}

// NewGeocoder creates a geocoder; an empty baseURL uses the public Nominatim
func NewGeocoder(baseURL string, client *http.Client) *Geocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Geocoder{baseURL: baseURL, client: client}
}

type nominatimResponse struct {
	Address struct {
		City   string `json:"city"`
		Town   string `json:"town"`
		Suburb string `json:"suburb"`
		State  string `json:"state"`
	} `json:"address"`
}

// Reverse returns the city, town, suburb or state at c, in that preference
func (g *Geocoder) Reverse(ctx context.Context, c Coordinates) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))

	var body nominatimResponse
	if err := g.getJSON(ctx, g.baseURL+"/reverse?"+q.Encode(), &body); err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}

	for _, name := range []string{body.Address.City, body.Address.Town, body.Address.Suburb, body.Address.State} {
		if name != "" {
			log.Printf("Reverse geocoded %.4f,%.4f to %s", c.Lat, c.Lon, name)
			return name, nil
		}
	}
	return "", ErrNoPlaceName
}

func (g *Geocoder) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	// Nominatim requires an identifying agent
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// IPLocator estimates coordinates from the public IP address
type IPLocator struct {
	url    string
	client *http.Client
}

// NewIPLocator creates a locator; an empty url uses ip-api.com
func NewIPLocator(u string, client *http.Client) *IPLocator {
	if u == "" {
		u = "http://ip-api.com/json/?fields=status,lat,lon"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &IPLocator{url: u, client: client}
}

// Locate returns the approximate position of this host
func (l *IPLocator) Locate(ctx context.Context) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return Coordinates{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("ip geolocation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("ip geolocation failed: HTTP %d", resp.StatusCode)
	}

	var body struct {
		Status string  `json:"status"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinates{}, fmt.Errorf("ip geolocation: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return Coordinates{}, fmt.Errorf("ip geolocation status %q", body.Status)
	}
	return Coordinates{Lat: body.Lat, Lon: body.Lon}, nil
}
