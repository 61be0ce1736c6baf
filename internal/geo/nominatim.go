package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimClient implements the Geocoder interface against a Nominatim
// instance. The public instance requires an identifying User-Agent.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient creates a Nominatim geocoder. An empty baseURL targets
// the public openstreetmap.org instance.
func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Nominatim API response structures
type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
}

// Search geocodes a free-text address.
func (c *NominatimClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))

	var places []nominatimPlace
	if err := c.doRequest(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(places))
	for _, p := range places {
		if cand, ok := convertNominatim(p); ok {
			candidates = append(candidates, cand)
		}
	}
	return candidates, nil
}

// Reverse resolves coordinates to the nearest address.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lng float64) (*Candidate, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "jsonv2")

	var place nominatimPlace
	if err := c.doRequest(ctx, "/reverse", params, &place); err != nil {
		return nil, err
	}
	cand, ok := convertNominatim(place)
	if !ok {
		return nil, nil
	}
	return &cand, nil
}

// doRequest performs a GET against the Nominatim API.
func (c *NominatimClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	apiURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nominatim status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func convertNominatim(p nominatimPlace) (Candidate, bool) {
	lat, err1 := strconv.ParseFloat(p.Lat, 64)
	lon, err2 := strconv.ParseFloat(p.Lon, 64)
	if p.DisplayName == "" || err1 != nil || err2 != nil {
		return Candidate{}, false
	}
	return Candidate{
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lng:         lon,
		Kind:        p.Type,
		Provider:    ProviderNominatim,
	}, true
}
