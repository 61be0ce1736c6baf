package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPhotonURL = "https://photon.komoot.io"

// PhotonClient implements the Geocoder interface against a Photon instance.
// Photon answers in GeoJSON, with coordinates ordered longitude first.
type PhotonClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPhotonClient creates a Photon geocoder. An empty baseURL targets the
// public komoot.io instance.
func NewPhotonClient(baseURL string) *PhotonClient {
	if baseURL == "" {
		baseURL = defaultPhotonURL
	}
	return &PhotonClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Photon API response structures
type photonResponse struct {
	Features []photonFeature `json:"features"`
}

type photonFeature struct {
	Geometry   photonGeometry   `json:"geometry"`
	Properties photonProperties `json:"properties"`
}

type photonGeometry struct {
	Coordinates []float64 `json:"coordinates"`
}

type photonProperties struct {
	Name     string `json:"name"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Country  string `json:"country"`
	OSMValue string `json:"osm_value"`
}

// Search geocodes a free-text address.
func (c *PhotonClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var result photonResponse
	if err := c.doRequest(ctx, "/api", params, &result); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(result.Features))
	for _, f := range result.Features {
		if cand, ok := convertPhoton(f); ok {
			candidates = append(candidates, cand)
		}
	}
	return candidates, nil
}

// Reverse resolves coordinates to the nearest address.
func (c *PhotonClient) Reverse(ctx context.Context, lat, lng float64) (*Candidate, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var result photonResponse
	if err := c.doRequest(ctx, "/reverse", params, &result); err != nil {
		return nil, err
	}
	if len(result.Features) == 0 {
		return nil, nil
	}
	cand, ok := convertPhoton(result.Features[0])
	if !ok {
		return nil, nil
	}
	return &cand, nil
}

func (c *PhotonClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	apiURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("photon status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func convertPhoton(f photonFeature) (Candidate, bool) {
	if len(f.Geometry.Coordinates) < 2 {
		return Candidate{}, false
	}

	parts := make([]string, 0, 4)
	for _, part := range []string{f.Properties.Name, f.Properties.Street, f.Properties.City, f.Properties.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return Candidate{}, false
	}

	return Candidate{
		DisplayName: strings.Join(parts, ", "),
		Lat:         f.Geometry.Coordinates[1],
		Lng:         f.Geometry.Coordinates[0],
		Kind:        f.Properties.OSMValue,
		Provider:    ProviderPhoton,
	}, true
}
