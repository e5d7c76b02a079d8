package geoip

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// IPAPIProvider queries the free ip-api.com JSON endpoint. No key is needed; the free tier
// allows 45 requests per minute.
type IPAPIProvider struct {
	client  *http.Client
	baseURL string
}

type ipAPIResponse struct {
	Status  string `json:"status"` // "success" or "fail"
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
}

func NewIPAPIProvider() *IPAPIProvider {
	return &IPAPIProvider{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "http://ip-api.com/json",
	}
}

func (p *IPAPIProvider) Name() string {
	return "ip-api.com"
}

func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,country,city", p.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ip-api.com response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("ip-api.com lookup failed: %s", result.Message)
	}

	return newLocation(result.Country, result.City), nil
}

// MaxMindProvider queries the MaxMind GeoLite2 City web service with basic auth.
type MaxMindProvider struct {
	client     *http.Client
	accountID  string
	licenseKey string
	baseURL    string
}

type maxMindResponse struct {
	City struct {
		Names map[string]string `json:"names"`
	} `json:"city"`
	Country struct {
		ISOCode string            `json:"iso_code"`
		Names   map[string]string `json:"names"`
	} `json:"country"`
}

type maxMindErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func NewMaxMindProvider(accountID, licenseKey string) *MaxMindProvider {
	return &MaxMindProvider{
		client:     &http.Client{Timeout: 5 * time.Second},
		accountID:  accountID,
		licenseKey: licenseKey,
		baseURL:    "https://geolite.info/geoip/v2.1/city",
	}
}

func (p *MaxMindProvider) Name() string {
	return "maxmind-geolite2"
}

func (p *MaxMindProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	if p.accountID == "" || p.licenseKey == "" {
		return nil, fmt.Errorf("MaxMind credentials not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+ip, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.accountID, p.licenseKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query MaxMind: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp maxMindErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("MaxMind error (%s): %s", errResp.Code, errResp.Error)
		}
		return nil, fmt.Errorf("MaxMind returned status %d", resp.StatusCode)
	}

	var result maxMindResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode MaxMind response: %w", err)
	}

	return newLocation(result.Country.Names["en"], result.City.Names["en"]), nil
}

// NopProvider never resolves anything; used when geo lookup is disabled.
type NopProvider struct{}

func (NopProvider) Name() string { return "none" }

func (NopProvider) Lookup(context.Context, string) (*Location, error) {
	return &Location{}, nil
}

func newLocation(country, city string) *Location {
	loc := &Location{}
	if country != "" {
		loc.Country = &country
	}
	if city != "" {
		loc.City = &city
	}
	return loc
}
