package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const geocodeCacheTTL = 30 * 24 * time.Hour

// GeocodingService resolves free-text addresses to coordinates through the
// Nominatim API, with a Redis cache in front. A nil Redis client disables
// caching but not lookups.
type GeocodingService struct {
	baseURL string
	client  *http.Client
	cache   *redis.Client
}

func NewGeocodingService(cache *redis.Client) *GeocodingService {
	baseURL := os.Getenv("NOMINATIM_URL")
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &GeocodingService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type cachedCoords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocode resolves an address to (lat, lng). A miss returns ErrNotFound so
// callers can reject that specific input; provider failures are transient.
func (s *GeocodingService) Geocode(ctx context.Context, address string) (float64, float64, error) {
	if address == "" {
		return 0, 0, ErrNotFound
	}

	cacheKey := "geocode:" + address
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var coords cachedCoords
			if err := json.Unmarshal([]byte(cached), &coords); err == nil {
				return coords.Lat, coords.Lng, nil
			}
		}
	}

	reqURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", s.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	req.Header.Set("User-Agent", "jobatlas-backend")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("%w: geocoding provider returned %d", ErrStoreUnavailable, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(results) == 0 {
		return 0, 0, ErrNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, ErrNotFound
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, ErrNotFound
	}

	if s.cache != nil {
		payload, _ := json.Marshal(cachedCoords{Lat: lat, Lng: lng})
		if err := s.cache.Set(ctx, cacheKey, payload, geocodeCacheTTL).Err(); err != nil {
			log.Printf("Failed to cache geocode result for %q: %v", address, err)
		}
	}

	return lat, lng, nil
}
