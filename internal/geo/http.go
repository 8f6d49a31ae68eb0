package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoFix is returned when the location service has no position for the teacher.
var ErrNoFix = errors.New("no location fix")

// HTTPLocator asks the location service for the teacher's last known position.
type HTTPLocator struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// NewHTTPLocator creates a client. With skip set every lookup fails with ErrNoFix,
// so a Fallback wrapper resolves to its default.
func NewHTTPLocator(baseURL string, skip bool) *HTTPLocator {
	return &HTTPLocator{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPLocator) Locate(ctx context.Context, teacherID string) (Coordinates, error) {
	if l.Skip {
		return Coordinates{}, ErrNoFix
	}

	endpoint := l.BaseURL + "/locate?teacher=" + url.QueryEscape(teacherID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, err
	}

	resp, err := l.HTTP.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Coordinates{}, ErrNoFix
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Coordinates{}, fmt.Errorf("location service error %s: %s", resp.Status, string(body))
	}

	var out struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Lat == nil || out.Lng == nil {
		return Coordinates{}, ErrNoFix
	}
	return Coordinates{Lat: *out.Lat, Lng: *out.Lng}, nil
}
