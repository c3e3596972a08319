package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldops/fleettrack/gps"
)

// Client is the HTTP client for the field-service backend.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL. An empty timeout
// leaves request deadlines to the caller's context.
func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// reportPayload is the POST /gps-location body.
type reportPayload struct {
	CrewID     string   `json:"crew_id"`
	DispatchID string   `json:"dispatch_id,omitempty"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Speed      *float64 `json:"speed,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Bearing    *float64 `json:"bearing,omitempty"`
}

// routeResponse is the GET /gps-location/route/{dispatch_id} body. The server
// includes precomputed aggregates; the route loader recomputes them from the
// fixes so the client never trusts stale totals.
type routeResponse struct {
	Route           []gps.Fix `json:"route"`
	TotalDistanceKM float64   `json:"total_distance_km"`
	DurationMinutes float64   `json:"duration_minutes"`
	AvgSpeedKMH     float64   `json:"average_speed_kmh"`
}

// siteRecord is the backend's site shape with a nested location object.
type siteRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Address   string   `json:"address"`
	} `json:"location"`
}

func (s siteRecord) toSite() gps.Site {
	return gps.Site{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Location.Address,
		Latitude:  s.Location.Latitude,
		Longitude: s.Location.Longitude,
	}
}

// ReportFix posts a fix-shaped payload for a crew member. The returned fix is
// the stored record echoed by the backend.
func (c *Client) ReportFix(ctx context.Context, crewID string, r gps.Reading, dispatchID string) (gps.Fix, error) {
	if err := r.Validate(); err != nil {
		return gps.Fix{}, fmt.Errorf("invalid reading: %w", err)
	}
	body := reportPayload{
		CrewID:     crewID,
		DispatchID: dispatchID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Speed:      r.Speed,
		Accuracy:   r.Accuracy,
		Bearing:    r.Bearing,
	}
	var fix gps.Fix
	if err := c.do(ctx, http.MethodPost, "/gps-location", nil, body, &fix); err != nil {
		return gps.Fix{}, err
	}
	return fix, nil
}

// LatestFix returns the most recent fix for a crew member, or nil when the
// backend has nothing recorded.
func (c *Client) LatestFix(ctx context.Context, crewID string) (*gps.Fix, error) {
	var fix gps.Fix
	found, err := c.get(ctx, "/gps-location/live/"+url.PathEscape(crewID), nil, &fix)
	if err != nil {
		return nil, err
	}
	if !found || fix.CrewID == "" {
		return nil, nil
	}
	return &fix, nil
}

// Route returns the ordered fix history for a dispatch.
func (c *Client) Route(ctx context.Context, dispatchID string) ([]gps.Fix, error) {
	var resp routeResponse
	found, err := c.get(ctx, "/gps-location/route/"+url.PathEscape(dispatchID), nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return resp.Route, nil
}

// CrewMembers lists all crew-role users.
func (c *Client) CrewMembers(ctx context.Context) ([]gps.CrewMember, error) {
	var crew []gps.CrewMember
	if _, err := c.get(ctx, "/users", url.Values{"role": {"crew"}}, &crew); err != nil {
		return nil, err
	}
	return crew, nil
}

// InProgressDispatch returns the crew member's active dispatch, or nil when
// none is in progress. The backend guarantees zero-or-one per crew member.
func (c *Client) InProgressDispatch(ctx context.Context, crewID string) (*gps.Dispatch, error) {
	var dispatches []gps.Dispatch
	q := url.Values{"crew_id": {crewID}, "status": {"in_progress"}}
	if _, err := c.get(ctx, "/dispatches", q, &dispatches); err != nil {
		return nil, err
	}
	if len(dispatches) == 0 {
		return nil, nil
	}
	return &dispatches[0], nil
}

// Sites lists all service sites.
func (c *Client) Sites(ctx context.Context) ([]gps.Site, error) {
	var records []siteRecord
	if _, err := c.get(ctx, "/sites", nil, &records); err != nil {
		return nil, err
	}
	sites := make([]gps.Site, 0, len(records))
	for _, r := range records {
		sites = append(sites, r.toSite())
	}
	return sites, nil
}

// Site returns a single site record.
func (c *Client) Site(ctx context.Context, id string) (gps.Site, error) {
	var record siteRecord
	found, err := c.get(ctx, "/sites/"+url.PathEscape(id), nil, &record)
	if err != nil {
		return gps.Site{}, err
	}
	if !found {
		return gps.Site{}, fmt.Errorf("site %s not found", id)
	}
	return record.toSite(), nil
}

// get performs a GET and decodes the response. The bool result is false when
// the resource is absent (404 or an empty body), which callers treat as
// "nothing recorded" rather than an error.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
