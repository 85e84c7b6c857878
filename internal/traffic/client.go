// Package traffic simulates the arena's actors: parallel human and
// bot sessions driving HTTP requests at the target service.
package traffic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/botarena/botarena/internal/target"
	"github.com/botarena/botarena/pkg/types"
	"github.com/valyala/fasthttp"
)

// Client wraps fasthttp with the arena wire contract headers.
type Client struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
}

// ClientOptions configures the traffic client.
type ClientOptions struct {
	BaseURL             string
	Timeout             time.Duration
	MaxConnsPerHost     int
	MaxIdleConnDuration time.Duration
}

// DefaultClientOptions returns sensible defaults.
func DefaultClientOptions(baseURL string) *ClientOptions {
	return &ClientOptions{
		BaseURL:             baseURL,
		Timeout:             10 * time.Second,
		MaxConnsPerHost:     200,
		MaxIdleConnDuration: 10 * time.Second,
	}
}

// NewClient creates a traffic client for one target base URL.
func NewClient(opts *ClientOptions) *Client {
	return &Client{
		client: &fasthttp.Client{
			MaxConnsPerHost:     opts.MaxConnsPerHost,
			MaxIdleConnDuration: opts.MaxIdleConnDuration,
			ReadTimeout:         opts.Timeout,
			WriteTimeout:        opts.Timeout,
		},
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}
}

// PageRequest carries one simulated request plus its behavioral
// evidence headers.
type PageRequest struct {
	Path           string
	SessionID      string
	MouseMovements []types.MousePoint
	DwellTimeMs    int
	PrevContentLen int
}

// PageResponse is the outcome the session logic cares about.
type PageResponse struct {
	StatusCode    int
	ContentLength int
	Challenged    bool
	ResponseTime  time.Duration
	Err           error
}

// Blocked reports whether the detector refused the request outright.
func (r PageResponse) Blocked() bool { return r.StatusCode == fasthttp.StatusForbidden }

// Throttled reports whether the detector slowed the request down.
func (r PageResponse) Throttled() bool { return r.StatusCode == fasthttp.StatusTooManyRequests }

// Get performs one GET against the target, attaching the session id
// and any behavioral headers.
func (c *Client) Get(req PageRequest) PageResponse {
	start := time.Now()

	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(c.baseURL + req.Path)
	freq.Header.SetMethod(fasthttp.MethodGet)
	freq.Header.Set(target.HeaderSessionID, req.SessionID)

	if len(req.MouseMovements) > 0 {
		if raw, err := json.Marshal(req.MouseMovements); err == nil {
			freq.Header.Set(target.HeaderMouseMovements, string(raw))
		}
	}
	if req.DwellTimeMs > 0 {
		freq.Header.Set(target.HeaderDwellTime, strconv.Itoa(req.DwellTimeMs))
	}
	if req.PrevContentLen > 0 {
		freq.Header.Set(target.HeaderPrevContentLen, strconv.Itoa(req.PrevContentLen))
	}

	err := c.client.DoTimeout(freq, fresp, c.timeout)
	elapsed := time.Since(start)
	if err != nil {
		return PageResponse{Err: fmt.Errorf("request %s failed: %w", req.Path, err), ResponseTime: elapsed}
	}

	return PageResponse{
		StatusCode:    fresp.StatusCode(),
		ContentLength: len(fresp.Body()),
		Challenged:    string(fresp.Header.Peek(target.HeaderChallenge)) == "true",
		ResponseTime:  elapsed,
	}
}

// Detections fetches every session's detector results from the
// target's admin surface.
func (c *Client) Detections() (map[string][]types.DetectorResult, error) {
	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(c.baseURL + "/admin/detections")
	freq.Header.SetMethod(fasthttp.MethodGet)

	if err := c.client.DoTimeout(freq, fresp, c.timeout); err != nil {
		return nil, fmt.Errorf("failed to fetch detections: %w", err)
	}
	var detections map[string][]types.DetectorResult
	if err := json.Unmarshal(fresp.Body(), &detections); err != nil {
		return nil, fmt.Errorf("failed to parse detections: %w", err)
	}
	return detections, nil
}

// Reset clears the target's per-session state via the admin surface.
func (c *Client) Reset() error {
	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(c.baseURL + "/admin/reset")
	freq.Header.SetMethod(fasthttp.MethodPost)

	if err := c.client.DoTimeout(freq, fresp, c.timeout); err != nil {
		return fmt.Errorf("admin reset failed: %w", err)
	}
	if fresp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("admin reset returned %d", fresp.StatusCode())
	}
	return nil
}
