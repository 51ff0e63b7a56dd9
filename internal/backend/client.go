// Package backend is the HTTP client for the Future Crop AI prediction API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mandiCropBot/internal/query"
)

// StatusError reports a non-2xx response from the backend, with a short
// preview of the body for diagnostics.
type StatusError struct {
	Op      string
	Code    int
	Preview string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned %d: %s", e.Op, e.Code, e.Preview)
}

type Client struct {
	base string
	http *http.Client
}

// New builds a client for the given base URL. Timeout bounds every call;
// the original UI had none, which left slow backends hanging the page.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// GETs are retried over a short backoff schedule; POSTs are not, since a
// failed prediction or recommendation is re-triggerable by the user.
var backoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond}

func preview(b []byte) string {
	s := string(b)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var lastErr error
	for attempt := 0; attempt < len(backoffs)+1; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffs[attempt-1]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read %s response: %w", op, readErr)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = &StatusError{Op: op, Code: resp.StatusCode, Preview: preview(body)}
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			lastErr = fmt.Errorf("parse %s json: %v; body: %s", op, err, preview(body))
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("read %s response: %w", op, readErr)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: op, Code: resp.StatusCode, Preview: preview(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s json: %v; body: %s", op, err, preview(body))
	}
	return nil
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (HealthResp, error) {
	var out HealthResp
	err := c.getJSON(ctx, "health", "/health", nil, &out)
	return out, err
}

// Models lists the commodities the backend has trained models for.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var out ModelsResp
	if err := c.getJSON(ctx, "models", "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// States lists the states with price data for a commodity.
func (c *Client) States(ctx context.Context, commodity string) ([]string, error) {
	q := url.Values{"commodity": {commodity}}
	var out StatesResp
	if err := c.getJSON(ctx, "states", "/states", q, &out); err != nil {
		return nil, err
	}
	return out.States, nil
}

// Markets lists the markets with price data for a commodity+state pair.
func (c *Client) Markets(ctx context.Context, commodity, state string) ([]string, error) {
	q := url.Values{"commodity": {commodity}, "state": {state}}
	var out MarketsResp
	if err := c.getJSON(ctx, "markets", "/markets", q, &out); err != nil {
		return nil, err
	}
	return out.Markets, nil
}

// Series fetches recent price history for a full selection, ascending by
// date. Callers treat failure as "no history available", not as a hard error.
func (c *Client) Series(ctx context.Context, sel query.Selection, limit int) (Series, error) {
	q := url.Values{
		"commodity": {sel.Commodity},
		"state":     {sel.State},
		"market":    {sel.Market},
	}
	if sel.Date != "" {
		q.Set("date", sel.Date)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out Series
	if err := c.getJSON(ctx, "series", "/series_by_context", q, &out); err != nil {
		return Series{}, err
	}
	return out, nil
}

// Predict submits a full selection for a next-price prediction.
func (c *Client) Predict(ctx context.Context, sel query.Selection) (Prediction, error) {
	in := predictReq{
		Commodity: sel.Commodity,
		State:     sel.State,
		Market:    sel.Market,
		Date:      sel.Date,
	}
	var out Prediction
	err := c.postJSON(ctx, "predict", "/predict_by_context", in, &out)
	return out, err
}

// RecommendCrop submits soil/weather readings for a crop recommendation.
// The readings go out verbatim; bounds are the caller's concern.
func (c *Client) RecommendCrop(ctx context.Context, in query.CropInput) (Recommendation, error) {
	var out Recommendation
	err := c.postJSON(ctx, "crop recommend", "/crop/recommend", in, &out)
	return out, err
}
